// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package middleware

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
)

// MethodNotAllowedMessage is the body message of every 405 response
const MethodNotAllowedMessage = "Method not allowed"

// AllowedMethods returns a middleware that permits only the provided HTTP methods
// If the request method is not allowed it responds with 405 Method Not Allowed
// The response includes an Allow header and a JSON body {"message":"Method not allowed"}
func AllowedMethods(methods []string) func(http.Handler) http.Handler {
	allow := strings.Join(methods, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Allow", allow)
			WriteMethodNotAllowed(w)
		})
	}
}

// WriteMethodNotAllowed writes the 405 JSON body
func WriteMethodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": MethodNotAllowedMessage})
}
