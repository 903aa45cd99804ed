// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	defaultAllowHeaders = "Content-Type, Authorization"
	corsMaxAge          = "86400"
	corsVary            = "Origin, Access-Control-Request-Method, Access-Control-Request-Headers"
)

// RequestOrigin returns scheme://host for the request as seen by the client.
// X-Forwarded-Proto wins over the connection's own scheme.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

// CorsHeaders computes the CORS response headers for r.
// The request origin is echoed back so that credentials are allowed; "*" is never used.
func CorsHeaders(r *http.Request) http.Header {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = RequestOrigin(r)
	}
	methods := r.Header.Get("Access-Control-Request-Method")
	if methods == "" {
		methods = defaultAllowMethods
	}
	headers := r.Header.Get("Access-Control-Request-Headers")
	if headers == "" {
		headers = defaultAllowHeaders
	}

	h := make(http.Header)
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", methods)
	h.Set("Access-Control-Allow-Headers", headers)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Max-Age", corsMaxAge)
	h.Set("Vary", corsVary)
	return h
}

// ApplyCors copies the CORS headers for r onto w
func ApplyCors(w http.ResponseWriter, r *http.Request) {
	for k, v := range CorsHeaders(r) {
		w.Header()[k] = v
	}
}

// JSONWithCors writes v as a JSON response with CORS headers.
// extra headers are applied after the CORS ones and may override them.
// Nothing is written when v cannot be encoded, which is the only error returned.
func JSONWithCors(w http.ResponseWriter, r *http.Request, status int, v any, extra http.Header) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	ApplyCors(w, r)
	w.Header().Set("Content-Type", "application/json")
	for k, vals := range extra {
		w.Header()[http.CanonicalHeaderKey(k)] = vals
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return nil
}

// Preflight answers a CORS preflight request with an empty body
func Preflight(w http.ResponseWriter, r *http.Request, status int) {
	ApplyCors(w, r)
	w.WriteHeader(status)
}
