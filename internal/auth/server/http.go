// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	oauthErrors "trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

type ctxKey int

const ctxKeyAuthInfo ctxKey = iota

// WithAuthInfo writes authentication information into the context
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	if info == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyAuthInfo, info)
}

// GetAuthInfo retrieves authentication information from the context
func GetAuthInfo(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(ctxKeyAuthInfo).(*AuthInfo)
	return info, ok && info != nil
}

// Challenge is the content of a Bearer WWW-Authenticate header (RFC 6750, RFC 9728)
type Challenge struct {
	Error            string
	ErrorDescription string
	Scope            string
	ResourceMetadata string
}

// String renders the challenge as a header value
func (c Challenge) String() string {
	var b strings.Builder
	b.WriteString("Bearer")
	sep := " "
	add := func(k, v string) {
		if v == "" {
			return
		}
		fmt.Fprintf(&b, `%s%s="%s"`, sep, k, strings.ReplaceAll(v, `"`, `'`))
		sep = ", "
	}
	add("error", c.Error)
	add("error_description", c.ErrorDescription)
	add("scope", c.Scope)
	add("resource_metadata", c.ResourceMetadata)
	return b.String()
}

// WriteAuthChallenge writes a Bearer challenge header and a JSON OAuth error
// body with the given status
func WriteAuthChallenge(w http.ResponseWriter, status int, oauthErr oauthErrors.OAuthError, c Challenge) {
	c.Error = oauthErr.ErrorCode
	c.ErrorDescription = oauthErr.Message
	w.Header().Set("WWW-Authenticate", c.String())
	w.Header().Set("Cache-Control", "no-store")
	oauthErr.WriteJSON(w, status)
}

// DetermineAuthError maps an OAuth error to its HTTP status
func DetermineAuthError(err error) int {
	switch {
	case errors.Is(err, oauthErrors.ErrInsufficientScope):
		return http.StatusForbidden
	case errors.Is(err, oauthErrors.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, oauthErrors.ErrServerError):
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}
