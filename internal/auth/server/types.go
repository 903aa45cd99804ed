// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package server

import (
	"net/http"
	"slices"
	"time"
)

// AuthInfo holds information about a validated access token
// and is provided to the MCP handler through the request context
type AuthInfo struct {
	// Token is the original access token string
	Token string `json:"token"`

	// ClientID is the client identifier associated with this token
	ClientID string `json:"clientId"`

	// Subject is the principal the token represents
	Subject string `json:"subject,omitempty"`

	// Scopes are the permission scopes granted with this token
	Scopes []string `json:"scopes"`

	// ExpiresAt is the token expiration time in seconds since Unix epoch.
	// nil means the token does not expire.
	ExpiresAt *int64 `json:"expiresAt,omitempty"`

	// Extra carries verifier specific claims
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// HasScopes reports whether every scope in required was granted.
func (a *AuthInfo) HasScopes(required []string) bool {
	for _, s := range required {
		if !slices.Contains(a.Scopes, s) {
			return false
		}
	}
	return true
}

// Expired reports whether ExpiresAt lies before now.
func (a *AuthInfo) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && *a.ExpiresAt < now.Unix()
}

// TokenVerifier checks the bearer token of an MCP request.
// A nil AuthInfo with a nil error means the request carries no usable credentials.
type TokenVerifier interface {
	VerifyAccessToken(r *http.Request, token string) (*AuthInfo, error)
}

// TokenVerifierFunc adapts an ordinary function to TokenVerifier
type TokenVerifierFunc func(r *http.Request, token string) (*AuthInfo, error)

// VerifyAccessToken calls f(r, token)
func (f TokenVerifierFunc) VerifyAccessToken(r *http.Request, token string) (*AuthInfo, error) {
	return f(r, token)
}
