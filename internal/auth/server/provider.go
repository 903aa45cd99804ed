// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package server

import (
	"context"
	"net/http"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth"
)

// ValueFunc produces a string value each time it is called.
// It lets credentials be either fixed or computed per request.
type ValueFunc func() string

// Literal returns a ValueFunc that always yields s
func Literal(s string) ValueFunc {
	return func() string { return s }
}

// Metadata overrides the generated discovery document and supplies the
// credentials handed out by dynamic client registration.
// Empty endpoint fields fall back to URLs derived from the request origin.
type Metadata struct {
	Issuer                 string
	AuthorizationEndpoint  string
	TokenEndpoint          string
	RegistrationEndpoint   string
	UserinfoEndpoint       string
	ScopesSupported        []string
	ResponseTypesSupported []string

	// ClientID and ClientSecret are returned to every registering client.
	// When nil a random value is generated per registration.
	ClientID     ValueFunc
	ClientSecret ValueFunc
}

// Scopes returns the configured scopes or the default ["profile"]
func (m *Metadata) Scopes() []string {
	if m == nil || len(m.ScopesSupported) == 0 {
		return []string{DefaultScope}
	}
	return m.ScopesSupported
}

// ResponseTypes returns the configured response types or the default ["code"]
func (m *Metadata) ResponseTypes() []string {
	if m == nil || len(m.ResponseTypesSupported) == 0 {
		return []string{"code"}
	}
	return m.ResponseTypesSupported
}

// DefaultScope is used when neither the configuration nor the request names a scope.
const DefaultScope = "profile"

// AuthEndpointFunc computes the upstream authorization URL for an authorize request
type AuthEndpointFunc func(ctx context.Context, params auth.AuthCallParams) (string, error)

// TokenFunc performs the code exchange for a token request. Its result is
// serialized as the JSON response body.
type TokenFunc func(ctx context.Context, params auth.TokenCallParams, r *http.Request) (any, error)

// AuthConfig holds the callbacks backing the authorize and token endpoints
type AuthConfig struct {
	// AuthEndpointURL is a fixed redirect target, used when AuthEndpoint is nil
	AuthEndpointURL string
	// AuthEndpoint takes precedence over AuthEndpointURL
	AuthEndpoint AuthEndpointFunc
	// Token is required for the token endpoint to succeed
	Token TokenFunc
}

// RedirectTarget resolves where an authorize request should be sent.
// An empty result means nothing is configured.
func (c *AuthConfig) RedirectTarget(ctx context.Context, params auth.AuthCallParams) (string, error) {
	if c == nil {
		return "", nil
	}
	if c.AuthEndpoint != nil {
		return c.AuthEndpoint(ctx, params)
	}
	return c.AuthEndpointURL, nil
}
