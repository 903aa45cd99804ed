// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

// Package mcpmiddleware mounts an MCP server and a minimal OAuth2 authorization
// server facade on a net/http pipeline.
//
// The middleware answers a fixed set of paths:
//
//	{base}/mcp                               MCP endpoint guarded by bearer auth
//	/.well-known/oauth-authorization-server  authorization server metadata
//	/.well-known/oauth-protected-resource    protected resource metadata
//	{base}/auth/register                     dynamic client registration
//	{base}/auth/authorize                    redirect to the upstream authorize URL
//	{base}/auth/token                        token exchange through a callback
//
// Every other request goes to the next handler.
package mcpmiddleware

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/middleware"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/router"
)

// Public aliases of the internal types callers configure the middleware with.
type (
	// Options configures the middleware.
	Options = router.Options
	// MCPHandlerParams describes the MCP server and its token verifier.
	MCPHandlerParams = router.MCPHandlerParams
	// Metadata overrides discovery fields and supplies registration credentials.
	Metadata = server.Metadata
	// ValueFunc yields a credential value per registration.
	ValueFunc = server.ValueFunc
	// AuthConfig holds the authorize and token callbacks.
	AuthConfig = server.AuthConfig
	// AuthEndpointFunc computes the upstream authorize URL.
	AuthEndpointFunc = server.AuthEndpointFunc
	// TokenFunc performs the authorization code exchange.
	TokenFunc = server.TokenFunc
	// AuthCallParams are the authorize query parameters.
	AuthCallParams = auth.AuthCallParams
	// TokenCallParams are the token form fields.
	TokenCallParams = auth.TokenCallParams
	// AuthInfo describes an authenticated MCP caller.
	AuthInfo = server.AuthInfo
	// TokenVerifier authenticates MCP bearer tokens.
	TokenVerifier = server.TokenVerifier
	// TokenVerifierFunc adapts a function to TokenVerifier.
	TokenVerifierFunc = server.TokenVerifierFunc
	// RateLimitConfig limits dynamic client registration.
	RateLimitConfig = middleware.RateLimitConfig
	// AuditOptions configures the audit trail of the OAuth endpoints.
	AuditOptions = middleware.AuditMiddlewareOptions
	// AuditEvent is one audit record.
	AuditEvent = middleware.AuditEvent
	// AuditLogger receives audit records.
	AuditLogger = middleware.AuditLogger
)

// Errors returned by New.
var (
	ErrMissingAuthConfig = router.ErrMissingAuthConfig
	ErrMissingMCPHandler = router.ErrMissingMCPHandler
)

// Well-known paths served regardless of the base path.
const (
	DiscoveryPath   = router.DiscoveryPath
	ProtectedPath   = router.ProtectedPath
	DefaultBasePath = router.DefaultBasePath
)

// Option adjusts Options before the middleware is built.
type Option func(*Options)

// WithLogger sets the zap logger the endpoints log to.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithNext sets the handler for requests the middleware does not own.
func WithNext(next http.Handler) Option {
	return func(o *Options) {
		o.Next = next
	}
}

// WithMeterProvider records request metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Options) {
		o.MeterProvider = mp
	}
}

// WithTracerProvider records spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// WithAudit enables the audit trail on the OAuth endpoints.
func WithAudit(options *AuditOptions) Option {
	return func(o *Options) {
		o.Audit = options
	}
}

// WithRegisterRateLimit limits dynamic client registration.
func WithRegisterRateLimit(c *RateLimitConfig) Option {
	return func(o *Options) {
		o.RegisterRateLimit = c
	}
}

// Middleware is an http.Handler serving the MCP and OAuth paths.
type Middleware struct {
	*router.Router
}

// New builds the middleware. The options are copied; later changes to them have no effect.
func New(options Options, opts ...Option) (*Middleware, error) {
	for _, opt := range opts {
		opt(&options)
	}
	rt, err := router.New(options)
	if err != nil {
		return nil, err
	}
	return &Middleware{Router: rt}, nil
}

// Wrap builds the middleware as a func(http.Handler) http.Handler for handler chains.
func Wrap(options Options, opts ...Option) (func(http.Handler) http.Handler, error) {
	m, err := New(options, opts...)
	if err != nil {
		return nil, err
	}
	return m.Middleware, nil
}

// Literal returns a ValueFunc that always yields s.
func Literal(s string) ValueFunc {
	return server.Literal(s)
}

// GetAuthInfo returns the caller authenticated by the MCP endpoint.
func GetAuthInfo(ctx context.Context) (*AuthInfo, bool) {
	return server.GetAuthInfo(ctx)
}

// WithAuthInfo stores info in ctx. MCP handlers under test can use it to fake a caller.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return server.WithAuthInfo(ctx, info)
}
