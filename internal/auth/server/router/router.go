// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

// Package router dispatches the fixed MCP and OAuth paths to their handlers.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/handler"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/middleware"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/log"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/telemetry"
)

// DefaultBasePath prefixes the MCP and /auth paths when Options.BasePath is empty.
const DefaultBasePath = "/api"

// Well-known discovery paths. They never carry the base path.
const (
	DiscoveryPath = "/.well-known/oauth-authorization-server"
	ProtectedPath = "/.well-known/oauth-protected-resource"
)

// Endpoint names used as the telemetry endpoint attribute.
const (
	EndpointMCP       = "mcp"
	EndpointDiscovery = "discovery"
	EndpointProtected = "protected_resource"
	EndpointRegister  = "register"
	EndpointAuthorize = "authorize"
	EndpointToken     = "token"
)

var (
	// ErrMissingAuthConfig is returned when NeedAuth is set without Metadata or Auth.
	ErrMissingAuthConfig = errors.New("need auth requires metadata and auth configuration")
	// ErrMissingMCPHandler is returned when no MCP handler is configured.
	ErrMissingMCPHandler = errors.New("mcp handler is required")
)

// MCPHandlerParams describes the MCP server mounted at {base}/mcp.
type MCPHandlerParams struct {
	Handler http.Handler
	// VerifyToken authenticates bearer tokens. Nil never authenticates.
	VerifyToken server.TokenVerifier
}

// Options configures a Router.
type Options struct {
	BasePath string
	NeedAuth bool
	MCP      MCPHandlerParams
	Metadata *server.Metadata
	Auth     *server.AuthConfig
	// Next handles every request the router does not own. Nil answers 404.
	Next http.Handler

	Logger *zap.Logger
	// DebugFilter selects debug categories. Nil reads the DEBUG environment variable.
	DebugFilter       *log.Filter
	MeterProvider     metric.MeterProvider
	TracerProvider    trace.TracerProvider
	Audit             *middleware.AuditMiddlewareOptions
	RegisterRateLimit *middleware.RateLimitConfig
}

// PathSet holds the paths a router answers.
type PathSet struct {
	MCP       string
	Discovery string
	Protected string
	Register  string
	Authorize string
	Token     string
}

// NewPathSet computes the paths for basePath.
func NewPathSet(basePath string) PathSet {
	return PathSet{
		MCP:       basePath + "/mcp",
		Discovery: DiscoveryPath,
		Protected: ProtectedPath,
		Register:  basePath + "/auth/register",
		Authorize: basePath + "/auth/authorize",
		Token:     basePath + "/auth/token",
	}
}

// Router dispatches requests by exact path. It is safe for concurrent use.
type Router struct {
	paths    PathSet
	needAuth bool
	handlers map[string]http.Handler
	next     http.Handler
	logger   *zap.Logger
}

// New validates options and builds every endpoint handler once.
func New(options Options) (*Router, error) {
	if options.MCP.Handler == nil {
		return nil, ErrMissingMCPHandler
	}
	if options.NeedAuth && (options.Metadata == nil || options.Auth == nil) {
		return nil, ErrMissingAuthConfig
	}

	basePath := normalizeBasePath(options.BasePath)
	paths := NewPathSet(basePath)

	filter := log.FilterFromEnv()
	if options.DebugFilter != nil {
		filter = *options.DebugFilter
	}
	loggers := log.NewLoggers(options.Logger, filter)

	instruments, err := telemetry.New(options.TracerProvider, options.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry instruments: %w", err)
	}

	var requiredScopes []string
	if options.Metadata != nil {
		requiredScopes = options.Metadata.ScopesSupported
	}
	handlers := map[string]http.Handler{
		paths.MCP: instruments.Wrap(EndpointMCP, handler.MCPHandler(handler.MCPOptions{
			Handler:              options.MCP.Handler,
			Verifier:             options.MCP.VerifyToken,
			NeedAuth:             options.NeedAuth,
			RequiredScopes:       requiredScopes,
			ResourceMetadataPath: paths.Protected,
			Logger:               loggers.MCP,
		})),
	}

	if options.NeedAuth {
		audit := func(h http.Handler) http.Handler { return h }
		if options.Audit != nil {
			auditOptions := *options.Audit
			if auditOptions.Logger == nil {
				auditOptions.Logger = middleware.NewAuditLogger(loggers.Audit)
			}
			audit, err = middleware.AuditMiddleware(&auditOptions)
			if err != nil {
				return nil, fmt.Errorf("failed to create audit middleware: %w", err)
			}
		}

		oauth := map[string]struct {
			endpoint string
			handler  http.Handler
		}{
			paths.Discovery: {EndpointDiscovery, handler.DiscoveryHandler(handler.DiscoveryOptions{
				BasePath: basePath,
				Metadata: options.Metadata,
				Logger:   loggers.Discovery,
			})},
			paths.Protected: {EndpointProtected, handler.ProtectedResourceHandler(handler.ProtectedResourceOptions{
				Metadata: options.Metadata,
				Logger:   loggers.Protected,
			})},
			paths.Register: {EndpointRegister, handler.RegistrationHandler(handler.RegistrationOptions{
				BasePath:  basePath,
				Metadata:  options.Metadata,
				RateLimit: options.RegisterRateLimit,
				Logger:    loggers.Register,
			})},
			paths.Authorize: {EndpointAuthorize, handler.AuthorizeHandler(handler.AuthorizeOptions{
				Auth:   options.Auth,
				Logger: loggers.Authorize,
			})},
			paths.Token: {EndpointToken, handler.TokenHandler(handler.TokenOptions{
				Auth:   options.Auth,
				Logger: loggers.Token,
			})},
		}
		for path, e := range oauth {
			handlers[path] = instruments.Wrap(e.endpoint, audit(e.handler))
		}
	}

	return &Router{
		paths:    paths,
		needAuth: options.NeedAuth,
		handlers: handlers,
		next:     options.Next,
		logger:   loggers.Index,
	}, nil
}

// normalizeBasePath applies the default and drops trailing slashes, so "/" mounts at the root.
func normalizeBasePath(basePath string) string {
	if basePath == "" {
		return DefaultBasePath
	}
	basePath = strings.TrimRight(basePath, "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return basePath
}

// PathSet returns the computed paths.
func (rt *Router) PathSet() PathSet {
	return rt.paths
}

// Matcher returns the paths a host framework should route to the middleware.
// The authorize and token paths are not part of it.
func (rt *Router) Matcher() []string {
	return []string{rt.paths.MCP, rt.paths.Discovery, rt.paths.Protected, rt.paths.Register}
}

// Paths returns all six paths the router knows.
func (rt *Router) Paths() []string {
	return []string{
		rt.paths.MCP,
		rt.paths.Discovery,
		rt.paths.Protected,
		rt.paths.Register,
		rt.paths.Authorize,
		rt.paths.Token,
	}
}

// ServeHTTP dispatches on exact path equality. OAuth paths are only served when NeedAuth is set.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.logger.Debug("dispatch",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Bool("need_auth", rt.needAuth))

	if h, ok := rt.handlers[r.URL.Path]; ok {
		h.ServeHTTP(w, r)
		return
	}

	if rt.next != nil {
		rt.next.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

// Middleware returns a copy of the router that falls through to next.
func (rt *Router) Middleware(next http.Handler) http.Handler {
	cp := *rt
	cp.next = next
	return &cp
}

// Register mounts every served path on mux.
func (rt *Router) Register(mux *http.ServeMux) {
	for _, path := range rt.Paths() {
		if _, ok := rt.handlers[path]; ok {
			mux.Handle(path, rt)
		}
	}
}
