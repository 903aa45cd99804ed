// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package handler

import (
	"net/http"

	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/middleware"
)

// MCPOptions configures the MCP endpoint
type MCPOptions struct {
	// Handler serves the MCP protocol once the request is authenticated
	Handler  http.Handler
	Verifier server.TokenVerifier
	// NeedAuth rejects requests the verifier does not authenticate
	NeedAuth             bool
	RequiredScopes       []string
	ResourceMetadataPath string
	Logger               *zap.Logger
}

// MCPHandler guards the MCP server with bearer authentication. Only GET and POST are served.
func MCPHandler(options MCPOptions) http.Handler {
	guarded := middleware.RequireBearerAuth(middleware.BearerAuthMiddlewareOptions{
		Verifier:             options.Verifier,
		Required:             options.NeedAuth,
		RequiredScopes:       options.RequiredScopes,
		ResourceMetadataPath: options.ResourceMetadataPath,
		Logger:               options.Logger,
	})(options.Handler)

	return middleware.AllowedMethods([]string{http.MethodGet, http.MethodPost})(guarded)
}
