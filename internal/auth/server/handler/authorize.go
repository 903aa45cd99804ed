// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package handler

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/middleware"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

const (
	statePrefix = "state_"
	stateLength = 7
)

// AuthorizeOptions configures the authorize endpoint
type AuthorizeOptions struct {
	Auth   *server.AuthConfig
	Logger *zap.Logger
}

// authorizeParams reads the authorize query, filling the scope and state defaults
func authorizeParams(r *http.Request) (auth.AuthCallParams, error) {
	q := r.URL.Query()
	params := auth.AuthCallParams{
		ResponseType: q.Get("response_type"),
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		Scope:        q.Get("scope"),
		State:        q.Get("state"),
	}
	if params.Scope == "" {
		params.Scope = server.DefaultScope
	}
	if params.State == "" {
		s, err := server.RandomToken(stateLength)
		if err != nil {
			return params, fmt.Errorf("generate state: %w", err)
		}
		params.State = statePrefix + s
	}
	return params, nil
}

// AuthorizeHandler redirects an authorize request to the configured upstream
// authorization endpoint. No code is issued here.
func AuthorizeHandler(options AuthorizeOptions) http.Handler {
	logger := nopIfNil(options.Logger)

	core := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			middleware.Preflight(w, r, http.StatusNoContent)
			return
		}

		params, err := authorizeParams(r)
		var target string
		if err == nil {
			target, err = options.Auth.RedirectTarget(r.Context(), params)
		}
		if err != nil {
			logger.Error("resolve authorization endpoint", zap.Error(err))
			middleware.ApplyCors(w, r)
			errors.NewOAuthError(errors.ErrInternalServerError, err.Error(), "").
				WriteJSON(w, http.StatusInternalServerError)
			return
		}

		logger.Debug("redirecting authorization request",
			zap.String("client_id", params.ClientID),
			zap.String("redirect_uri", params.RedirectURI),
			zap.String("scope", params.Scope))
		if target == "" {
			logger.Warn("no authorization endpoint configured, redirecting to an empty location")
		}
		// http.Redirect would rewrite an empty or relative target against the request path.
		w.Header().Set("Location", target)
		w.WriteHeader(http.StatusFound)
	})

	return middleware.AllowedMethods([]string{http.MethodGet, http.MethodOptions})(core)
}
