// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package handler

import (
	stderrors "errors"
	"fmt"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/middleware"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

const maxTokenFormMemory = 1 << 20

// UnsupportedGrantTypeMessage is the error of a token request whose grant is not authorization_code
const UnsupportedGrantTypeMessage = "Unsupported grant type"

var errTokenNotConfigured = stderrors.New("token exchange is not configured")

// TokenOptions configures the token endpoint
type TokenOptions struct {
	Auth   *server.AuthConfig
	Logger *zap.Logger
}

// parseTokenForm reads an urlencoded or multipart token request body
func parseTokenForm(r *http.Request) (auth.TokenCallParams, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return auth.TokenCallParams{}, fmt.Errorf("parse content type: %w", err)
	}
	switch mediaType {
	case "application/x-www-form-urlencoded":
		err = r.ParseForm()
	case "multipart/form-data":
		err = r.ParseMultipartForm(maxTokenFormMemory)
	default:
		err = fmt.Errorf("unsupported content type %q", mediaType)
	}
	if err != nil {
		return auth.TokenCallParams{}, err
	}

	optional := func(key string) *string {
		if vals, ok := r.PostForm[key]; ok && len(vals) > 0 {
			return &vals[0]
		}
		return nil
	}
	return auth.TokenCallParams{
		Code:         r.PostForm.Get("code"),
		GrantType:    r.PostForm.Get("grant_type"),
		ClientID:     r.PostForm.Get("client_id"),
		ClientSecret: optional("client_secret"),
		CodeVerifier: optional("code_verifier"),
	}, nil
}

// TokenHandler forwards an authorization_code token request to the configured
// exchange and returns its result verbatim
func TokenHandler(options TokenOptions) http.Handler {
	logger := nopIfNil(options.Logger)

	fail := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("token exchange failed", zap.Error(err))
		_ = middleware.JSONWithCors(w, r, http.StatusInternalServerError,
			errors.NewOAuthError(errors.ErrInternalServerError, err.Error(), "").ToResponseStruct(), nil)
	}

	core := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			middleware.Preflight(w, r, http.StatusNoContent)
			return
		}

		params, err := parseTokenForm(r)
		if err != nil {
			fail(w, r, err)
			return
		}
		logger.Debug("token request",
			zap.String("grant_type", params.GrantType),
			zap.String("client_id", params.ClientID),
			zap.Bool("has_code_verifier", params.CodeVerifier != nil))

		if params.GrantType != auth.GrantTypeAuthorizationCode {
			_ = middleware.JSONWithCors(w, r, http.StatusBadRequest,
				map[string]string{"error": UnsupportedGrantTypeMessage}, nil)
			return
		}
		if options.Auth == nil || options.Auth.Token == nil {
			fail(w, r, errTokenNotConfigured)
			return
		}

		result, err := options.Auth.Token(r.Context(), params, r)
		if err != nil {
			fail(w, r, err)
			return
		}
		if err := middleware.JSONWithCors(w, r, http.StatusOK, result, nil); err != nil {
			fail(w, r, err)
		}
	})

	return middleware.AllowedMethods([]string{http.MethodPost, http.MethodOptions})(core)
}
