// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package middleware

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

// BearerAuthMiddlewareOptions defines configuration for the Bearer auth middleware
type BearerAuthMiddlewareOptions struct {
	// Verifier validates the access token. A nil Verifier never authenticates.
	Verifier server.TokenVerifier

	// Required rejects requests that the verifier did not authenticate.
	// When false such requests pass through anonymously.
	Required bool

	// RequiredScopes lists scopes that must all be present in the token
	RequiredScopes []string

	// ResourceMetadataPath is resolved against the request origin and
	// advertised in the WWW-Authenticate header
	ResourceMetadataPath string

	Logger *zap.Logger

	// Now defaults to time.Now
	Now func() time.Time
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
// It returns "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	scheme, token, _ := strings.Cut(r.Header.Get("Authorization"), " ")
	if !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return token
}

// RequireBearerAuth returns an HTTP middleware that validates Bearer tokens on incoming requests
func RequireBearerAuth(options BearerAuthMiddlewareOptions) func(handler http.Handler) http.Handler {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			fail := func(oauthErr errors.OAuthError, status int) {
				c := server.Challenge{}
				if options.ResourceMetadataPath != "" {
					c.ResourceMetadata = RequestOrigin(req) + options.ResourceMetadataPath
				}
				if status == http.StatusForbidden && len(options.RequiredScopes) > 0 {
					c.Scope = strings.Join(options.RequiredScopes, " ")
				}
				ApplyCors(w, req)
				server.WriteAuthChallenge(w, status, oauthErr, c)
			}

			var (
				authInfo *server.AuthInfo
				err      error
			)
			if options.Verifier != nil {
				authInfo, err = options.Verifier.VerifyAccessToken(req, BearerToken(req))
			}
			if err != nil {
				logger.Debug("token verification failed", zap.Error(err))
				var oauthErr errors.OAuthError
				if stderrors.As(err, &oauthErr) {
					fail(oauthErr, server.DetermineAuthError(oauthErr))
					return
				}
				fail(errors.NewOAuthError(errors.ErrInvalidToken, "Invalid token", ""), http.StatusUnauthorized)
				return
			}

			if authInfo == nil {
				if options.Required {
					fail(errors.NewOAuthError(errors.ErrInvalidToken, "No authorization provided", ""), http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, req)
				return
			}

			if !authInfo.HasScopes(options.RequiredScopes) {
				fail(errors.NewOAuthError(errors.ErrInsufficientScope, "Insufficient scope", ""), http.StatusForbidden)
				return
			}

			if authInfo.Expired(now()) {
				fail(errors.NewOAuthError(errors.ErrInvalidToken, "Token has expired", ""), http.StatusUnauthorized)
				return
			}

			logger.Debug("request authenticated",
				zap.String("client_id", authInfo.ClientID),
				zap.Strings("scopes", authInfo.Scopes))
			next.ServeHTTP(w, req.WithContext(server.WithAuthInfo(req.Context(), authInfo)))
		})
	}
}
