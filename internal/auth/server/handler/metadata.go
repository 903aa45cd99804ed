// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package handler

import (
	"net/http"

	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/middleware"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

const (
	metadataCacheControl          = "public, max-age=3600"
	protectedResourceCacheControl = "max-age=3600"
)

var (
	encryptionAlgs    = []string{"RSA1_5", "RSA-OAEP", "A128KW", "A256KW"}
	encryptionEncs    = []string{"A128CBC-HS256", "A256CBC-HS512", "A128GCM", "A256GCM"}
	signingAlgs       = []string{"RS256", "ES256", "HS256"}
	signingAlgsOrNone = []string{"RS256", "ES256", "HS256", "none"}
	locales           = []string{"en", "zh-CN"}
)

// DiscoveryOptions configures the authorization server metadata endpoint
type DiscoveryOptions struct {
	BasePath string
	Metadata *server.Metadata
	Logger   *zap.Logger
}

// BuildAuthorizationServerMetadata assembles the RFC 8414 document for a server
// reachable at baseURL. Endpoint overrides in m win over the derived URLs.
func BuildAuthorizationServerMetadata(baseURL, basePath string, m *server.Metadata) (*auth.AuthorizationServerMetadata, error) {
	var o server.Metadata
	if m != nil {
		o = *m
	}
	if o.Issuer != "" {
		if err := auth.ValidateIssuer(o.Issuer); err != nil {
			return nil, err
		}
	}
	authBase := baseURL + basePath + "/auth"

	return &auth.AuthorizationServerMetadata{
		Issuer:                                     orDefault(o.Issuer, baseURL),
		AuthorizationEndpoint:                      orDefault(o.AuthorizationEndpoint, authBase+"/authorize"),
		TokenEndpoint:                              orDefault(o.TokenEndpoint, authBase+"/token"),
		UserinfoEndpoint:                           orDefault(o.UserinfoEndpoint, authBase+"/userinfo"),
		JwksURI:                                    baseURL + "/.well-known/jwks.json",
		GrantTypesSupported:                        []string{auth.GrantTypeAuthorizationCode, auth.GrantTypeClientCredentials, auth.GrantTypeRefreshToken},
		ResponseTypesSupported:                     m.ResponseTypes(),
		ScopesSupported:                            m.Scopes(),
		TokenEndpointAuthMethodsSupported:          []string{"client_secret_basic", "client_secret_post", "client_secret_jwt", "private_key_jwt"},
		SubjectTypesSupported:                      []string{"public"},
		IDTokenSigningAlgValuesSupported:           signingAlgs,
		IDTokenEncryptionAlgValuesSupported:        encryptionAlgs,
		IDTokenEncryptionEncValuesSupported:        encryptionEncs,
		UserinfoSigningAlgValuesSupported:          signingAlgsOrNone,
		UserinfoEncryptionAlgValuesSupported:       encryptionAlgs,
		UserinfoEncryptionEncValuesSupported:       encryptionEncs,
		RequestObjectSigningAlgValuesSupported:     signingAlgsOrNone,
		RequestObjectEncryptionAlgValuesSupported:  encryptionAlgs,
		RequestObjectEncryptionEncValuesSupported:  encryptionEncs,
		ClaimTypesSupported:                        []string{"normal", "aggregated", "distributed"},
		ClaimsSupported:                            []string{"sub", "iss", "name", "given_name", "family_name", "email", "email_verified", "picture", "locale", "updated_at"},
		ServiceDocumentation:                       baseURL + "/docs/oauth",
		UILocalesSupported:                         locales,
		ClaimsLocalesSupported:                     locales,
		PolicyURI:                                  baseURL + "/docs/policy",
		TosURI:                                     baseURL + "/docs/terms",
		CodeChallengeMethodsSupported:              []string{"S256", "plain"},
		IntrospectionEndpoint:                      authBase + "/introspect",
		RevocationEndpoint:                         authBase + "/revoke",
		DeviceAuthorizationEndpoint:                authBase + "/device",
		PushedAuthorizationRequestEndpoint:         authBase + "/par",
		EndSessionEndpoint:                         authBase + "/logout",
		BackchannelLogoutEndpoint:                  authBase + "/backchannel-logout",
		FrontchannelLogoutEndpoint:                 authBase + "/frontchannel-logout",
		BackchannelLogoutSessionSupported:          true,
		FrontchannelLogoutSessionSupported:         true,
		RegistrationEndpoint:                       orDefault(o.RegistrationEndpoint, authBase+"/register"),
		TokenEndpointAuthSigningAlgValuesSupported: signingAlgs,
		DisplayValuesSupported:                     []string{"page", "popup", "touch", "wap"},
		ClaimsParameterSupported:                   true,
		RequestParameterSupported:                  true,
		RequestURIParameterSupported:               true,
		RequireRequestURIRegistration:              false,
		OPPolicyURI:                                baseURL + "/docs/op-policy",
		OPTosURI:                                   baseURL + "/docs/op-terms",
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// DiscoveryHandler serves /.well-known/oauth-authorization-server
func DiscoveryHandler(options DiscoveryOptions) http.Handler {
	logger := nopIfNil(options.Logger)

	core := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			middleware.Preflight(w, r, http.StatusOK)
			return
		}

		baseURL := middleware.RequestOrigin(r)
		metadata, err := BuildAuthorizationServerMetadata(baseURL, options.BasePath, options.Metadata)
		if err == nil {
			err = middleware.JSONWithCors(w, r, http.StatusOK, metadata,
				http.Header{"Cache-Control": {metadataCacheControl}})
		}
		if err != nil {
			logger.Error("generate oauth metadata", zap.Error(err))
			errors.NewOAuthError(errors.ErrInternalServerError, "Failed to generate OAuth2 metadata", "").
				WriteJSON(w, http.StatusInternalServerError)
			return
		}
		logger.Debug("served oauth metadata", zap.String("issuer", metadata.Issuer))
	})

	return middleware.AllowedMethods([]string{http.MethodGet, http.MethodOptions})(core)
}

// ProtectedResourceOptions configures the RFC 9728 protected resource metadata endpoint
type ProtectedResourceOptions struct {
	Metadata *server.Metadata
	Logger   *zap.Logger
}

// ProtectedResourceHandler serves /.well-known/oauth-protected-resource.
// The resource is the request origin and its authorization server is the
// configured issuer, defaulting to the same origin.
func ProtectedResourceHandler(options ProtectedResourceOptions) http.Handler {
	logger := nopIfNil(options.Logger)

	core := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			middleware.Preflight(w, r, http.StatusOK)
			return
		}

		origin := middleware.RequestOrigin(r)
		issuer := origin
		if options.Metadata != nil && options.Metadata.Issuer != "" {
			issuer = options.Metadata.Issuer
		}
		doc := auth.OAuthProtectedResourceMetadata{
			Resource:               origin,
			AuthorizationServers:   []string{issuer},
			ScopesSupported:        options.Metadata.Scopes(),
			BearerMethodsSupported: []string{"header"},
		}
		if err := middleware.JSONWithCors(w, r, http.StatusOK, doc,
			http.Header{"Cache-Control": {protectedResourceCacheControl}}); err != nil {
			logger.Error("write protected resource metadata", zap.Error(err))
			return
		}
		logger.Debug("served protected resource metadata", zap.String("resource", origin))
	})

	return middleware.AllowedMethods([]string{http.MethodGet, http.MethodOptions})(core)
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
