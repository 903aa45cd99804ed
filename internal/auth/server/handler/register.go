// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package handler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server/middleware"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

const (
	registrationErrorURI        = "https://tools.ietf.org/html/rfc7591#section-3.2.2"
	registrationTokenPrefix     = "reg_token_"
	registrationTokenLength     = 18
	registrationContentType     = "application/json; charset=utf-8"
	invalidRegistrationMessage  = "Invalid registration request"
	registrationInternalMessage = "Internal server error during registration"
)

// fieldMessages holds the validation message per field. Element messages
// apply to individual entries of array fields.
var (
	fieldMessages = map[string]string{
		"client_name":                "Client name is required",
		"client_uri":                 "Valid client URI is required",
		"logo_uri":                   "Valid logo URI is required",
		"scope":                      "Scope is required",
		"grant_types":                "At least one grant type is required",
		"token_endpoint_auth_method": "Invalid token endpoint auth method",
		"redirect_uris":              "At least one redirect URI is required",
		"policy_uri":                 "Valid policy URI is required",
		"terms_of_service_uri":       "Valid terms of service URI is required",
		"jwks_uri":                   "Valid JWKS URI is required",
	}
	elementMessages = map[string]string{
		"grant_types":    "Invalid grant type",
		"response_types": "Invalid response type",
		"redirect_uris":  "Valid redirect URI is required",
		"contacts":       "Valid email is required",
	}
)

var registrationValidator = newRegistrationValidator()

func newRegistrationValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegistrationOptions configures the dynamic client registration endpoint
type RegistrationOptions struct {
	BasePath string
	Metadata *server.Metadata
	// RateLimit is optional. nil disables rate limiting.
	RateLimit *middleware.RateLimitConfig
	Logger    *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// registrationError is a schema violation reported as 400
type registrationError struct {
	details string
}

func (e *registrationError) Error() string { return e.details }

// ValidateRegistration checks req against the registration schema and fills defaults
func ValidateRegistration(req *auth.RegistrationRequest) error {
	if err := registrationValidator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return &registrationError{details: strings.Join(msgs, "; ")}
	}
	if req.TokenEndpointAuthMethod == nil {
		method := auth.DefaultTokenEndpointAuthMethod
		req.TokenEndpointAuthMethod = &method
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	name, _, isElement := strings.Cut(fe.Field(), "[")
	msg, ok := fieldMessages[name]
	if isElement {
		msg, ok = elementMessages[name]
	}
	if !ok {
		msg = fmt.Sprintf("failed on %q", fe.Tag())
	}
	return path + ": " + msg
}

// decodeRegistration parses the JSON body. Type mismatches are schema errors,
// anything else is an internal failure.
func decodeRegistration(r *http.Request) (*auth.RegistrationRequest, error) {
	var req auth.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			return nil, &registrationError{details: fmt.Sprintf("%s: expected %s", typeErr.Field, typeErr.Type)}
		}
		return nil, fmt.Errorf("decode registration request: %w", err)
	}
	return &req, nil
}

// RegistrationHandler creates a handler for RFC 7591 client registration.
// Registered clients are not stored: every call issues fresh credentials.
func RegistrationHandler(options RegistrationOptions) http.Handler {
	logger := nopIfNil(options.Logger)
	now := options.Now
	if now == nil {
		now = time.Now
	}
	noStore := http.Header{
		"Content-Type":  {registrationContentType},
		"Cache-Control": {"no-store"},
	}

	register := func(r *http.Request) (*auth.RegistrationResponse, error) {
		req, err := decodeRegistration(r)
		if err != nil {
			return nil, err
		}
		if err := ValidateRegistration(req); err != nil {
			return nil, err
		}

		creds, err := server.ResolveClientCredentials(options.Metadata)
		if err != nil {
			return nil, err
		}
		token, err := server.RandomToken(registrationTokenLength)
		if err != nil {
			return nil, fmt.Errorf("generate registration access token: %w", err)
		}
		scope := strings.Join(options.Metadata.Scopes(), ",")
		if req.Scope != nil {
			scope = *req.Scope
		}

		return &auth.RegistrationResponse{
			ClientID:                creds.ClientID,
			ClientSecret:            creds.ClientSecret,
			ClientIDIssuedAt:        now().Unix(),
			ClientSecretExpiresAt:   0,
			RegistrationAccessToken: registrationTokenPrefix + token,
			RegistrationClientURI: fmt.Sprintf("%s%s/auth/register/%s",
				middleware.RequestOrigin(r), options.BasePath, url.PathEscape(creds.ClientID)),
			TokenEndpointAuthMethod: *req.TokenEndpointAuthMethod,
			GrantTypes:              req.GrantTypes,
			ResponseTypes:           req.ResponseTypes,
			RedirectURIs:            req.RedirectURIs,
			Scope:                   scope,
			ClientName:              req.ClientName,
			ClientURI:               req.ClientURI,
			LogoURI:                 req.LogoURI,
			Contacts:                req.Contacts,
			PolicyURI:               req.PolicyURI,
			TermsOfServiceURI:       req.TermsOfServiceURI,
			JwksURI:                 req.JwksURI,
			SoftwareID:              req.SoftwareID,
			SoftwareVersion:         req.SoftwareVersion,
		}, nil
	}

	var core http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := register(r)
		if err != nil {
			var regErr *registrationError
			if stderrors.As(err, &regErr) {
				logger.Debug("invalid registration request", zap.String("details", regErr.details))
				_ = middleware.JSONWithCors(w, r, http.StatusBadRequest,
					errors.NewOAuthError(errors.ErrInvalidRequest, invalidRegistrationMessage, registrationErrorURI).
						WithDetails(regErr.details).ToResponseStruct(),
					noStore)
				return
			}
			logger.Error("registration failed", zap.Error(err))
			_ = middleware.JSONWithCors(w, r, http.StatusInternalServerError,
				errors.NewOAuthError(errors.ErrServerError, registrationInternalMessage, "").ToResponseStruct(),
				noStore)
			return
		}

		logger.Debug("client registered",
			zap.String("client_id", resp.ClientID),
			zap.String("client_name", resp.ClientName),
			zap.Strings("grant_types", resp.GrantTypes))
		_ = middleware.JSONWithCors(w, r, http.StatusOK, resp, noStore)
	})

	// Preflights are answered before the rate limiter so they do not consume tokens.
	if options.RateLimit != nil {
		core = middleware.RateLimit(*options.RateLimit)(core)
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			middleware.Preflight(w, r, http.StatusNoContent)
			return
		}
		core.ServeHTTP(w, r)
	})
	return middleware.AllowedMethods([]string{http.MethodPost, http.MethodOptions})(handler)
}
