// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
	"trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

// captureLogger is a mock implementation of AuditLogger
// It captures every logged AuditEvent for inspection in tests
type captureLogger struct {
	events []AuditEvent
}

// LogEvent stores the provided event in captureLogger
func (c *captureLogger) LogEvent(e AuditEvent) error {
	c.events = append(c.events, e)
	return nil
}

func newAudit(t *testing.T, options *AuditMiddlewareOptions, next http.Handler) http.Handler {
	t.Helper()
	mw, err := AuditMiddleware(options)
	require.NoError(t, err)
	return mw(next)
}

func TestAuditMiddleware_TokenRequest(t *testing.T) {
	capture := &captureLogger{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.WriteHeader(http.StatusOK)
	})
	h := newAudit(t, &AuditMiddlewareOptions{Logger: capture, HashSensitiveData: true}, next)

	form := url.Values{"grant_type": {"authorization_code"}, "code": {"abc"}, "client_id": {"client-1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, capture.events, 1)
	e := capture.events[0]
	assert.Equal(t, "oauth_token", e.EventType)
	assert.Equal(t, "authorization_code", e.GrantType)
	assert.Equal(t, "client-1", e.ClientID)
	assert.Equal(t, hashSensitiveData("abc"), e.CodeHash)
	assert.NotEmpty(t, e.IPHash)
	assert.Empty(t, e.RemoteAddr)
	assert.Equal(t, http.StatusOK, e.StatusCode)
	assert.Equal(t, "low", e.RiskLevel)
}

func TestAuditMiddleware_ErrorResponse(t *testing.T) {
	capture := &captureLogger{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.NewOAuthError(errors.ErrInvalidRequest, "Invalid registration request", "").
			WriteJSON(w, http.StatusBadRequest)
	})
	h := newAudit(t, &AuditMiddlewareOptions{Logger: capture}, next)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/register", nil))

	require.Len(t, capture.events, 1)
	e := capture.events[0]
	assert.Equal(t, "oauth_registration", e.EventType)
	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
	assert.Equal(t, "invalid_request", e.ErrorCode)
	assert.Equal(t, "Invalid registration request", e.ErrorMessage)
	assert.Equal(t, "192.0.2.1:1234", e.RemoteAddr)
	assert.Contains(t, e.RiskFactors, "client_registration")
}

func TestAuditMiddleware_AuthInfoAndQuery(t *testing.T) {
	capture := &captureLogger{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	h := newAudit(t, &AuditMiddlewareOptions{Logger: capture, HashSensitiveData: true}, next)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/authorize?response_type=code&redirect_uri=https://app/cb&scope=profile+email", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req = req.WithContext(server.WithAuthInfo(req.Context(), &server.AuthInfo{ClientID: "ctx-client", Subject: "user-1"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, capture.events, 1)
	e := capture.events[0]
	assert.Equal(t, "oauth_authorization", e.EventType)
	assert.Equal(t, "code", e.ResponseType)
	assert.Equal(t, "https://app/cb", e.RedirectURI)
	assert.Equal(t, []string{"profile", "email"}, e.Scopes)
	assert.Equal(t, "ctx-client", e.ClientID)
	assert.Equal(t, "user-1", e.Subject)
	assert.Equal(t, hashSensitiveData("secret-token"), e.TokenHash)
}

func TestAuditMiddleware_Exclude(t *testing.T) {
	capture := &captureLogger{}
	h := newAudit(t, &AuditMiddlewareOptions{Logger: capture, ExcludePatterns: []string{`^/\.well-known/`}}, okHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/auth/token", nil))

	require.Len(t, capture.events, 1)
	assert.Equal(t, "/api/auth/token", capture.events[0].Path)
}

func TestAuditMiddleware_InvalidPattern(t *testing.T) {
	_, err := AuditMiddleware(&AuditMiddlewareOptions{ExcludePatterns: []string{"("}})
	assert.Error(t, err)
}

func TestDefaultAuditLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewAuditLogger(zap.New(core))

	require.NoError(t, l.LogEvent(AuditEvent{
		EventID:      "e1",
		EventType:    "oauth_token",
		Method:       http.MethodPost,
		Path:         "/api/auth/token",
		StatusCode:   http.StatusOK,
		ResponseTime: time.Millisecond,
		ClientID:     "client-1",
		RiskLevel:    "low",
	}))

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "[AUDIT]", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "client-1", fields["client_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.NotContains(t, fields, "subject")
}

func TestDetermineEventType(t *testing.T) {
	tests := map[string]string{
		"/.well-known/oauth-authorization-server": "oauth_metadata",
		"/.well-known/oauth-protected-resource":   "oauth_protected_resource",
		"/api/auth/authorize":                     "oauth_authorization",
		"/api/auth/token":                         "oauth_token",
		"/api/auth/register":                      "oauth_registration",
		"/api/mcp":                                "oauth_request",
	}
	for path, want := range tests {
		assert.Equal(t, want, determineEventType(path), path)
	}
}

func TestDetermineErrorMessage(t *testing.T) {
	assert.Equal(t, "Method not allowed", determineErrorMessage(405, []byte(`{"message":"Method not allowed"}`)))
	assert.Equal(t, "Unsupported grant type", determineErrorMessage(400, []byte(`{"error":"Unsupported grant type"}`)))
	assert.Equal(t, "Internal Server Error", determineErrorMessage(500, nil))
}
