// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package middleware

import (
	"crypto/tls"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://localhost:3000/api/mcp", nil)
	assert.Equal(t, "http://localhost:3000", RequestOrigin(r))

	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://localhost:3000", RequestOrigin(r))

	r.TLS = nil
	r.Header.Set("X-Forwarded-Proto", "https, http")
	assert.Equal(t, "https://localhost:3000", RequestOrigin(r))
}

func TestCorsHeaders_Defaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://localhost:3000/x", nil)

	h := CorsHeaders(r)

	assert.Equal(t, "http://localhost:3000", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", h.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", h.Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin, Access-Control-Request-Method, Access-Control-Request-Headers", h.Get("Vary"))
}

func TestCorsHeaders_EchoesRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodOptions, "http://localhost:3000/x", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", "PATCH")
	r.Header.Set("Access-Control-Request-Headers", "X-Custom")

	h := CorsHeaders(r)

	assert.Equal(t, "https://app.example.com", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "PATCH", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "X-Custom", h.Get("Access-Control-Allow-Headers"))
}

func TestJSONWithCors(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://localhost/x", nil)
	r.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()

	err := JSONWithCors(rr, r, http.StatusCreated, map[string]string{"ok": "yes"},
		http.Header{"cache-control": {"no-store"}, "Content-Type": {"application/json; charset=utf-8"}})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"ok":"yes"}`, rr.Body.String())
}

func TestJSONWithCors_EncodeError(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://localhost/x", nil)
	rr := httptest.NewRecorder()

	err := JSONWithCors(rr, r, http.StatusOK, math.Inf(1), nil)

	require.Error(t, err)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, rr.Body.Len())
}

func TestPreflight(t *testing.T) {
	r := httptest.NewRequest(http.MethodOptions, "http://localhost/x", nil)
	rr := httptest.NewRecorder()

	Preflight(rr, r, http.StatusNoContent)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, rr.Body.Len())
}
