// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

// okHandler returns a simple HTTP handler that always responds with status 200 OK and the body "ok"
func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`ok`))
	})
}

// do executes the given handler with a constructed HTTP request
func do(handler http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 2)
	h := RateLimitMiddleware(limiter, "slow down")(okHandler())

	for i := 0; i < 2; i++ {
		rr := do(h, http.MethodPost, "/api/auth/register", nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := do(h, http.MethodPost, "/api/auth/register", nil, map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	var body errors.OAuthErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "too_many_requests", body.Error)
	assert.Equal(t, "slow down", body.ErrorDescription)
}

func TestRateLimitConfig_Defaults(t *testing.T) {
	limiter := RateLimitConfig{}.NewLimiter()
	assert.Equal(t, defaultRateLimitMax, limiter.Burst())
	assert.InDelta(t, float64(rate.Every(defaultRateLimitWindow/defaultRateLimitMax)), float64(limiter.Limit()), 1e-9)

	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/", nil, nil).Code)

	rr := do(h, http.MethodPost, "/", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), defaultRateLimitMessage)
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestStatusRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := NewStatusRecorder(rr)
	assert.Equal(t, http.StatusOK, rec.StatusCode())

	_, err := rec.Write([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Status)

	rec = NewStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusAccepted, rec.StatusCode())

	fr := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	rec = NewStatusRecorder(fr)
	rec.Flush()
	assert.True(t, fr.flushed)
	assert.Same(t, fr, rec.Unwrap())
}
