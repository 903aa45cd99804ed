// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package middleware

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/errors"
)

const (
	defaultRateLimitWindow  = time.Hour
	defaultRateLimitMax     = 20
	defaultRateLimitMessage = "You have exceeded the rate limit for client registration requests"
)

// RateLimitConfig bounds how often an endpoint may be called.
// Max requests are allowed per Window, refilled as a token bucket.
type RateLimitConfig struct {
	Window  time.Duration // defaults to one hour
	Max     int           // defaults to 20
	Message string        // error_description of the 429 response
}

// NewLimiter builds the token bucket described by c
func (c RateLimitConfig) NewLimiter() *rate.Limiter {
	window, limitMax := c.Window, c.Max
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	if limitMax <= 0 {
		limitMax = defaultRateLimitMax
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(limitMax)), limitMax)
}

func (c RateLimitConfig) message() string {
	if c.Message == "" {
		return defaultRateLimitMessage
	}
	return c.Message
}

// RateLimit returns a RateLimitMiddleware backed by a fresh limiter for c
func RateLimit(c RateLimitConfig) func(http.Handler) http.Handler {
	return RateLimitMiddleware(c.NewLimiter(), c.message())
}

// RateLimitMiddleware applies a token bucket limiter to incoming requests
// When the limiter denies a request a 429 JSON OAuth error is returned
func RateLimitMiddleware(limiter *rate.Limiter, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				ApplyCors(w, r)
				w.Header().Set("Retry-After", "60")
				errors.NewOAuthError(errors.ErrTooManyRequests, message, "").
					WriteJSON(w, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StatusRecorder wraps http.ResponseWriter to capture the final status code
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// NewStatusRecorder wraps w
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w}
}

// WriteHeader intercepts WriteHeader calls to store the status code
func (rw *StatusRecorder) WriteHeader(code int) {
	if rw.Status == 0 {
		rw.Status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write records an implicit 200 when no status was written
func (rw *StatusRecorder) Write(b []byte) (int, error) {
	if rw.Status == 0 {
		rw.Status = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

// Flush forwards flush calls for streaming responses
func (rw *StatusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter
func (rw *StatusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// StatusCode returns the recorded status, 200 when the handler wrote nothing
func (rw *StatusRecorder) StatusCode() int {
	if rw.Status == 0 {
		return http.StatusOK
	}
	return rw.Status
}
