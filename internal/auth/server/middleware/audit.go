// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trpc.group/trpc-go/trpc-mcp-middleware/internal/auth/server"
)

// maxCapturedErrorBody bounds how much of an error response is kept for the audit record
const maxCapturedErrorBody = 4096

// AuditEvent represents one audited OAuth endpoint call
type AuditEvent struct {
	EventID      string        `json:"event_id"`
	Timestamp    time.Time     `json:"timestamp"`
	EventType    string        `json:"event_type"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	RemoteAddr   string        `json:"remote_addr,omitempty"`
	UserAgent    string        `json:"user_agent"`
	RequestID    string        `json:"request_id,omitempty"`
	ClientID     string        `json:"client_id,omitempty"`
	Subject      string        `json:"subject,omitempty"`
	Scopes       []string      `json:"scopes,omitempty"`
	GrantType    string        `json:"grant_type,omitempty"`
	ResponseType string        `json:"response_type,omitempty"`
	RedirectURI  string        `json:"redirect_uri,omitempty"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	TokenHash    string        `json:"token_hash,omitempty"`
	CodeHash     string        `json:"code_hash,omitempty"`
	IPHash       string        `json:"ip_hash,omitempty"`
	RiskLevel    string        `json:"risk_level,omitempty"`
	RiskFactors  []string      `json:"risk_factors,omitempty"`
}

// AuditLogger defines an interface for emitting audit logs
type AuditLogger interface {
	LogEvent(event AuditEvent) error
}

// DefaultAuditLogger provides a zap based implementation of AuditLogger
type DefaultAuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates a DefaultAuditLogger writing to logger, or discarding when nil
func NewAuditLogger(logger *zap.Logger) *DefaultAuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultAuditLogger{logger: logger}
}

// LogEvent writes a structured audit event at info level
func (l *DefaultAuditLogger) LogEvent(event AuditEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("method", event.Method),
		zap.String("path", event.Path),
		zap.Int("status", event.StatusCode),
		zap.Duration("response_time", event.ResponseTime),
		zap.String("risk_level", event.RiskLevel),
	}
	optional := []struct{ key, val string }{
		{"client_id", event.ClientID},
		{"subject", event.Subject},
		{"grant_type", event.GrantType},
		{"response_type", event.ResponseType},
		{"redirect_uri", event.RedirectURI},
		{"request_id", event.RequestID},
		{"remote_addr", event.RemoteAddr},
		{"ip_hash", event.IPHash},
		{"token_hash", event.TokenHash},
		{"code_hash", event.CodeHash},
		{"error_code", event.ErrorCode},
		{"error_message", event.ErrorMessage},
	}
	for _, f := range optional {
		if f.val != "" {
			fields = append(fields, zap.String(f.key, f.val))
		}
	}
	if len(event.Scopes) > 0 {
		fields = append(fields, zap.Strings("scopes", event.Scopes))
	}
	if len(event.RiskFactors) > 0 {
		fields = append(fields, zap.Strings("risk_factors", event.RiskFactors))
	}
	l.logger.Info("[AUDIT]", fields...)
	return nil
}

// AuditMiddlewareOptions configures what and how the middleware audits
type AuditMiddlewareOptions struct {
	Logger AuditLogger
	// HashSensitiveData replaces tokens, codes and the remote address by their SHA-256
	HashSensitiveData bool
	// ExcludePatterns are regular expressions of paths that are not audited
	ExcludePatterns []string
	RiskAssessor    func(AuditEvent) (string, []string)
}

// auditResponseWriter records the status and keeps error bodies for the audit record
type auditResponseWriter struct {
	*StatusRecorder
	errBody []byte
}

// Write keeps a bounded copy of error response bodies
func (w *auditResponseWriter) Write(b []byte) (int, error) {
	n, err := w.StatusRecorder.Write(b)
	if w.StatusCode() >= http.StatusBadRequest && len(w.errBody) < maxCapturedErrorBody {
		w.errBody = append(w.errBody, b[:min(n, maxCapturedErrorBody-len(w.errBody))]...)
	}
	return n, err
}

// AuditMiddleware returns an HTTP middleware that emits one audit event per request
func AuditMiddleware(options *AuditMiddlewareOptions) (func(http.Handler) http.Handler, error) {
	if options == nil {
		options = &AuditMiddlewareOptions{HashSensitiveData: true}
	}
	logger := options.Logger
	if logger == nil {
		logger = NewAuditLogger(nil)
	}
	excludes := make([]*regexp.Regexp, 0, len(options.ExcludePatterns))
	for _, p := range options.ExcludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid audit exclude pattern %q: %w", p, err)
		}
		excludes = append(excludes, re)
	}
	assess := options.RiskAssessor
	if assess == nil {
		assess = defaultRiskAssessment
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, re := range excludes {
				if re.MatchString(r.URL.Path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			start := time.Now()
			wrapped := &auditResponseWriter{StatusRecorder: NewStatusRecorder(w)}
			next.ServeHTTP(wrapped, r)

			// Form values are read after the handler so the body is parsed only once.
			info := extractOAuthInfo(r)
			event := AuditEvent{
				EventID:      uuid.NewString(),
				Timestamp:    start,
				EventType:    determineEventType(r.URL.Path),
				Method:       r.Method,
				Path:         r.URL.Path,
				UserAgent:    r.UserAgent(),
				RequestID:    r.Header.Get("X-Request-ID"),
				ClientID:     info.ClientID,
				Subject:      info.Subject,
				Scopes:       info.Scopes,
				GrantType:    info.GrantType,
				ResponseType: info.ResponseType,
				RedirectURI:  info.RedirectURI,
				StatusCode:   wrapped.StatusCode(),
				ResponseTime: time.Since(start),
			}
			if options.HashSensitiveData {
				event.TokenHash = hashSensitiveData(info.Token)
				event.CodeHash = hashSensitiveData(info.Code)
				event.IPHash = hashSensitiveData(r.RemoteAddr)
			} else {
				event.RemoteAddr = r.RemoteAddr
			}
			if event.StatusCode >= http.StatusBadRequest {
				event.ErrorCode = determineErrorCode(event.StatusCode)
				event.ErrorMessage = determineErrorMessage(event.StatusCode, wrapped.errBody)
			}
			event.RiskLevel, event.RiskFactors = assess(event)

			_ = logger.LogEvent(event)
		})
	}, nil
}

// OAuthInfo carries OAuth specific request attributes extracted for auditing
type OAuthInfo struct {
	ClientID     string
	Subject      string
	Scopes       []string
	GrantType    string
	ResponseType string
	RedirectURI  string
	Token        string
	Code         string
}

// extractOAuthInfo pulls OAuth related fields from the query, the already parsed form,
// the Authorization header and the request context
func extractOAuthInfo(r *http.Request) OAuthInfo {
	query := r.URL.Query()
	info := OAuthInfo{
		ClientID:     query.Get("client_id"),
		ResponseType: query.Get("response_type"),
		RedirectURI:  query.Get("redirect_uri"),
		Token:        BearerToken(r),
	}
	if scope := query.Get("scope"); scope != "" {
		info.Scopes = strings.Fields(scope)
	}

	formValue := func(key string) string {
		if v := r.PostForm.Get(key); v != "" {
			return v
		}
		if r.MultipartForm != nil && len(r.MultipartForm.Value[key]) > 0 {
			return r.MultipartForm.Value[key][0]
		}
		return ""
	}
	info.GrantType = formValue("grant_type")
	info.Code = formValue("code")
	if info.ClientID == "" {
		info.ClientID = formValue("client_id")
	}

	if authInfo, ok := server.GetAuthInfo(r.Context()); ok {
		info.Subject = authInfo.Subject
		if info.ClientID == "" {
			info.ClientID = authInfo.ClientID
		}
		if len(info.Scopes) == 0 {
			info.Scopes = authInfo.Scopes
		}
	}
	return info
}

// determineEventType maps a path to a coarse event category
func determineEventType(path string) string {
	switch {
	case strings.HasSuffix(path, "/oauth-authorization-server"):
		return "oauth_metadata"
	case strings.HasSuffix(path, "/oauth-protected-resource"):
		return "oauth_protected_resource"
	case strings.HasSuffix(path, "/authorize"):
		return "oauth_authorization"
	case strings.HasSuffix(path, "/token"):
		return "oauth_token"
	case strings.HasSuffix(path, "/register"):
		return "oauth_registration"
	default:
		return "oauth_request"
	}
}

// hashSensitiveData returns a hex encoded SHA256 hash for a sensitive string
func hashSensitiveData(data string) string {
	if data == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// defaultRiskAssessment computes a simple risk score and contributing factors
func defaultRiskAssessment(event AuditEvent) (string, []string) {
	var riskFactors []string
	riskLevel := "low"

	if event.StatusCode >= 400 {
		riskFactors = append(riskFactors, "client_error")
	}
	if event.StatusCode >= 500 {
		riskFactors = append(riskFactors, "server_error")
		riskLevel = "medium"
	}
	if event.StatusCode == http.StatusTooManyRequests {
		riskFactors = append(riskFactors, "rate_limited")
		riskLevel = "high"
	}
	if event.ResponseTime > 5*time.Second {
		riskFactors = append(riskFactors, "slow_response")
		if riskLevel == "low" {
			riskLevel = "medium"
		}
	}
	if event.EventType == "oauth_registration" {
		riskFactors = append(riskFactors, "client_registration")
		if riskLevel == "low" {
			riskLevel = "medium"
		}
	}
	return riskLevel, riskFactors
}

// determineErrorCode maps HTTP status codes to OAuth style error codes
func determineErrorCode(statusCode int) string {
	switch {
	case statusCode == 400:
		return "invalid_request"
	case statusCode == 401:
		return "invalid_token"
	case statusCode == 403:
		return "insufficient_scope"
	case statusCode == 404:
		return "not_found"
	case statusCode == 405:
		return "method_not_allowed"
	case statusCode == 429:
		return "too_many_requests"
	case statusCode >= 500:
		return "server_error"
	default:
		return "unknown_error"
	}
}

// determineErrorMessage extracts error text from a JSON error response or falls back to status text
func determineErrorMessage(statusCode int, body []byte) string {
	var errorResponse struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &errorResponse); err == nil {
		for _, s := range []string{errorResponse.ErrorDescription, errorResponse.Error, errorResponse.Message} {
			if s != "" {
				return s
			}
		}
	}
	return http.StatusText(statusCode)
}
