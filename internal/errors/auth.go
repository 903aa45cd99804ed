// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

// Package errors holds the OAuth error vocabulary shared by every endpoint.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// OAuthErrorCode represents an OAuth 2.0 error code
type OAuthErrorCode error

// OAuthError represents a structured OAuth 2.0 error
type OAuthError struct {
	ErrorCode string
	Message   string
	ErrorURI  string
	Details   string
}

// OAuthErrorResponse represents the JSON response for OAuth errors
type OAuthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
	Details          string `json:"details,omitempty"`
}

// Standard OAuth error codes
var (
	ErrInvalidRequest          OAuthErrorCode = errors.New("invalid_request")
	ErrInvalidClient           OAuthErrorCode = errors.New("invalid_client")
	ErrInvalidGrant            OAuthErrorCode = errors.New("invalid_grant")
	ErrUnauthorizedClient      OAuthErrorCode = errors.New("unauthorized_client")
	ErrUnsupportedGrantType    OAuthErrorCode = errors.New("unsupported_grant_type")
	ErrInvalidScope            OAuthErrorCode = errors.New("invalid_scope")
	ErrAccessDenied            OAuthErrorCode = errors.New("access_denied")
	ErrServerError             OAuthErrorCode = errors.New("server_error")
	ErrTemporarilyUnavailable  OAuthErrorCode = errors.New("temporarily_unavailable")
	ErrUnsupportedResponseType OAuthErrorCode = errors.New("unsupported_response_type")
	ErrInvalidToken            OAuthErrorCode = errors.New("invalid_token")
	ErrTooManyRequests         OAuthErrorCode = errors.New("too_many_requests")
	ErrInvalidClientMetadata   OAuthErrorCode = errors.New("invalid_client_metadata")
	ErrInsufficientScope       OAuthErrorCode = errors.New("insufficient_scope")

	// ErrInternalServerError is not an RFC 6749 code. The token, authorize and
	// discovery endpoints report their failures with it.
	ErrInternalServerError OAuthErrorCode = errors.New("internal_server_error")
)

// OAuthErrorMapping maps error strings to their corresponding OAuthErrorCode
var OAuthErrorMapping = map[string]OAuthErrorCode{
	"invalid_request":           ErrInvalidRequest,
	"invalid_client":            ErrInvalidClient,
	"invalid_grant":             ErrInvalidGrant,
	"unauthorized_client":       ErrUnauthorizedClient,
	"unsupported_grant_type":    ErrUnsupportedGrantType,
	"invalid_scope":             ErrInvalidScope,
	"access_denied":             ErrAccessDenied,
	"server_error":              ErrServerError,
	"temporarily_unavailable":   ErrTemporarilyUnavailable,
	"unsupported_response_type": ErrUnsupportedResponseType,
	"invalid_token":             ErrInvalidToken,
	"too_many_requests":         ErrTooManyRequests,
	"invalid_client_metadata":   ErrInvalidClientMetadata,
	"insufficient_scope":        ErrInsufficientScope,
	"internal_server_error":     ErrInternalServerError,
}

// NewOAuthError creates a new OAuthError
func NewOAuthError(errCode OAuthErrorCode, message string, uri string) OAuthError {
	err := OAuthError{
		ErrorCode: errCode.Error(),
	}
	if uri != "" {
		err.ErrorURI = uri
	}
	if message != "" {
		err.Message = message
	}
	return err
}

// WithDetails returns a copy of the error carrying extra diagnostic text
func (o OAuthError) WithDetails(details string) OAuthError {
	o.Details = details
	return o
}

// ToResponseStruct converts OAuthError into OAuthErrorResponse for JSON encoding
func (o OAuthError) ToResponseStruct() *OAuthErrorResponse {
	return &OAuthErrorResponse{
		Error:            o.ErrorCode,
		ErrorDescription: o.Message,
		ErrorURI:         o.ErrorURI,
		Details:          o.Details,
	}
}

// Error implements the error interface
func (o OAuthError) Error() string {
	return o.ErrorCode
}

// Is reports whether target is the sentinel code this error was built from
func (o OAuthError) Is(target error) bool {
	code, ok := OAuthErrorMapping[o.ErrorCode]
	return ok && code == target
}

// WriteJSON writes the error as a JSON body with the given status.
// Headers already present on w are kept.
func (o OAuthError) WriteJSON(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(o.ToResponseStruct())
}
