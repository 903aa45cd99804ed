// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package mcpmiddleware

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
base_path: /v1
need_auth: true
metadata:
  issuer: https://auth.example.com
  scopes_supported: [profile, email]
  client_id: file-client
  client_secret: file-secret
auth:
  auth_endpoint_url: https://sso.example.com/authorize
register_rate_limit:
  window: 10m
  max: 5
audit:
  enabled: true
  hash_sensitive_data: true
  exclude_patterns: ["^/health"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "/v1", cfg.BasePath)
	assert.True(t, cfg.NeedAuth)
	assert.Equal(t, "https://auth.example.com", cfg.Metadata.Issuer)
	assert.Equal(t, []string{"profile", "email"}, cfg.Metadata.ScopesSupported)
	assert.Equal(t, "https://sso.example.com/authorize", cfg.Auth.AuthEndpointURL)
	require.NotNil(t, cfg.RegisterRateLimit)
	assert.Equal(t, 10*time.Minute, cfg.RegisterRateLimit.Window)
	assert.Equal(t, 5, cfg.RegisterRateLimit.Max)

	opts := cfg.Options()
	assert.Equal(t, "/v1", opts.BasePath)
	assert.True(t, opts.NeedAuth)
	require.NotNil(t, opts.Metadata)
	assert.Equal(t, "file-client", opts.Metadata.ClientID())
	assert.Equal(t, "file-secret", opts.Metadata.ClientSecret())
	require.NotNil(t, opts.Auth)
	assert.Equal(t, "https://sso.example.com/authorize", opts.Auth.AuthEndpointURL)
	require.NotNil(t, opts.RegisterRateLimit)
	assert.Equal(t, 5, opts.RegisterRateLimit.Max)
	require.NotNil(t, opts.Audit)
	assert.True(t, opts.Audit.HashSensitiveData)
	assert.Equal(t, []string{"^/health"}, opts.Audit.ExcludePatterns)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvClientID, "env-client")
	t.Setenv(EnvClientSecret, "env-secret")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	opts := cfg.Options()
	assert.Equal(t, "env-client", opts.Metadata.ClientID())
	assert.Equal(t, "env-secret", opts.Metadata.ClientSecret())
}

func TestConfig_EmptyCredentialsStayNil(t *testing.T) {
	cfg, err := ParseConfig([]byte("need_auth: false\n"))
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Nil(t, opts.Metadata.ClientID)
	assert.Nil(t, opts.Metadata.ClientSecret)
	assert.Nil(t, opts.RegisterRateLimit)
	assert.Nil(t, opts.Audit)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "base_path: [unterminated"},
		{"relative base path", "base_path: api"},
		{"issuer not a url", "metadata:\n  issuer: not a url"},
		{"negative max", "register_rate_limit:\n  max: -1"},
		{"bad duration", "register_rate_limit:\n  window: soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
