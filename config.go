// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package mcpmiddleware

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the registration credentials of a config file.
const (
	EnvClientID     = "MCP_CLIENT_ID"
	EnvClientSecret = "MCP_CLIENT_SECRET"
)

// Config is the file form of Options. Callbacks and handlers cannot be expressed
// in YAML and are set on the Options returned by Config.Options.
type Config struct {
	BasePath          string           `yaml:"base_path" validate:"omitempty,startswith=/"`
	NeedAuth          bool             `yaml:"need_auth"`
	Metadata          MetadataConfig   `yaml:"metadata"`
	Auth              AuthFileConfig   `yaml:"auth"`
	RegisterRateLimit *RateLimitFile   `yaml:"register_rate_limit"`
	Audit             *AuditFileConfig `yaml:"audit"`
}

// MetadataConfig mirrors Metadata with literal credentials.
type MetadataConfig struct {
	Issuer                 string   `yaml:"issuer" validate:"omitempty,url"`
	AuthorizationEndpoint  string   `yaml:"authorization_endpoint" validate:"omitempty,url"`
	TokenEndpoint          string   `yaml:"token_endpoint" validate:"omitempty,url"`
	RegistrationEndpoint   string   `yaml:"registration_endpoint" validate:"omitempty,url"`
	UserinfoEndpoint       string   `yaml:"userinfo_endpoint" validate:"omitempty,url"`
	ScopesSupported        []string `yaml:"scopes_supported" validate:"dive,required"`
	ResponseTypesSupported []string `yaml:"response_types_supported" validate:"dive,required"`
	ClientID               string   `yaml:"client_id"`
	ClientSecret           string   `yaml:"client_secret"`
}

// AuthFileConfig holds the static part of AuthConfig.
type AuthFileConfig struct {
	AuthEndpointURL string `yaml:"auth_endpoint_url" validate:"omitempty,url"`
}

// RateLimitFile configures the registration rate limit.
type RateLimitFile struct {
	Window  time.Duration `yaml:"window" validate:"gte=0"`
	Max     int           `yaml:"max" validate:"gte=0"`
	Message string        `yaml:"message"`
}

// AuditFileConfig configures the audit trail.
type AuditFileConfig struct {
	Enabled           bool     `yaml:"enabled"`
	HashSensitiveData bool     `yaml:"hash_sensitive_data"`
	ExcludePatterns   []string `yaml:"exclude_patterns"`
}

// LoadConfig reads a YAML config file and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config data and applies environment overrides.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v, ok := os.LookupEnv(EnvClientID); ok {
		cfg.Metadata.ClientID = v
	}
	if v, ok := os.LookupEnv(EnvClientSecret); ok {
		cfg.Metadata.ClientSecret = v
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Options converts the config. The caller still sets MCP and, for the token
// endpoint to succeed, Auth.Token.
func (c *Config) Options() Options {
	options := Options{
		BasePath: c.BasePath,
		NeedAuth: c.NeedAuth,
		Metadata: c.Metadata.metadata(),
		Auth:     &AuthConfig{AuthEndpointURL: c.Auth.AuthEndpointURL},
	}
	if c.RegisterRateLimit != nil {
		options.RegisterRateLimit = &RateLimitConfig{
			Window:  c.RegisterRateLimit.Window,
			Max:     c.RegisterRateLimit.Max,
			Message: c.RegisterRateLimit.Message,
		}
	}
	if c.Audit != nil && c.Audit.Enabled {
		options.Audit = &AuditOptions{
			HashSensitiveData: c.Audit.HashSensitiveData,
			ExcludePatterns:   c.Audit.ExcludePatterns,
		}
	}
	return options
}

func (m MetadataConfig) metadata() *Metadata {
	md := &Metadata{
		Issuer:                 m.Issuer,
		AuthorizationEndpoint:  m.AuthorizationEndpoint,
		TokenEndpoint:          m.TokenEndpoint,
		RegistrationEndpoint:   m.RegistrationEndpoint,
		UserinfoEndpoint:       m.UserinfoEndpoint,
		ScopesSupported:        m.ScopesSupported,
		ResponseTypesSupported: m.ResponseTypesSupported,
	}
	// Empty credentials stay nil so registration generates them.
	if m.ClientID != "" {
		md.ClientID = Literal(m.ClientID)
	}
	if m.ClientSecret != "" {
		md.ClientSecret = Literal(m.ClientSecret)
	}
	return md
}
