// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

// Package log builds the zap loggers used by the middleware.
//
// Every endpoint logs under its own category. Debug output for a category is
// only emitted when the category matches the DEBUG environment variable, for
// example DEBUG="mcp:*" or DEBUG="mcp:index,mcp:api-token". A leading '-'
// excludes a category: DEBUG="mcp:*,-mcp:api-mcp".
package log

import (
	"os"
	"path"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvDebug is the environment variable holding the enabled debug categories.
const EnvDebug = "DEBUG"

// Debug categories, one per endpoint.
const (
	CategoryIndex     = "mcp:index"
	CategoryDiscovery = "mcp:will-know-authorization"
	CategoryProtected = "mcp:will-know-protected"
	CategoryAuthorize = "mcp:api-authorization"
	CategoryToken     = "mcp:api-token"
	CategoryRegister  = "mcp:api-register"
	CategoryMCP       = "mcp:api-mcp"
	CategoryAudit     = "mcp:audit"
)

const (
	categoryPatternSep    = ", \t\n"
	categoryExcludePrefix = "-"
)

// NewZapLogger returns a console logger that lets debug entries through.
// Category filtering is applied on top of it by Named.
func NewZapLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// Filter decides which categories may log at debug level.
type Filter struct {
	include []string
	exclude []string
}

// ParseFilter parses a DEBUG style pattern list.
func ParseFilter(patterns string) Filter {
	var f Filter
	fields := strings.FieldsFunc(patterns, func(r rune) bool {
		return strings.ContainsRune(categoryPatternSep, r)
	})
	for _, field := range fields {
		if p, ok := strings.CutPrefix(field, categoryExcludePrefix); ok {
			if p != "" {
				f.exclude = append(f.exclude, p)
			}
			continue
		}
		f.include = append(f.include, field)
	}
	return f
}

// FilterFromEnv parses the DEBUG environment variable.
func FilterFromEnv() Filter {
	return ParseFilter(os.Getenv(EnvDebug))
}

// Enabled reports whether category may log at debug level.
// Exclusions win over inclusions.
func (f Filter) Enabled(category string) bool {
	for _, p := range f.exclude {
		if match(p, category) {
			return false
		}
	}
	for _, p := range f.include {
		if match(p, category) {
			return true
		}
	}
	return false
}

func match(pattern, category string) bool {
	if pattern == category {
		return true
	}
	ok, err := path.Match(pattern, category)
	return err == nil && ok
}

// Named returns base scoped to category. When the filter does not enable the
// category its debug entries are dropped.
func Named(base *zap.Logger, f Filter, category string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	l := base.Named(category)
	// IncreaseLevel refuses to lower a core that is already above info.
	if !f.Enabled(category) && base.Core().Enabled(zapcore.InfoLevel) {
		l = l.WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))
	}
	return l
}

// Loggers groups the per-endpoint loggers.
type Loggers struct {
	Index     *zap.Logger
	Discovery *zap.Logger
	Protected *zap.Logger
	Authorize *zap.Logger
	Token     *zap.Logger
	Register  *zap.Logger
	MCP       *zap.Logger
	Audit     *zap.Logger
}

// NewLoggers derives every category logger from base.
func NewLoggers(base *zap.Logger, f Filter) Loggers {
	return Loggers{
		Index:     Named(base, f, CategoryIndex),
		Discovery: Named(base, f, CategoryDiscovery),
		Protected: Named(base, f, CategoryProtected),
		Authorize: Named(base, f, CategoryAuthorize),
		Token:     Named(base, f, CategoryToken),
		Register:  Named(base, f, CategoryRegister),
		MCP:       Named(base, f, CategoryMCP),
		Audit:     Named(base, f, CategoryAudit),
	}
}

// NopLoggers returns loggers that discard everything.
func NopLoggers() Loggers {
	return NewLoggers(zap.NewNop(), Filter{})
}
