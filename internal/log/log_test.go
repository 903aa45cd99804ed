// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFilter_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		patterns string
		category string
		want     bool
	}{
		{"empty patterns", "", CategoryIndex, false},
		{"exact match", "mcp:index", CategoryIndex, true},
		{"exact miss", "mcp:index", CategoryToken, false},
		{"glob", "mcp:*", CategoryRegister, true},
		{"glob other namespace", "http:*", CategoryRegister, false},
		{"comma list", "mcp:index,mcp:api-token", CategoryToken, true},
		{"space list", "mcp:index mcp:api-token", CategoryToken, true},
		{"exclusion wins", "mcp:*,-mcp:api-mcp", CategoryMCP, false},
		{"exclusion leaves others", "mcp:*,-mcp:api-mcp", CategoryIndex, true},
		{"bare dash ignored", "-", CategoryIndex, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFilter(tt.patterns).Enabled(tt.category))
		})
	}
}

func TestFilterFromEnv(t *testing.T) {
	t.Setenv(EnvDebug, "mcp:api-*")

	f := FilterFromEnv()
	assert.True(t, f.Enabled(CategoryToken))
	assert.False(t, f.Enabled(CategoryIndex))
}

func TestNamed_DropsDebugForDisabledCategory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)
	f := ParseFilter("mcp:index")

	Named(base, f, CategoryIndex).Debug("index debug")
	Named(base, f, CategoryToken).Debug("token debug")
	Named(base, f, CategoryToken).Info("token info")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "index debug", entries[0].Message)
	assert.Equal(t, CategoryIndex, entries[0].LoggerName)
	assert.Equal(t, "token info", entries[1].Message)
	assert.Equal(t, CategoryToken, entries[1].LoggerName)
}

func TestNamed_NilBase(t *testing.T) {
	l := Named(nil, Filter{}, CategoryIndex)
	require.NotNil(t, l)
	l.Info("discarded")
}

func TestNewLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	loggers := NewLoggers(zap.New(core), ParseFilter("mcp:*"))

	loggers.Register.Debug("registered")
	loggers.MCP.Debug("mcp")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, CategoryRegister, entries[0].LoggerName)
	assert.Equal(t, CategoryMCP, entries[1].LoggerName)
}

func TestNewZapLogger(t *testing.T) {
	l := NewZapLogger()
	require.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
