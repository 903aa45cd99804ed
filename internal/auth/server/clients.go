// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ClientCredentials are the client_id and client_secret handed to a registering client
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// ResolveClientCredentials evaluates the configured credential functions.
// Nothing is stored: each call may return different values.
func ResolveClientCredentials(m *Metadata) (ClientCredentials, error) {
	var creds ClientCredentials
	if m != nil && m.ClientID != nil {
		creds.ClientID = m.ClientID()
	} else {
		creds.ClientID = uuid.New().String()
	}
	if m != nil && m.ClientSecret != nil {
		creds.ClientSecret = m.ClientSecret()
		return creds, nil
	}
	secret, err := generateClientSecret()
	if err != nil {
		return ClientCredentials{}, fmt.Errorf("generate client secret: %w", err)
	}
	creds.ClientSecret = secret
	return creds, nil
}

// generateClientSecret generates a random 32-byte hex string
func generateClientSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// RandomToken returns n random characters from [0-9a-z]
func RandomToken(n int) (string, error) {
	limit := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[idx.Int64()]
	}
	return string(b), nil
}
