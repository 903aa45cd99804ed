// Tencent is pleased to support the open source community by making trpc-mcp-middleware available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-mcp-middleware is licensed under the Apache License Version 2.0.

package auth

import (
	"fmt"
	"net/url"
)

// ValidateIssuer applies the RFC 8414 issuer rules: an absolute URL without query or fragment.
func ValidateIssuer(issuer string) error {
	u, err := url.Parse(issuer)
	if err != nil {
		return fmt.Errorf("invalid issuer %q: %w", issuer, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid issuer %q: must be an absolute URL", issuer)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid issuer %q: must not contain query or fragment", issuer)
	}
	return nil
}
