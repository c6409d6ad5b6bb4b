// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package networking builds the HTTP clients used for gateway and registry
// traffic.
package networking

import (
	"net/http"
	"time"
)

// HTTPTimeout is the default timeout for outgoing HTTP requests.
const HTTPTimeout = 5 * time.Second

// HTTPClientBuilder provides a fluent interface for building HTTP clients.
type HTTPClientBuilder struct {
	clientTimeout         time.Duration
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
}

// NewHTTPClientBuilder returns a new HTTPClientBuilder with defaults suited to
// gateway requests.
func NewHTTPClientBuilder() *HTTPClientBuilder {
	return &HTTPClientBuilder{
		clientTimeout:         HTTPTimeout,
		tlsHandshakeTimeout:   10 * time.Second,
		responseHeaderTimeout: 10 * time.Second,
	}
}

// WithTimeout sets the overall client timeout.
func (b *HTTPClientBuilder) WithTimeout(timeout time.Duration) *HTTPClientBuilder {
	if timeout > 0 {
		b.clientTimeout = timeout
	}
	return b
}

// Build creates the configured HTTP client.
func (b *HTTPClientBuilder) Build() *http.Client {
	transport := &http.Transport{
		TLSHandshakeTimeout:   b.tlsHandshakeTimeout,
		ResponseHeaderTimeout: b.responseHeaderTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   b.clientTimeout,
	}
}
