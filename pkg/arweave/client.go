// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package arweave is the storage client: bundle upload, bundle download with
// gateway fallback, and transaction status.
package arweave

import (
	"net/http"
	"time"

	"github.com/permamind/skillhub/pkg/networking"
)

// Defaults for the storage client's failure model.
const (
	// FreeTierMaxBytes is the ceiling below which uploads go through the
	// subsidized bundler service and skip the balance check.
	FreeTierMaxBytes = 100 * 1024

	// DefaultRequestTimeout bounds a single gateway request.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultRetriesPerGateway is how many extra attempts each gateway gets
	// before falling back to the next one.
	DefaultRetriesPerGateway = 1

	// DefaultBackoffBase is the initial backoff interval; attempt n waits
	// base * 2^n.
	DefaultBackoffBase = 1 * time.Second

	// ConfirmationPollInterval is the status poll cadence while waiting for a
	// transaction to confirm.
	ConfirmationPollInterval = 30 * time.Second

	// ConfirmationTimeout is the horizon after which a confirmation wait
	// gives up and proceeds with a warning.
	ConfirmationTimeout = 10 * time.Minute
)

// defaultFallbackGateways are tried, in order, after the configured gateway.
var defaultFallbackGateways = []string{
	"https://arweave.net",
	"https://ar-io.net",
}

// ProgressFunc receives monotonically non-decreasing percentages in [0,100].
// It is guaranteed to be called with 100 on success.
type ProgressFunc func(percent int)

// Options configures a Client.
type Options struct {
	// Gateway is the primary gateway URL.
	Gateway string
	// FallbackGateways overrides the default fallback chain.
	FallbackGateways []string
	// BundlerURL is the subsidized upload service endpoint.
	BundlerURL string
	// RequestTimeout bounds a single HTTP request. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
	// RetriesPerGateway is the per-gateway retry count. Negative disables
	// retries; zero means DefaultRetriesPerGateway.
	RetriesPerGateway int
	// BackoffBase overrides the initial backoff interval.
	BackoffBase time.Duration
}

// Client talks to the storage network.
type Client struct {
	gateway    string
	gateways   []string
	bundlerURL string
	httpClient *http.Client

	retriesPerGateway int
	backoffBase       time.Duration
}

// NewClient creates a storage client for the given gateway configuration.
func NewClient(opts Options) *Client {
	timeout := opts.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	retries := opts.RetriesPerGateway
	if retries == 0 {
		retries = DefaultRetriesPerGateway
	} else if retries < 0 {
		retries = 0
	}

	base := opts.BackoffBase
	if base == 0 {
		base = DefaultBackoffBase
	}

	fallbacks := opts.FallbackGateways
	if fallbacks == nil {
		fallbacks = defaultFallbackGateways
	}

	// The full chain is the configured gateway plus fallbacks, without
	// duplicates, capped at three gateways total.
	chain := []string{opts.Gateway}
	for _, gw := range fallbacks {
		if gw != opts.Gateway && len(chain) < 3 {
			chain = append(chain, gw)
		}
	}

	bundlerURL := opts.BundlerURL
	if bundlerURL == "" {
		bundlerURL = opts.Gateway
	}

	return &Client{
		gateway:           opts.Gateway,
		gateways:          chain,
		bundlerURL:        bundlerURL,
		httpClient:        networking.NewHTTPClientBuilder().WithTimeout(timeout).Build(),
		retriesPerGateway: retries,
		backoffBase:       base,
	}
}

// Gateways returns the gateway fallback chain in try order.
func (c *Client) Gateways() []string {
	return c.gateways
}
