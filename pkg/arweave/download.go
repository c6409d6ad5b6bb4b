// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package arweave

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/networking"
)

// Download fetches the content for txID, trying each gateway in the chain in
// order. Within one gateway, transient failures are retried with exponential
// backoff; 404s are not retried on the same gateway since a missing
// transaction will not appear between attempts. Only when every gateway is
// exhausted does Download fail.
func (c *Client) Download(ctx context.Context, txID string, progress ProgressFunc) ([]byte, error) {
	var lastErr error
	for _, gateway := range c.gateways {
		data, err := c.downloadFrom(ctx, gateway, txID, progress)
		if err == nil {
			return data, nil
		}
		if errors.IsCancelled(err) {
			return nil, err
		}
		logger.Warnf("gateway %s failed for %s: %v", gateway, txID, err)
		lastErr = err
	}

	return nil, errors.NewNetworkError(
		fmt.Sprintf("failed to download %s from all gateways (%s)",
			txID, strings.Join(c.gateways, ", ")), lastErr)
}

// downloadFrom fetches txID from a single gateway, retrying transient
// failures.
func (c *Client) downloadFrom(ctx context.Context, gateway, txID string, progress ProgressFunc) ([]byte, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.backoffBase
	expo.Multiplier = 2

	return backoff.Retry(ctx, func() ([]byte, error) {
		data, err := c.fetchOnce(ctx, gateway, txID, progress)
		if err == nil {
			return data, nil
		}
		if errors.IsCancelled(err) || networking.IsHTTPError(err, http.StatusNotFound) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(c.retriesPerGateway+1)))
}

func (c *Client) fetchOnce(ctx context.Context, gateway, txID string, progress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gateway+"/"+txID, nil)
	if err != nil {
		return nil, errors.NewNetworkError("failed to build download request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("download cancelled", ctx.Err())
		}
		return nil, errors.NewNetworkError(fmt.Sprintf("request to %s failed", gateway), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, networking.NewHTTPError(resp)
	}

	reader := io.Reader(resp.Body)
	if progress != nil && resp.ContentLength > 0 {
		reader = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("download cancelled", ctx.Err())
		}
		return nil, errors.NewNetworkError(fmt.Sprintf("reading response from %s failed", gateway), err)
	}

	if progress != nil {
		progress(100)
	}
	return data, nil
}

// progressReader reports monotonically non-decreasing percentages as bytes
// stream through it.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)

	percent := int(p.read * 100 / p.total)
	if percent > 100 {
		percent = 100
	}
	if percent > p.last {
		p.last = percent
		p.report(percent)
	}
	return n, err
}
