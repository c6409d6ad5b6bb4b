// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package arweave

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/networking"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/signer"
)

// UploadOptions configures a single upload.
type UploadOptions struct {
	// SkipConfirmation submits without waiting for the transaction to
	// confirm.
	SkipConfirmation bool
	// Progress receives upload percentages.
	Progress ProgressFunc
}

// UploadResult describes a completed upload.
type UploadResult struct {
	// TxID is the bundle's 43-character content address.
	TxID string
	// Bytes is the uploaded payload size.
	Bytes int64
	// Cost is the price paid in winston. Zero for free-tier uploads.
	Cost int64
}

// Upload stores data on the network. Payloads under the free-tier ceiling go
// through the subsidized bundler service, which never charges and returns an
// identifier immediately. Larger payloads take the direct path: fund check,
// sign, submit, and (unless skipped) a confirmation wait.
func (c *Client) Upload(ctx context.Context, data []byte, tags []registry.Tag, s signer.Signer, opts UploadOptions) (*UploadResult, error) {
	if opts.Progress != nil {
		opts.Progress(0)
	}

	if int64(len(data)) < FreeTierMaxBytes {
		return c.uploadSubsidized(ctx, data, tags, s, opts)
	}
	return c.uploadDirect(ctx, data, tags, s, opts)
}

// uploadSubsidized posts a signed data item to the bundler service.
func (c *Client) uploadSubsidized(ctx context.Context, data []byte, tags []registry.Tag, s signer.Signer, opts UploadOptions) (*UploadResult, error) {
	item, err := s.SignDataItem(ctx, data, tags)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, c.bundlerURL+"/tx", "application/octet-stream", item.Raw)
	if err != nil {
		return nil, err
	}

	// The service echoes the item ID; trust our locally computed one if the
	// body is empty.
	txID := item.ID
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &body); err == nil && body.ID != "" {
		txID = body.ID
	}

	if opts.Progress != nil {
		opts.Progress(100)
	}
	return &UploadResult{TxID: txID, Bytes: int64(len(data))}, nil
}

// uploadDirect funds, signs and submits a full transaction.
func (c *Client) uploadDirect(ctx context.Context, data []byte, tags []registry.Tag, s signer.Signer, opts UploadOptions) (*UploadResult, error) {
	addr, err := s.Address()
	if err != nil {
		return nil, err
	}

	price, err := c.Price(ctx, int64(len(data)))
	if err != nil {
		return nil, err
	}
	balance, err := c.Balance(ctx, addr)
	if err != nil {
		return nil, err
	}
	if balance < price {
		return nil, errors.NewAuthorizationError(
			fmt.Sprintf("wallet %s holds %d winston but the upload costs %d", addr, balance, price), nil).
			WithSolution("Fund the wallet or shrink the bundle under the free-tier ceiling")
	}

	tx := &signer.Transaction{Payload: data}
	if err := s.SignTransaction(ctx, tx); err != nil {
		return nil, err
	}

	submission, err := json.Marshal(map[string]any{
		"id":        tx.ID,
		"owner":     tx.Owner,
		"signature": tx.Signature,
		"data":      base64.RawURLEncoding.EncodeToString(data),
		"tags":      tags,
		"reward":    strconv.FormatInt(price, 10),
	})
	if err != nil {
		return nil, errors.NewValidationError("failed to encode transaction", err)
	}

	if _, err := c.post(ctx, c.gateway+"/tx", "application/json", submission); err != nil {
		return nil, err
	}

	if opts.Progress != nil {
		opts.Progress(100)
	}

	if !opts.SkipConfirmation {
		if err := c.WaitForConfirmation(ctx, tx.ID); err != nil {
			if errors.IsCancelled(err) {
				return nil, err
			}
			// Confirmation is best-effort: the transaction is submitted and
			// will usually confirm on its own.
			logger.Warnf("proceeding without confirmation for %s: %v", tx.ID, err)
		}
	}

	return &UploadResult{TxID: tx.ID, Bytes: int64(len(data)), Cost: price}, nil
}

// Price asks the gateway for the upload cost of a payload size, in winston.
func (c *Client) Price(ctx context.Context, size int64) (int64, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/price/%d", c.gateway, size))
	if err != nil {
		return 0, err
	}
	return parseWinston(body, "price")
}

// Balance asks the gateway for a wallet's balance, in winston.
func (c *Client) Balance(ctx context.Context, address string) (int64, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/wallet/%s/balance", c.gateway, address))
	if err != nil {
		return 0, err
	}
	return parseWinston(body, "balance")
}

func parseWinston(body []byte, what string) (int64, error) {
	n, err := strconv.ParseInt(string(bytes.TrimSpace(body)), 10, 64)
	if err != nil {
		return 0, errors.NewNetworkError(fmt.Sprintf("gateway returned a malformed %s", what), err)
	}
	return n, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewNetworkError("failed to build request", err)
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewNetworkError("failed to build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, errors.NewCancelledError("request cancelled", req.Context().Err())
		}
		return nil, errors.NewNetworkError(fmt.Sprintf("request to %s failed", req.URL.Host), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewNetworkError(
			fmt.Sprintf("%s returned status %d", req.URL.Host, resp.StatusCode),
			networking.NewHTTPError(resp))
	}
	return io.ReadAll(resp.Body)
}
