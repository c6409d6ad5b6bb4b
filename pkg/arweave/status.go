// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package arweave

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
)

// TxStatus is a gateway's view of a transaction.
type TxStatus struct {
	BlockHeight   int64 `json:"block_height"`
	Confirmations int64 `json:"number_of_confirmations"`
}

// Status fetches the confirmation status of a transaction from the primary
// gateway.
func (c *Client) Status(ctx context.Context, txID string) (*TxStatus, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/tx/%s/status", c.gateway, txID))
	if err != nil {
		return nil, err
	}

	var status TxStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, errors.NewNetworkError("gateway returned a malformed status", err)
	}
	return &status, nil
}

// WaitForConfirmation polls the status endpoint every 30 seconds until the
// transaction has at least one confirmation or the 10-minute horizon passes.
func (c *Client) WaitForConfirmation(ctx context.Context, txID string) error {
	return c.waitForConfirmation(ctx, txID, ConfirmationPollInterval, ConfirmationTimeout)
}

func (c *Client) waitForConfirmation(ctx context.Context, txID string, interval, horizon time.Duration) error {
	deadline := time.Now().Add(horizon)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx, txID)
		if err == nil && status.Confirmations >= 1 {
			logger.Debugf("%s confirmed after %d confirmations", txID, status.Confirmations)
			return nil
		}
		if err != nil {
			if errors.IsCancelled(err) {
				return err
			}
			logger.Debugf("status poll for %s failed: %v", txID, err)
		}

		if time.Now().After(deadline) {
			return errors.NewNetworkError(
				fmt.Sprintf("%s did not confirm within %s", txID, horizon), nil)
		}

		select {
		case <-ctx.Done():
			return errors.NewCancelledError("confirmation wait cancelled", ctx.Err())
		case <-ticker.C:
		}
	}
}
