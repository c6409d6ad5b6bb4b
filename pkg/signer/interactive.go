// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
)

// DefaultApprovalTimeout bounds how long the CLI waits for the user to act in
// the browser wallet.
const DefaultApprovalTimeout = 5 * time.Minute

// InteractiveOptions configures the browser-bridged signer.
type InteractiveOptions struct {
	// WalletURL is the wallet page opened in the browser. The loopback
	// callback address is appended as a query parameter.
	WalletURL string
	// Timeout is the per-request approval timeout. Zero means
	// DefaultApprovalTimeout.
	Timeout time.Duration
	// OpenBrowser launches the browser; overridable in tests. Defaults to
	// pkg/browser.
	OpenBrowser func(url string) error
}

// interactiveSigner bridges signature requests to a user-approved browser
// wallet through a local HTTP loopback.
type interactiveSigner struct {
	server   *http.Server
	listener net.Listener
	timeout  time.Duration

	mu       sync.Mutex
	address  string
	pending  map[string]chan *walletResponse
	requests []*walletRequest

	connected  chan struct{}
	closeOnce  sync.Once
	serverDone chan struct{}
}

type walletRequest struct {
	ID      string         `json:"id"`
	Kind    string         `json:"kind"`
	Payload []byte         `json:"payload"`
	Tags    []registry.Tag `json:"tags,omitempty"`
}

type walletResponse struct {
	ID        string `json:"id"`
	Approved  bool   `json:"approved"`
	Owner     []byte `json:"owner,omitempty"`
	Signature []byte `json:"signature,omitempty"`
}

// NewInteractiveSigner starts the loopback bridge and opens the wallet page in
// the user's browser.
func NewInteractiveSigner(opts InteractiveOptions) (Signer, error) {
	if opts.WalletURL == "" {
		return nil, errors.NewConfigurationError("interactive signing requires a wallet URL", nil)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultApprovalTimeout
	}
	openBrowser := opts.OpenBrowser
	if openBrowser == nil {
		openBrowser = browser.OpenURL
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.NewNetworkError("failed to open loopback listener for wallet bridge", err)
	}

	s := &interactiveSigner{
		listener:   listener,
		timeout:    opts.Timeout,
		pending:    make(map[string]chan *walletResponse),
		connected:  make(chan struct{}),
		serverDone: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /connect", s.handleConnect)
	mux.HandleFunc("GET /request", s.handleNextRequest)
	mux.HandleFunc("POST /response", s.handleResponse)
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		defer close(s.serverDone)
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Warnf("wallet bridge stopped: %v", err)
		}
	}()

	callback := fmt.Sprintf("http://%s", listener.Addr())
	walletURL := fmt.Sprintf("%s?callback=%s", opts.WalletURL, callback)
	if err := openBrowser(walletURL); err != nil {
		_ = s.Disconnect()
		return nil, errors.NewConfigurationError("failed to launch browser for wallet approval", err).
			WithSolution(fmt.Sprintf("Open %s manually in a browser with a wallet extension", walletURL))
	}

	logger.Infof("waiting for wallet connection on %s", callback)
	return s, nil
}

func (s *interactiveSigner) handleConnect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Address == "" {
		http.Error(w, "address required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	first := s.address == ""
	s.address = body.Address
	s.mu.Unlock()

	if first {
		close(s.connected)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *interactiveSigner) handleNextRequest(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	next := s.requests[0]
	s.requests = s.requests[1:]
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(next)
}

func (s *interactiveSigner) handleResponse(w http.ResponseWriter, r *http.Request) {
	var resp walletResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		http.Error(w, "malformed response", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	ch, ok := s.pending[resp.ID]
	delete(s.pending, resp.ID)
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unknown request id", http.StatusNotFound)
		return
	}
	ch <- &resp
	w.WriteHeader(http.StatusNoContent)
}

func (s *interactiveSigner) Address() (string, error) {
	select {
	case <-s.connected:
	case <-s.serverDone:
		return "", errors.NewNetworkError("wallet bridge connection lost", nil)
	case <-time.After(s.timeout):
		return "", errors.NewNetworkError(
			fmt.Sprintf("wallet did not connect within %s", s.timeout), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address, nil
}

func (s *interactiveSigner) SignTransaction(ctx context.Context, tx *Transaction) error {
	resp, err := s.roundTrip(ctx, &walletRequest{
		ID:      uuid.NewString(),
		Kind:    "transaction",
		Payload: tx.Payload,
	})
	if err != nil {
		return err
	}
	tx.Owner = b64.EncodeToString(resp.Owner)
	tx.Signature = b64.EncodeToString(resp.Signature)
	tx.ID = idFromSignature(resp.Signature)
	return nil
}

func (s *interactiveSigner) SignDataItem(ctx context.Context, payload []byte, tags []registry.Tag) (*SignedItem, error) {
	resp, err := s.roundTrip(ctx, &walletRequest{
		ID:      uuid.NewString(),
		Kind:    "data-item",
		Payload: dataItemMessage(payload, tags),
		Tags:    tags,
	})
	if err != nil {
		return nil, err
	}

	var raw []byte
	raw = appendChunk(raw, resp.Owner)
	raw = appendChunk(raw, resp.Signature)
	raw = append(raw, dataItemMessage(payload, tags)...)

	return &SignedItem{ID: idFromSignature(resp.Signature), Raw: raw}, nil
}

// roundTrip queues a request for the wallet and waits for its response.
func (s *interactiveSigner) roundTrip(ctx context.Context, req *walletRequest) (*walletResponse, error) {
	ch := make(chan *walletResponse, 1)

	s.mu.Lock()
	s.pending[req.ID] = ch
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, req.ID)
		s.mu.Unlock()
	}()

	select {
	case resp := <-ch:
		if !resp.Approved {
			return nil, errors.NewAuthorizationError("user rejected the signature request", nil)
		}
		if len(resp.Signature) == 0 {
			return nil, errors.NewNetworkError("wallet returned an empty signature", nil)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, errors.NewCancelledError("signature request cancelled", ctx.Err())
	case <-s.serverDone:
		return nil, errors.NewNetworkError("wallet bridge connection lost", nil)
	case <-time.After(s.timeout):
		return nil, errors.NewNetworkError(
			fmt.Sprintf("wallet did not respond within %s", s.timeout), nil)
	}
}

// Disconnect shuts the loopback server down. Safe to call more than once.
func (s *interactiveSigner) Disconnect() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			_ = s.server.Close()
		}
	})
	return nil
}

func (*interactiveSigner) Source() string { return "interactive" }
