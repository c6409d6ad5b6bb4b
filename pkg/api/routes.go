// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/registry/actor"
	"github.com/permamind/skillhub/pkg/registry/reads"
	"github.com/permamind/skillhub/pkg/signer"
)

// maxMessageBytes bounds an intake body. A full tag set is well under this.
const maxMessageBytes = 1 << 20

type processRoutes struct {
	actor   *actor.Actor
	scripts map[string]reads.Script
}

func newProcessRoutes(a *actor.Actor, info *registry.ProcessInfo) *processRoutes {
	return &processRoutes{actor: a, scripts: reads.Table(info)}
}

func (*processRoutes) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// message accepts a signed data item, verifies its signature, and delivers it
// to the actor. The response message is returned as JSON; handler-level
// failures still travel as an Error response with HTTP 200, since the
// transport itself succeeded.
func (p *processRoutes) message(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	item, err := signer.ParseItem(raw)
	if err != nil {
		logger.Debugf("rejected message intake: %v", err)
		http.Error(w, "invalid or unverifiable data item", http.StatusBadRequest)
		return
	}

	msg := &registry.Message{
		ID:        item.ID,
		From:      item.From,
		Timestamp: time.Now().UnixMilli(),
		Tags:      item.Tags,
	}
	p.deliver(w, r, msg)
}

// dryRunRequest is an unsigned query evaluated against current state.
type dryRunRequest struct {
	From string         `json:"from,omitempty"`
	Tags []registry.Tag `json:"tags"`
}

// dryRun evaluates a query message without a signature. Only non-mutating
// actions are accepted.
func (p *processRoutes) dryRun(w http.ResponseWriter, r *http.Request) {
	var req dryRunRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid dry-run request body", http.StatusBadRequest)
		return
	}

	msg := &registry.Message{
		ID:        uuid.NewString(),
		From:      req.From,
		Timestamp: time.Now().UnixMilli(),
		Tags:      req.Tags,
	}
	if isMutating(msg.Action()) {
		http.Error(w, "dry-run cannot evaluate mutating actions", http.StatusBadRequest)
		return
	}
	p.deliver(w, r, msg)
}

func isMutating(action string) bool {
	switch action {
	case registry.ActionRegisterSkill, registry.ActionUpdateSkill, registry.ActionRecordDownload:
		return true
	}
	return false
}

func (p *processRoutes) deliver(w http.ResponseWriter, r *http.Request, msg *registry.Message) {
	resp, err := p.actor.Deliver(r.Context(), msg)
	if err != nil {
		http.Error(w, "registry process unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// readState evaluates a dynamic-read script against the latest patched
// snapshot. The script's status is mirrored into the HTTP status code.
func (p *processRoutes) readState(w http.ResponseWriter, r *http.Request) {
	script, ok := p.scripts[chi.URLParam(r, "script")]
	if !ok {
		http.Error(w, "unknown read script", http.StatusNotFound)
		return
	}

	snap := p.actor.Projection()
	if snap == nil {
		// Patch device has not synced yet.
		http.Error(w, "state projection not available", http.StatusPaymentRequired)
		return
	}

	req := make(map[string]string)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			req[name] = values[0]
		}
	}

	result := script(snap, req)
	writeJSON(w, result.Status, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("failed to encode response: %v", err)
	}
}
