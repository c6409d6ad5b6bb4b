// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package actor implements the registry process: authoritative skill state
// behind a single-goroutine mailbox, plus the patch device that projects state
// to HTTP readers.
package actor

import (
	"context"
	"sync/atomic"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
)

// DefaultMailboxSize bounds how many messages may queue behind the handler
// goroutine before senders block.
const DefaultMailboxSize = 64

// State is the actor's authoritative state. It is only ever touched by the
// handler goroutine; everyone else sees it through snapshots.
type State struct {
	Skills map[string]*registry.SkillEntry `json:"skills"`
	// InitialSyncDone records whether the start-up patch has been emitted.
	InitialSyncDone bool `json:"initialSyncDone"`
}

// NewState returns an empty registry state.
func NewState() *State {
	return &State{Skills: make(map[string]*registry.SkillEntry)}
}

// Snapshot is an immutable projection of the skills mapping, swapped
// atomically by the patch device. Readers must not mutate it.
type Snapshot struct {
	Skills map[string]*registry.SkillEntry `json:"skills"`
	// PatchedAt is the timestamp of the message that produced this snapshot,
	// in Unix milliseconds. Zero for the initial sync.
	PatchedAt int64 `json:"patchedAt"`
}

// Options configures an Actor.
type Options struct {
	// ProcessName and Version feed the Info handler.
	ProcessName string
	Version     string
	// InitialState seeds the actor, for restarts from persisted state. Nil
	// starts empty.
	InitialState *State
	// OnPatch, when set, observes every emitted snapshot. Used for state
	// persistence. Called from the handler goroutine; must not send messages
	// back to the actor.
	OnPatch func(*Snapshot)
	// MailboxSize overrides DefaultMailboxSize.
	MailboxSize int
}

type envelope struct {
	msg   *registry.Message
	reply chan *registry.Response
}

// Actor is the registry process. Messages are handled strictly serially by one
// goroutine; there is no concurrent state access within the actor.
type Actor struct {
	opts    Options
	state   *State
	mailbox chan envelope
	done    chan struct{}

	projection atomic.Pointer[Snapshot]
}

// New creates an actor. Call Start before delivering messages.
func New(opts Options) *Actor {
	state := opts.InitialState
	if state == nil {
		state = NewState()
	}
	if state.Skills == nil {
		state.Skills = make(map[string]*registry.SkillEntry)
	}
	size := opts.MailboxSize
	if size <= 0 {
		size = DefaultMailboxSize
	}
	return &Actor{
		opts:    opts,
		state:   state,
		mailbox: make(chan envelope, size),
		done:    make(chan struct{}),
	}
}

// Start launches the handler goroutine. It emits the initial sync patch if the
// state has never been projected, then serves the mailbox until ctx is
// cancelled.
func (a *Actor) Start(ctx context.Context) {
	// Initial sync, before any message can be handled. On a restart from
	// persisted state the flag is already set, but the in-memory projection
	// still needs populating.
	a.state.InitialSyncDone = true
	a.patch(0)

	go func() {
		defer close(a.done)

		for {
			select {
			case <-ctx.Done():
				return
			case env := <-a.mailbox:
				env.reply <- a.handle(env.msg)
			}
		}
	}()
}

// Done is closed when the handler goroutine has exited.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Deliver queues a message and waits for its response.
func (a *Actor) Deliver(ctx context.Context, msg *registry.Message) (*registry.Response, error) {
	env := envelope{msg: msg, reply: make(chan *registry.Response, 1)}

	select {
	case a.mailbox <- env:
	case <-ctx.Done():
		return nil, errors.NewCancelledError("message delivery cancelled", ctx.Err())
	case <-a.done:
		return nil, errors.NewNetworkError("registry process has stopped", nil)
	}

	select {
	case resp := <-env.reply:
		return resp, nil
	case <-ctx.Done():
		return nil, errors.NewCancelledError("message delivery cancelled", ctx.Err())
	case <-a.done:
		return nil, errors.NewNetworkError("registry process has stopped", nil)
	}
}

// Projection returns the latest patched snapshot. Nil until the actor has
// started.
func (a *Actor) Projection() *Snapshot {
	return a.projection.Load()
}

// patch projects the skills mapping to HTTP readers. Fire-and-forget: handlers
// never wait on readers.
func (a *Actor) patch(timestamp int64) {
	snap := &Snapshot{Skills: cloneSkills(a.state.Skills), PatchedAt: timestamp}
	a.projection.Store(snap)
	if a.opts.OnPatch != nil {
		a.opts.OnPatch(snap)
	}
	logger.Debugf("patched projection with %d skills", len(snap.Skills))
}

func cloneSkills(skills map[string]*registry.SkillEntry) map[string]*registry.SkillEntry {
	out := make(map[string]*registry.SkillEntry, len(skills))
	for name, entry := range skills {
		versions := make(map[string]*registry.SkillVersion, len(entry.Versions))
		for v, sv := range entry.Versions {
			clone := *sv
			clone.Tags = append([]string(nil), sv.Tags...)
			clone.Dependencies = append([]string(nil), sv.Dependencies...)
			clone.MCPServers = append([]string(nil), sv.MCPServers...)
			clone.DownloadTimestamps = append([]int64(nil), sv.DownloadTimestamps...)
			versions[v] = &clone
		}
		out[name] = &registry.SkillEntry{Versions: versions, Latest: entry.Latest}
	}
	return out
}
