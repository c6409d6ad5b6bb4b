// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"encoding/json"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/registry/actor"
)

// RegistryStateName is the state entry holding the registry's skills mapping.
const RegistryStateName = "registry-state"

// SaveRegistryState persists the actor state.
func SaveRegistryState(ctx context.Context, store Store, st *actor.State) error {
	w, err := store.GetWriter(ctx, RegistryStateName)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(st); err != nil {
		w.Close()
		return errors.NewFileSystemError("cannot encode registry state", err)
	}
	return w.Close()
}

// LoadRegistryState restores persisted actor state, or returns a fresh one
// when none is stored.
func LoadRegistryState(ctx context.Context, store Store) (*actor.State, error) {
	exists, err := store.Exists(ctx, RegistryStateName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return actor.NewState(), nil
	}

	r, err := store.GetReader(ctx, RegistryStateName)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var st actor.State
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return nil, errors.NewFileSystemError("stored registry state is malformed", err)
	}
	if st.Skills == nil {
		st.Skills = actor.NewState().Skills
	}
	return &st, nil
}
