// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/permamind/skillhub/pkg/errors"
)

// LocalStore stores state as JSON files in a local directory. Writes go
// through a temp file and rename so readers never observe partial state.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a state store rooted at baseDir, creating it if
// needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, errors.NewFileSystemError(fmt.Sprintf("cannot create state directory %s", baseDir), err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", errors.NewValidationError(fmt.Sprintf("invalid state name %q", name), nil)
	}
	return filepath.Join(s.baseDir, name+".json"), nil
}

// GetReader opens the named state for reading.
func (s *LocalStore) GetReader(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewFileSystemError(fmt.Sprintf("cannot read state %q", name), err)
	}
	return f, nil
}

// GetWriter opens the named state for writing. The previous content stays
// visible until Close succeeds.
func (s *LocalStore) GetWriter(_ context.Context, name string) (io.WriteCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(s.baseDir, "."+name+"-*.tmp")
	if err != nil {
		return nil, errors.NewFileSystemError(fmt.Sprintf("cannot write state %q", name), err)
	}
	return &atomicWriter{file: tmp, target: path}, nil
}

// Delete removes the named state. Deleting absent state is not an error.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewFileSystemError(fmt.Sprintf("cannot delete state %q", name), err)
	}
	return nil
}

// List returns the names of all stored states.
func (s *LocalStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.NewFileSystemError("cannot list state directory", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}

// Exists checks whether the named state is stored.
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.NewFileSystemError(fmt.Sprintf("cannot stat state %q", name), err)
	}
	return true, nil
}

// atomicWriter writes to a temp file and renames it into place on Close.
type atomicWriter struct {
	file   *os.File
	target string
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *atomicWriter) Close() error {
	if err := w.file.Close(); err != nil {
		os.Remove(w.file.Name())
		return err
	}
	if err := os.Rename(w.file.Name(), w.target); err != nil {
		os.Remove(w.file.Name())
		return errors.NewFileSystemError("cannot commit state write", err)
	}
	return nil
}
