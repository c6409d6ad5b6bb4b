// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package lockfile records which skill versions an install root holds. Writes
// are best-effort: a lock file problem is never worth failing an install
// over.
package lockfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/permamind/skillhub/pkg/logger"
)

// FileName is the lock file's name inside an install root.
const FileName = "skills-lock.json"

// Entry pins one installed skill.
type Entry struct {
	Version      string   `json:"version"`
	ArweaveTxID  string   `json:"arweaveTxId"`
	ResolvedAt   string   `json:"resolvedAt"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// LockFile is the on-disk document: a mapping from skill name to its pinned
// entry.
type LockFile struct {
	Skills map[string]Entry `json:"skills"`
}

// Path returns the lock file path for an install root.
func Path(installRoot string) string {
	return filepath.Join(installRoot, FileName)
}

// Read loads the lock file under installRoot. A missing or malformed file is
// treated as empty; malformed content additionally logs a warning, since the
// next write will discard it.
func Read(installRoot string) *LockFile {
	path := Path(installRoot)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("could not read %s: %v", path, err)
		}
		return &LockFile{Skills: map[string]Entry{}}
	}

	var lock LockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		logger.Warnf("%s is malformed, treating as empty: %v", path, err)
		return &LockFile{Skills: map[string]Entry{}}
	}
	if lock.Skills == nil {
		lock.Skills = map[string]Entry{}
	}
	return &lock
}

// Update applies a read-modify-write under an advisory file lock, preserving
// entries the mutation does not touch. Failures are logged and swallowed.
func Update(installRoot string, mutate func(*LockFile)) {
	path := Path(installRoot)

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil || !locked {
		logger.Warnf("could not lock %s, skipping lock file update: %v", path, err)
		return
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			logger.Warnf("could not unlock %s: %v", path, err)
		}
	}()

	lock := Read(installRoot)
	mutate(lock)

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		logger.Warnf("could not encode lock file: %v", err)
		return
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		logger.Warnf("could not write %s: %v", path, err)
	}
}

// Record pins name to an entry, stamping the resolution time.
func Record(installRoot, name, version, arweaveTxID string, dependencies []string) {
	Update(installRoot, func(lock *LockFile) {
		lock.Skills[name] = Entry{
			Version:      version,
			ArweaveTxID:  arweaveTxID,
			ResolvedAt:   time.Now().UTC().Format(time.RFC3339),
			Dependencies: dependencies,
		}
	})
}
