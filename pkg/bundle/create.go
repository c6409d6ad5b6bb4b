// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package bundle builds and extracts skill bundles: gzip-compressed tars of a
// skill directory with SKILL.md at the root.
package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/skills"
)

// DefaultCompressionLevel is the gzip level used when none is configured.
// Level 6 compresses typical text bundles by roughly 60% and is the point of
// diminishing returns for markdown content.
const DefaultCompressionLevel = 6

// CreateOptions configures bundle creation.
type CreateOptions struct {
	// CompressionLevel is the gzip level, gzip.NoCompression through
	// gzip.BestCompression. Nil means DefaultCompressionLevel.
	CompressionLevel *int
}

// Create writes a gzip-compressed tar of dir to w. Entry paths are relative
// to dir and emitted in sorted order so the output byte stream is
// deterministic for a given input tree and compression level; the gzip header
// carries no name or timestamp, and the only embedded times are the per-entry
// file mtimes.
func Create(dir string, w io.Writer, opts CreateOptions) error {
	if _, err := os.Stat(filepath.Join(dir, skills.ManifestFileName)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewValidationError(
				fmt.Sprintf("%s not found in %s", skills.ManifestFileName, dir), nil)
		}
		return errors.NewFileSystemError("failed to stat skill directory", err)
	}

	level := DefaultCompressionLevel
	if opts.CompressionLevel != nil {
		level = *opts.CompressionLevel
	}
	gzw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return errors.NewValidationError(fmt.Sprintf("invalid compression level %d", level), err)
	}
	tw := tar.NewWriter(gzw)

	entries, err := collectEntries(dir)
	if err != nil {
		return err
	}

	for _, rel := range entries {
		if err := writeEntry(tw, dir, rel); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.NewFileSystemError("failed to finalize bundle tar", err)
	}
	if err := gzw.Close(); err != nil {
		return errors.NewFileSystemError("failed to finalize bundle gzip stream", err)
	}
	return nil
}

// collectEntries walks dir and returns all entry paths relative to it, sorted
// lexicographically. Symlinks are skipped.
func collectEntries(dir string) ([]string, error) {
	var entries []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.NewFileSystemError("failed to walk skill directory", err)
	}
	sort.Strings(entries)
	return entries, nil
}

func writeEntry(tw *tar.Writer, dir, rel string) error {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("failed to stat %s", rel), err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("failed to build tar header for %s", rel), err)
	}
	hdr.Name = rel
	if info.IsDir() {
		hdr.Name = rel + "/"
	}
	// Strip host-specific identity so the same tree bundles identically on
	// any machine.
	hdr.Uid = 0
	hdr.Gid = 0
	hdr.Uname = ""
	hdr.Gname = ""
	hdr.AccessTime = hdr.ModTime
	hdr.ChangeTime = hdr.ModTime
	hdr.Format = tar.FormatPAX

	if err := tw.WriteHeader(hdr); err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("failed to write tar header for %s", rel), err)
	}
	if info.IsDir() {
		return nil
	}

	f, err := os.Open(path) // #nosec G304 -- path stays inside the walked skill directory
	if err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("failed to open %s", rel), err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("failed to write %s into bundle", rel), err)
	}
	return nil
}

// CreateBytes builds the bundle for dir in memory and returns its bytes.
func CreateBytes(dir string, opts CreateOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Create(dir, &buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
