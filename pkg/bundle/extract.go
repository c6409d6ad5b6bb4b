// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
)

// ExtractResult reports what an extraction did.
type ExtractResult struct {
	// Path is the final installation directory.
	Path string
	// Skipped is true when the target already existed and force was false.
	Skipped bool
}

// Extract unpacks a gzipped tar from r into "<parent>/<name>", staging into a
// hidden sibling directory and renaming atomically so a half-written install
// is never visible. When the target exists and force is false the extraction
// is a no-op; when force is true the existing target is replaced.
func Extract(r io.Reader, parent, name string, force bool) (*ExtractResult, error) {
	target := filepath.Join(parent, name)

	if _, err := os.Stat(target); err == nil {
		if !force {
			logger.Infof("%s already installed at %s", name, target)
			return &ExtractResult{Path: target, Skipped: true}, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.NewFileSystemError(fmt.Sprintf("failed to stat %s", target), err)
	}

	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, errors.NewFileSystemError(fmt.Sprintf("failed to create %s", parent), err)
	}

	staging := filepath.Join(parent, "."+name+".part")
	if err := os.RemoveAll(staging); err != nil {
		return nil, errors.NewFileSystemError("failed to clear staging directory", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, errors.NewFileSystemError("failed to create staging directory", err)
	}

	if err := unpack(r, staging, target); err != nil {
		// Partial staging must not survive a failed or cancelled extraction.
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			logger.Warnf("failed to remove staging directory %s: %v", staging, rmErr)
		}
		return nil, err
	}

	if force {
		if err := os.RemoveAll(target); err != nil {
			_ = os.RemoveAll(staging)
			return nil, errors.NewFileSystemError(fmt.Sprintf("failed to remove existing %s", target), err)
		}
	}

	if err := os.Rename(staging, target); err != nil {
		_ = os.RemoveAll(staging)
		return nil, errors.NewFileSystemError(fmt.Sprintf("failed to move %s into place", name), err)
	}

	return &ExtractResult{Path: target}, nil
}

// unpack streams archive entries into staging, rejecting any entry whose
// normalized path would land outside target once renamed.
func unpack(r io.Reader, staging, target string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errors.NewValidationError("bundle is not a gzip stream", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.NewValidationError("bundle tar stream is corrupt", err)
		}

		dest, err := safeJoin(staging, target, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, hdr.FileInfo().Mode().Perm()); err != nil {
				return errors.NewFileSystemError(fmt.Sprintf("failed to create directory %s", hdr.Name), err)
			}
		case tar.TypeReg:
			if err := writeFile(dest, hdr, tr); err != nil {
				return err
			}
		default:
			// Symlinks and device nodes never appear in bundles we create;
			// reject rather than guess.
			return errors.NewFileSystemError(
				fmt.Sprintf("bundle entry %q has unsupported type %d", hdr.Name, hdr.Typeflag), nil)
		}
	}
	return nil
}

// safeJoin resolves an archive entry name under staging, refusing absolute
// paths and ".." traversal that would escape the installation target.
func safeJoin(staging, target, entryName string) (string, error) {
	if filepath.IsAbs(entryName) || strings.HasPrefix(entryName, "/") {
		return "", errors.NewFileSystemError(
			fmt.Sprintf("bundle entry %q has an absolute path", entryName), nil)
	}
	dest := filepath.Join(staging, filepath.FromSlash(entryName))
	if dest != staging && !strings.HasPrefix(dest, staging+string(os.PathSeparator)) {
		return "", errors.NewFileSystemError(
			fmt.Sprintf("bundle entry %q escapes %s", entryName, target), nil)
	}
	return dest, nil
}

func writeFile(dest string, hdr *tar.Header, tr *tar.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("failed to create parent of %s", hdr.Name), err)
	}
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, hdr.FileInfo().Mode().Perm()) // #nosec G304 -- dest validated by safeJoin
	if err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("failed to create %s", hdr.Name), err)
	}
	defer f.Close()

	if _, err := io.Copy(f, tr); err != nil { // #nosec G110 -- bundles are size-checked before upload
		return errors.NewFileSystemError(fmt.Sprintf("failed to write %s", hdr.Name), err)
	}
	return nil
}
