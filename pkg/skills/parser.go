// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/permamind/skillhub/pkg/errors"
)

// ManifestFileName is the manifest file expected at the root of every skill
// directory and bundle.
const ManifestFileName = "SKILL.md"

// frontmatterDelimiter is the YAML frontmatter delimiter.
var frontmatterDelimiter = []byte("---")

// MaxFrontmatterSize is the maximum size of frontmatter content in bytes.
// This prevents YAML parsing attacks (e.g. billion laughs).
const MaxFrontmatterSize = 64 * 1024 // 64KB

// ParseDir parses and validates the SKILL.md of a skill directory.
func ParseDir(dir string) (*ParseResult, error) {
	path := filepath.Join(dir, ManifestFileName)
	content, err := os.ReadFile(path) // #nosec G304 -- dir is a user-provided skill directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewValidationError(
				fmt.Sprintf("%s not found in %s", ManifestFileName, dir), nil).
				WithSolution("Every skill directory needs a SKILL.md with YAML frontmatter at its root")
		}
		return nil, errors.NewFileSystemError(fmt.Sprintf("failed to read %s", path), err)
	}
	return Parse(content)
}

// Parse parses and validates SKILL.md content.
func Parse(content []byte) (*ParseResult, error) {
	manifest, body, err := extractFrontmatter(content)
	if err != nil {
		return nil, err
	}

	warnings, err := validateManifest(manifest)
	if err != nil {
		return nil, err
	}

	return &ParseResult{
		Manifest: *manifest,
		Body:     body,
		Warnings: warnings,
	}, nil
}

// extractFrontmatter extracts YAML frontmatter delimited by leading and
// trailing "---" lines and strict-decodes it into a Manifest. Unknown keys
// fail validation rather than being silently dropped.
func extractFrontmatter(content []byte) (*Manifest, []byte, error) {
	content = bytes.TrimSpace(content)

	if !bytes.HasPrefix(content, frontmatterDelimiter) {
		return nil, nil, errors.NewValidationError(
			"SKILL.md does not start with a '---' frontmatter delimiter", nil)
	}

	// Skip opening delimiter and optional newline
	rest := content[len(frontmatterDelimiter):]
	rest = bytes.TrimPrefix(rest, []byte("\n"))

	// Limit the search scope for the closing delimiter so arbitrarily large
	// inputs are not scanned in full.
	searchLimit := rest
	maxSearch := MaxFrontmatterSize + len(frontmatterDelimiter)
	if len(searchLimit) > maxSearch {
		searchLimit = searchLimit[:maxSearch]
	}

	endIdx := bytes.Index(searchLimit, frontmatterDelimiter)
	if endIdx == -1 {
		if len(rest) > MaxFrontmatterSize {
			return nil, nil, errors.NewValidationError(
				fmt.Sprintf("frontmatter exceeds maximum size of %d bytes", MaxFrontmatterSize), nil)
		}
		return nil, nil, errors.NewValidationError(
			"SKILL.md frontmatter is missing its closing '---' delimiter", nil)
	}

	frontmatterBytes := rest[:endIdx]
	body := rest[endIdx+len(frontmatterDelimiter):]
	body = bytes.TrimPrefix(body, []byte("\n"))

	var manifest Manifest
	dec := yaml.NewDecoder(bytes.NewReader(frontmatterBytes))
	dec.KnownFields(true)
	if err := dec.Decode(&manifest); err != nil {
		return nil, nil, errors.NewValidationError("SKILL.md frontmatter is not valid YAML", err)
	}

	return &manifest, body, nil
}
