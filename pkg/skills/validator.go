// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"fmt"
	"regexp"

	"github.com/permamind/skillhub/pkg/errors"
)

// skillNameRegex validates skill names: 1-64 chars of lowercase alphanumerics
// and hyphens.
var skillNameRegex = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

// skillVersionRegex validates digits-only MAJOR.MINOR.PATCH versions.
var skillVersionRegex = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// MaxDescriptionLength is the maximum allowed length for the description field.
const MaxDescriptionLength = 1024

// ValidateName checks a skill name against the registry naming rules.
func ValidateName(name string) error {
	if name == "" {
		return errors.NewValidationError("field \"name\" is required", nil)
	}
	if !skillNameRegex.MatchString(name) {
		return errors.NewValidationError(
			fmt.Sprintf("field \"name\" %q must be 1-64 lowercase alphanumerics or hyphens", name), nil)
	}
	return nil
}

// ValidateVersion checks a version string for digits-only MAJOR.MINOR.PATCH.
func ValidateVersion(version string) error {
	if version == "" {
		return errors.NewValidationError("field \"version\" is required", nil)
	}
	if !skillVersionRegex.MatchString(version) {
		return errors.NewValidationError(
			fmt.Sprintf("field \"version\" %q must be MAJOR.MINOR.PATCH with digits only", version), nil)
	}
	return nil
}

// validateManifest applies the manifest schema. It returns non-blocking
// warnings and a validation error naming the first offending field.
func validateManifest(m *Manifest) ([]string, error) {
	if err := ValidateName(m.Name); err != nil {
		return nil, err
	}
	if err := ValidateVersion(m.Version); err != nil {
		return nil, err
	}

	if m.Description == "" {
		return nil, errors.NewValidationError("field \"description\" is required", nil)
	}
	if len(m.Description) > MaxDescriptionLength {
		return nil, errors.NewValidationError(
			fmt.Sprintf("field \"description\" exceeds %d characters", MaxDescriptionLength), nil)
	}

	seenTags := make(map[string]bool)
	for _, tag := range m.Tags {
		if tag == "" {
			return nil, errors.NewValidationError("field \"tags\" contains an empty tag", nil)
		}
		if seenTags[tag] {
			return nil, errors.NewValidationError(
				fmt.Sprintf("field \"tags\" contains duplicate tag %q", tag), nil)
		}
		seenTags[tag] = true
	}

	for _, id := range m.MCPServers {
		if !IsMCPServer(id) {
			return nil, errors.NewValidationError(
				fmt.Sprintf("field \"mcpServers\" entry %q must start with %q", id, MCPServerPrefix), nil)
		}
	}

	mcpSet := make(map[string]bool, len(m.MCPServers))
	for _, id := range m.MCPServers {
		mcpSet[id] = true
	}

	var warnings []string
	for _, dep := range m.Dependencies {
		if dep == "" {
			return nil, errors.NewValidationError("field \"dependencies\" contains an empty entry", nil)
		}
		if mcpSet[dep] {
			return nil, errors.NewValidationError(
				fmt.Sprintf("%q appears in both \"dependencies\" and \"mcpServers\"", dep), nil)
		}
		if IsMCPServer(dep) {
			// Backward compatibility: a hard error here would break published
			// skills that predate the mcpServers field, so legacy entries are
			// reclassified with a warning instead.
			warnings = append(warnings, fmt.Sprintf(
				"dependency %q is an MCP server; move it to the \"mcpServers\" field", dep))
		}
	}

	return warnings, nil
}
