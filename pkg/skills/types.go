// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package skills provides parsing, validation and classification of skill
// manifests (SKILL.md frontmatter).
package skills

import "strings"

// MCPServerPrefix marks an identifier as an MCP server requirement. The check
// is case-sensitive: "MCP__" and "Mcp__" are ordinary skill names.
const MCPServerPrefix = "mcp__"

// Manifest is the compile-time identity of a skill, parsed from SKILL.md
// frontmatter.
type Manifest struct {
	// Name uniquely identifies the skill across the registry.
	Name string `yaml:"name"`
	// Version is a digits-only semantic version (MAJOR.MINOR.PATCH).
	Version string `yaml:"version"`
	// Description is a human-readable description, 1..1024 characters.
	Description string `yaml:"description"`
	// Author is free text.
	Author string `yaml:"author,omitempty"`
	// Tags is an ordered list of free-text tags. Duplicates are forbidden.
	Tags []string `yaml:"tags,omitempty"`
	// Dependencies is an ordered list of skill names, optionally pinned as
	// "name@version".
	Dependencies []string `yaml:"dependencies,omitempty"`
	// MCPServers is an ordered list of "mcp__"-prefixed identifiers. Strictly
	// informational; the CLI never installs them.
	MCPServers []string `yaml:"mcpServers,omitempty"`
	// Changelog is free text.
	Changelog string `yaml:"changelog,omitempty"`
}

// ParseResult is a parsed and validated SKILL.md.
type ParseResult struct {
	Manifest Manifest
	// Body is the markdown content after the frontmatter.
	Body []byte
	// Warnings are non-blocking findings, surfaced at publish time.
	Warnings []string
}

// IsMCPServer reports whether id names an MCP server requirement rather than
// an installable skill.
func IsMCPServer(id string) bool {
	return strings.HasPrefix(id, MCPServerPrefix)
}

// InstallableDependencies returns the manifest's dependencies with any
// "mcp__"-prefixed entries filtered out. Legacy manifests listed MCP servers
// under dependencies; those entries are never installed.
func (m *Manifest) InstallableDependencies() []string {
	var deps []string
	for _, dep := range m.Dependencies {
		if !IsMCPServer(dep) {
			deps = append(deps, dep)
		}
	}
	return deps
}

// RequiredMCPServers returns every MCP server the manifest references, in
// declaration order: the mcpServers list followed by any legacy "mcp__"
// entries found under dependencies. Duplicates are dropped.
func (m *Manifest) RequiredMCPServers() []string {
	seen := make(map[string]bool)
	var servers []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			servers = append(servers, id)
		}
	}
	for _, id := range m.MCPServers {
		add(id)
	}
	for _, dep := range m.Dependencies {
		if IsMCPServer(dep) {
			add(dep)
		}
	}
	return servers
}
