// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permamind/skillhub/pkg/errors"
)

const validSkillMD = `---
name: ao-basics
version: 1.0.0
description: Fundamentals of AO process development
author: Permamind
tags:
  - ao
  - beginner
dependencies:
  - lua-basics
mcpServers:
  - mcp__pixel-art
---

# AO Basics

Body content.
`

func TestParseValidManifest(t *testing.T) {
	t.Parallel()

	result, err := Parse([]byte(validSkillMD))
	require.NoError(t, err)

	m := result.Manifest
	assert.Equal(t, "ao-basics", m.Name)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, "Permamind", m.Author)
	assert.Equal(t, []string{"ao", "beginner"}, m.Tags)
	assert.Equal(t, []string{"lua-basics"}, m.Dependencies)
	assert.Equal(t, []string{"mcp__pixel-art"}, m.MCPServers)
	assert.Contains(t, string(result.Body), "# AO Basics")
	assert.Empty(t, result.Warnings)
}

func TestParseDirMissingManifest(t *testing.T) {
	t.Parallel()

	_, err := ParseDir(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "SKILL.md not found")
}

func TestParseDirReadsManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(validSkillMD), 0o644))

	result, err := ParseDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "ao-basics", result.Manifest.Name)
}

func TestParseFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "no frontmatter",
			content: "# Just markdown",
			wantMsg: "frontmatter delimiter",
		},
		{
			name:    "unterminated frontmatter",
			content: "---\nname: x\n",
			wantMsg: "closing",
		},
		{
			name:    "invalid yaml",
			content: "---\nname: [unclosed\n---\n",
			wantMsg: "not valid YAML",
		},
		{
			name:    "unknown field",
			content: "---\nname: a\nversion: 1.0.0\ndescription: d\nhomepage: nope\n---\n",
			wantMsg: "not valid YAML",
		},
		{
			name:    "missing name",
			content: "---\nversion: 1.0.0\ndescription: d\n---\n",
			wantMsg: `"name" is required`,
		},
		{
			name:    "bad name characters",
			content: "---\nname: Bad_Name\nversion: 1.0.0\ndescription: d\n---\n",
			wantMsg: `"name"`,
		},
		{
			name:    "version with suffix",
			content: "---\nname: a\nversion: 1.0.0-rc1\ndescription: d\n---\n",
			wantMsg: "digits only",
		},
		{
			name:    "version missing patch",
			content: "---\nname: a\nversion: 1.0\ndescription: d\n---\n",
			wantMsg: "digits only",
		},
		{
			name:    "missing description",
			content: "---\nname: a\nversion: 1.0.0\n---\n",
			wantMsg: `"description" is required`,
		},
		{
			name:    "duplicate tags",
			content: "---\nname: a\nversion: 1.0.0\ndescription: d\ntags: [x, x]\n---\n",
			wantMsg: "duplicate tag",
		},
		{
			name:    "mcp server without prefix",
			content: "---\nname: a\nversion: 1.0.0\ndescription: d\nmcpServers: [pixel-art]\n---\n",
			wantMsg: `must start with "mcp__"`,
		},
		{
			name:    "entry in both lists",
			content: "---\nname: a\nversion: 1.0.0\ndescription: d\ndependencies: [mcp__x]\nmcpServers: [mcp__x]\n---\n",
			wantMsg: "both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLegacyMCPDependencyWarns(t *testing.T) {
	t.Parallel()

	content := "---\nname: skill-x\nversion: 1.0.0\ndescription: d\ndependencies: [ao-basics, mcp__pixel-art]\n---\n"
	result, err := Parse([]byte(content))
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "mcp__pixel-art")

	// The legacy entry is classified as an MCP server, never installed.
	assert.Equal(t, []string{"ao-basics"}, result.Manifest.InstallableDependencies())
	assert.Equal(t, []string{"mcp__pixel-art"}, result.Manifest.RequiredMCPServers())
}

func TestIsMCPServerCaseSensitive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"mcp__pixel-art", true},
		{"mcp__", true},
		{"MCP__pixel-art", false},
		{"Mcp__pixel-art", false},
		{"pixel-art", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMCPServer(tt.id), "IsMCPServer(%q)", tt.id)
	}
}

func TestRegistryTags(t *testing.T) {
	t.Parallel()

	result, err := Parse([]byte(validSkillMD))
	require.NoError(t, err)

	txID := "bNbA3TEQVL60hXKrDfMQt5AJYd4ZPQXtxrU-w26Yde8"
	tags, err := RegistryTags(&result.Manifest, txID)
	require.NoError(t, err)

	byName := make(map[string]string)
	for _, tag := range tags {
		byName[tag.Name] = tag.Value
	}

	assert.Equal(t, "Register-Skill", byName["Action"])
	assert.Equal(t, "ao-basics", byName["Name"])
	assert.Equal(t, "1.0.0", byName["Version"])
	assert.Equal(t, txID, byName["Arweave-Tx-Id"])
	assert.JSONEq(t, `["ao","beginner"]`, byName["Tags"])
	assert.JSONEq(t, `["lua-basics"]`, byName["Dependencies"])
	assert.JSONEq(t, `["mcp__pixel-art"]`, byName["MCP-Servers"])
}
