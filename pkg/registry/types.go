// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package registry defines the data model and message protocol shared by the
// registry actor, the registry client and the dependency resolver.
package registry

// Tag is a single name/value pair on a registry message. All tag values are
// strings; numeric fields are parsed and serialized explicitly by handlers.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SkillVersion is a registered, immutable point in a skill's version history.
type SkillVersion struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// Dependencies lists installable skill names, optionally pinned as
	// "name@version".
	Dependencies []string `json:"dependencies,omitempty"`
	// MCPServers lists externally provisioned tool providers. Informational;
	// never installed.
	MCPServers []string `json:"mcpServers,omitempty"`
	Changelog  string   `json:"changelog,omitempty"`

	// Owner is the 43-character address of the publisher.
	Owner string `json:"owner"`
	// ArweaveTxID is the 43-character content address of the bundle.
	ArweaveTxID string `json:"arweaveTxId"`
	// PublishedAt and UpdatedAt are message timestamps in Unix milliseconds.
	PublishedAt int64 `json:"publishedAt"`
	UpdatedAt   int64 `json:"updatedAt"`

	DownloadCount      int64   `json:"downloadCount"`
	DownloadTimestamps []int64 `json:"downloadTimestamps,omitempty"`
}

// SkillEntry is a named row in the registry.
type SkillEntry struct {
	// Versions maps version string to the registered version.
	Versions map[string]*SkillVersion `json:"versions"`
	// Latest points at the currently-latest version string. The entry
	// Versions[Latest] always exists.
	Latest string `json:"latest"`
}

// LatestVersion returns the SkillVersion the Latest pointer designates, or nil
// when the entry is malformed.
func (e *SkillEntry) LatestVersion() *SkillVersion {
	if e == nil {
		return nil
	}
	return e.Versions[e.Latest]
}

// Pagination describes a page of a listing response.
type Pagination struct {
	Total       int  `json:"total"`
	Limit       int  `json:"limit"`
	Offset      int  `json:"offset"`
	Returned    int  `json:"returned"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// ListResult is the response payload of a List-Skills call.
type ListResult struct {
	Skills     []*SkillVersion `json:"skills"`
	Pagination Pagination      `json:"pagination"`
}

// VersionsResult is the response payload of a Get-Skill-Versions call.
type VersionsResult struct {
	Name     string          `json:"name"`
	Latest   string          `json:"latest"`
	Versions []*SkillVersion `json:"versions"`
}

// DownloadStats is the response payload of a Get-Download-Stats call.
type DownloadStats struct {
	Name       string           `json:"name"`
	Total      int64            `json:"total"`
	PerVersion map[string]int64 `json:"perVersion"`
}

// HandlerSchema documents one handler for the Info self-documentation protocol.
type HandlerSchema struct {
	Action       string   `json:"action"`
	RequiredTags []string `json:"requiredTags,omitempty"`
	OptionalTags []string `json:"optionalTags,omitempty"`
}

// ProcessInfo is the response payload of an Info call.
type ProcessInfo struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Handlers []HandlerSchema `json:"handlers"`
}
