// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"sort"
	"strconv"
	"strings"
)

// Listing bounds for List-Skills and its HTTP projection.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// SearchLatest matches the latest version of every entry against a query:
// case-insensitive substring over name, description and author, exact
// case-insensitive membership for tags. An empty query matches everything.
// Results are ordered most recently updated first.
func SearchLatest(skills map[string]*SkillEntry, query string) []*SkillVersion {
	query = strings.ToLower(strings.TrimSpace(query))

	var results []*SkillVersion
	for _, entry := range skills {
		latest := entry.LatestVersion()
		if latest == nil {
			continue
		}
		if query == "" || matchesQuery(latest, query) {
			results = append(results, latest)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].UpdatedAt != results[j].UpdatedAt {
			return results[i].UpdatedAt > results[j].UpdatedAt
		}
		return results[i].Name < results[j].Name
	})
	return results
}

func matchesQuery(sv *SkillVersion, query string) bool {
	if strings.Contains(strings.ToLower(sv.Name), query) ||
		strings.Contains(strings.ToLower(sv.Description), query) ||
		strings.Contains(strings.ToLower(sv.Author), query) {
		return true
	}
	for _, tag := range sv.Tags {
		if strings.EqualFold(tag, query) {
			return true
		}
	}
	return false
}

// ListFilter selects and pages the latest versions for a listing.
type ListFilter struct {
	// Author filters by exact, case-insensitive author match.
	Author string
	// NameContains filters by case-insensitive name substring.
	NameContains string
	// Tags requires every listed tag to be present (case-insensitive).
	Tags []string

	Limit  int
	Offset int
}

// ListLatest pages the latest versions matching a filter, ordered by name.
// Limit is clamped to [1, MaxListLimit]; negative offsets are treated as
// zero. Callers parsing wire values should go through ParseListBounds, which
// supplies DefaultListLimit for an absent limit.
func ListLatest(skills map[string]*SkillEntry, f ListFilter) *ListResult {
	limit := clampLimit(f.Limit)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var matched []*SkillVersion
	for _, entry := range skills {
		latest := entry.LatestVersion()
		if latest == nil {
			continue
		}
		if f.Author != "" && !strings.EqualFold(latest.Author, f.Author) {
			continue
		}
		if f.NameContains != "" && !strings.Contains(strings.ToLower(latest.Name), strings.ToLower(f.NameContains)) {
			continue
		}
		if !hasAllTags(latest.Tags, f.Tags) {
			continue
		}
		matched = append(matched, latest)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	page := []*SkillVersion{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = matched[offset:end]
	}

	return &ListResult{
		Skills: page,
		Pagination: Pagination{
			Total:       total,
			Limit:       limit,
			Offset:      offset,
			Returned:    len(page),
			HasNextPage: offset+len(page) < total,
			HasPrevPage: offset > 0,
		},
	}
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// VersionsOf collects an entry's versions sorted semver-descending.
func VersionsOf(entry *SkillEntry) []*SkillVersion {
	keys := make([]string, 0, len(entry.Versions))
	for v := range entry.Versions {
		keys = append(keys, v)
	}
	SortVersionsDescending(keys)

	versions := make([]*SkillVersion, 0, len(keys))
	for _, v := range keys {
		versions = append(versions, entry.Versions[v])
	}
	return versions
}

// StatsOf totals an entry's download counters. Nil entries yield zero stats,
// which is a legitimate response value.
func StatsOf(name string, entry *SkillEntry) *DownloadStats {
	stats := &DownloadStats{Name: name, PerVersion: map[string]int64{}}
	if entry != nil {
		for v, sv := range entry.Versions {
			stats.PerVersion[v] = sv.DownloadCount
			stats.Total += sv.DownloadCount
		}
	}
	return stats
}

// ParseListBounds parses string-typed limit/offset values the way the listing
// handlers expect: an absent or unparsable limit falls back to
// DefaultListLimit, an absent, unparsable or negative offset to zero. An
// explicit out-of-range limit is clamped later by ListLatest.
func ParseListBounds(rawLimit, rawOffset string) (limit, offset int) {
	limit = DefaultListLimit
	if rawLimit != "" {
		if n, err := strconv.Atoi(rawLimit); err == nil {
			limit = n
		}
	}
	if rawOffset != "" {
		if n, err := strconv.Atoi(rawOffset); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
