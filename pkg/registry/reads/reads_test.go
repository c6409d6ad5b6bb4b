// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package reads

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/registry/actor"
)

func snapshot() *actor.Snapshot {
	version := func(name, v string, updatedAt int64, tags ...string) *registry.SkillVersion {
		return &registry.SkillVersion{
			Name: name, Version: v, Description: "About " + name,
			Author: "Permamind", Tags: tags, UpdatedAt: updatedAt,
			DownloadCount: 2,
		}
	}
	return &actor.Snapshot{Skills: map[string]*registry.SkillEntry{
		"ao-basics": {
			Latest: "1.1.0",
			Versions: map[string]*registry.SkillVersion{
				"1.0.0": version("ao-basics", "1.0.0", 1000, "ao"),
				"1.1.0": version("ao-basics", "1.1.0", 2000, "ao", "tutorial"),
			},
		},
		"pixel-art": {
			Latest: "1.0.0",
			Versions: map[string]*registry.SkillVersion{
				"1.0.0": version("pixel-art", "1.0.0", 3000, "art"),
			},
		},
	}}
}

func TestSearchSkills(t *testing.T) {
	t.Parallel()

	res := SearchSkills(snapshot(), map[string]string{"query": "pixel"})
	require.Equal(t, http.StatusOK, res.Status)
	results := res.Data.([]*registry.SkillVersion)
	require.Len(t, results, 1)
	assert.Equal(t, "pixel-art", results[0].Name)

	// Empty query returns all latest versions, most recently updated first.
	res = SearchSkills(snapshot(), map[string]string{})
	results = res.Data.([]*registry.SkillVersion)
	require.Len(t, results, 2)
	assert.Equal(t, "pixel-art", results[0].Name)
	assert.Equal(t, "1.1.0", results[1].Version, "only latest versions are searched")
}

func TestGetSkill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    map[string]string
		status int
	}{
		{name: "latest by default", req: map[string]string{"name": "ao-basics"}, status: http.StatusOK},
		{name: "explicit version", req: map[string]string{"name": "ao-basics", "version": "1.0.0"}, status: http.StatusOK},
		{name: "missing name", req: map[string]string{}, status: http.StatusBadRequest},
		{name: "unknown skill", req: map[string]string{"name": "ghost"}, status: http.StatusNotFound},
		{name: "unknown version", req: map[string]string{"name": "ao-basics", "version": "9.9.9"}, status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := GetSkill(snapshot(), tc.req)
			assert.Equal(t, tc.status, res.Status)
		})
	}
}

func TestGetSkillDanglingLatest(t *testing.T) {
	t.Parallel()

	base := snapshot()
	base.Skills["ao-basics"].Latest = "9.9.9"
	res := GetSkill(base, map[string]string{"name": "ao-basics"})
	assert.Equal(t, http.StatusInternalServerError, res.Status)
}

func TestListSkills(t *testing.T) {
	t.Parallel()

	res := ListSkills(snapshot(), map[string]string{"limit": "1", "offset": "1"})
	require.Equal(t, http.StatusOK, res.Status)
	result := res.Data.(*registry.ListResult)
	assert.Equal(t, 2, result.Pagination.Total)
	require.Len(t, result.Skills, 1)
	assert.Equal(t, "pixel-art", result.Skills[0].Name, "listing is name-ordered")
	assert.False(t, result.Pagination.HasNextPage)
	assert.True(t, result.Pagination.HasPrevPage)

	res = ListSkills(snapshot(), map[string]string{"tags": "ao, tutorial"})
	result = res.Data.(*registry.ListResult)
	require.Len(t, result.Skills, 1)
	assert.Equal(t, "ao-basics", result.Skills[0].Name)
}

func TestGetSkillVersions(t *testing.T) {
	t.Parallel()

	res := GetSkillVersions(snapshot(), map[string]string{"name": "ao-basics"})
	require.Equal(t, http.StatusOK, res.Status)
	result := res.Data.(*registry.VersionsResult)
	assert.Equal(t, "1.1.0", result.Latest)
	require.Len(t, result.Versions, 2)
	assert.Equal(t, "1.1.0", result.Versions[0].Version)

	assert.Equal(t, http.StatusNotFound, GetSkillVersions(snapshot(), map[string]string{"name": "ghost"}).Status)
	assert.Equal(t, http.StatusBadRequest, GetSkillVersions(snapshot(), nil).Status)
}

func TestGetDownloadStats(t *testing.T) {
	t.Parallel()

	res := GetDownloadStats(snapshot(), map[string]string{"name": "ao-basics"})
	stats := res.Data.(*registry.DownloadStats)
	assert.Equal(t, int64(4), stats.Total)

	// Zero is a legitimate answer for unknown names.
	res = GetDownloadStats(snapshot(), map[string]string{"name": "ghost"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Zero(t, res.Data.(*registry.DownloadStats).Total)
}

func TestTable(t *testing.T) {
	t.Parallel()

	table := Table(&registry.ProcessInfo{Name: "skill-registry", Version: "1.0.0"})
	assert.Len(t, table, 6)

	res := table["info"](snapshot(), nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "skill-registry", res.Data.(*registry.ProcessInfo).Name)
}
