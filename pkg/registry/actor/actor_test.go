// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permamind/skillhub/pkg/registry"
)

const (
	ownerAddr = "owner-addr-owner-addr-owner-addr-owner-addr"
	otherAddr = "other-addr-other-addr-other-addr-other-addr"
)

func startActor(t *testing.T) *Actor {
	t.Helper()
	a := New(Options{ProcessName: "skill-registry", Version: "1.0.0"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a.Start(ctx)
	return a
}

func registerMsg(name, version, from string, timestamp int64) *registry.Message {
	return &registry.Message{
		ID:        "msg-" + name + "-" + version,
		From:      from,
		Timestamp: timestamp,
		Tags: []registry.Tag{
			{Name: registry.TagAction, Value: registry.ActionRegisterSkill},
			{Name: registry.TagName, Value: name},
			{Name: registry.TagVersion, Value: version},
			{Name: registry.TagDescription, Value: "A skill for " + name},
			{Name: registry.TagAuthor, Value: "Permamind"},
			{Name: registry.TagArweaveTxID, Value: "tx-addr-tx-addr-tx-addr-tx-addr-tx-addr-txx"},
		},
	}
}

func queryMsg(action string, tags ...registry.Tag) *registry.Message {
	return &registry.Message{
		ID:        "query",
		From:      otherAddr,
		Timestamp: 5000,
		Tags:      append([]registry.Tag{{Name: registry.TagAction, Value: action}}, tags...),
	}
}

func deliver(t *testing.T, a *Actor, msg *registry.Message) *registry.Response {
	t.Helper()
	resp, err := a.Deliver(context.Background(), msg)
	require.NoError(t, err)
	return resp
}

func TestRegisterSkill(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	resp := deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))
	assert.Equal(t, registry.ResponseSkillRegistered, resp.Action)

	sv, ok := resp.Data.(*registry.SkillVersion)
	require.True(t, ok)
	assert.Equal(t, ownerAddr, sv.Owner)
	assert.Equal(t, int64(1000), sv.PublishedAt, "timestamps come from the message, not the clock")
	assert.Equal(t, int64(1000), sv.UpdatedAt)
	assert.Zero(t, sv.DownloadCount)

	snap := a.Projection()
	require.NotNil(t, snap)
	require.Contains(t, snap.Skills, "ao-basics")
	assert.Equal(t, "1.0.0", snap.Skills["ao-basics"].Latest)
}

func TestRegisterDuplicateVersion(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))
	resp := deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 2000))

	assert.Equal(t, registry.ActionError, resp.Action)
	assert.Equal(t, "Skill with name 'ao-basics' version '1.0.0' already exists", resp.Error)

	// State unchanged: the original timestamp survives.
	snap := a.Projection()
	assert.Equal(t, int64(1000), snap.Skills["ao-basics"].Versions["1.0.0"].PublishedAt)
}

func TestRegisterNewVersionUpdatesLatest(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))
	deliver(t, a, registerMsg("ao-basics", "1.1.0", ownerAddr, 2000))
	// Backfilling an older version must not move the latest pointer.
	deliver(t, a, registerMsg("ao-basics", "1.0.1", ownerAddr, 3000))

	snap := a.Projection()
	assert.Equal(t, "1.1.0", snap.Skills["ao-basics"].Latest)
	assert.Len(t, snap.Skills["ao-basics"].Versions, 3)
}

func TestRegisterNewVersionRequiresOwner(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))
	resp := deliver(t, a, registerMsg("ao-basics", "1.1.0", otherAddr, 2000))

	assert.Equal(t, registry.ActionError, resp.Action)
	assert.Contains(t, resp.Error, "unauthorized")
}

func TestRegisterRejectsInvalidManifestFields(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	msg := registerMsg("Bad_Name", "1.0.0", ownerAddr, 1000)
	resp := deliver(t, a, msg)
	assert.Equal(t, registry.ActionError, resp.Action)

	msg = registerMsg("ok-name", "1.0", ownerAddr, 1000)
	resp = deliver(t, a, msg)
	assert.Equal(t, registry.ActionError, resp.Action)
}

func TestUpdateSkillOwnership(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))

	update := &registry.Message{
		ID: "update", From: otherAddr, Timestamp: 2000,
		Tags: []registry.Tag{
			{Name: registry.TagAction, Value: registry.ActionUpdateSkill},
			{Name: registry.TagName, Value: "ao-basics"},
			{Name: registry.TagVersion, Value: "1.0.0"},
			{Name: registry.TagDescription, Value: "hijacked"},
		},
	}
	resp := deliver(t, a, update)
	assert.Equal(t, registry.ActionError, resp.Action)
	assert.Contains(t, resp.Error, "unauthorized")

	update.From = ownerAddr
	update.Tags[3].Value = "A better description"
	resp = deliver(t, a, update)
	assert.Equal(t, registry.ResponseSkillUpdated, resp.Action)

	sv := a.Projection().Skills["ao-basics"].Versions["1.0.0"]
	assert.Equal(t, "A better description", sv.Description)
	assert.Equal(t, int64(1000), sv.PublishedAt, "publishedAt is preserved across updates")
	assert.Equal(t, int64(2000), sv.UpdatedAt)
}

func TestSearchSkills(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))
	deliver(t, a, registerMsg("pixel-art", "1.0.0", ownerAddr, 2000))

	resp := deliver(t, a, queryMsg(registry.ActionSearchSkills,
		registry.Tag{Name: registry.TagQuery, Value: "  AO-BASICS  "}))
	require.Equal(t, registry.ResponseSearchResults, resp.Action)
	results := resp.Data.([]*registry.SkillVersion)
	require.Len(t, results, 1)
	assert.Equal(t, "ao-basics", results[0].Name)

	// Empty query returns all latest versions, most recently updated first.
	resp = deliver(t, a, queryMsg(registry.ActionSearchSkills))
	results = resp.Data.([]*registry.SkillVersion)
	require.Len(t, results, 2)
	assert.Equal(t, "pixel-art", results[0].Name)
}

func TestSearchMatchesOnlyLatestVersion(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	old := registerMsg("ao-basics", "1.0.0", ownerAddr, 1000)
	old.Tags[3].Value = "legacy keyword findme"
	deliver(t, a, old)
	deliver(t, a, registerMsg("ao-basics", "1.1.0", ownerAddr, 2000))

	resp := deliver(t, a, queryMsg(registry.ActionSearchSkills,
		registry.Tag{Name: registry.TagQuery, Value: "findme"}))
	assert.Empty(t, resp.Data)
}

func TestListSkillsPagination(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	for i := 0; i < 21; i++ {
		deliver(t, a, registerMsg(fmt.Sprintf("skill-%02d", i), "1.0.0", ownerAddr, int64(1000+i)))
	}

	tests := []struct {
		offset   int
		returned int
		hasNext  bool
		hasPrev  bool
	}{
		{offset: 0, returned: 10, hasNext: true, hasPrev: false},
		{offset: 10, returned: 10, hasNext: true, hasPrev: true},
		{offset: 20, returned: 1, hasNext: false, hasPrev: true},
		{offset: 30, returned: 0, hasNext: false, hasPrev: true},
	}
	for _, tc := range tests {
		resp := deliver(t, a, queryMsg(registry.ActionListSkills,
			registry.Tag{Name: registry.TagLimit, Value: "10"},
			registry.Tag{Name: registry.TagOffset, Value: fmt.Sprint(tc.offset)}))
		result := resp.Data.(*registry.ListResult)

		assert.Equal(t, 21, result.Pagination.Total)
		assert.Equal(t, tc.returned, result.Pagination.Returned, "offset %d", tc.offset)
		assert.Len(t, result.Skills, tc.returned)
		assert.Equal(t, tc.hasNext, result.Pagination.HasNextPage, "offset %d", tc.offset)
		assert.Equal(t, tc.hasPrev, result.Pagination.HasPrevPage, "offset %d", tc.offset)
	}
}

func TestListSkillsLimitClamping(t *testing.T) {
	t.Parallel()
	a := startActor(t)
	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))

	resp := deliver(t, a, queryMsg(registry.ActionListSkills,
		registry.Tag{Name: registry.TagLimit, Value: "0"}))
	assert.Equal(t, 1, resp.Data.(*registry.ListResult).Pagination.Limit)

	resp = deliver(t, a, queryMsg(registry.ActionListSkills,
		registry.Tag{Name: registry.TagLimit, Value: "1000"}))
	assert.Equal(t, 100, resp.Data.(*registry.ListResult).Pagination.Limit)

	resp = deliver(t, a, queryMsg(registry.ActionListSkills))
	assert.Equal(t, 10, resp.Data.(*registry.ListResult).Pagination.Limit)
}

func TestListSkillsFilters(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	first := registerMsg("ao-basics", "1.0.0", ownerAddr, 1000)
	first.Tags = append(first.Tags, registry.Tag{Name: registry.TagTags, Value: `["ao","tutorial"]`})
	deliver(t, a, first)
	deliver(t, a, registerMsg("pixel-art", "1.0.0", ownerAddr, 2000))

	resp := deliver(t, a, queryMsg(registry.ActionListSkills,
		registry.Tag{Name: registry.TagFilterTags, Value: `["AO","tutorial"]`}))
	result := resp.Data.(*registry.ListResult)
	require.Len(t, result.Skills, 1)
	assert.Equal(t, "ao-basics", result.Skills[0].Name)

	resp = deliver(t, a, queryMsg(registry.ActionListSkills,
		registry.Tag{Name: registry.TagFilterName, Value: "pixel"}))
	result = resp.Data.(*registry.ListResult)
	require.Len(t, result.Skills, 1)
	assert.Equal(t, "pixel-art", result.Skills[0].Name)
}

func TestGetSkill(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))
	deliver(t, a, registerMsg("ao-basics", "1.1.0", ownerAddr, 2000))

	resp := deliver(t, a, queryMsg(registry.ActionGetSkill,
		registry.Tag{Name: registry.TagName, Value: "ao-basics"}))
	assert.Equal(t, "1.1.0", resp.Data.(*registry.SkillVersion).Version)

	resp = deliver(t, a, queryMsg(registry.ActionGetSkill,
		registry.Tag{Name: registry.TagName, Value: "ao-basics"},
		registry.Tag{Name: registry.TagVersion, Value: "1.0.0"}))
	assert.Equal(t, "1.0.0", resp.Data.(*registry.SkillVersion).Version)

	resp = deliver(t, a, queryMsg(registry.ActionGetSkill,
		registry.Tag{Name: registry.TagName, Value: "nope"}))
	assert.Equal(t, registry.ActionError, resp.Action)
	assert.Contains(t, resp.Error, "not found")
}

func TestGetSkillVersionsSortedDescending(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	for i, v := range []string{"1.0.0", "1.10.0", "1.2.0"} {
		deliver(t, a, registerMsg("ao-basics", v, ownerAddr, int64(1000+i)))
	}

	resp := deliver(t, a, queryMsg(registry.ActionGetSkillVersions,
		registry.Tag{Name: registry.TagName, Value: "ao-basics"}))
	result := resp.Data.(*registry.VersionsResult)

	assert.Equal(t, "1.10.0", result.Latest)
	got := make([]string, len(result.Versions))
	for i, sv := range result.Versions {
		got[i] = sv.Version
	}
	assert.Equal(t, []string{"1.10.0", "1.2.0", "1.0.0"}, got, "semver order, not lexicographic")
}

func TestRecordDownload(t *testing.T) {
	t.Parallel()
	a := startActor(t)
	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))

	download := queryMsg(registry.ActionRecordDownload,
		registry.Tag{Name: registry.TagName, Value: "ao-basics"},
		registry.Tag{Name: registry.TagVersion, Value: "1.0.0"})
	download.Timestamp = 7777
	resp := deliver(t, a, download)
	assert.NotEqual(t, registry.ActionError, resp.Action)

	sv := a.Projection().Skills["ao-basics"].Versions["1.0.0"]
	assert.Equal(t, int64(1), sv.DownloadCount)
	assert.Equal(t, []int64{7777}, sv.DownloadTimestamps)
}

func TestRecordDownloadUnknownIsSilentNoOp(t *testing.T) {
	t.Parallel()
	a := startActor(t)
	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))

	resp := deliver(t, a, queryMsg(registry.ActionRecordDownload,
		registry.Tag{Name: registry.TagName, Value: "ghost"}))
	assert.NotEqual(t, registry.ActionError, resp.Action)

	resp = deliver(t, a, queryMsg(registry.ActionRecordDownload,
		registry.Tag{Name: registry.TagName, Value: "ao-basics"},
		registry.Tag{Name: registry.TagVersion, Value: "9.9.9"}))
	assert.NotEqual(t, registry.ActionError, resp.Action)
	assert.Zero(t, a.Projection().Skills["ao-basics"].Versions["1.0.0"].DownloadCount)

	// Missing Name is the one error case.
	resp = deliver(t, a, queryMsg(registry.ActionRecordDownload))
	assert.Equal(t, registry.ActionError, resp.Action)
}

func TestGetDownloadStats(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))
	deliver(t, a, registerMsg("ao-basics", "1.1.0", ownerAddr, 2000))
	for i := 0; i < 3; i++ {
		deliver(t, a, queryMsg(registry.ActionRecordDownload,
			registry.Tag{Name: registry.TagName, Value: "ao-basics"},
			registry.Tag{Name: registry.TagVersion, Value: "1.1.0"}))
	}

	resp := deliver(t, a, queryMsg(registry.ActionGetDownloadStats,
		registry.Tag{Name: registry.TagName, Value: "ao-basics"}))
	stats := resp.Data.(*registry.DownloadStats)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(0), stats.PerVersion["1.0.0"])
	assert.Equal(t, int64(3), stats.PerVersion["1.1.0"])

	// Zero is a legitimate answer for an unregistered name.
	resp = deliver(t, a, queryMsg(registry.ActionGetDownloadStats,
		registry.Tag{Name: registry.TagName, Value: "ghost"}))
	assert.Equal(t, int64(0), resp.Data.(*registry.DownloadStats).Total)
}

func TestInfo(t *testing.T) {
	t.Parallel()
	a := startActor(t)

	resp := deliver(t, a, queryMsg(registry.ActionInfo))
	info := resp.Data.(*registry.ProcessInfo)
	assert.Equal(t, "skill-registry", info.Name)
	assert.Len(t, info.Handlers, 9)
}

func TestInitialSyncPatch(t *testing.T) {
	t.Parallel()

	seeded := NewState()
	seeded.Skills["ao-basics"] = &registry.SkillEntry{
		Latest: "1.0.0",
		Versions: map[string]*registry.SkillVersion{
			"1.0.0": {Name: "ao-basics", Version: "1.0.0", Owner: ownerAddr},
		},
	}

	var patches []*Snapshot
	a := New(Options{InitialState: seeded, OnPatch: func(s *Snapshot) { patches = append(patches, s) }})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	// Any delivered message proves the start-up patch already happened.
	deliver(t, a, queryMsg(registry.ActionInfo))
	require.NotEmpty(t, patches)
	assert.Contains(t, patches[0].Skills, "ao-basics")
	assert.True(t, seeded.InitialSyncDone)
}

func TestProjectionIsIsolatedFromState(t *testing.T) {
	t.Parallel()
	a := startActor(t)
	deliver(t, a, registerMsg("ao-basics", "1.0.0", ownerAddr, 1000))

	snap := a.Projection()
	snap.Skills["ao-basics"].Latest = "tampered"

	deliver(t, a, registerMsg("other", "1.0.0", ownerAddr, 2000))
	assert.Equal(t, "1.0.0", a.Projection().Skills["ao-basics"].Latest)
}

func TestDeliverAfterStop(t *testing.T) {
	t.Parallel()

	a := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	cancel()
	<-a.Done()

	_, err := a.Deliver(context.Background(), queryMsg(registry.ActionInfo))
	assert.Error(t, err)
}
