// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permamind/skillhub/pkg/arweave"
	"github.com/permamind/skillhub/pkg/bundle"
	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/lockfile"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/registry/client"
	"github.com/permamind/skillhub/pkg/signer"
)

type fakeStorage struct {
	bundles    map[string][]byte
	uploaded   []byte
	confirmed  []string
	uploadErr  error
	confirmErr error
}

func (f *fakeStorage) Upload(_ context.Context, data []byte, _ []registry.Tag, _ signer.Signer, opts arweave.UploadOptions) (*arweave.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if opts.Progress != nil {
		opts.Progress(50)
		opts.Progress(100)
	}
	f.uploaded = data
	return &arweave.UploadResult{TxID: "tx-uploaded", Bytes: int64(len(data))}, nil
}

func (f *fakeStorage) Download(_ context.Context, txID string, progress arweave.ProgressFunc) ([]byte, error) {
	data, ok := f.bundles[txID]
	if !ok {
		return nil, errors.NewNetworkError("failed to download "+txID, nil)
	}
	if progress != nil {
		progress(100)
	}
	return data, nil
}

func (f *fakeStorage) WaitForConfirmation(_ context.Context, txID string) error {
	f.confirmed = append(f.confirmed, txID)
	return f.confirmErr
}

type fakeRegistry struct {
	skills     map[string]*registry.SkillVersion
	registered [][]registry.Tag
	downloads  []string
}

func (f *fakeRegistry) GetSkill(_ context.Context, name, version string) (*registry.SkillVersion, error) {
	sv, ok := f.skills[name]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("Skill with name '%s' not found", name), nil)
	}
	if version != "" && version != sv.Version {
		return nil, errors.NewValidationError("version not found", nil)
	}
	return sv, nil
}

func (f *fakeRegistry) RegisterSkill(_ context.Context, _ signer.Signer, tags []registry.Tag) (*client.PublishReceipt, error) {
	f.registered = append(f.registered, tags)
	return &client.PublishReceipt{MessageID: "registry-msg-id"}, nil
}

func (f *fakeRegistry) RecordDownload(_ context.Context, _ signer.Signer, name, version string) error {
	f.downloads = append(f.downloads, name+"@"+version)
	return nil
}

func (f *fakeRegistry) Search(_ context.Context, query string) ([]*registry.SkillVersion, error) {
	var out []*registry.SkillVersion
	for _, sv := range f.skills {
		out = append(out, sv)
	}
	return out, nil
}

type eventLog struct {
	phases []string
}

func (l *eventLog) Report(e Event) {
	l.phases = append(l.phases, e.Phase())
}

func (l *eventLog) contains(phase string) bool {
	for _, p := range l.phases {
		if p == phase {
			return true
		}
	}
	return false
}

func writeSkillDir(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	manifest := fmt.Sprintf(`---
name: %s
version: 1.0.0
description: A lifecycle test skill
author: Permamind
---

# %s
`, name, name)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(manifest), 0600))
	return dir
}

func skillBundle(t *testing.T, name string) []byte {
	t.Helper()
	data, err := bundle.CreateBytes(writeSkillDir(t, name), bundle.CreateOptions{})
	require.NoError(t, err)
	return data
}

func TestPublishHappyPath(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{}
	reg := &fakeRegistry{}
	events := &eventLog{}

	result, err := NewService(storage, reg).Publish(
		context.Background(), writeSkillDir(t, "ao-basics"), nil,
		PublishOptions{Events: events})
	require.NoError(t, err)

	assert.Equal(t, "ao-basics", result.Name)
	assert.Equal(t, "1.0.0", result.Version)
	assert.Equal(t, "tx-uploaded", result.ArweaveTxID)
	assert.Equal(t, "registry-msg-id", result.RegistryMessageID)
	assert.NotEmpty(t, storage.uploaded)

	assert.Equal(t, []string{
		"upload-start", "upload-progress", "upload-progress",
		"upload-complete", "wait-confirmation",
	}, events.phases)
	assert.Equal(t, []string{"tx-uploaded"}, storage.confirmed)

	// Registration happens only after the upload succeeded, with the upload's
	// content address in the tag set.
	require.Len(t, reg.registered, 1)
	var txTag string
	for _, tag := range reg.registered[0] {
		if tag.Name == registry.TagArweaveTxID {
			txTag = tag.Value
		}
	}
	assert.Equal(t, "tx-uploaded", txTag)
}

func TestPublishConfirmationTimeoutStillRegisters(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{
		confirmErr: errors.NewNetworkError("tx-uploaded did not confirm within 10m0s", nil),
	}
	reg := &fakeRegistry{}

	result, err := NewService(storage, reg).Publish(
		context.Background(), writeSkillDir(t, "ao-basics"), nil, PublishOptions{})
	require.NoError(t, err)

	// The bundle is stored; an unconfirmed transaction is a warning, not a
	// failed publish.
	require.Len(t, reg.registered, 1)
	assert.Equal(t, "tx-uploaded", result.ArweaveTxID)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[len(result.Warnings)-1], "tx-uploaded not yet confirmed")
}

func TestPublishConfirmationCancelFails(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{
		confirmErr: errors.NewCancelledError("confirmation wait interrupted", context.Canceled),
	}
	reg := &fakeRegistry{}

	_, err := NewService(storage, reg).Publish(
		context.Background(), writeSkillDir(t, "ao-basics"), nil, PublishOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.Empty(t, reg.registered)
}

func TestPublishSkipConfirmation(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{}
	events := &eventLog{}

	_, err := NewService(storage, &fakeRegistry{}).Publish(
		context.Background(), writeSkillDir(t, "ao-basics"), nil,
		PublishOptions{SkipConfirmation: true, Events: events})
	require.NoError(t, err)

	assert.False(t, events.contains("wait-confirmation"))
	assert.Empty(t, storage.confirmed)
}

func TestPublishUploadFailureStopsFlow(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{uploadErr: errors.NewNetworkError("gateway down", nil)}
	reg := &fakeRegistry{}

	_, err := NewService(storage, reg).Publish(
		context.Background(), writeSkillDir(t, "ao-basics"), nil, PublishOptions{})
	require.Error(t, err)
	assert.Empty(t, reg.registered, "no registration without a stored bundle")
}

func TestPublishInvalidManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte("no frontmatter"), 0600))

	_, err := NewService(&fakeStorage{}, &fakeRegistry{}).Publish(
		context.Background(), dir, nil, PublishOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func installFixture(t *testing.T) (*fakeStorage, *fakeRegistry) {
	t.Helper()

	storage := &fakeStorage{bundles: map[string][]byte{}}
	reg := &fakeRegistry{skills: map[string]*registry.SkillVersion{}}

	add := func(name string, deps []string, mcpServers ...string) {
		txID := "tx-" + name
		reg.skills[name] = &registry.SkillVersion{
			Name: name, Version: "1.0.0", ArweaveTxID: txID,
			Dependencies: deps, MCPServers: mcpServers,
		}
		storage.bundles[txID] = skillBundle(t, name)
	}
	add("dep-b", nil)
	add("dep-a", []string{"dep-b"})
	add("root", []string{"dep-a"})
	return storage, reg
}

func TestInstallDependencyChain(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)
	events := &eventLog{}
	root := t.TempDir()

	result, err := NewService(storage, reg).Install(context.Background(), "root",
		InstallOptions{Root: root, Events: events})
	require.NoError(t, err)

	names := make([]string, len(result.Installed))
	for i, installed := range result.Installed {
		names[i] = installed.Name
	}
	assert.Equal(t, []string{"dep-b", "dep-a", "root"}, names, "leaves extract first")

	for _, name := range names {
		assert.FileExists(t, filepath.Join(root, name, "SKILL.md"))
	}

	lock := lockfile.Read(root)
	assert.Len(t, lock.Skills, 3)
	assert.Equal(t, "tx-root", lock.Skills["root"].ArweaveTxID)

	assert.Equal(t, "query-registry", events.phases[0])
	assert.Equal(t, "resolve-dependencies", events.phases[1])
	assert.Equal(t, "complete", events.phases[len(events.phases)-1])
	assert.True(t, events.contains("download-bundle"))
	assert.True(t, events.contains("extract-bundle"))
	assert.True(t, events.contains("update-lock-file"))
}

func TestInstallUnknownSkill(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)
	_, err := NewService(storage, reg).Install(context.Background(), "ghost",
		InstallOptions{Root: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestInstallNoLock(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)
	root := t.TempDir()

	_, err := NewService(storage, reg).Install(context.Background(), "root",
		InstallOptions{Root: root, NoLock: true})
	require.NoError(t, err)

	assert.NoFileExists(t, lockfile.Path(root))
}

func TestInstallRecordsDownloads(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)

	_, err := NewService(storage, reg).Install(context.Background(), "root",
		InstallOptions{Root: t.TempDir(), Signer: &nopSigner{}})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"root@1.0.0", "dep-a@1.0.0", "dep-b@1.0.0"}, reg.downloads)
}

func TestInstallWithoutSignerSkipsDownloadStats(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)

	_, err := NewService(storage, reg).Install(context.Background(), "root",
		InstallOptions{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, reg.downloads)
}

func TestInstallMissingDependencyBundleSkipped(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)
	delete(storage.bundles, "tx-dep-b")
	root := t.TempDir()

	result, err := NewService(storage, reg).Install(context.Background(), "root",
		InstallOptions{Root: root})
	require.NoError(t, err)

	names := make([]string, len(result.Installed))
	for i, installed := range result.Installed {
		names[i] = installed.Name
	}
	assert.Equal(t, []string{"dep-a", "root"}, names)
	assert.NoDirExists(t, filepath.Join(root, "dep-b"))
}

func TestInstallMissingRootBundleFails(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)
	delete(storage.bundles, "tx-root")

	_, err := NewService(storage, reg).Install(context.Background(), "root",
		InstallOptions{Root: t.TempDir()})
	assert.Error(t, err)
}

func TestInstallReportsMCPServers(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)
	reg.skills["skill-x"] = &registry.SkillVersion{
		Name: "skill-x", Version: "1.0.0", ArweaveTxID: "tx-skill-x",
		Dependencies: []string{"root", "mcp__pixel-art"},
	}
	storage.bundles["tx-skill-x"] = skillBundle(t, "skill-x")
	root := t.TempDir()

	result, err := NewService(storage, reg).Install(context.Background(), "skill-x",
		InstallOptions{Root: root})
	require.NoError(t, err)

	assert.Equal(t, []string{"mcp__pixel-art"}, result.MCPServers)
	assert.NoDirExists(t, filepath.Join(root, "mcp__pixel-art"))
}

func TestInstallIdempotent(t *testing.T) {
	t.Parallel()

	storage, reg := installFixture(t)
	root := t.TempDir()
	svc := NewService(storage, reg)

	_, err := svc.Install(context.Background(), "root", InstallOptions{Root: root})
	require.NoError(t, err)

	result, err := svc.Install(context.Background(), "root", InstallOptions{Root: root})
	require.NoError(t, err)
	for _, installed := range result.Installed {
		assert.True(t, installed.Skipped, "%s should be skipped on reinstall", installed.Name)
	}
}

// nopSigner satisfies signer.Signer for flows that only need its presence.
type nopSigner struct{}

func (*nopSigner) Address() (string, error) { return "nop-addr", nil }
func (*nopSigner) SignTransaction(context.Context, *signer.Transaction) error {
	return nil
}
func (*nopSigner) SignDataItem(context.Context, []byte, []registry.Tag) (*signer.SignedItem, error) {
	return &signer.SignedItem{ID: "nop-item"}, nil
}
func (*nopSigner) Disconnect() error { return nil }
func (*nopSigner) Source() string    { return "nop" }
