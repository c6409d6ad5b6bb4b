// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/permamind/skillhub/pkg/bundle"
	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/lockfile"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/resolver"
	"github.com/permamind/skillhub/pkg/signer"
)

// InstallOptions tunes one install.
type InstallOptions struct {
	// Root is the installation root directory.
	Root string
	// Force re-extracts skills that are already present.
	Force bool
	// NoLock skips the lock file update.
	NoLock bool
	// Signer, when set, reports downloads to the registry after the install
	// succeeds.
	Signer signer.Signer
	// Events receives progress events. May be nil.
	Events Reporter
}

// InstalledSkill is one extracted skill.
type InstalledSkill struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"`
	// Skipped is set when the skill was already present and Force was off.
	Skipped bool `json:"skipped,omitempty"`
}

// InstallResult records a completed install.
type InstallResult struct {
	Installed []InstalledSkill `json:"installed"`
	// MCPServers lists servers the installed skills require but which must be
	// provisioned out of band.
	MCPServers []string `json:"mcpServers,omitempty"`
}

// Install fetches ref ("name" or "name@version") and its dependency closure,
// extracting bundles leaves-first so every dependency is on disk before its
// dependents.
func (s *Service) Install(ctx context.Context, ref string, opts InstallOptions) (*InstallResult, error) {
	name, version := registry.SplitNameVersion(ref)

	report(opts.Events, QueryRegistry{Name: name})
	root, err := s.registry.GetSkill(ctx, name, version)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.NewValidationError(fmt.Sprintf("Skill with name '%s' not found", name), nil)
	}

	if err := ensureWritable(opts.Root); err != nil {
		return nil, err
	}

	report(opts.Events, ResolveDependencies{Name: name})
	plan, err := resolver.New(s.registry).Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	result := &InstallResult{MCPServers: plan.MCPServers}
	for _, node := range plan.Order {
		installed, err := s.installNode(ctx, node, opts)
		if err != nil {
			if errors.IsCancelled(err) || node == plan.Root {
				return nil, err
			}
			// The root was validated up front; a dependency that vanished
			// since resolution is not fatal.
			logger.Warnf("skipping %s@%s: %v", node.Name, node.Version, err)
			continue
		}
		result.Installed = append(result.Installed, *installed)
	}

	if !opts.NoLock {
		report(opts.Events, UpdateLockFile{Path: lockfile.Path(opts.Root)})
		for _, installed := range result.Installed {
			node := planNode(plan, installed.Name)
			lockfile.Record(opts.Root, installed.Name, installed.Version,
				node.Skill.ArweaveTxID, node.Skill.Dependencies)
		}
	}

	if opts.Signer != nil {
		// The install has already succeeded; stats are best-effort.
		for _, installed := range result.Installed {
			if installed.Skipped {
				continue
			}
			if err := s.registry.RecordDownload(ctx, opts.Signer, installed.Name, installed.Version); err != nil {
				logger.Debugf("could not record download of %s: %v", installed.Name, err)
			}
		}
	}

	report(opts.Events, Complete{Installed: len(result.Installed)})
	return result, nil
}

func (s *Service) installNode(ctx context.Context, node *resolver.Node, opts InstallOptions) (*InstalledSkill, error) {
	report(opts.Events, DownloadBundle{Name: node.Name})
	data, err := s.storage.Download(ctx, node.Skill.ArweaveTxID, func(percent int) {
		report(opts.Events, DownloadBundle{Name: node.Name, Percent: percent})
	})
	if err != nil {
		return nil, err
	}

	extracted, err := bundle.Extract(bytes.NewReader(data), opts.Root, node.Name, opts.Force)
	if err != nil {
		return nil, err
	}
	report(opts.Events, ExtractBundle{Name: node.Name, Path: extracted.Path})

	return &InstalledSkill{
		Name:    node.Name,
		Version: node.Version,
		Path:    extracted.Path,
		Skipped: extracted.Skipped,
	}, nil
}

func planNode(plan *resolver.Plan, name string) *resolver.Node {
	for _, node := range plan.Order {
		if node.Name == name {
			return node
		}
	}
	return nil
}

// ensureWritable creates the install root if needed and probes it for write
// access.
func ensureWritable(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("cannot create install directory %s", root), err)
	}

	probe, err := os.CreateTemp(root, ".write-probe-*")
	if err != nil {
		return errors.NewFileSystemError(fmt.Sprintf("install directory %s is not writable", root), err)
	}
	probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		logger.Debugf("could not remove write probe: %v", err)
	}
	return nil
}
