// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"

	"github.com/permamind/skillhub/pkg/arweave"
	"github.com/permamind/skillhub/pkg/bundle"
	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/registry/client"
	"github.com/permamind/skillhub/pkg/signer"
	"github.com/permamind/skillhub/pkg/skills"
)

// Storage is the slice of the storage client the orchestrators use.
type Storage interface {
	Upload(ctx context.Context, data []byte, tags []registry.Tag, s signer.Signer, opts arweave.UploadOptions) (*arweave.UploadResult, error)
	Download(ctx context.Context, txID string, progress arweave.ProgressFunc) ([]byte, error)
	WaitForConfirmation(ctx context.Context, txID string) error
}

// Registry is the slice of the registry client the orchestrators use.
type Registry interface {
	GetSkill(ctx context.Context, name, version string) (*registry.SkillVersion, error)
	RegisterSkill(ctx context.Context, s signer.Signer, tags []registry.Tag) (*client.PublishReceipt, error)
	RecordDownload(ctx context.Context, s signer.Signer, name, version string) error
	Search(ctx context.Context, query string) ([]*registry.SkillVersion, error)
}

// Service runs the skill lifecycle flows against a storage and registry
// backend.
type Service struct {
	storage  Storage
	registry Registry
}

// NewService creates a lifecycle service.
func NewService(storage Storage, reg Registry) *Service {
	return &Service{storage: storage, registry: reg}
}

// PublishOptions tunes one publish.
type PublishOptions struct {
	// SkipConfirmation returns as soon as the upload is submitted.
	SkipConfirmation bool
	// Events receives progress events. May be nil.
	Events Reporter
}

// PublishResult records an accepted publish.
type PublishResult struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ArweaveTxID       string `json:"arweaveTxId"`
	RegistryMessageID string `json:"registryMessageId"`
	Bytes             int64  `json:"bytes"`
	Cost              int64  `json:"cost"`
	// Warnings carries non-fatal manifest findings.
	Warnings []string `json:"warnings,omitempty"`
}

// Publish parses and validates the skill at dir, bundles it, stores the
// bundle, and registers the version. The registration message is sent only
// after the upload has succeeded.
func (s *Service) Publish(ctx context.Context, dir string, sig signer.Signer, opts PublishOptions) (*PublishResult, error) {
	parsed, err := skills.ParseDir(dir)
	if err != nil {
		return nil, err
	}
	for _, warning := range parsed.Warnings {
		logger.Warnf("%s", warning)
	}

	data, err := bundle.CreateBytes(dir, bundle.CreateOptions{})
	if err != nil {
		return nil, err
	}

	report(opts.Events, UploadStart{Name: parsed.Manifest.Name, Bytes: int64(len(data))})
	upload, err := s.storage.Upload(ctx, data, nil, sig, arweave.UploadOptions{
		// Confirmation is handled here so the wait can be announced.
		SkipConfirmation: true,
		Progress: func(percent int) {
			report(opts.Events, UploadProgress{Percent: percent})
		},
	})
	if err != nil {
		return nil, err
	}
	report(opts.Events, UploadComplete{TxID: upload.TxID})

	if !opts.SkipConfirmation {
		report(opts.Events, WaitConfirmation{TxID: upload.TxID})
		if err := s.storage.WaitForConfirmation(ctx, upload.TxID); err != nil {
			if errors.IsCancelled(err) {
				return nil, err
			}
			// Confirmation is best-effort: the bundle is stored and will
			// usually confirm on its own.
			logger.Warnf("proceeding without confirmation for %s: %v", upload.TxID, err)
			parsed.Warnings = append(parsed.Warnings,
				fmt.Sprintf("transaction %s not yet confirmed: %v", upload.TxID, err))
		}
	}

	tags, err := skills.RegistryTags(&parsed.Manifest, upload.TxID)
	if err != nil {
		return nil, err
	}
	receipt, err := s.registry.RegisterSkill(ctx, sig, tags)
	if err != nil {
		return nil, err
	}

	return &PublishResult{
		Name:              parsed.Manifest.Name,
		Version:           parsed.Manifest.Version,
		ArweaveTxID:       upload.TxID,
		RegistryMessageID: receipt.MessageID,
		Bytes:             upload.Bytes,
		Cost:              upload.Cost,
		Warnings:          parsed.Warnings,
	}, nil
}
