// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"encoding/json"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/registry"
)

// RegistryTags builds the Register-Skill tag set for a manifest and its
// uploaded bundle's content address. List-valued fields are JSON-encoded since
// all tag values are strings on the wire.
func RegistryTags(m *Manifest, arweaveTxID string) ([]registry.Tag, error) {
	tags := []registry.Tag{
		{Name: registry.TagAction, Value: registry.ActionRegisterSkill},
		{Name: registry.TagName, Value: m.Name},
		{Name: registry.TagVersion, Value: m.Version},
		{Name: registry.TagDescription, Value: m.Description},
		{Name: registry.TagArweaveTxID, Value: arweaveTxID},
	}

	if m.Author != "" {
		tags = append(tags, registry.Tag{Name: registry.TagAuthor, Value: m.Author})
	}
	if m.Changelog != "" {
		tags = append(tags, registry.Tag{Name: registry.TagChangelog, Value: m.Changelog})
	}

	// Tag order is part of the signed payload, so list fields are appended in
	// a fixed order.
	listFields := []struct {
		name string
		list []string
	}{
		{registry.TagTags, m.Tags},
		{registry.TagDependencies, m.InstallableDependencies()},
		{registry.TagMCPServers, m.RequiredMCPServers()},
	}
	for _, field := range listFields {
		if len(field.list) == 0 {
			continue
		}
		encoded, err := json.Marshal(field.list)
		if err != nil {
			return nil, errors.NewValidationError("failed to encode manifest list field", err)
		}
		tags = append(tags, registry.Tag{Name: field.name, Value: string(encoded)})
	}

	if err := registry.ValidateTags(tags); err != nil {
		return nil, errors.NewValidationError(err.Error(), nil)
	}
	return tags, nil
}
