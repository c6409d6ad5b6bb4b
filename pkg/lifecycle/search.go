// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"

	"github.com/permamind/skillhub/pkg/registry"
)

// Search returns the latest versions matching query, most recently updated
// first. Normalization and caching live in the registry client; an empty or
// whitespace query lists every skill.
func (s *Service) Search(ctx context.Context, query string) ([]*registry.SkillVersion, error) {
	return s.registry.Search(ctx, query)
}
