// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/signer"
)

// PublishReceipt identifies an accepted Register-Skill message.
type PublishReceipt struct {
	// MessageID is the signed data item's identifier.
	MessageID string
	// Skill is the registered version as recorded by the registry.
	Skill *registry.SkillVersion
}

// RegisterSkill submits a signed Register-Skill message.
func (c *Client) RegisterSkill(ctx context.Context, s signer.Signer, tags []registry.Tag) (*PublishReceipt, error) {
	data, msgID, err := c.Send(ctx, s, tags)
	if err != nil {
		return nil, err
	}

	receipt := &PublishReceipt{MessageID: msgID}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &receipt.Skill); err != nil {
			logger.Debugf("could not decode registration payload: %v", err)
		}
	}

	// The registry now knows a skill the caches may not.
	c.searchCache.Clear()
	return receipt, nil
}

// RecordDownload reports an acquisition of name@version. Stats bookkeeping is
// never worth failing an install over, so callers typically ignore the error.
func (c *Client) RecordDownload(ctx context.Context, s signer.Signer, name, version string) error {
	tags := []registry.Tag{
		{Name: registry.TagAction, Value: registry.ActionRecordDownload},
		{Name: registry.TagName, Value: name},
	}
	if version != "" {
		tags = append(tags, registry.Tag{Name: registry.TagVersion, Value: version})
	}
	_, _, err := c.Send(ctx, s, tags)
	return err
}

// Search returns the latest versions matching a query, most recently updated
// first. Results are cached for SearchCacheTTL; the query is normalized
// (lowercased, trimmed) so equivalent queries share a cache entry. An empty
// query returns all skills.
func (c *Client) Search(ctx context.Context, query string) ([]*registry.SkillVersion, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))

	if cached, ok := c.searchCache.Get(normalized); ok {
		logger.Debugf("search cache hit for %q", normalized)
		return cached, nil
	}

	var results []*registry.SkillVersion
	if err := c.query(ctx, "searchSkills", map[string]string{"query": normalized}, &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []*registry.SkillVersion{}
	}

	c.searchCache.Put(normalized, results)
	return results, nil
}

// GetSkill fetches one skill's metadata, at version when given, else latest.
// Results are cached in the metadata LRU under their concrete name@version
// key, so a latest lookup primes later pinned lookups of the version it
// resolved to. A latest lookup itself always goes to the registry, since
// latest moves with every publish.
func (c *Client) GetSkill(ctx context.Context, name, version string) (*registry.SkillVersion, error) {
	cacheKey := name + "@" + version
	if version != "" {
		if cached, ok := c.metaCache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	params := map[string]string{"name": name}
	if version != "" {
		params["version"] = version
	}

	var sv *registry.SkillVersion
	if err := c.query(ctx, "getSkill", params, &sv); err != nil {
		return nil, err
	}

	if sv != nil {
		c.metaCache.Put(name+"@"+sv.Version, sv)
	}
	return sv, nil
}

// ListSkills pages the registry's latest versions.
func (c *Client) ListSkills(ctx context.Context, filter registry.ListFilter) (*registry.ListResult, error) {
	params := map[string]string{}
	if filter.Author != "" {
		params["author"] = filter.Author
	}
	if filter.NameContains != "" {
		params["name"] = filter.NameContains
	}
	if len(filter.Tags) > 0 {
		params["tags"] = strings.Join(filter.Tags, ",")
	}
	if filter.Limit != 0 {
		params["limit"] = strconv.Itoa(filter.Limit)
	}
	if filter.Offset != 0 {
		params["offset"] = strconv.Itoa(filter.Offset)
	}

	var result *registry.ListResult
	if err := c.query(ctx, "listSkills", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetSkillVersions returns a skill's full version history, latest first.
func (c *Client) GetSkillVersions(ctx context.Context, name string) (*registry.VersionsResult, error) {
	var result *registry.VersionsResult
	if err := c.query(ctx, "getSkillVersions", map[string]string{"name": name}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetDownloadStats returns total and per-version download counts.
func (c *Client) GetDownloadStats(ctx context.Context, name string) (*registry.DownloadStats, error) {
	var stats *registry.DownloadStats
	if err := c.query(ctx, "getDownloadStats", map[string]string{"name": name}, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Info returns the registry process's self-documentation.
func (c *Client) Info(ctx context.Context) (*registry.ProcessInfo, error) {
	var info *registry.ProcessInfo
	if err := c.query(ctx, "info", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}
