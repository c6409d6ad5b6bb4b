// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package client is the registry client used by the CLI: signed mutating
// messages, cached queries over the HTTP state projection, and a dry-run
// fallback when the projection is unavailable.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/permamind/skillhub/pkg/cache"
	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/networking"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/signer"
)

// Cache sizing for the process-wide query caches.
const (
	// SearchCacheTTL is how long a search result stays fresh.
	SearchCacheTTL = 5 * time.Minute
	// MetadataCacheSize caps the number of cached skill versions.
	MetadataCacheSize = 100

	defaultTimeout = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// Endpoint is the registry process's HTTP base URL.
	Endpoint string
	// Timeout bounds a single request.
	Timeout time.Duration
}

// Client talks to the registry process.
type Client struct {
	endpoint   string
	httpClient *http.Client

	searchCache *cache.TTL[[]*registry.SkillVersion]
	metaCache   *cache.LRU[*registry.SkillVersion]
}

// New creates a registry client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:    strings.TrimSuffix(opts.Endpoint, "/"),
		httpClient:  networking.NewHTTPClientBuilder().WithTimeout(timeout).Build(),
		searchCache: cache.NewTTL[[]*registry.SkillVersion](SearchCacheTTL),
		metaCache:   cache.NewLRU[*registry.SkillVersion](MetadataCacheSize),
	}
}

// ClearCaches drops both query caches. Exposed for tests and for commands
// that need a guaranteed-fresh read.
func (c *Client) ClearCaches() {
	c.searchCache.Clear()
	c.metaCache.Clear()
}

// wireResponse is a registry response with its payload still undecoded.
type wireResponse struct {
	Action string          `json:"action"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Send signs the tag set as a data item and posts it to the registry's
// message intake. An Error response is mapped to an authorization error when
// the reason indicates an ownership failure, a validation error otherwise.
func (c *Client) Send(ctx context.Context, s signer.Signer, tags []registry.Tag) (json.RawMessage, string, error) {
	if err := registry.ValidateTags(tags); err != nil {
		return nil, "", errors.NewValidationError(err.Error(), nil)
	}

	item, err := s.SignDataItem(ctx, nil, tags)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/message", bytes.NewReader(item.Raw))
	if err != nil {
		return nil, "", errors.NewNetworkError("failed to build registry request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, "", err
	}

	if resp.Action == registry.ActionError {
		reason := resp.Error
		if strings.Contains(reason, "unauthorized") || strings.Contains(reason, "not authorized") {
			return nil, "", errors.NewAuthorizationError(reason, nil)
		}
		return nil, "", errors.NewValidationError(reason, nil)
	}
	return resp.Data, item.ID, nil
}

// query evaluates a read script, preferring the fast HTTP projection. A 402
// means no patch is available, in which case the slower dry-run path answers
// from live state.
func (c *Client) query(ctx context.Context, script string, params map[string]string, out any) error {
	data, err := c.queryProjection(ctx, script, params)
	if err != nil {
		if !networking.IsHTTPError(err, http.StatusPaymentRequired) {
			return err
		}
		logger.Debugf("projection unavailable for %s, falling back to dry-run", script)
		if data, err = c.dryRun(ctx, script, params); err != nil {
			return err
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewNetworkError("registry returned a malformed payload", err)
	}
	return nil
}

func (c *Client) queryProjection(ctx context.Context, script string, params map[string]string) (json.RawMessage, error) {
	target := fmt.Sprintf("%s/state/now/%s", c.endpoint, script)
	if len(params) > 0 {
		values := url.Values{}
		for name, value := range params {
			values.Set(name, value)
		}
		target += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewNetworkError("failed to build projection request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelledError("registry query cancelled", ctx.Err())
		}
		return nil, errors.NewNetworkError("registry query failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError("failed to read registry response", err)
	}

	if resp.StatusCode != http.StatusOK && !isScriptResult(body) {
		return nil, errors.NewNetworkError(
			fmt.Sprintf("registry projection returned status %d", resp.StatusCode),
			networking.NewHTTPError(resp))
	}

	result, err := validateProjection(body)
	if err != nil {
		return nil, err
	}
	switch result.Status {
	case http.StatusOK:
		return result.Data, nil
	case http.StatusNotFound, http.StatusBadRequest:
		return nil, errors.NewValidationError(result.Error, nil)
	default:
		return nil, errors.NewNetworkError(fmt.Sprintf("registry read failed: %s", result.Error), nil)
	}
}

// dryRun evaluates the query against live state through the message path.
func (c *Client) dryRun(ctx context.Context, script string, params map[string]string) (json.RawMessage, error) {
	tags, err := scriptTags(script, params)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{"tags": tags})
	if err != nil {
		return nil, errors.NewValidationError("failed to encode dry-run request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/dry-run", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewNetworkError("failed to build dry-run request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Action == registry.ActionError {
		return nil, errors.NewValidationError(resp.Error, nil)
	}
	return resp.Data, nil
}

func (c *Client) roundTrip(req *http.Request) (*wireResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, errors.NewCancelledError("registry request cancelled", req.Context().Err())
		}
		return nil, errors.NewNetworkError("registry request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetworkError(
			fmt.Sprintf("registry returned status %d", resp.StatusCode),
			networking.NewHTTPError(resp))
	}

	var out wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.NewNetworkError("registry returned a malformed response", err)
	}
	return &out, nil
}

// scriptTags translates a read script invocation into the equivalent message
// tags for the dry-run path.
func scriptTags(script string, params map[string]string) ([]registry.Tag, error) {
	var action string
	switch script {
	case "searchSkills":
		action = registry.ActionSearchSkills
	case "getSkill":
		action = registry.ActionGetSkill
	case "listSkills":
		action = registry.ActionListSkills
	case "getSkillVersions":
		action = registry.ActionGetSkillVersions
	case "getDownloadStats":
		action = registry.ActionGetDownloadStats
	case "info":
		action = registry.ActionInfo
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown read script %q", script), nil)
	}

	tags := []registry.Tag{{Name: registry.TagAction, Value: action}}
	paramTags := map[string]string{
		"query":   registry.TagQuery,
		"name":    registry.TagName,
		"version": registry.TagVersion,
		"limit":   registry.TagLimit,
		"offset":  registry.TagOffset,
		"author":  registry.TagFilterAuthor,
	}
	for param, tagName := range paramTags {
		if v := params[param]; v != "" {
			tags = append(tags, registry.Tag{Name: tagName, Value: v})
		}
	}
	if v := params["tags"]; v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		encoded, _ := json.Marshal(parts)
		tags = append(tags, registry.Tag{Name: registry.TagFilterTags, Value: string(encoded)})
	}

	// List-Skills filters name by substring through a dedicated tag.
	if script == "listSkills" {
		for i, t := range tags {
			if t.Name == registry.TagName {
				tags[i].Name = registry.TagFilterName
			}
		}
	}
	return tags, nil
}
