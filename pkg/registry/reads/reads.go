// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package reads implements the dynamic-read scripts behind the registry's
// HTTP query projection. Each script is a pure function over a state snapshot
// and a flat map of query parameters; scripts never mutate state and keep
// nothing between invocations.
package reads

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/registry/actor"
)

// Result is a script's outcome. Status follows HTTP conventions: 200 on
// success, 400 on a missing or invalid parameter, 404 on not-found, 500 on
// malformed stored data. The HTTP layer mirrors it into the response code.
type Result struct {
	Status int    `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Script evaluates one read against a snapshot.
type Script func(base *actor.Snapshot, req map[string]string) *Result

func ok(data any) *Result {
	return &Result{Status: http.StatusOK, Data: data}
}

func badRequest(reason string) *Result {
	return &Result{Status: http.StatusBadRequest, Error: reason}
}

func notFound(reason string) *Result {
	return &Result{Status: http.StatusNotFound, Error: reason}
}

func malformed(reason string) *Result {
	return &Result{Status: http.StatusInternalServerError, Error: reason}
}

// Table maps script names to their implementations. info needs process
// metadata, so the table is built per process.
func Table(info *registry.ProcessInfo) map[string]Script {
	return map[string]Script{
		"searchSkills":     SearchSkills,
		"getSkill":         GetSkill,
		"listSkills":       ListSkills,
		"getSkillVersions": GetSkillVersions,
		"getDownloadStats": GetDownloadStats,
		"info": func(*actor.Snapshot, map[string]string) *Result {
			return ok(info)
		},
	}
}

// SearchSkills matches latest versions against the "query" parameter. An
// empty query returns all latest versions.
func SearchSkills(base *actor.Snapshot, req map[string]string) *Result {
	results := registry.SearchLatest(base.Skills, req["query"])
	if results == nil {
		results = []*registry.SkillVersion{}
	}
	return ok(results)
}

// GetSkill returns one skill by "name", at "version" when given, else latest.
func GetSkill(base *actor.Snapshot, req map[string]string) *Result {
	name := req["name"]
	if name == "" {
		return badRequest("name parameter is required")
	}

	entry := base.Skills[name]
	if entry == nil {
		return notFound(fmt.Sprintf("Skill with name '%s' not found", name))
	}

	version := req["version"]
	if version == "" {
		version = entry.Latest
	}
	sv := entry.Versions[version]
	if sv == nil {
		if version == entry.Latest {
			return malformed(fmt.Sprintf("entry for '%s' has a dangling latest pointer", name))
		}
		return notFound(fmt.Sprintf("Skill with name '%s' version '%s' not found", name, version))
	}
	return ok(sv)
}

// ListSkills pages latest versions with the same filter semantics as the
// actor's List-Skills. Filter tags arrive comma-separated.
func ListSkills(base *actor.Snapshot, req map[string]string) *Result {
	limit, offset := registry.ParseListBounds(req["limit"], req["offset"])

	var tags []string
	if raw := req["tags"]; raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	return ok(registry.ListLatest(base.Skills, registry.ListFilter{
		Author:       req["author"],
		NameContains: req["name"],
		Tags:         tags,
		Limit:        limit,
		Offset:       offset,
	}))
}

// GetSkillVersions returns all versions of "name", semver-descending.
func GetSkillVersions(base *actor.Snapshot, req map[string]string) *Result {
	name := req["name"]
	if name == "" {
		return badRequest("name parameter is required")
	}

	entry := base.Skills[name]
	if entry == nil {
		return notFound(fmt.Sprintf("Skill with name '%s' not found", name))
	}

	return ok(&registry.VersionsResult{
		Name:     name,
		Latest:   entry.Latest,
		Versions: registry.VersionsOf(entry),
	})
}

// GetDownloadStats returns total and per-version download counts for "name".
// Zero counts are a legitimate answer.
func GetDownloadStats(base *actor.Snapshot, req map[string]string) *Result {
	name := req["name"]
	if name == "" {
		return badRequest("name parameter is required")
	}
	return ok(registry.StatsOf(name, base.Skills[name]))
}
