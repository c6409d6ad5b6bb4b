// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"encoding/json"
	"fmt"

	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/skills"
)

// handle dispatches one message. It runs to completion on the handler
// goroutine before the next message is delivered.
func (a *Actor) handle(msg *registry.Message) *registry.Response {
	if err := registry.ValidateTags(msg.Tags); err != nil {
		return errResponse(err.Error())
	}

	switch msg.Action() {
	case registry.ActionRegisterSkill:
		return a.handleRegister(msg)
	case registry.ActionUpdateSkill:
		return a.handleUpdate(msg)
	case registry.ActionSearchSkills:
		return a.handleSearch(msg)
	case registry.ActionListSkills:
		return a.handleList(msg)
	case registry.ActionGetSkill:
		return a.handleGetSkill(msg)
	case registry.ActionGetSkillVersions:
		return a.handleGetVersions(msg)
	case registry.ActionRecordDownload:
		return a.handleRecordDownload(msg)
	case registry.ActionGetDownloadStats:
		return a.handleDownloadStats(msg)
	case registry.ActionInfo:
		return a.handleInfo()
	default:
		return errResponse(fmt.Sprintf("unknown action %q", msg.Action()))
	}
}

func errResponse(reason string) *registry.Response {
	return &registry.Response{Action: registry.ActionError, Error: reason}
}

func okResponse(action string, data any) *registry.Response {
	return &registry.Response{Action: registry.SucceededAction(action), Data: data}
}

func (a *Actor) handleRegister(msg *registry.Message) *registry.Response {
	name, _ := msg.Tag(registry.TagName)
	version, _ := msg.Tag(registry.TagVersion)
	description, _ := msg.Tag(registry.TagDescription)
	txID, _ := msg.Tag(registry.TagArweaveTxID)

	if err := skills.ValidateName(name); err != nil {
		return errResponse(err.Error())
	}
	if err := skills.ValidateVersion(version); err != nil {
		return errResponse(err.Error())
	}
	if description == "" || len(description) > skills.MaxDescriptionLength {
		return errResponse(fmt.Sprintf("Description is required and limited to %d characters", skills.MaxDescriptionLength))
	}
	if txID == "" {
		return errResponse("Arweave-Tx-Id tag is required")
	}

	entry := a.state.Skills[name]
	if entry != nil {
		if _, exists := entry.Versions[version]; exists {
			return errResponse(fmt.Sprintf("Skill with name '%s' version '%s' already exists", name, version))
		}
		// New versions of an existing skill are owner-restricted, like
		// Update-Skill.
		if owner := entry.LatestVersion(); owner != nil && owner.Owner != msg.From {
			return errResponse(fmt.Sprintf("unauthorized: %s is not the owner of skill '%s'", msg.From, name))
		}
	}

	sv := &registry.SkillVersion{
		Name:               name,
		Version:            version,
		Description:        description,
		Author:             msg.TagOr(registry.TagAuthor, ""),
		Changelog:          msg.TagOr(registry.TagChangelog, ""),
		Owner:              msg.From,
		ArweaveTxID:        txID,
		PublishedAt:        msg.Timestamp,
		UpdatedAt:          msg.Timestamp,
		DownloadTimestamps: []int64{},
	}
	var err error
	if sv.Tags, err = listTag(msg, registry.TagTags); err != nil {
		return errResponse(err.Error())
	}
	if sv.Dependencies, err = listTag(msg, registry.TagDependencies); err != nil {
		return errResponse(err.Error())
	}
	if sv.MCPServers, err = listTag(msg, registry.TagMCPServers); err != nil {
		return errResponse(err.Error())
	}

	if entry == nil {
		entry = &registry.SkillEntry{Versions: make(map[string]*registry.SkillVersion)}
		a.state.Skills[name] = entry
	}
	entry.Versions[version] = sv
	if entry.Latest == "" || registry.CompareVersions(version, entry.Latest) > 0 {
		entry.Latest = version
	}

	a.patch(msg.Timestamp)
	return okResponse(registry.ActionRegisterSkill, sv)
}

func (a *Actor) handleUpdate(msg *registry.Message) *registry.Response {
	name, _ := msg.Tag(registry.TagName)
	version, _ := msg.Tag(registry.TagVersion)
	if name == "" || version == "" {
		return errResponse("Name and Version tags are required")
	}

	entry := a.state.Skills[name]
	if entry == nil {
		return errResponse(fmt.Sprintf("Skill with name '%s' not found", name))
	}
	sv := entry.Versions[version]
	if sv == nil {
		return errResponse(fmt.Sprintf("Skill with name '%s' version '%s' not found", name, version))
	}
	if sv.Owner != msg.From {
		return errResponse(fmt.Sprintf("unauthorized: %s is not the owner of skill '%s'", msg.From, name))
	}

	if v, ok := msg.Tag(registry.TagDescription); ok {
		if v == "" || len(v) > skills.MaxDescriptionLength {
			return errResponse(fmt.Sprintf("Description is required and limited to %d characters", skills.MaxDescriptionLength))
		}
		sv.Description = v
	}
	if v, ok := msg.Tag(registry.TagChangelog); ok {
		sv.Changelog = v
	}
	if _, ok := msg.Tag(registry.TagTags); ok {
		tags, err := listTag(msg, registry.TagTags)
		if err != nil {
			return errResponse(err.Error())
		}
		sv.Tags = tags
	}
	sv.UpdatedAt = msg.Timestamp

	a.patch(msg.Timestamp)
	return okResponse(registry.ActionUpdateSkill, sv)
}

func (a *Actor) handleSearch(msg *registry.Message) *registry.Response {
	results := registry.SearchLatest(a.state.Skills, msg.TagOr(registry.TagQuery, ""))
	return okResponse(registry.ActionSearchSkills, results)
}

func (a *Actor) handleList(msg *registry.Message) *registry.Response {
	filterTags, err := listTag(msg, registry.TagFilterTags)
	if err != nil {
		return errResponse(err.Error())
	}
	limit, offset := registry.ParseListBounds(
		msg.TagOr(registry.TagLimit, ""), msg.TagOr(registry.TagOffset, ""))

	result := registry.ListLatest(a.state.Skills, registry.ListFilter{
		Author:       msg.TagOr(registry.TagFilterAuthor, ""),
		NameContains: msg.TagOr(registry.TagFilterName, ""),
		Tags:         filterTags,
		Limit:        limit,
		Offset:       offset,
	})
	return okResponse(registry.ActionListSkills, result)
}

func (a *Actor) handleGetSkill(msg *registry.Message) *registry.Response {
	name, _ := msg.Tag(registry.TagName)
	if name == "" {
		return errResponse("Name tag is required")
	}

	entry := a.state.Skills[name]
	if entry == nil {
		return errResponse(fmt.Sprintf("Skill with name '%s' not found", name))
	}

	version := msg.TagOr(registry.TagVersion, entry.Latest)
	sv := entry.Versions[version]
	if sv == nil {
		return errResponse(fmt.Sprintf("Skill with name '%s' version '%s' not found", name, version))
	}
	return okResponse(registry.ActionGetSkill, sv)
}

func (a *Actor) handleGetVersions(msg *registry.Message) *registry.Response {
	name, _ := msg.Tag(registry.TagName)
	if name == "" {
		return errResponse("Name tag is required")
	}

	entry := a.state.Skills[name]
	if entry == nil {
		return errResponse(fmt.Sprintf("Skill with name '%s' not found", name))
	}

	return okResponse(registry.ActionGetSkillVersions, &registry.VersionsResult{
		Name:     name,
		Latest:   entry.Latest,
		Versions: registry.VersionsOf(entry),
	})
}

func (a *Actor) handleRecordDownload(msg *registry.Message) *registry.Response {
	name, _ := msg.Tag(registry.TagName)
	if name == "" {
		return errResponse("Name tag is required")
	}

	// Unknown skill or version is a silent no-op so stale clients never fail
	// an install over stats bookkeeping.
	entry := a.state.Skills[name]
	if entry != nil {
		version := msg.TagOr(registry.TagVersion, entry.Latest)
		if sv := entry.Versions[version]; sv != nil {
			sv.DownloadCount++
			sv.DownloadTimestamps = append(sv.DownloadTimestamps, msg.Timestamp)
			a.patch(msg.Timestamp)
		}
	}

	return okResponse(registry.ActionRecordDownload, nil)
}

func (a *Actor) handleDownloadStats(msg *registry.Message) *registry.Response {
	name, _ := msg.Tag(registry.TagName)
	if name == "" {
		return errResponse("Name tag is required")
	}

	// Zero counts are a legitimate answer, including for unregistered names.
	return okResponse(registry.ActionGetDownloadStats, registry.StatsOf(name, a.state.Skills[name]))
}

func (a *Actor) handleInfo() *registry.Response {
	return okResponse(registry.ActionInfo, &registry.ProcessInfo{
		Name:     a.opts.ProcessName,
		Version:  a.opts.Version,
		Handlers: HandlerSchemas(),
	})
}

// HandlerSchemas enumerates the process's handlers and their tag schemas for
// the Info self-documentation protocol.
func HandlerSchemas() []registry.HandlerSchema {
	return []registry.HandlerSchema{
		{
			Action:       registry.ActionRegisterSkill,
			RequiredTags: []string{registry.TagName, registry.TagVersion, registry.TagDescription, registry.TagArweaveTxID},
			OptionalTags: []string{registry.TagAuthor, registry.TagTags, registry.TagDependencies, registry.TagMCPServers, registry.TagChangelog},
		},
		{
			Action:       registry.ActionUpdateSkill,
			RequiredTags: []string{registry.TagName, registry.TagVersion},
			OptionalTags: []string{registry.TagDescription, registry.TagTags, registry.TagChangelog},
		},
		{
			Action:       registry.ActionSearchSkills,
			OptionalTags: []string{registry.TagQuery},
		},
		{
			Action:       registry.ActionListSkills,
			OptionalTags: []string{registry.TagLimit, registry.TagOffset, registry.TagFilterAuthor, registry.TagFilterTags, registry.TagFilterName},
		},
		{
			Action:       registry.ActionGetSkill,
			RequiredTags: []string{registry.TagName},
			OptionalTags: []string{registry.TagVersion},
		},
		{
			Action:       registry.ActionGetSkillVersions,
			RequiredTags: []string{registry.TagName},
		},
		{
			Action:       registry.ActionRecordDownload,
			RequiredTags: []string{registry.TagName},
			OptionalTags: []string{registry.TagVersion},
		},
		{
			Action:       registry.ActionGetDownloadStats,
			RequiredTags: []string{registry.TagName},
		},
		{Action: registry.ActionInfo},
	}
}

// listTag decodes a JSON-array tag value into a string slice. Absent tags
// yield nil.
func listTag(msg *registry.Message, name string) ([]string, error) {
	raw, ok := msg.Tag(name)
	if !ok || raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("tag %q is not a valid JSON string array", name)
	}
	return list, nil
}
