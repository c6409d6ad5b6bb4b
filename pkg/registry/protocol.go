// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package registry

import "fmt"

// Actions understood by the registry process. Every message carries an Action
// tag; responses carry "<Action>-Succeeded" on success or "Error" on failure.
const (
	ActionRegisterSkill    = "Register-Skill"
	ActionUpdateSkill      = "Update-Skill"
	ActionSearchSkills     = "Search-Skills"
	ActionListSkills       = "List-Skills"
	ActionGetSkill         = "Get-Skill"
	ActionGetSkillVersions = "Get-Skill-Versions"
	ActionRecordDownload   = "Record-Download"
	ActionGetDownloadStats = "Get-Download-Stats"
	ActionInfo             = "Info"

	// ActionError is the response action for any failed message.
	ActionError = "Error"
)

// Well-known response actions.
const (
	ResponseSkillRegistered = "Skill-Registered"
	ResponseSkillUpdated    = "Skill-Updated"
	ResponseSearchResults   = "Search-Results"
)

// Tag names used by the message protocol.
const (
	TagAction       = "Action"
	TagName         = "Name"
	TagVersion      = "Version"
	TagDescription  = "Description"
	TagAuthor       = "Author"
	TagTags         = "Tags"
	TagDependencies = "Dependencies"
	TagMCPServers   = "MCP-Servers"
	TagChangelog    = "Changelog"
	TagArweaveTxID  = "Arweave-Tx-Id"
	TagQuery        = "Query"
	TagLimit        = "Limit"
	TagOffset       = "Offset"
	TagFilterAuthor = "Filter-Author"
	TagFilterTags   = "Filter-Tags"
	TagFilterName   = "Filter-Name"
	TagError        = "Error"
)

// Wire limits for registry message tags.
const (
	// MaxTagValueBytes is the maximum length of a single tag value.
	MaxTagValueBytes = 3072
	// MaxTags is the maximum number of tags on a message.
	MaxTags = 128
)

// SucceededAction returns the response action for a successfully handled
// request action.
func SucceededAction(action string) string {
	switch action {
	case ActionRegisterSkill:
		return ResponseSkillRegistered
	case ActionUpdateSkill:
		return ResponseSkillUpdated
	case ActionSearchSkills:
		return ResponseSearchResults
	default:
		return action + "-Succeeded"
	}
}

// Message is a registry message: a set of string tags plus envelope metadata
// assigned by the transport.
type Message struct {
	// ID is the message identifier (the signed data item's ID for mutating
	// messages, a generated one for dry-run queries).
	ID string `json:"id"`
	// From is the 43-character address of the sender.
	From string `json:"from"`
	// Timestamp is the message timestamp in Unix milliseconds. Handlers use
	// it for all recorded times; they never read the local clock.
	Timestamp int64 `json:"timestamp"`
	// Tags carries the message payload.
	Tags []Tag `json:"tags"`
}

// Tag returns the value of the first tag with the given name.
func (m *Message) Tag(name string) (string, bool) {
	for _, t := range m.Tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// TagOr returns the value of the first tag with the given name, or fallback
// when absent.
func (m *Message) TagOr(name, fallback string) string {
	if v, ok := m.Tag(name); ok {
		return v
	}
	return fallback
}

// Action returns the message's Action tag.
func (m *Message) Action() string {
	v, _ := m.Tag(TagAction)
	return v
}

// ValidateTags enforces the wire limits on a tag set.
func ValidateTags(tags []Tag) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("too many tags: %d (max %d)", len(tags), MaxTags)
	}
	for _, t := range tags {
		if len(t.Value) > MaxTagValueBytes {
			return fmt.Errorf("tag %q value exceeds %d bytes", t.Name, MaxTagValueBytes)
		}
	}
	return nil
}

// Response is the actor's reply to a message.
type Response struct {
	// Action is "<request action>-Succeeded" or "Error".
	Action string `json:"action"`
	// Error carries the reason string when Action is "Error".
	Error string `json:"error,omitempty"`
	// Data carries the handler-specific payload, JSON-encoded.
	Data any `json:"data,omitempty"`
}
