// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle orchestrates the publish, install and search flows,
// emitting typed progress events as each phase runs.
package lifecycle

// Event is one step of an orchestrated flow. Concrete event types carry
// phase-specific detail; Phase returns the stable phase name.
type Event interface {
	Phase() string
}

// Reporter receives progress events. Implementations must be fast; they run
// inline with the flow.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

// Report calls f.
func (f ReporterFunc) Report(e Event) { f(e) }

// report tolerates a nil reporter.
func report(r Reporter, e Event) {
	if r != nil {
		r.Report(e)
	}
}

// Publish flow events.

// UploadStart announces the bundle upload.
type UploadStart struct {
	Name  string
	Bytes int64
}

// UploadProgress carries upload percentages in [0,100].
type UploadProgress struct {
	Percent int
}

// UploadComplete carries the bundle's content address.
type UploadComplete struct {
	TxID string
}

// WaitConfirmation announces the confirmation wait.
type WaitConfirmation struct {
	TxID string
}

func (UploadStart) Phase() string      { return "upload-start" }
func (UploadProgress) Phase() string   { return "upload-progress" }
func (UploadComplete) Phase() string   { return "upload-complete" }
func (WaitConfirmation) Phase() string { return "wait-confirmation" }

// Install flow events.

// QueryRegistry announces the initial registry lookup.
type QueryRegistry struct {
	Name string
}

// ResolveDependencies announces dependency resolution.
type ResolveDependencies struct {
	Name string
}

// DownloadBundle carries per-skill download progress; it repeats with an
// increasing Percent.
type DownloadBundle struct {
	Name    string
	Percent int
}

// ExtractBundle announces a completed extraction.
type ExtractBundle struct {
	Name string
	Path string
}

// UpdateLockFile announces the lock file write.
type UpdateLockFile struct {
	Path string
}

// Complete ends the install flow.
type Complete struct {
	Installed int
}

func (QueryRegistry) Phase() string       { return "query-registry" }
func (ResolveDependencies) Phase() string { return "resolve-dependencies" }
func (DownloadBundle) Phase() string      { return "download-bundle" }
func (ExtractBundle) Phase() string       { return "extract-bundle" }
func (UpdateLockFile) Phase() string      { return "update-lock-file" }
func (Complete) Phase() string            { return "complete" }
