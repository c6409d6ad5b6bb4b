// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Exit codes by kind. Validation, configuration and dependency problems are
// caller mistakes (1); network and filesystem problems are environmental (2);
// authorization problems get their own code (3) so scripts can prompt for a
// wallet without re-parsing stderr.
const (
	ExitValidation    = 1
	ExitConfiguration = 1
	ExitDependency    = 1
	ExitNetwork       = 2
	ExitFileSystem    = 2
	ExitAuthorization = 3
)

var exitCodes = map[string]int{
	ErrValidation:    ExitValidation,
	ErrConfiguration: ExitConfiguration,
	ErrDependency:    ExitDependency,
	ErrNetwork:       ExitNetwork,
	ErrFileSystem:    ExitFileSystem,
	ErrAuthorization: ExitAuthorization,
	ErrCancelled:     ExitNetwork,
}

var defaultSolutions = map[string]string{
	ErrValidation:    "Check the reported field and try again",
	ErrConfiguration: "Run with --wallet/--gateway or add the missing key to .skillsrc",
	ErrAuthorization: "Connect a wallet with sufficient funds and approve the request",
	ErrNetwork:       "Check your connection and retry; a different --gateway may help",
	ErrFileSystem:    "Check path permissions and available disk space",
	ErrDependency:    "Inspect the skill's dependency list in the registry",
	ErrCancelled:     "Re-run the command to try again",
}

// ExitCode returns the process exit code for err. Unrecognized errors map to 1.
func ExitCode(err error) int {
	if e := As(err); e != nil {
		if code, ok := exitCodes[e.Type]; ok {
			return code
		}
	}
	return 1
}

// userKind maps the internal kind to the kind shown to users. Cancellation is
// presented as a network condition.
func userKind(t string) string {
	if t == ErrCancelled {
		return ErrNetwork
	}
	return t
}

// UserMessage renders err as "[Kind] problem. -> Solution: remediation."
func UserMessage(err error) string {
	e := As(err)
	if e == nil {
		return fmt.Sprintf("[error] %s", err)
	}

	kind := userKind(e.Type)
	solution := e.Solution
	if solution == "" {
		solution = defaultSolutions[e.Type]
	}

	msg := strings.TrimSuffix(e.Message, ".")
	return fmt.Sprintf("[%s] %s. -> Solution: %s.", kind, msg, strings.TrimSuffix(solution, "."))
}

// jsonError is the structured rendering used when --json is set.
type jsonError struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Solution string `json:"solution,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

// UserJSON renders err as a structured JSON object for --json output.
func UserJSON(err error) string {
	out := jsonError{Kind: "error", Message: err.Error()}
	if e := As(err); e != nil {
		out.Kind = userKind(e.Type)
		out.Message = e.Message
		out.Solution = e.Solution
		if out.Solution == "" {
			out.Solution = defaultSolutions[e.Type]
		}
		if e.Cause != nil {
			out.Cause = e.Cause.Error()
		}
	}
	data, jerr := json.Marshal(out)
	if jerr != nil {
		return fmt.Sprintf(`{"kind":"error","message":%q}`, err.Error())
	}
	return string(data)
}
