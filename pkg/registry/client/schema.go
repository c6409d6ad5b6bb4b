// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	_ "embed"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/permamind/skillhub/pkg/errors"
)

//go:embed schema.json
var resultSchemaJSON string

// resultSchema validates projection payloads before the client trusts them.
// Gateways are outside our control; a malformed body should read as a clean
// error rather than a panic somewhere downstream.
var resultSchema = jsonschema.MustCompileString("schema.json", resultSchemaJSON)

// scriptResult is a validated read-script result.
type scriptResult struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func validateProjection(body []byte) (*scriptResult, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.NewNetworkError("registry projection returned invalid JSON", err)
	}
	if err := resultSchema.Validate(raw); err != nil {
		return nil, errors.NewNetworkError("registry projection returned an unexpected payload shape", err)
	}

	var result scriptResult
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&result); err != nil {
		return nil, errors.NewNetworkError("registry projection returned an unexpected payload shape", err)
	}
	return &result, nil
}

// isScriptResult reports whether a non-200 body still looks like a script
// result, as opposed to a transport-level error page.
func isScriptResult(body []byte) bool {
	var probe struct {
		Status *int `json:"status"`
	}
	return json.Unmarshal(body, &probe) == nil && probe.Status != nil
}
