// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultErrorPreviewSize is the maximum size of the error body preview kept
// in an HTTPError.
const DefaultErrorPreviewSize = 1024

// HTTPError represents an HTTP error response with status code and body
// preview.
type HTTPError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is a preview of the response body (limited to DefaultErrorPreviewSize).
	Body string

	// URL is the requested URL.
	URL string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP request to %s failed with status %d", e.URL, e.StatusCode)
}

// NewHTTPError builds an HTTPError from a response, consuming a bounded
// preview of its body.
func NewHTTPError(resp *http.Response) *HTTPError {
	preview, _ := io.ReadAll(io.LimitReader(resp.Body, DefaultErrorPreviewSize))
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       string(preview),
		URL:        resp.Request.URL.String(),
	}
}

// IsHTTPError checks if an error is an HTTPError with the specified status
// code. If statusCode is 0, it matches any HTTPError.
func IsHTTPError(err error, statusCode int) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return statusCode == 0 || httpErr.StatusCode == statusCode
}
