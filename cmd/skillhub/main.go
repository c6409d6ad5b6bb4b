// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the skillhub CLI.
package main

import (
	"os"

	"github.com/permamind/skillhub/cmd/skillhub/app"
)

func main() {
	os.Exit(app.Run())
}
