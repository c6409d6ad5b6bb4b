// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the skillhub registry daemon.
package main

import (
	"os"

	"github.com/permamind/skillhub/cmd/skillregd/app"
	"github.com/permamind/skillhub/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		logger.Errorf("registry daemon failed: %v", err)
		os.Exit(1)
	}
}
