// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the skillhub command-line
// application.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "skillhub",
	DisableAutoGenTag: true,
	Short:             "skillhub is a decentralized package manager for agent skills",
	Long: `skillhub publishes, discovers and installs agent skills: small bundles of
markdown and supporting files that augment an AI assistant.

Bundles live on permanent content-addressed storage; the registry of named,
versioned skills is a single actor process queried over HTTP.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Flags are parsed by now, so the debug binding is visible.
		logger.Initialize()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the skillhub CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Fatalf("Failed to bind debug flag: %v", err)
	}

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Run executes the CLI and returns the process exit code. Errors are rendered
// once, here, in either human or JSON form depending on the --json flag of the
// command that failed.
func Run() int {
	if err := NewRootCmd().Execute(); err != nil {
		if jsonOutput {
			fmt.Fprintln(os.Stderr, errors.UserJSON(err))
		} else {
			fmt.Fprintln(os.Stderr, errors.UserMessage(err))
		}
		return errors.ExitCode(err)
	}
	return 0
}

// jsonOutput is set by commands that support --json so Run can render errors
// in the matching format.
var jsonOutput bool
