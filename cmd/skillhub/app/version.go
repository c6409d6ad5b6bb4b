// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/permamind/skillhub/pkg/versions"
)

// newVersionCmd creates a new version command
func newVersionCmd() *cobra.Command {
	var jsonVersion bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the version of skillhub",
		Long:  `Display detailed version information about skillhub, including version number, git commit, build date, and Go version.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()

			if jsonVersion {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Printf("skillhub %s\n", info.Version)
			fmt.Printf("Commit: %s\n", info.Commit)
			fmt.Printf("Built: %s\n", info.BuildDate)
			fmt.Printf("Go version: %s\n", info.GoVersion)
			fmt.Printf("Platform: %s\n", info.Platform)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonVersion, "json", false, "Output version information as JSON")

	return cmd
}
