// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/permamind/skillhub/pkg/skills"
)

var validateCmd = &cobra.Command{
	Use:   "validate <directory>",
	Short: "Validate a skill directory without publishing it",
	Long: `Validate parses <directory>/SKILL.md and checks the manifest the same way
publish does, reporting errors and warnings without touching the network.`,
	Args: cobra.ExactArgs(1),
	RunE: validateCmdFunc,
}

func validateCmdFunc(_ *cobra.Command, args []string) error {
	result, err := skills.ParseDir(args[0])
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}

	m := result.Manifest
	fmt.Printf("%s@%s is valid\n", m.Name, m.Version)
	if len(m.Dependencies) > 0 {
		fmt.Printf("    dependencies: %s\n", strings.Join(m.Dependencies, ", "))
	}
	if len(m.MCPServers) > 0 {
		fmt.Printf("    mcp servers: %s\n", strings.Join(m.MCPServers, ", "))
	}
	return nil
}
