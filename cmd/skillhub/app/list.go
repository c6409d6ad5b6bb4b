// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/permamind/skillhub/pkg/lockfile"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed skills",
	Long:  `List reads the lock file of the chosen installation root and prints every recorded skill.`,
	Args:  cobra.NoArgs,
	RunE:  listCmdFunc,
}

var listLocal bool

func init() {
	listCmd.Flags().BoolVar(&listLocal, "local", false,
		"List the project-local installation root instead of the per-user one")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

func listCmdFunc(_ *cobra.Command, _ []string) error {
	root, err := installRoot(listLocal)
	if err != nil {
		return err
	}
	lock := lockfile.Read(root)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lock.Skills)
	}

	if len(lock.Skills) == 0 {
		fmt.Printf("No skills installed in %s.\n", root)
		return nil
	}

	names := make([]string, 0, len(lock.Skills))
	for name := range lock.Skills {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := lock.Skills[name]
		fmt.Printf("%s@%s\n", name, entry.Version)
		if len(entry.Dependencies) > 0 {
			fmt.Printf("    dependencies: %s\n", strings.Join(entry.Dependencies, ", "))
		}
	}
	return nil
}
