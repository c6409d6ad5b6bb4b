// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/permamind/skillhub/pkg/registry"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the registry for skills",
	Long: `Search matches the query against skill names, descriptions and tags,
returning the latest version of each matching skill. An empty query lists
every skill.`,
	Args: cobra.MaximumNArgs(1),
	RunE: searchCmdFunc,
}

var (
	searchTags    []string
	searchVerbose bool
)

func init() {
	searchCmd.Flags().StringArrayVar(&searchTags, "tag", nil,
		"Require a tag on every result; repeat to require several")
	searchCmd.Flags().BoolVar(&searchVerbose, "verbose", false, "Show author, tags and dependencies")
	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

func searchCmdFunc(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	cfg, err := loadConfig(".", "", "")
	if err != nil {
		return err
	}
	svc, _, err := buildService(cfg)
	if err != nil {
		return err
	}

	results, err := svc.Search(cmd.Context(), query)
	if err != nil {
		return err
	}
	results = filterByTags(results, searchTags)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No skills found.")
		return nil
	}
	for _, sv := range results {
		fmt.Printf("%s@%s  %s\n", sv.Name, sv.Version, sv.Description)
		if searchVerbose {
			if sv.Author != "" {
				fmt.Printf("    author: %s\n", sv.Author)
			}
			if len(sv.Tags) > 0 {
				fmt.Printf("    tags: %s\n", strings.Join(sv.Tags, ", "))
			}
			if len(sv.Dependencies) > 0 {
				fmt.Printf("    dependencies: %s\n", strings.Join(sv.Dependencies, ", "))
			}
		}
	}
	return nil
}

// filterByTags keeps results carrying every requested tag, case-insensitively.
func filterByTags(results []*registry.SkillVersion, tags []string) []*registry.SkillVersion {
	if len(tags) == 0 {
		return results
	}

	filtered := make([]*registry.SkillVersion, 0, len(results))
	for _, sv := range results {
		have := make(map[string]bool, len(sv.Tags))
		for _, t := range sv.Tags {
			have[strings.ToLower(t)] = true
		}
		ok := true
		for _, want := range tags {
			if !have[strings.ToLower(want)] {
				ok = false
				break
			}
		}
		if ok {
			filtered = append(filtered, sv)
		}
	}
	return filtered
}
