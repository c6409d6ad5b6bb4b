// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/lifecycle"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/signer"
)

var installCmd = &cobra.Command{
	Use:   "install <name[@version]>",
	Short: "Install a skill and its dependencies",
	Long: `Install resolves the named skill's dependency closure against the registry,
downloads each bundle, and extracts them leaves-first so every dependency is
on disk before its dependents. Without a pinned version the latest one is
installed.`,
	Args: cobra.ExactArgs(1),
	RunE: installCmdFunc,
}

var (
	installGlobal  bool
	installLocal   bool
	installForce   bool
	installNoLock  bool
	installVerbose bool
)

func init() {
	installCmd.Flags().BoolVar(&installGlobal, "global", true,
		"Install into the per-user skills directory")
	installCmd.Flags().BoolVar(&installLocal, "local", false,
		"Install into the project-local skills directory instead")
	installCmd.Flags().BoolVar(&installForce, "force", false, "Re-extract skills that are already present")
	installCmd.Flags().BoolVar(&installNoLock, "no-lock", false, "Skip the lock file update")
	installCmd.Flags().BoolVar(&installVerbose, "verbose", false, "Print per-chunk download progress")
	installCmd.MarkFlagsMutuallyExclusive("global", "local")
}

func installCmdFunc(cmd *cobra.Command, args []string) error {
	ref := args[0]

	root, err := installRoot(installLocal)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(".", "", "")
	if err != nil {
		return err
	}
	svc, _, err := buildService(cfg)
	if err != nil {
		return err
	}

	// Download recording is best-effort: a signer failure means the install
	// proceeds without attribution, not that it fails.
	var sig signer.Signer
	if s, err := buildSigner(cfg, false); err == nil {
		sig = s
		defer func() {
			if err := s.Disconnect(); err != nil {
				logger.Debugf("signer disconnect: %v", err)
			}
		}()
	} else if !errors.IsConfiguration(err) {
		return err
	}

	result, err := svc.Install(cmd.Context(), ref, lifecycle.InstallOptions{
		Root:   root,
		Force:  installForce,
		NoLock: installNoLock,
		Signer: sig,
		Events: eventPrinter(installVerbose),
	})
	if err != nil {
		return err
	}

	for _, sk := range result.Installed {
		if sk.Skipped {
			fmt.Printf("%s@%s already installed (use --force to re-extract)\n", sk.Name, sk.Version)
			continue
		}
		fmt.Printf("Installed %s@%s -> %s\n", sk.Name, sk.Version, sk.Path)
	}
	if len(result.MCPServers) > 0 {
		fmt.Printf("Requires MCP servers (provision separately): %s\n", strings.Join(result.MCPServers, ", "))
	}
	return nil
}
