// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/permamind/skillhub/pkg/lifecycle"
	"github.com/permamind/skillhub/pkg/logger"
)

var publishCmd = &cobra.Command{
	Use:   "publish <directory>",
	Short: "Publish a skill directory to the registry",
	Long: `Publish validates the skill manifest in <directory>/SKILL.md, bundles the
directory, stores the bundle permanently, and registers the new version with
the registry under the signing wallet's identity.`,
	Args: cobra.ExactArgs(1),
	RunE: publishCmdFunc,
}

var (
	publishWallet      string
	publishGateway     string
	publishVerbose     bool
	publishSkipConfirm bool
	publishInteractive bool
)

func init() {
	publishCmd.Flags().StringVar(&publishWallet, "wallet", "", "Path to the wallet keyfile")
	publishCmd.Flags().StringVar(&publishGateway, "gateway", "", "Storage gateway URL")
	publishCmd.Flags().BoolVar(&publishVerbose, "verbose", false, "Print per-chunk upload progress")
	publishCmd.Flags().BoolVar(&publishSkipConfirm, "skip-confirmation", false,
		"Return as soon as the upload is submitted instead of waiting for it to confirm")
	publishCmd.Flags().BoolVar(&publishInteractive, "interactive", false,
		"Approve the publish in a browser wallet instead of a local key")
}

func publishCmdFunc(cmd *cobra.Command, args []string) error {
	dir := args[0]

	cfg, err := loadConfig(".", publishWallet, publishGateway)
	if err != nil {
		return err
	}

	sig, err := buildSigner(cfg, publishInteractive)
	if err != nil {
		return err
	}
	defer func() {
		if err := sig.Disconnect(); err != nil {
			logger.Debugf("signer disconnect: %v", err)
		}
	}()

	svc, _, err := buildService(cfg)
	if err != nil {
		return err
	}

	result, err := svc.Publish(cmd.Context(), dir, sig, lifecycle.PublishOptions{
		SkipConfirmation: publishSkipConfirm,
		Events:           eventPrinter(publishVerbose),
	})
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Printf("Published %s@%s\n", result.Name, result.Version)
	fmt.Printf("  Bundle:   %s (%d bytes)\n", result.ArweaveTxID, result.Bytes)
	if result.Cost > 0 {
		fmt.Printf("  Cost:     %d winston\n", result.Cost)
	}
	fmt.Printf("  Message:  %s\n", result.RegistryMessageID)
	return nil
}
