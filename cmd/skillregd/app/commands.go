// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the skillregd registry daemon.
package app

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/permamind/skillhub/pkg/api"
	"github.com/permamind/skillhub/pkg/logger"
	"github.com/permamind/skillhub/pkg/registry"
	"github.com/permamind/skillhub/pkg/registry/actor"
	"github.com/permamind/skillhub/pkg/state"
	"github.com/permamind/skillhub/pkg/versions"
)

// processName identifies the daemon in Info responses.
const processName = "skillhub-registry"

var rootCmd = &cobra.Command{
	Use:               "skillregd",
	DisableAutoGenTag: true,
	Short:             "skillregd is the skillhub registry process",
	Long: `skillregd runs the authoritative skill registry: a single-mailbox actor
holding named, versioned skill metadata, served over HTTP with signed message
intake, dry-run evaluation, and read-path state projections.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// NewRootCmd creates the root command for the registry daemon.
func NewRootCmd() *cobra.Command {
	rootCmd.Flags().String("address", ":8080", "Address to listen on")
	rootCmd.Flags().String("state-dir", "", "Directory for registry state persistence (empty disables it)")
	rootCmd.Flags().Bool("debug", false, "Enable debug mode")

	for _, flag := range []string{"address", "state-dir", "debug"} {
		if err := viper.BindPFlag(flag, rootCmd.Flags().Lookup(flag)); err != nil {
			logger.Fatalf("Failed to bind %s flag: %v", flag, err)
		}
	}

	return rootCmd
}

func runServe(_ *cobra.Command, _ []string) error {
	logger.Initialize()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	address := viper.GetString("address")
	stateDir := viper.GetString("state-dir")

	opts := actor.Options{
		ProcessName: processName,
		Version:     versions.GetVersionInfo().Version,
	}

	if stateDir != "" {
		store, err := state.NewLocalStore(stateDir)
		if err != nil {
			return err
		}
		initial, err := state.LoadRegistryState(ctx, store)
		if err != nil {
			return err
		}
		logger.Infof("Loaded registry state with %d skill(s) from %s", len(initial.Skills), stateDir)

		opts.InitialState = initial
		// The patch hook runs on the handler goroutine, so persistence is
		// naturally serialized with state mutation.
		opts.OnPatch = func(snap *actor.Snapshot) {
			st := &actor.State{Skills: snap.Skills, InitialSyncDone: true}
			if err := state.SaveRegistryState(ctx, store, st); err != nil {
				logger.Warnf("failed to persist registry state: %v", err)
			}
		}
	}

	a := actor.New(opts)
	a.Start(ctx)

	info := &registry.ProcessInfo{
		Name:     processName,
		Version:  versions.GetVersionInfo().Version,
		Handlers: actor.HandlerSchemas(),
	}

	logger.Infof("Starting registry daemon on %s", address)
	if err := api.Serve(ctx, address, a, info); err != nil {
		return err
	}

	// Let the actor drain before reporting shutdown.
	<-a.Done()
	logger.Info("Registry daemon stopped")
	return nil
}
