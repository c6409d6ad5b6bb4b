// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/permamind/skillhub/pkg/arweave"
	"github.com/permamind/skillhub/pkg/config"
	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/lifecycle"
	"github.com/permamind/skillhub/pkg/registry/client"
	"github.com/permamind/skillhub/pkg/signer"
)

const (
	// defaultGateway is used when neither config nor flags name one.
	defaultGateway = "https://arweave.net"

	// defaultComputeURL hosts registry processes addressed by their
	// 43-character identifier. A full URL in the "registry" config key
	// bypasses it.
	defaultComputeURL = "https://cu.permamind.io"

	// defaultWalletURL is the browser wallet page used by interactive
	// signing.
	defaultWalletURL = "https://wallet.permamind.io/approve"
)

// skillsDirName is the per-root directory skills are installed into.
const skillsDirName = ".claude/skills"

// loadConfig reads .skillsrc configuration for projectDir and applies the
// wallet/gateway flag overrides on top.
func loadConfig(projectDir, walletFlag, gatewayFlag string) (*config.Config, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}
	if walletFlag != "" {
		cfg.Wallet = walletFlag
	}
	if gatewayFlag != "" {
		cfg.Gateway = gatewayFlag
	}
	if cfg.Gateway == "" {
		cfg.Gateway = defaultGateway
	}
	return cfg, nil
}

// buildSigner picks the signing identity: a SEED_PHRASE mnemonic wins, then a
// configured wallet keyfile, then (when allowed) the interactive browser
// wallet.
func buildSigner(cfg *config.Config, interactive bool) (signer.Signer, error) {
	if cfg.SeedPhrase != "" {
		return signer.NewMnemonicSigner(cfg.SeedPhrase)
	}
	if cfg.Wallet != "" {
		return signer.NewFileSigner(cfg.Wallet)
	}
	if interactive {
		return signer.NewInteractiveSigner(signer.InteractiveOptions{WalletURL: defaultWalletURL})
	}
	return nil, errors.NewConfigurationError("no signing identity configured", nil).
		WithSolution("Set \"wallet\" in .skillsrc, pass --wallet, export SEED_PHRASE, or pass --interactive")
}

// registryEndpoint resolves the registry base URL. The config value may be a
// full URL (a directly reachable registry daemon) or a bare 43-character
// process address served through the default compute endpoint.
func registryEndpoint(cfg *config.Config) (string, error) {
	if u, err := url.Parse(cfg.Registry); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return cfg.Registry, nil
	}
	id, err := cfg.RegistryProcessID()
	if err != nil {
		return "", err
	}
	return defaultComputeURL + "/" + id, nil
}

// buildService wires the lifecycle service from configuration: storage client
// against the gateway, registry client against the resolved endpoint.
func buildService(cfg *config.Config) (*lifecycle.Service, *client.Client, error) {
	gateway, err := cfg.GatewayURL()
	if err != nil {
		return nil, nil, err
	}
	endpoint, err := registryEndpoint(cfg)
	if err != nil {
		return nil, nil, err
	}

	storage := arweave.NewClient(arweave.Options{Gateway: gateway})
	reg := client.New(client.Options{Endpoint: endpoint})
	return lifecycle.NewService(storage, reg), reg, nil
}

// installRoot resolves the installation root directory: the project-local
// skills directory with --local, the per-user one otherwise.
func installRoot(local bool) (string, error) {
	if local {
		return skillsDirName, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewFileSystemError("cannot determine home directory", err)
	}
	return filepath.Join(home, skillsDirName), nil
}

// eventPrinter renders lifecycle progress to stderr. Percent updates are
// shown only in verbose mode to keep default output readable.
func eventPrinter(verbose bool) lifecycle.Reporter {
	return lifecycle.ReporterFunc(func(e lifecycle.Event) {
		switch ev := e.(type) {
		case lifecycle.UploadStart:
			fmt.Fprintf(os.Stderr, "Uploading %s (%d bytes)...\n", ev.Name, ev.Bytes)
		case lifecycle.UploadProgress:
			if verbose {
				fmt.Fprintf(os.Stderr, "  upload %d%%\n", ev.Percent)
			}
		case lifecycle.UploadComplete:
			fmt.Fprintf(os.Stderr, "Upload complete: %s\n", ev.TxID)
		case lifecycle.WaitConfirmation:
			fmt.Fprintf(os.Stderr, "Waiting for confirmation of %s...\n", ev.TxID)
		case lifecycle.QueryRegistry:
			fmt.Fprintf(os.Stderr, "Looking up %s in the registry...\n", ev.Name)
		case lifecycle.ResolveDependencies:
			fmt.Fprintf(os.Stderr, "Resolving dependencies of %s...\n", ev.Name)
		case lifecycle.DownloadBundle:
			if verbose {
				fmt.Fprintf(os.Stderr, "  download %s %d%%\n", ev.Name, ev.Percent)
			} else if ev.Percent == 0 {
				fmt.Fprintf(os.Stderr, "Downloading %s...\n", ev.Name)
			}
		case lifecycle.ExtractBundle:
			fmt.Fprintf(os.Stderr, "Extracted %s to %s\n", ev.Name, ev.Path)
		case lifecycle.UpdateLockFile:
			if verbose {
				fmt.Fprintf(os.Stderr, "  updated lock file %s\n", ev.Path)
			}
		case lifecycle.Complete:
			fmt.Fprintf(os.Stderr, "Done: %d skill(s) installed.\n", ev.Installed)
		}
	})
}
