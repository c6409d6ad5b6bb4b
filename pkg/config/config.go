// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package config contains the definition of the application config structure
// and the logic required to load it from .skillsrc files and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/permamind/skillhub/pkg/env"
	"github.com/permamind/skillhub/pkg/errors"
)

// FileName is the config file name looked up in the project root and in the
// user's home directory. The project file takes precedence.
const FileName = ".skillsrc"

// Environment variable overrides. Env wins over file values for the same field.
const (
	// EnvSeedPhrase is a 12-word mnemonic used to derive a signing key.
	EnvSeedPhrase = "SEED_PHRASE"
	// EnvRegistryProcessID overrides the registry process address.
	EnvRegistryProcessID = "AO_REGISTRY_PROCESS_ID"
	// EnvGateway overrides the storage gateway URL.
	EnvGateway = "ARWEAVE_GATEWAY"
)

// processAddressRegex matches a 43-character base64url process or wallet address.
var processAddressRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// Config represents the configuration of the application.
type Config struct {
	// Wallet is the path to the wallet keyfile. Tilde-expanded on load.
	Wallet string `json:"wallet,omitempty"`
	// Registry is the 43-character registry process address.
	Registry string `json:"registry,omitempty"`
	// Gateway is the storage gateway URL. HTTPS is required.
	Gateway string `json:"gateway,omitempty"`

	// SeedPhrase comes from the SEED_PHRASE environment variable only and is
	// never read from or written to a config file.
	SeedPhrase string `json:"-"`
}

// Load reads configuration for the given project directory using the process
// environment.
func Load(projectDir string) (*Config, error) {
	return LoadWithEnv(projectDir, &env.OSReader{})
}

// LoadWithEnv reads configuration with an injected environment reader.
// Lookup order: project .skillsrc, then ~/.skillsrc; the first file found for
// each is merged field-wise with project values winning, then env overrides
// are applied on top.
func LoadWithEnv(projectDir string, envReader env.Reader) (*Config, error) {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err == nil {
		if homeCfg, err := readFile(filepath.Join(home, FileName)); err != nil {
			return nil, err
		} else if homeCfg != nil {
			cfg.merge(homeCfg)
		}
	}

	if projectDir != "" {
		if projCfg, err := readFile(filepath.Join(projectDir, FileName)); err != nil {
			return nil, err
		} else if projCfg != nil {
			cfg.merge(projCfg)
		}
	}

	if v := envReader.Getenv(EnvRegistryProcessID); v != "" {
		cfg.Registry = v
	}
	if v := envReader.Getenv(EnvGateway); v != "" {
		cfg.Gateway = v
	}
	cfg.SeedPhrase = envReader.Getenv(EnvSeedPhrase)

	if cfg.Wallet != "" {
		cfg.Wallet = expandTilde(cfg.Wallet, home)
	}

	return cfg, nil
}

// readFile parses a single .skillsrc file. A missing file is not an error; a
// malformed one is.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- fixed file name under home or project root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewConfigurationError(fmt.Sprintf("failed to read %s", path), err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("malformed config file %s", path), err)
	}
	return &cfg, nil
}

func (c *Config) merge(other *Config) {
	if other.Wallet != "" {
		c.Wallet = other.Wallet
	}
	if other.Registry != "" {
		c.Registry = other.Registry
	}
	if other.Gateway != "" {
		c.Gateway = other.Gateway
	}
}

func expandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") && home != "" {
		return filepath.Join(home, path[2:])
	}
	return path
}

// WalletPath returns the configured wallet keyfile path.
func (c *Config) WalletPath() (string, error) {
	if c.Wallet == "" {
		return "", errors.NewConfigurationError("no wallet configured", nil).
			WithSolution("Set \"wallet\" in .skillsrc, pass --wallet, or export SEED_PHRASE")
	}
	return c.Wallet, nil
}

// RegistryProcessID returns the configured registry process address after
// validating its shape.
func (c *Config) RegistryProcessID() (string, error) {
	if c.Registry == "" {
		return "", errors.NewConfigurationError("no registry process configured", nil).
			WithSolution("Set \"registry\" in .skillsrc or export AO_REGISTRY_PROCESS_ID")
	}
	if !processAddressRegex.MatchString(c.Registry) {
		return "", errors.NewConfigurationError(
			fmt.Sprintf("registry process address %q is not a 43-character address", c.Registry), nil)
	}
	return c.Registry, nil
}

// GatewayURL returns the configured gateway URL, requiring HTTPS.
func (c *Config) GatewayURL() (string, error) {
	if c.Gateway == "" {
		return "", errors.NewConfigurationError("no gateway configured", nil).
			WithSolution("Set \"gateway\" in .skillsrc or export ARWEAVE_GATEWAY")
	}
	u, err := url.Parse(c.Gateway)
	if err != nil {
		return "", errors.NewConfigurationError(fmt.Sprintf("gateway URL %q is malformed", c.Gateway), err)
	}
	if u.Scheme != "https" {
		return "", errors.NewConfigurationError(
			fmt.Sprintf("gateway URL %q is not HTTPS", c.Gateway), nil)
	}
	return strings.TrimSuffix(c.Gateway, "/"), nil
}

// IsProcessAddress reports whether s looks like a 43-character base64url
// address.
func IsProcessAddress(s string) bool {
	return processAddressRegex.MatchString(s)
}
