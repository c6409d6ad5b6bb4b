// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/permamind/skillhub/pkg/errors"
)

// jwk is the wallet keyfile format: an RSA private key as a JSON Web Key with
// base64url-encoded components.
type jwk struct {
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
	D   string `json:"d"`
	P   string `json:"p"`
	Q   string `json:"q"`
	Dp  string `json:"dp"`
	Dq  string `json:"dq"`
	Qi  string `json:"qi"`
}

// NewFileSigner loads a wallet keyfile from disk.
func NewFileSigner(path string) (Signer, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- wallet path is user configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("wallet keyfile %s does not exist", path), nil).
				WithSolution("Check the wallet path in .skillsrc or the --wallet flag")
		}
		return nil, errors.NewFileSystemError(fmt.Sprintf("failed to read wallet keyfile %s", path), err)
	}

	key, err := parseJWK(data)
	if err != nil {
		return nil, err
	}

	return &keySigner{key: key, source: "keyfile"}, nil
}

func parseJWK(data []byte) (*rsa.PrivateKey, error) {
	var k jwk
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, errors.NewConfigurationError("wallet keyfile is not valid JSON", err)
	}
	if k.Kty != "RSA" {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("wallet keyfile has unsupported key type %q", k.Kty), nil)
	}

	n, err := decodeBig(k.N, "n")
	if err != nil {
		return nil, err
	}
	e, err := decodeBig(k.E, "e")
	if err != nil {
		return nil, err
	}
	d, err := decodeBig(k.D, "d")
	if err != nil {
		return nil, err
	}
	p, err := decodeBig(k.P, "p")
	if err != nil {
		return nil, err
	}
	q, err := decodeBig(k.Q, "q")
	if err != nil {
		return nil, err
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	key.Precompute()
	if err := key.Validate(); err != nil {
		return nil, errors.NewConfigurationError("wallet keyfile contains an invalid RSA key", err)
	}
	return key, nil
}

func decodeBig(s, field string) (*big.Int, error) {
	if s == "" {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("wallet keyfile is missing the %q component", field), nil)
	}
	raw, err := b64.DecodeString(s)
	if err != nil {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("wallet keyfile component %q is not base64url", field), err)
	}
	return new(big.Int).SetBytes(raw), nil
}
