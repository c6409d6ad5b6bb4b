// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/registry"
)

// ParsedItem is a decoded and signature-verified data item.
type ParsedItem struct {
	// ID is the item's 43-character identifier.
	ID string
	// From is the signer's 43-character wallet address.
	From string
	// Payload is the signed payload.
	Payload []byte
	// Tags are the signed tags, in signed order.
	Tags []registry.Tag
}

// ParseItem decodes a serialized data item and verifies its RSA-PSS
// signature. The wire layout mirrors what SignDataItem produces: owner
// modulus, signature, then the length-prefixed payload and tag chunks.
func ParseItem(raw []byte) (*ParsedItem, error) {
	owner, rest, err := readChunk(raw)
	if err != nil {
		return nil, err
	}
	sig, rest, err := readChunk(rest)
	if err != nil {
		return nil, err
	}

	// rest is the exact message covered by the signature.
	message := rest

	payload, rest, err := readChunk(rest)
	if err != nil {
		return nil, err
	}
	var tags []registry.Tag
	for len(rest) > 0 {
		var name, value []byte
		if name, rest, err = readChunk(rest); err != nil {
			return nil, err
		}
		if value, rest, err = readChunk(rest); err != nil {
			return nil, err
		}
		tags = append(tags, registry.Tag{Name: string(name), Value: string(value)})
	}

	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(owner), E: 65537}
	digest := sha256.Sum256(message)
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
	}); err != nil {
		return nil, errors.NewAuthorizationError("data item signature verification failed", err)
	}

	return &ParsedItem{
		ID:      idFromSignature(sig),
		From:    OwnerAddress(pub),
		Payload: payload,
		Tags:    tags,
	}, nil
}

func readChunk(raw []byte) (chunk, rest []byte, err error) {
	if len(raw) < 8 {
		return nil, nil, errors.NewValidationError("truncated data item", nil)
	}
	n := binary.BigEndian.Uint64(raw[:8])
	raw = raw[8:]
	if uint64(len(raw)) < n {
		return nil, nil, errors.NewValidationError("truncated data item chunk", nil)
	}
	return raw[:n], raw[n:], nil
}
