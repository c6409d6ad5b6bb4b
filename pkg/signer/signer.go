// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package signer provides the pluggable identity/signature provider used by
// every mutating network operation: file-backed wallets, mnemonic-derived
// wallets and an interactive browser-bridged wallet.
package signer

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"

	"github.com/permamind/skillhub/pkg/errors"
	"github.com/permamind/skillhub/pkg/registry"
)

// Signer signs transactions and data items on behalf of a wallet identity.
type Signer interface {
	// Address returns the wallet's 43-character base64url address,
	// deterministic for a given identity.
	Address() (string, error)

	// SignTransaction signs a storage-layer transaction in place.
	SignTransaction(ctx context.Context, tx *Transaction) error

	// SignDataItem signs a payload with its tags and returns the signed item.
	SignDataItem(ctx context.Context, payload []byte, tags []registry.Tag) (*SignedItem, error)

	// Disconnect releases signer resources. Idempotent; a no-op for
	// non-interactive variants.
	Disconnect() error

	// Source describes the configuration flavor for logging. It never
	// contains private material.
	Source() string
}

// Transaction is the subset of a storage transaction a signer touches.
type Transaction struct {
	// Payload is the canonical byte string to sign.
	Payload []byte
	// Owner is set by the signer to the public modulus, base64url.
	Owner string
	// Signature is set by the signer, base64url.
	Signature string
	// ID is set by the signer: base64url(SHA-256(signature)), 43 chars.
	ID string
}

// SignedItem is a signed data item ready for submission.
type SignedItem struct {
	// ID is the 43-character item identifier.
	ID string
	// Raw is the serialized signed item.
	Raw []byte
}

// b64 is the storage network's base64url alphabet without padding.
var b64 = base64.RawURLEncoding

// OwnerAddress derives the 43-character wallet address from an RSA public key:
// base64url(SHA-256(modulus bytes)).
func OwnerAddress(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return b64.EncodeToString(sum[:])
}

// keySigner implements signing with an in-memory RSA key. The file and
// mnemonic variants both reduce to it.
type keySigner struct {
	key    *rsa.PrivateKey
	source string
}

// NewInMemorySigner wraps an already-loaded RSA key. Used by tests and by
// callers that manage key material themselves.
func NewInMemorySigner(key *rsa.PrivateKey) Signer {
	return &keySigner{key: key, source: "in-memory"}
}

func (s *keySigner) Address() (string, error) {
	return OwnerAddress(&s.key.PublicKey), nil
}

func (s *keySigner) SignTransaction(ctx context.Context, tx *Transaction) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelledError("transaction signing cancelled", err)
	}
	sig, err := signPSS(s.key, tx.Payload)
	if err != nil {
		return err
	}
	tx.Owner = b64.EncodeToString(s.key.PublicKey.N.Bytes())
	tx.Signature = b64.EncodeToString(sig)
	tx.ID = idFromSignature(sig)
	return nil
}

func (s *keySigner) SignDataItem(ctx context.Context, payload []byte, tags []registry.Tag) (*SignedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError("data item signing cancelled", err)
	}
	message := dataItemMessage(payload, tags)
	sig, err := signPSS(s.key, message)
	if err != nil {
		return nil, err
	}
	return &SignedItem{
		ID:  idFromSignature(sig),
		Raw: serializeItem(s.key, sig, payload, tags),
	}, nil
}

func (*keySigner) Disconnect() error { return nil }

func (s *keySigner) Source() string { return s.source }

func signPSS(key *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
	})
	if err != nil {
		return nil, errors.NewAuthorizationError("failed to sign with wallet key", err)
	}
	return sig, nil
}

// idFromSignature derives the 43-character identifier of a signed object.
func idFromSignature(sig []byte) string {
	sum := sha256.Sum256(sig)
	return b64.EncodeToString(sum[:])
}

// dataItemMessage builds the canonical byte string covered by a data item
// signature: length-prefixed payload followed by length-prefixed tag names
// and values in order.
func dataItemMessage(payload []byte, tags []registry.Tag) []byte {
	var out []byte
	out = appendChunk(out, payload)
	for _, tag := range tags {
		out = appendChunk(out, []byte(tag.Name))
		out = appendChunk(out, []byte(tag.Value))
	}
	return out
}

func appendChunk(dst, chunk []byte) []byte {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(chunk)))
	dst = append(dst, n[:]...)
	return append(dst, chunk...)
}

// serializeItem packs the signed item for submission: owner, signature,
// then the signed message itself.
func serializeItem(key *rsa.PrivateKey, sig, payload []byte, tags []registry.Tag) []byte {
	var out []byte
	out = appendChunk(out, key.PublicKey.N.Bytes())
	out = appendChunk(out, sig)
	out = append(out, dataItemMessage(payload, tags)...)
	return out
}
