// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/permamind/skillhub/pkg/errors"
)

// mnemonicKeyBits is the RSA key size derived from a seed phrase.
const mnemonicKeyBits = 4096

// mnemonicPublicExponent is the fixed RSA public exponent of derived keys.
const mnemonicPublicExponent = 65537

// NewMnemonicSigner derives a deterministic signing key from a 12-word BIP-39
// phrase. The same phrase always yields the same wallet address.
func NewMnemonicSigner(phrase string) (Signer, error) {
	phrase = strings.TrimSpace(phrase)
	words := strings.Fields(phrase)
	if len(words) != 12 {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("seed phrase has %d words, expected 12", len(words)), nil).
			WithSolution("Set SEED_PHRASE to a 12-word BIP-39 mnemonic")
	}

	normalized := strings.Join(words, " ")
	if !bip39.IsMnemonicValid(normalized) {
		return nil, errors.NewConfigurationError("seed phrase is not a valid BIP-39 mnemonic", nil)
	}

	seed := bip39.NewSeed(normalized, "")
	key, err := deriveKey(newSeedReader(seed))
	if err != nil {
		return nil, errors.NewConfigurationError("failed to derive key from seed phrase", err)
	}

	return &keySigner{key: key, source: "mnemonic"}, nil
}

// deriveKey assembles an RSA key from primes drawn off the deterministic
// stream. rsa.GenerateKey is not used: it consumes a nondeterministic amount
// of its random source, so the same stream would not reproduce the same key.
// The explicit prime search makes derivation a pure function of the stream.
func deriveKey(r io.Reader) (*rsa.PrivateKey, error) {
	e := big.NewInt(mnemonicPublicExponent)
	one := big.NewInt(1)

	for {
		p, err := derivePrime(r, mnemonicKeyBits/2)
		if err != nil {
			return nil, err
		}
		q, err := derivePrime(r, mnemonicKeyBits/2)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) == 0 {
			continue
		}

		n := new(big.Int).Mul(p, q)
		if n.BitLen() != mnemonicKeyBits {
			continue
		}

		phi := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
		d := new(big.Int).ModInverse(e, phi)
		if d == nil {
			// e shares a factor with phi; draw fresh primes.
			continue
		}

		key := &rsa.PrivateKey{
			PublicKey: rsa.PublicKey{N: n, E: mnemonicPublicExponent},
			D:         d,
			Primes:    []*big.Int{p, q},
		}
		key.Precompute()
		if err := key.Validate(); err != nil {
			continue
		}
		return key, nil
	}
}

// derivePrime reads candidates off the stream until one tests prime. The top
// two bits are forced so the product of two primes fills the key length, and
// the low bit so candidates are odd.
func derivePrime(r io.Reader, bits int) (*big.Int, error) {
	buf := make([]byte, bits/8)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		buf[0] |= 0xc0
		buf[len(buf)-1] |= 1

		candidate := new(big.Int).SetBytes(buf)
		if candidate.ProbablyPrime(20) {
			return candidate, nil
		}
	}
}

// seedReader is a deterministic byte stream keyed on the BIP-39 seed:
// SHA-256(seed || counter) blocks. It feeds the prime search so key
// derivation is repeatable for a given phrase.
type seedReader struct {
	seed    []byte
	counter uint64
	buf     []byte
}

func newSeedReader(seed []byte) *seedReader {
	return &seedReader{seed: seed}
}

func (r *seedReader) Read(p []byte) (int, error) {
	for len(r.buf) < len(p) {
		var ctr [8]byte
		binary.BigEndian.PutUint64(ctr[:], r.counter)
		r.counter++
		block := sha256.Sum256(append(append([]byte{}, r.seed...), ctr[:]...))
		r.buf = append(r.buf, block[:]...)
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
