// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"

	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/assetflow/fault"
)

// PrivateKey - the signing key of a party
type PrivateKey struct {
	PrivateKey ed25519.PrivateKey
}

// NewPrivateKey - create a key from a 32 byte seed
func NewPrivateKey(seed []byte) (*PrivateKey, error) {
	if ed25519.SeedSize != len(seed) {
		return nil, fault.ErrInvalidKeyLength
	}
	return &PrivateKey{
		PrivateKey: ed25519.NewKeyFromSeed(seed),
	}, nil
}

// GeneratePrivateKey - create a random key
//
// a nil reader uses crypto/rand
func GeneratePrivateKey(reader io.Reader) (*PrivateKey, error) {
	if nil == reader {
		reader = rand.Reader
	}
	_, privateKey, err := ed25519.GenerateKey(reader)
	if nil != err {
		return nil, err
	}
	return &PrivateKey{
		PrivateKey: privateKey,
	}, nil
}

// PrivateKeyFromHexSeed - decode a hex seed as stored in a key file
func PrivateKeyFromHexSeed(s string) (*PrivateKey, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(s))
	if nil != err {
		return nil, fault.ErrCannotDecodePrivateKey
	}
	return NewPrivateKey(seed)
}

// Account - the public identity corresponding to this key
func (privateKey *PrivateKey) Account() *Account {
	publicKey := privateKey.PrivateKey.Public().(ed25519.PublicKey)
	return &Account{
		PublicKey: publicKey,
	}
}

// Sign - sign a message
func (privateKey *PrivateKey) Sign(message []byte) Signature {
	return ed25519.Sign(privateKey.PrivateKey, message)
}
