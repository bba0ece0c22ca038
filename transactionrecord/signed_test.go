// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/fixtures"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

func TestSignedTransactionSignatures(t *testing.T) {
	signed, err := transactionrecord.NewSignedTransaction(makeTransfer())
	assert.Nil(t, err, "new signed transaction")
	assert.Equal(t, 3, len(signed.MissingSigners()), "missing before signing")

	_, err = signed.Sign(fixtures.Alice)
	assert.Nil(t, err, "alice signs")
	assert.True(t, signed.HasSigned(fixtures.Alice.Account()), "alice signature not recorded")
	assert.Nil(t, signed.Verify(), "partial signatures")
	assert.Equal(t, fault.ErrMissingSignatures, signed.VerifyComplete(), "incomplete accepted")

	_, err = signed.Sign(fixtures.Alice)
	assert.Equal(t, fault.ErrDuplicateSignature, err, "duplicate signature accepted")

	_, err = signed.Sign(fixtures.Dave)
	assert.Equal(t, fault.ErrNotARequiredSigner, err, "signature from outsider accepted")

	forged := transactionrecord.TransactionSignature{
		Signer:    fixtures.Bob.Account(),
		Signature: fixtures.Carol.Sign([]byte("something else")),
	}
	assert.Equal(t, fault.ErrInvalidSignature, signed.AddSignature(forged), "forged signature accepted")

	_, err = signed.Sign(fixtures.Bob)
	assert.Nil(t, err, "bob signs")
	_, err = signed.Sign(fixtures.Carol)
	assert.Nil(t, err, "carol signs")
	assert.Nil(t, signed.VerifyComplete(), "complete signatures")
	assert.Equal(t, 0, len(signed.MissingSigners()), "missing after signing")
}

func TestSignedTransactionVerifyDetectsTampering(t *testing.T) {
	signed, err := transactionrecord.NewSignedTransaction(makeTransfer())
	assert.Nil(t, err, "new signed transaction")
	s, err := signed.Sign(fixtures.Alice)
	assert.Nil(t, err, "sign")

	signed.Signatures = append(signed.Signatures, s)
	assert.Equal(t, fault.ErrDuplicateSignature, signed.Verify(), "duplicate passes verify")

	signed.Signatures = signed.Signatures[:1]
	signed.Signatures[0].Signature = append([]byte{}, s.Signature...)
	signed.Signatures[0].Signature[0] ^= 0xff
	assert.Equal(t, fault.ErrInvalidSignature, signed.Verify(), "damaged signature passes verify")
}

func signAll(t *testing.T) *transactionrecord.SignedTransaction {
	signed, err := transactionrecord.NewSignedTransaction(makeTransfer())
	assert.Nil(t, err, "new signed transaction")
	for _, key := range []*account.PrivateKey{fixtures.Alice, fixtures.Bob, fixtures.Carol} {
		_, err = signed.Sign(key)
		assert.Nil(t, err, "sign")
	}
	return signed
}

func TestSignedTransactionPackUnpack(t *testing.T) {
	signed := signAll(t)

	packed, err := signed.Pack()
	assert.Nil(t, err, "pack error")

	unpacked, err := transactionrecord.UnpackSignedTransaction(packed)
	assert.Nil(t, err, "unpack error")
	assert.Equal(t, signed.Id(), unpacked.Id(), "id changed")
	assert.Equal(t, signed.Signatures, unpacked.Signatures, "signatures changed")
	assert.Nil(t, unpacked.VerifyComplete(), "unpacked signatures")
}

func TestFinalizedTransaction(t *testing.T) {
	signed := signAll(t)
	timestamp := time.Unix(0, 1600000000123456789).UTC()

	finalized := &transactionrecord.FinalizedTransaction{
		Signed:      signed,
		Attestation: transactionrecord.NewAttestation(fixtures.Notary, signed.Id(), timestamp),
	}
	assert.Nil(t, finalized.Verify(), "finalized verify")

	packed, err := finalized.Pack()
	assert.Nil(t, err, "pack error")
	unpacked, err := transactionrecord.UnpackFinalizedTransaction(packed)
	assert.Nil(t, err, "unpack error")
	assert.Equal(t, finalized.Id(), unpacked.Id(), "id changed")
	assert.Equal(t, finalized.Attestation, unpacked.Attestation, "attestation changed")
	assert.Nil(t, unpacked.Verify(), "unpacked verify")

	other := &transactionrecord.FinalizedTransaction{
		Signed:      signed,
		Attestation: transactionrecord.NewAttestation(fixtures.Dave, signed.Id(), timestamp),
	}
	assert.Equal(t, fault.ErrWrongNotary, other.Verify(), "attestation by wrong notary accepted")

	late := &transactionrecord.FinalizedTransaction{
		Signed:      signed,
		Attestation: transactionrecord.NewAttestation(fixtures.Notary, signed.Id(), timestamp),
	}
	late.Attestation.Timestamp = timestamp.Add(time.Second)
	assert.Equal(t, fault.ErrInvalidAttestation, late.Verify(), "altered timestamp accepted")
}
