// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fixtures

import (
	"time"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

// Keys - every test party that can sign
var Keys = []*account.PrivateKey{Alice, Bob, Carol, Dave}

// KeyFor - the private key of a test party
func KeyFor(party *account.Account) *account.PrivateKey {
	for _, key := range Keys {
		if key.Account().Equal(party) {
			return key
		}
	}
	return nil
}

// Parcel - a valid asset state
func Parcel(identifier string, owner *account.Account, counterparty *account.Account) *transactionrecord.AssetState {
	return &transactionrecord.AssetState{
		Identifier:   identifier,
		Owner:        owner,
		Counterparty: counterparty,
		Location:     "Lot 7, River Road",
		Attributes: map[string]string{
			"title": "freehold",
		},
		Magnitude: 640,
		Value:     120000,
	}
}

// Finalize - sign by every required signer and attest by the test notary
func Finalize(tx *transactionrecord.Transaction, timestamp time.Time) (*transactionrecord.FinalizedTransaction, error) {
	signed, err := transactionrecord.NewSignedTransaction(tx)
	if nil != err {
		return nil, err
	}
	for _, signer := range signed.Transaction.Signers {
		key := KeyFor(signer)
		if nil == key {
			return nil, fault.ErrNotARequiredSigner
		}
		if _, err := signed.Sign(key); nil != err {
			return nil, err
		}
	}
	return &transactionrecord.FinalizedTransaction{
		Signed:      signed,
		Attestation: transactionrecord.NewAttestation(Notary, signed.Id(), timestamp),
	}, nil
}
