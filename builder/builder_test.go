// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/builder"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/fixtures"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

var notaries = []*account.Account{fixtures.Notary.Account(), fixtures.Dave.Account()}

func parcel() *transactionrecord.AssetState {
	return &transactionrecord.AssetState{
		Identifier:   "parcel-7",
		Owner:        fixtures.Alice.Account(),
		Counterparty: fixtures.Bob.Account(),
		Location:     "Lot 7, River Road",
		Magnitude:    640,
		Value:        120000,
	}
}

func live() transactionrecord.StateAndRef {
	return transactionrecord.StateAndRef{
		State: parcel(),
		Ref:   transactionrecord.StateRef{TxId: merkle.NewDigest([]byte("origin"))},
	}
}

func TestNewSelectsFirstNotary(t *testing.T) {
	b, err := builder.New(notaries)
	assert.Nil(t, err, "new")
	assert.True(t, fixtures.Notary.Account().Equal(b.Notary()), "first candidate not selected")

	b, err = builder.New([]*account.Account{nil, fixtures.Dave.Account()})
	assert.Nil(t, err, "new with nil candidate")
	assert.True(t, fixtures.Dave.Account().Equal(b.Notary()), "nil candidate selected")

	_, err = builder.New(nil)
	assert.Equal(t, fault.ErrNoNotaryAvailable, err, "empty candidate list")
}

func TestBuildRunsValidator(t *testing.T) {
	b, err := builder.New(notaries)
	assert.Nil(t, err, "new")

	state := parcel()
	state.Value = -1
	b.AddOutput(state).
		SetCommand(transactionrecord.Originate).
		AddSigners(state.Owner, state.Counterparty)

	_, err = b.Build()
	assert.Equal(t, fault.ErrValueNotPositive, err, "invalid transaction built")
}

func TestSetCommandReplaces(t *testing.T) {
	b, err := builder.Originate(notaries, parcel())
	assert.Nil(t, err, "originate")
	b.SetCommand(transactionrecord.Retire).SetCommand(transactionrecord.Originate)

	tx, err := b.Build()
	assert.Nil(t, err, "build")
	assert.Equal(t, []transactionrecord.CommandTag{transactionrecord.Originate}, tx.Commands, "commands")
}

func TestOriginate(t *testing.T) {
	b, err := builder.Originate(notaries, parcel())
	assert.Nil(t, err, "originate")

	tx, err := b.Build()
	assert.Nil(t, err, "build")
	assert.Equal(t, 0, len(tx.Inputs), "inputs")
	assert.Equal(t, 1, len(tx.Outputs), "outputs")
	assert.Equal(t, 2, len(tx.Signers), "signers")

	signed, err := b.Sign(fixtures.Alice)
	assert.Nil(t, err, "sign")
	assert.True(t, signed.HasSigned(fixtures.Alice.Account()), "owner signature")
	assert.Nil(t, signed.Verify(), "verify")

	_, err = b.Sign(fixtures.Carol)
	assert.Equal(t, fault.ErrNotARequiredSigner, err, "outsider signed")
}

func TestTransfer(t *testing.T) {
	b, err := builder.Transfer(notaries, live(), fixtures.Carol.Account())
	assert.Nil(t, err, "transfer")

	tx, err := b.Build()
	assert.Nil(t, err, "build")
	output := tx.Outputs[0].(*transactionrecord.AssetState)
	assert.True(t, fixtures.Carol.Account().Equal(output.Owner), "new owner")
	assert.True(t, fixtures.Bob.Account().Equal(output.Counterparty), "counterparty kept")
	assert.Equal(t, 3, len(tx.Signers), "signers")
	assert.True(t, tx.IsRequiredSigner(fixtures.Alice.Account()), "current owner must sign")

	_, err = builder.Transfer(notaries, live(), fixtures.Alice.Account())
	assert.Nil(t, err, "intent accepted")
	b, _ = builder.Transfer(notaries, live(), fixtures.Alice.Account())
	_, err = b.Build()
	assert.Equal(t, fault.ErrOwnerMustChange, err, "transfer to self built")

	_, err = builder.Transfer(notaries, live(), nil)
	assert.Equal(t, fault.ErrMissingNewOwner, err, "no new owner")

	_, err = builder.Transfer(notaries, transactionrecord.StateAndRef{}, fixtures.Carol.Account())
	assert.Equal(t, fault.ErrMissingInput, err, "no input")
}

func TestRetire(t *testing.T) {
	b, err := builder.Retire(notaries, live())
	assert.Nil(t, err, "retire")

	tx, err := b.Build()
	assert.Nil(t, err, "build")
	assert.Equal(t, 0, len(tx.Outputs), "outputs")

	signed, err := b.Sign(fixtures.Bob)
	assert.Nil(t, err, "counterparty signs")
	assert.Equal(t, 1, len(signed.MissingSigners()), "owner still missing")

	_, err = builder.Retire(nil, live())
	assert.Equal(t, fault.ErrNoNotaryAvailable, err, "no notary")
}

func TestBuildIsCanonical(t *testing.T) {
	b1, _ := builder.New(notaries)
	b1.AddOutput(parcel()).SetCommand(transactionrecord.Originate).
		AddSigners(fixtures.Alice.Account(), fixtures.Bob.Account())
	b2, _ := builder.New(notaries)
	b2.AddOutput(parcel()).SetCommand(transactionrecord.Originate).
		AddSigners(fixtures.Bob.Account(), fixtures.Alice.Account(), fixtures.Bob.Account())

	tx1, err := b1.Build()
	assert.Nil(t, err, "build 1")
	tx2, err := b2.Build()
	assert.Nil(t, err, "build 2")
	id1, _ := tx1.Id()
	id2, _ := tx2.Id()
	assert.Equal(t, id1, id2, "signer order changed id")
}
