// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package builder - assemble and locally validate transactions
//
// The notary is the first of the candidates supplied; the choice is
// naive but deterministic so every caller with the same candidate list
// selects the same notary.
package builder

import (
	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/transactionrecord"
	"github.com/bitmark-inc/assetflow/validator"
)

// Builder - accumulates the parts of one transaction
type Builder struct {
	notary   *account.Account
	inputs   []transactionrecord.StateAndRef
	outputs  []transactionrecord.ContractState
	commands []transactionrecord.CommandTag
	signers  []*account.Account
}

// New - empty builder using the first available notary
func New(candidateNotaries []*account.Account) (*Builder, error) {
	for _, notary := range candidateNotaries {
		if nil != notary {
			return &Builder{notary: notary}, nil
		}
	}
	return nil, fault.ErrNoNotaryAvailable
}

// Notary - the selected notary
func (b *Builder) Notary() *account.Account {
	return b.notary
}

// AddInput - consume a state
func (b *Builder) AddInput(input transactionrecord.StateAndRef) *Builder {
	b.inputs = append(b.inputs, input)
	return b
}

// AddOutput - produce a state
func (b *Builder) AddOutput(output transactionrecord.ContractState) *Builder {
	b.outputs = append(b.outputs, output)
	return b
}

// SetCommand - the single command of the transaction
func (b *Builder) SetCommand(command transactionrecord.CommandTag) *Builder {
	b.commands = []transactionrecord.CommandTag{command}
	return b
}

// AddSigners - extend the required signer set
func (b *Builder) AddSigners(signers ...*account.Account) *Builder {
	b.signers = append(b.signers, signers...)
	return b
}

// Build - canonical transaction that passes validation
func (b *Builder) Build() (*transactionrecord.Transaction, error) {
	tx := &transactionrecord.Transaction{
		Notary:   b.notary,
		Inputs:   b.inputs,
		Outputs:  b.outputs,
		Commands: b.commands,
		Signers:  b.signers,
	}
	canonical, err := tx.Canonical()
	if nil != err {
		return nil, err
	}
	if err := validator.Validate(canonical); nil != err {
		return nil, err
	}
	return canonical, nil
}

// Sign - build and add the signature of one required signer
func (b *Builder) Sign(privateKey *account.PrivateKey) (*transactionrecord.SignedTransaction, error) {
	tx, err := b.Build()
	if nil != err {
		return nil, err
	}
	if !tx.IsRequiredSigner(privateKey.Account()) {
		return nil, fault.ErrNotARequiredSigner
	}
	signed, err := transactionrecord.NewSignedTransaction(tx)
	if nil != err {
		return nil, err
	}
	if _, err := signed.Sign(privateKey); nil != err {
		return nil, err
	}
	return signed, nil
}

// Originate - create a new asset; owner and counterparty sign
func Originate(candidateNotaries []*account.Account, state *transactionrecord.AssetState) (*Builder, error) {
	b, err := New(candidateNotaries)
	if nil != err {
		return nil, err
	}
	b.AddOutput(state).
		SetCommand(transactionrecord.Originate).
		AddSigners(state.Owner, state.Counterparty)
	return b, nil
}

// Transfer - move a live asset to a new owner
//
// the current owner signs as well as the new owner and counterparty
func Transfer(candidateNotaries []*account.Account, input transactionrecord.StateAndRef, newOwner *account.Account) (*Builder, error) {
	current, err := assetInput(input)
	if nil != err {
		return nil, err
	}
	if nil == newOwner {
		return nil, fault.ErrMissingNewOwner
	}
	b, err := New(candidateNotaries)
	if nil != err {
		return nil, err
	}
	successor := current.WithOwner(newOwner)
	b.AddInput(input).
		AddOutput(successor).
		SetCommand(transactionrecord.Transfer).
		AddSigners(successor.Owner, successor.Counterparty, current.Owner)
	return b, nil
}

// Retire - consume a live asset without successor
func Retire(candidateNotaries []*account.Account, input transactionrecord.StateAndRef) (*Builder, error) {
	current, err := assetInput(input)
	if nil != err {
		return nil, err
	}
	b, err := New(candidateNotaries)
	if nil != err {
		return nil, err
	}
	b.AddInput(input).
		SetCommand(transactionrecord.Retire).
		AddSigners(current.Owner, current.Counterparty)
	return b, nil
}

func assetInput(input transactionrecord.StateAndRef) (*transactionrecord.AssetState, error) {
	if nil == input.State {
		return nil, fault.ErrMissingInput
	}
	state, ok := input.State.(*transactionrecord.AssetState)
	if !ok || nil == state {
		return nil, fault.ErrInputNotAssetState
	}
	return state, nil
}
