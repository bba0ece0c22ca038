// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package validator - deterministic transition rules
//
// Validate accepts or rejects a transaction purely from its declared
// inputs, outputs, command and signers.  It never consults storage or
// the network: whether an input is still live is decided by the notary.
//
// Each command selects an ordered list of rules; the first rule that
// fails determines the rejection.
package validator

import (
	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

// RuleFunc - a single clause of a rule table
type RuleFunc func(tx *transactionrecord.Transaction) error

// OriginateRules - create a new asset
var OriginateRules = []RuleFunc{
	ValidateNoInputs,
	ValidateSingleOriginateOutput,
	ValidateOutputIsAssetState,
	ValidateOutputIdentifier,
	ValidateOutputMagnitude,
	ValidateOutputLocation,
	ValidateOutputValue,
	ValidateOutputOwnerSigned,
	ValidateOutputCounterpartySigned,
}

// TransferRules - move an asset to a new owner
var TransferRules = []RuleFunc{
	ValidateSingleTransferInput,
	ValidateSingleTransferOutput,
	ValidateInputIsAssetState,
	ValidateOutputIsAssetState,
	ValidateOwnerChanged,
	ValidateCounterpartyUnchanged,
	ValidateOutputIdentifier,
	ValidateOutputMagnitude,
	ValidateOutputLocation,
	ValidateOutputValue,
	ValidateOutputOwnerSigned,
	ValidateOutputCounterpartySigned,
}

// RetireRules - consume an asset without a successor
var RetireRules = []RuleFunc{
	ValidateSingleRetireInput,
	ValidateNoOutputs,
	ValidateInputIsAssetState,
	ValidateInputOwnerSigned,
	ValidateInputCounterpartySigned,
}

// Validate - accept (nil) or reject a transaction with the first
// violated clause
func Validate(tx *transactionrecord.Transaction) error {
	if nil == tx || 1 != len(tx.Commands) {
		return fault.ErrAmbiguousCommand
	}

	var rules []RuleFunc
	switch tx.Commands[0] {
	case transactionrecord.Originate:
		rules = OriginateRules
	case transactionrecord.Transfer:
		rules = TransferRules
	case transactionrecord.Retire:
		rules = RetireRules
	default:
		return fault.ErrUnrecognisedCommand
	}

	for _, rule := range rules {
		if err := rule(tx); nil != err {
			return err
		}
	}
	return nil
}

// shape

// ValidateNoInputs - originate consumes nothing
func ValidateNoInputs(tx *transactionrecord.Transaction) error {
	if 0 != len(tx.Inputs) {
		return fault.ErrOriginateHasInputs
	}
	return nil
}

// ValidateSingleOriginateOutput - originate produces one state
func ValidateSingleOriginateOutput(tx *transactionrecord.Transaction) error {
	if 1 != len(tx.Outputs) {
		return fault.ErrOriginateOutputCount
	}
	return nil
}

// ValidateSingleTransferInput - transfer consumes one state
func ValidateSingleTransferInput(tx *transactionrecord.Transaction) error {
	if 1 != len(tx.Inputs) {
		return fault.ErrTransferInputCount
	}
	return nil
}

// ValidateSingleTransferOutput - transfer produces one state
func ValidateSingleTransferOutput(tx *transactionrecord.Transaction) error {
	if 1 != len(tx.Outputs) {
		return fault.ErrTransferOutputCount
	}
	return nil
}

// ValidateSingleRetireInput - retire consumes one state
func ValidateSingleRetireInput(tx *transactionrecord.Transaction) error {
	if 1 != len(tx.Inputs) {
		return fault.ErrRetireInputCount
	}
	return nil
}

// ValidateNoOutputs - retire is terminal
func ValidateNoOutputs(tx *transactionrecord.Transaction) error {
	if 0 != len(tx.Outputs) {
		return fault.ErrRetireHasOutputs
	}
	return nil
}

// ValidateInputIsAssetState - the single input is an asset state
func ValidateInputIsAssetState(tx *transactionrecord.Transaction) error {
	if state, ok := tx.Inputs[0].State.(*transactionrecord.AssetState); !ok || nil == state {
		return fault.ErrInputNotAssetState
	}
	return nil
}

// ValidateOutputIsAssetState - the single output is an asset state
func ValidateOutputIsAssetState(tx *transactionrecord.Transaction) error {
	if state, ok := tx.Outputs[0].(*transactionrecord.AssetState); !ok || nil == state {
		return fault.ErrOutputNotAssetState
	}
	return nil
}

// content

// ValidateOwnerChanged - a transfer must hand the asset to someone else
func ValidateOwnerChanged(tx *transactionrecord.Transaction) error {
	if input(tx).Owner.Equal(output(tx).Owner) {
		return fault.ErrOwnerMustChange
	}
	return nil
}

// ValidateCounterpartyUnchanged - a transfer keeps the counterparty
func ValidateCounterpartyUnchanged(tx *transactionrecord.Transaction) error {
	if !input(tx).Counterparty.Equal(output(tx).Counterparty) {
		return fault.ErrCounterpartyMustNotChange
	}
	return nil
}

// ValidateOutputIdentifier - identifier non-empty
func ValidateOutputIdentifier(tx *transactionrecord.Transaction) error {
	if "" == output(tx).Identifier {
		return fault.ErrIdentifierEmpty
	}
	return nil
}

// ValidateOutputMagnitude - zero and negative are both rejected
func ValidateOutputMagnitude(tx *transactionrecord.Transaction) error {
	if output(tx).Magnitude <= 0 {
		return fault.ErrMagnitudeNotPositive
	}
	return nil
}

// ValidateOutputLocation - location non-empty
func ValidateOutputLocation(tx *transactionrecord.Transaction) error {
	if "" == output(tx).Location {
		return fault.ErrLocationEmpty
	}
	return nil
}

// ValidateOutputValue - zero and negative are both rejected
func ValidateOutputValue(tx *transactionrecord.Transaction) error {
	if output(tx).Value <= 0 {
		return fault.ErrValueNotPositive
	}
	return nil
}

// signers

// ValidateOutputOwnerSigned - the new owner must sign
func ValidateOutputOwnerSigned(tx *transactionrecord.Transaction) error {
	return requireSigner(tx, output(tx).Owner, fault.ErrOwnerMustBeSigner)
}

// ValidateOutputCounterpartySigned - the output counterparty must sign
func ValidateOutputCounterpartySigned(tx *transactionrecord.Transaction) error {
	return requireSigner(tx, output(tx).Counterparty, fault.ErrCounterpartyMustBeSigner)
}

// ValidateInputOwnerSigned - the retiring owner must sign
func ValidateInputOwnerSigned(tx *transactionrecord.Transaction) error {
	return requireSigner(tx, input(tx).Owner, fault.ErrOwnerMustBeSigner)
}

// ValidateInputCounterpartySigned - the retiring counterparty must sign
func ValidateInputCounterpartySigned(tx *transactionrecord.Transaction) error {
	return requireSigner(tx, input(tx).Counterparty, fault.ErrCounterpartyMustBeSigner)
}

func requireSigner(tx *transactionrecord.Transaction, party *account.Account, err error) error {
	if nil == party || !account.Contains(tx.Signers, party) {
		return err
	}
	return nil
}

// the shape rules run first, so these casts are safe inside a rule table
func input(tx *transactionrecord.Transaction) *transactionrecord.AssetState {
	return tx.Inputs[0].State.(*transactionrecord.AssetState)
}

func output(tx *transactionrecord.Transaction) *transactionrecord.AssetState {
	return tx.Outputs[0].(*transactionrecord.AssetState)
}
