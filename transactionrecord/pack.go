// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"bytes"
	"sort"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/util"
)

// Pack - pack an asset state
//
// Varint64(tag) followed by fields in order as struct above; the
// attributes are a count followed by key, value pairs in key order
func (state *AssetState) Pack() (Packed, error) {
	if nil == state.Owner || nil == state.Counterparty {
		return nil, fault.ErrMissingAccount
	}

	message := util.ToVarint64(uint64(AssetStateTag))
	message = appendString(message, state.Identifier)
	message = appendAccount(message, state.Owner)
	message = appendAccount(message, state.Counterparty)
	message = appendString(message, state.Location)

	keys := make([]string, 0, len(state.Attributes))
	for k := range state.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	message = appendUint64(message, uint64(len(keys)))
	for _, k := range keys {
		message = appendString(message, k)
		message = appendString(message, state.Attributes[k])
	}

	message = appendInt64(message, state.Magnitude)
	message = appendInt64(message, state.Value)
	return message, nil
}

// Canonical - copy of the transaction with its lists in canonical order
//
//	inputs:  by reference bytes (txId ++ big endian index)
//	outputs: by packed bytes
//	signers: by account bytes, duplicates removed
//
// commands keep the order given
func (tx *Transaction) Canonical() (*Transaction, error) {
	if nil == tx.Notary {
		return nil, fault.ErrMissingAccount
	}

	inputs := make([]StateAndRef, len(tx.Inputs))
	copy(inputs, tx.Inputs)
	sort.SliceStable(inputs, func(i, j int) bool {
		return bytes.Compare(inputs[i].Ref.Bytes(), inputs[j].Ref.Bytes()) < 0
	})

	type packedOutput struct {
		state  ContractState
		packed Packed
	}
	outputs := make([]packedOutput, len(tx.Outputs))
	for i, output := range tx.Outputs {
		if nil == output {
			return nil, fault.ErrUnknownStateTag
		}
		packed, err := output.Pack()
		if nil != err {
			return nil, err
		}
		outputs[i] = packedOutput{state: output, packed: packed}
	}
	sort.SliceStable(outputs, func(i, j int) bool {
		return bytes.Compare(outputs[i].packed, outputs[j].packed) < 0
	})

	for _, signer := range tx.Signers {
		if nil == signer {
			return nil, fault.ErrMissingAccount
		}
	}

	canonical := &Transaction{
		Notary:   tx.Notary,
		Inputs:   inputs,
		Outputs:  make([]ContractState, len(outputs)),
		Commands: append([]CommandTag{}, tx.Commands...),
		Signers:  sortAccounts(tx.Signers),
	}
	for i, output := range outputs {
		canonical.Outputs[i] = output.state
	}
	return canonical, nil
}

// Pack - canonical pack of a transaction
func (tx *Transaction) Pack() (Packed, error) {
	canonical, err := tx.Canonical()
	if nil != err {
		return nil, err
	}

	message := util.ToVarint64(uint64(TransactionTag))
	message = appendAccount(message, canonical.Notary)

	message = appendUint64(message, uint64(len(canonical.Commands)))
	for _, command := range canonical.Commands {
		message = appendUint64(message, uint64(command))
	}

	message = appendUint64(message, uint64(len(canonical.Inputs)))
	for _, input := range canonical.Inputs {
		if nil == input.State {
			return nil, fault.ErrMissingInput
		}
		state, err := input.State.Pack()
		if nil != err {
			return nil, err
		}
		message = appendBytes(message, input.Ref.TxId[:])
		message = appendUint64(message, input.Ref.Index)
		message = appendBytes(message, state)
	}

	message = appendUint64(message, uint64(len(canonical.Outputs)))
	for _, output := range canonical.Outputs {
		state, err := output.Pack()
		if nil != err {
			return nil, err
		}
		message = appendBytes(message, state)
	}

	message = appendUint64(message, uint64(len(canonical.Signers)))
	for _, signer := range canonical.Signers {
		message = appendAccount(message, signer)
	}
	return message, nil
}

// Pack - a signed transaction
//
// the packed transaction followed by a count of (signer, signature) pairs
func (signed *SignedTransaction) Pack() (Packed, error) {
	if 0 == len(signed.Packed) {
		return nil, fault.ErrNotTransactionPack
	}
	message := util.ToVarint64(uint64(SignedTransactionTag))
	message = appendBytes(message, signed.Packed)
	message = appendUint64(message, uint64(len(signed.Signatures)))
	for _, s := range signed.Signatures {
		if nil == s.Signer {
			return nil, fault.ErrMissingAccount
		}
		message = appendAccount(message, s.Signer)
		message = appendBytes(message, s.Signature)
	}
	return message, nil
}

// Pack - a finalized transaction
//
// the packed signed transaction followed by the attestation
func (finalized *FinalizedTransaction) Pack() (Packed, error) {
	if nil == finalized.Signed || nil == finalized.Attestation || nil == finalized.Attestation.Notary {
		return nil, fault.ErrInvalidAttestation
	}
	signed, err := finalized.Signed.Pack()
	if nil != err {
		return nil, err
	}
	message := util.ToVarint64(uint64(FinalizedTransactionTag))
	message = appendBytes(message, signed)
	message = appendAccount(message, finalized.Attestation.Notary)
	message = appendInt64(message, finalized.Attestation.Timestamp.UnixNano())
	message = appendBytes(message, finalized.Attestation.Signature)
	return message, nil
}

// append a single field to a buffer
//
// the field is prefixed by Varint64(length)
func appendString(buffer Packed, s string) Packed {
	l := util.ToVarint64(uint64(len(s)))
	buffer = append(buffer, l...)
	return append(buffer, s...)
}

// append an address to a buffer
//
// the field is prefixed by Varint64(length)
func appendAccount(buffer Packed, address *account.Account) Packed {
	data := address.Bytes()
	l := util.ToVarint64(uint64(len(data)))
	buffer = append(buffer, l...)
	buffer = append(buffer, data...)
	return buffer
}

// append a bytes to a buffer
//
// the field is prefixed by Varint64(length)
func appendBytes(buffer Packed, data []byte) Packed {
	l := util.ToVarint64(uint64(len(data)))
	buffer = append(buffer, l...)
	buffer = append(buffer, data...)
	return buffer
}

// append a Varint64 to buffer
func appendUint64(buffer Packed, value uint64) Packed {
	valueBytes := util.ToVarint64(value)
	buffer = append(buffer, valueBytes...)
	return buffer
}

// append a zig-zag Varint64 to buffer
func appendInt64(buffer Packed, value int64) Packed {
	return append(buffer, util.ToSignedVarint64(value)...)
}
