// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"bytes"
	"time"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/util"
)

// limits applied while unpacking
const (
	maxFieldLength = 65536
	maxListCount   = 1024
)

// Unpack - turn a byte slice into a record
//
// must cast result to correct type
//
// e.g.
//
//	switch tx := result.(type) {
//	case *transactionrecord.Transaction:
func (record Packed) Unpack() (t interface{}, n int, e error) {

	defer func() {
		if r := recover(); nil != r {
			e = fault.ErrNotTransactionPack
		}
	}()

	recordType, n := util.ClippedVarint64(record, 1, 8192)
	if 0 == n {
		return nil, 0, fault.ErrNotTransactionPack
	}

	switch TagType(recordType) {

	case AssetStateTag:
		return unpackAssetState(record, n)

	case TransactionTag:
		return unpackTransaction(record, n)

	case SignedTransactionTag:
		return unpackSignedTransaction(record, n)

	case FinalizedTransactionTag:
		return unpackFinalizedTransaction(record, n)

	default:
		return nil, 0, fault.ErrNotTransactionPack
	}
}

// UnpackTransaction - unpack a complete transaction record
func UnpackTransaction(record Packed) (*Transaction, error) {
	tx, err := unpackExactly(record, TransactionTag)
	if nil != err {
		return nil, err
	}
	return tx.(*Transaction), nil
}

// UnpackSignedTransaction - unpack a complete signed transaction record
func UnpackSignedTransaction(record Packed) (*SignedTransaction, error) {
	signed, err := unpackExactly(record, SignedTransactionTag)
	if nil != err {
		return nil, err
	}
	return signed.(*SignedTransaction), nil
}

// UnpackFinalizedTransaction - unpack a complete finalized transaction record
func UnpackFinalizedTransaction(record Packed) (*FinalizedTransaction, error) {
	finalized, err := unpackExactly(record, FinalizedTransactionTag)
	if nil != err {
		return nil, err
	}
	return finalized.(*FinalizedTransaction), nil
}

// check type and that the record has no trailing bytes
func unpackExactly(record Packed, tag TagType) (interface{}, error) {
	if tag != record.Type() {
		return nil, fault.ErrNotTransactionPack
	}
	t, n, err := record.Unpack()
	if nil != err {
		return nil, err
	}
	if n != len(record) {
		return nil, fault.ErrTrailingBytes
	}
	return t, nil
}

func unpackAssetState(record Packed, n int) (*AssetState, int, error) {
	identifier, n, err := readString(record, n)
	if nil != err {
		return nil, 0, err
	}
	owner, n, err := readAccount(record, n)
	if nil != err {
		return nil, 0, err
	}
	counterparty, n, err := readAccount(record, n)
	if nil != err {
		return nil, 0, err
	}
	location, n, err := readString(record, n)
	if nil != err {
		return nil, 0, err
	}

	count, n, err := readCount(record, n)
	if nil != err {
		return nil, 0, err
	}
	var attributes map[string]string
	if count > 0 {
		attributes = make(map[string]string, count)
	}
	previous := ""
	for i := 0; i < count; i += 1 {
		var k, v string
		k, n, err = readString(record, n)
		if nil != err {
			return nil, 0, err
		}
		// keys are strictly ascending in the canonical form
		if i > 0 && k <= previous {
			return nil, 0, fault.ErrNotTransactionPack
		}
		previous = k
		v, n, err = readString(record, n)
		if nil != err {
			return nil, 0, err
		}
		attributes[k] = v
	}

	magnitude, n, err := readInt64(record, n)
	if nil != err {
		return nil, 0, err
	}
	value, n, err := readInt64(record, n)
	if nil != err {
		return nil, 0, err
	}

	state := &AssetState{
		Identifier:   identifier,
		Owner:        owner,
		Counterparty: counterparty,
		Location:     location,
		Attributes:   attributes,
		Magnitude:    magnitude,
		Value:        value,
	}
	return state, n, nil
}

// unpack an embedded state record, only asset states are known
func unpackState(data []byte) (ContractState, error) {
	if AssetStateTag != Packed(data).Type() {
		return nil, fault.ErrUnknownStateTag
	}
	state, n, err := Packed(data).Unpack()
	if nil != err {
		return nil, err
	}
	if n != len(data) {
		return nil, fault.ErrTrailingBytes
	}
	return state.(*AssetState), nil
}

func unpackTransaction(record Packed, n int) (*Transaction, int, error) {
	notary, n, err := readAccount(record, n)
	if nil != err {
		return nil, 0, err
	}

	tx := &Transaction{
		Notary: notary,
	}

	count, n, err := readCount(record, n)
	if nil != err {
		return nil, 0, err
	}
	for i := 0; i < count; i += 1 {
		var command uint64
		command, n, err = readUint64(record, n)
		if nil != err {
			return nil, 0, err
		}
		tx.Commands = append(tx.Commands, CommandTag(command))
	}

	count, n, err = readCount(record, n)
	if nil != err {
		return nil, 0, err
	}
	for i := 0; i < count; i += 1 {
		var txId []byte
		txId, n, err = readBytes(record, n)
		if nil != err {
			return nil, 0, err
		}
		input := StateAndRef{}
		if err = merkle.DigestFromBytes(&input.Ref.TxId, txId); nil != err {
			return nil, 0, err
		}
		input.Ref.Index, n, err = readUint64(record, n)
		if nil != err {
			return nil, 0, err
		}
		var state []byte
		state, n, err = readBytes(record, n)
		if nil != err {
			return nil, 0, err
		}
		input.State, err = unpackState(state)
		if nil != err {
			return nil, 0, err
		}
		tx.Inputs = append(tx.Inputs, input)
	}

	count, n, err = readCount(record, n)
	if nil != err {
		return nil, 0, err
	}
	for i := 0; i < count; i += 1 {
		var data []byte
		data, n, err = readBytes(record, n)
		if nil != err {
			return nil, 0, err
		}
		state, err := unpackState(data)
		if nil != err {
			return nil, 0, err
		}
		tx.Outputs = append(tx.Outputs, state)
	}

	count, n, err = readCount(record, n)
	if nil != err {
		return nil, 0, err
	}
	for i := 0; i < count; i += 1 {
		var signer *account.Account
		signer, n, err = readAccount(record, n)
		if nil != err {
			return nil, 0, err
		}
		tx.Signers = append(tx.Signers, signer)
	}

	return tx, n, nil
}

func unpackSignedTransaction(record Packed, n int) (*SignedTransaction, int, error) {
	packed, n, err := readBytes(record, n)
	if nil != err {
		return nil, 0, err
	}
	tx, err := UnpackTransaction(packed)
	if nil != err {
		return nil, 0, err
	}

	// reject a transaction that is not in canonical order since its
	// identifier would not match what the signers signed
	canonical, err := tx.Pack()
	if nil != err {
		return nil, 0, err
	}
	if !bytes.Equal(canonical, packed) {
		return nil, 0, fault.ErrNotTransactionPack
	}

	signed := &SignedTransaction{
		Packed: Packed(packed),
	}
	signed.Transaction, err = tx.Canonical()
	if nil != err {
		return nil, 0, err
	}

	count, n, err := readCount(record, n)
	if nil != err {
		return nil, 0, err
	}
	for i := 0; i < count; i += 1 {
		s := TransactionSignature{}
		s.Signer, n, err = readAccount(record, n)
		if nil != err {
			return nil, 0, err
		}
		var signature []byte
		signature, n, err = readBytes(record, n)
		if nil != err {
			return nil, 0, err
		}
		s.Signature = account.Signature(signature)
		signed.Signatures = append(signed.Signatures, s)
	}
	return signed, n, nil
}

func unpackFinalizedTransaction(record Packed, n int) (*FinalizedTransaction, int, error) {
	packed, n, err := readBytes(record, n)
	if nil != err {
		return nil, 0, err
	}
	signed, err := UnpackSignedTransaction(packed)
	if nil != err {
		return nil, 0, err
	}

	attestation := &Attestation{}
	attestation.Notary, n, err = readAccount(record, n)
	if nil != err {
		return nil, 0, err
	}
	nanoseconds, n, err := readInt64(record, n)
	if nil != err {
		return nil, 0, err
	}
	attestation.Timestamp = time.Unix(0, nanoseconds).UTC()
	signature, n, err := readBytes(record, n)
	if nil != err {
		return nil, 0, err
	}
	attestation.Signature = account.Signature(signature)

	finalized := &FinalizedTransaction{
		Signed:      signed,
		Attestation: attestation,
	}
	return finalized, n, nil
}

// read a length prefixed field, returning a copy
func readBytes(record Packed, n int) ([]byte, int, error) {
	length, offset := util.ClippedVarint64(record[n:], 0, maxFieldLength)
	if 0 == offset || n+offset+length > len(record) {
		return nil, 0, fault.ErrNotTransactionPack
	}
	n += offset
	data := make([]byte, length)
	copy(data, record[n:n+length])
	return data, n + length, nil
}

func readString(record Packed, n int) (string, int, error) {
	data, n, err := readBytes(record, n)
	if nil != err {
		return "", 0, err
	}
	return string(data), n, nil
}

func readAccount(record Packed, n int) (*account.Account, int, error) {
	data, n, err := readBytes(record, n)
	if nil != err {
		return nil, 0, err
	}
	a, err := account.AccountFromBytes(data)
	if nil != err {
		return nil, 0, err
	}
	return a, n, nil
}

func readUint64(record Packed, n int) (uint64, int, error) {
	value, length := util.FromVarint64(record[n:])
	if 0 == length {
		return 0, 0, fault.ErrNotTransactionPack
	}
	return value, n + length, nil
}

func readInt64(record Packed, n int) (int64, int, error) {
	value, length := util.FromSignedVarint64(record[n:])
	if 0 == length {
		return 0, 0, fault.ErrNotTransactionPack
	}
	return value, n + length, nil
}

func readCount(record Packed, n int) (int, int, error) {
	count, length := util.ClippedVarint64(record[n:], 0, maxListCount)
	if 0 == length {
		return 0, 0, fault.ErrNotTransactionPack
	}
	return count, n + length, nil
}
