// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/util"
)

// TagType - type code for packed records
type TagType uint64

// enumerate the possible record types
// this is encoded a Varint64 at start of "Packed"
const (
	// null marks beginning of list - not used as a record type
	NullTag = TagType(iota)

	// valid record types
	AssetStateTag           = TagType(iota) // ownership of an asset
	TransactionTag          = TagType(iota) // unsigned transaction
	SignedTransactionTag    = TagType(iota) // transaction + signatures
	FinalizedTransactionTag = TagType(iota) // signed transaction + notary attestation

	// this item must be last
	InvalidTag = TagType(iota)
)

// CommandTag - the intent of a transaction, selecting its rule set
type CommandTag uint64

// enumerate the commands
const (
	NullCommand = CommandTag(iota) // not a command

	Originate = CommandTag(iota) // create a new asset
	Transfer  = CommandTag(iota) // move an asset to a new owner
	Retire    = CommandTag(iota) // terminal: consume without successor

	// this item must be last
	InvalidCommand = CommandTag(iota)
)

// String - name of a command
func (command CommandTag) String() string {
	switch command {
	case Originate:
		return "originate"
	case Transfer:
		return "transfer"
	case Retire:
		return "retire"
	default:
		return "unknown"
	}
}

// Packed - packed records are just a byte slice
type Packed []byte

// ContractState - any state that can appear in a transaction
type ContractState interface {
	Tag() TagType
	Participants() []*account.Account
	Pack() (Packed, error)
}

// AssetState - ownership of a tracked asset at one point in the chain
//
// states are values: a transition never edits a state, it consumes it
// and produces a successor
type AssetState struct {
	Identifier   string            `json:"identifier"`   // utf-8
	Owner        *account.Account  `json:"owner"`        // base58
	Counterparty *account.Account  `json:"counterparty"` // base58
	Location     string            `json:"location"`     // utf-8
	Attributes   map[string]string `json:"attributes"`   // utf-8 → utf-8
	Magnitude    int64             `json:"magnitude"`    // quantity
	Value        int64             `json:"value"`        // price
}

// Tag - record type of an asset state
func (state *AssetState) Tag() TagType {
	return AssetStateTag
}

// Participants - the parties with an interest in the state
func (state *AssetState) Participants() []*account.Account {
	return []*account.Account{state.Owner, state.Counterparty}
}

// WithOwner - successor state held by a new owner
func (state *AssetState) WithOwner(owner *account.Account) *AssetState {
	successor := *state
	if nil != state.Attributes {
		successor.Attributes = make(map[string]string, len(state.Attributes))
		for k, v := range state.Attributes {
			successor.Attributes[k] = v
		}
	}
	successor.Owner = owner
	return &successor
}

// StateRef - position of a state among the outputs of the
// transaction that produced it
type StateRef struct {
	TxId  merkle.Digest `json:"txId"`
	Index uint64        `json:"index"`
}

// stateRefLength - bytes in the binary form of a reference
const stateRefLength = merkle.DigestLength + 8

// Bytes - txId ++ big endian index
//
// big endian so that byte order matches numeric order
func (ref StateRef) Bytes() []byte {
	buffer := make([]byte, stateRefLength)
	copy(buffer, ref.TxId[:])
	binary.BigEndian.PutUint64(buffer[merkle.DigestLength:], ref.Index)
	return buffer
}

// StateRefFromBytes - reverse of Bytes
func StateRefFromBytes(buffer []byte) (StateRef, error) {
	ref := StateRef{}
	if stateRefLength != len(buffer) {
		return ref, fault.ErrNotLink
	}
	copy(ref.TxId[:], buffer[:merkle.DigestLength])
	ref.Index = binary.BigEndian.Uint64(buffer[merkle.DigestLength:])
	return ref, nil
}

// String - txId:index
func (ref StateRef) String() string {
	return hex.EncodeToString(ref.TxId[:]) + ":" + strconv.FormatUint(ref.Index, 10)
}

// StateRefFromString - reverse of String
func StateRefFromString(s string) (StateRef, error) {
	ref := StateRef{}
	n := strings.LastIndexByte(s, ':')
	if n < 0 {
		return ref, fault.ErrNotLink
	}
	if err := ref.TxId.UnmarshalText([]byte(s[:n])); nil != err {
		return ref, fault.ErrNotLink
	}
	index, err := strconv.ParseUint(s[n+1:], 10, 64)
	if nil != err {
		return ref, fault.ErrNotLink
	}
	ref.Index = index
	return ref, nil
}

// StateAndRef - a resolved input: the state and where it came from
type StateAndRef struct {
	State ContractState `json:"state"`
	Ref   StateRef      `json:"ref"`
}

// Transaction - proposed consumption of inputs and production of
// outputs under a command
type Transaction struct {
	Notary   *account.Account   `json:"notary"`
	Inputs   []StateAndRef      `json:"inputs"`
	Outputs  []ContractState    `json:"outputs"`
	Commands []CommandTag       `json:"commands"`
	Signers  []*account.Account `json:"signers"`
}

// Id - the identifier of the transaction, the SHA3-256 digest of its
// canonical pack
func (tx *Transaction) Id() (merkle.Digest, error) {
	packed, err := tx.Pack()
	if nil != err {
		return merkle.Digest{}, err
	}
	return packed.MakeLink(), nil
}

// IsRequiredSigner - true if the account is in the signer set
func (tx *Transaction) IsRequiredSigner(party *account.Account) bool {
	return account.Contains(tx.Signers, party)
}

// Participants - owner and counterparty of every input and output
//
// sorted by account bytes without duplicates
func (tx *Transaction) Participants() []*account.Account {
	parties := make([]*account.Account, 0, 2*(len(tx.Inputs)+len(tx.Outputs)))
	for _, input := range tx.Inputs {
		if nil != input.State {
			parties = append(parties, input.State.Participants()...)
		}
	}
	for _, output := range tx.Outputs {
		if nil != output {
			parties = append(parties, output.Participants()...)
		}
	}
	return sortAccounts(parties)
}

// MakeLink - digest of a packed record
func (record Packed) MakeLink() merkle.Digest {
	return merkle.NewDigest(record)
}

// Type - record type code of a packed record
func (record Packed) Type() TagType {
	recordType, n := util.FromVarint64(record)
	if 0 == n {
		return NullTag
	}
	return TagType(recordType)
}

// MarshalText - hex of a packed record
func (record Packed) MarshalText() ([]byte, error) {
	size := hex.EncodedLen(len(record))
	buffer := make([]byte, size)
	hex.Encode(buffer, record)
	return buffer, nil
}

// UnmarshalText - hex to packed record
func (record *Packed) UnmarshalText(s []byte) error {
	size := hex.DecodedLen(len(s))
	buffer := make([]byte, size)
	_, err := hex.Decode(buffer, s)
	if nil != err {
		return err
	}
	*record = buffer
	return nil
}

// sort accounts by their binary form and drop duplicates and nils
func sortAccounts(list []*account.Account) []*account.Account {
	sorted := make([]*account.Account, 0, len(list))
	for _, a := range list {
		if nil != a {
			sorted = append(sorted, a)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Bytes(), sorted[j].Bytes()) < 0
	})
	unique := sorted[:0]
	for i, a := range sorted {
		if 0 == i || !a.Equal(unique[len(unique)-1]) {
			unique = append(unique, a)
		}
	}
	return unique
}
