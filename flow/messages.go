// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flow

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

// MessageType - kind of a session message
type MessageType uint8

// session messages
const (
	MessageTypeProposal  MessageType = 1 // initiator → signer: packed signed transaction
	MessageTypeSignature MessageType = 2 // signer → initiator: signature over the id
	MessageTypeReject    MessageType = 3 // signer → initiator: reason
	MessageTypeAbort     MessageType = 4 // initiator → signer: transaction will not complete
	MessageTypeFinality  MessageType = 5 // initiator → participant: packed finalized transaction
	MessageTypeAck       MessageType = 6 // participant → initiator: recorded
)

// String - name of a message type
func (t MessageType) String() string {
	switch t {
	case MessageTypeProposal:
		return "Proposal"
	case MessageTypeSignature:
		return "Signature"
	case MessageTypeReject:
		return "Reject"
	case MessageTypeAbort:
		return "Abort"
	case MessageTypeFinality:
		return "Finality"
	case MessageTypeAck:
		return "Ack"
	default:
		return "Unknown"
	}
}

// Message - the unit exchanged over a session
type Message struct {
	Type        MessageType `cbor:"1,keyasint"`
	TxId        []byte      `cbor:"2,keyasint,omitempty"`
	Transaction []byte      `cbor:"3,keyasint,omitempty"`
	Signer      []byte      `cbor:"4,keyasint,omitempty"`
	Signature   []byte      `cbor:"5,keyasint,omitempty"`
	Reason      string      `cbor:"6,keyasint,omitempty"`
	Conflict    bool        `cbor:"7,keyasint,omitempty"` // reject: an input is spent or pending elsewhere
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		// Make sure that maps have ordered keys
		Sort: cbor.SortCoreDeterministic,
	}.EncMode()
	if nil != err {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if nil != err {
		panic(err)
	}
}

// Encode - CBOR form of a message
func (m *Message) Encode() ([]byte, error) {
	return encMode.Marshal(m)
}

// DecodeMessage - parse a CBOR message
func DecodeMessage(payload []byte) (*Message, error) {
	m := &Message{}
	if err := decMode.Unmarshal(payload, m); nil != err {
		return nil, errors.Wrap(fault.ErrMessageMalformed, err.Error())
	}
	if m.Type < MessageTypeProposal || m.Type > MessageTypeAck {
		return nil, errors.Wrapf(fault.ErrMessageMalformed, "message type: %d", m.Type)
	}
	return m, nil
}

// Id - transaction id carried by the message
func (m *Message) Id() (merkle.Digest, error) {
	var txId merkle.Digest
	err := merkle.DigestFromBytes(&txId, m.TxId)
	return txId, err
}

// proposal with the transaction and signatures collected so far
func newProposal(signed *transactionrecord.SignedTransaction) (*Message, error) {
	packed, err := signed.Pack()
	if nil != err {
		return nil, err
	}
	txId := signed.Id()
	return &Message{
		Type:        MessageTypeProposal,
		TxId:        txId[:],
		Transaction: packed,
	}, nil
}

func newSignature(txId merkle.Digest, s transactionrecord.TransactionSignature) *Message {
	return &Message{
		Type:      MessageTypeSignature,
		TxId:      txId[:],
		Signer:    s.Signer.Bytes(),
		Signature: s.Signature,
	}
}

// newRejection - reject carrying the class of its cause
func newRejection(txId merkle.Digest, cause error) *Message {
	m := newReason(MessageTypeReject, txId, cause.Error())
	m.Conflict = fault.IsErrConflict(cause)
	return m
}

// newReason - reject or abort
func newReason(messageType MessageType, txId merkle.Digest, reason string) *Message {
	return &Message{
		Type:   messageType,
		TxId:   txId[:],
		Reason: reason,
	}
}

func newFinality(finalized *transactionrecord.FinalizedTransaction) (*Message, error) {
	packed, err := finalized.Pack()
	if nil != err {
		return nil, err
	}
	txId := finalized.Id()
	return &Message{
		Type:        MessageTypeFinality,
		TxId:        txId[:],
		Transaction: packed,
	}, nil
}

func newAck(txId merkle.Digest) *Message {
	return &Message{
		Type: MessageTypeAck,
		TxId: txId[:],
	}
}

// TransactionSignature - the signature carried by a Signature message
func (m *Message) TransactionSignature() (transactionrecord.TransactionSignature, error) {
	signer, err := account.AccountFromBytes(m.Signer)
	if nil != err {
		return transactionrecord.TransactionSignature{}, err
	}
	return transactionrecord.TransactionSignature{
		Signer:    signer,
		Signature: account.Signature(m.Signature),
	}, nil
}
