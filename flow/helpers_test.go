// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/builder"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/fixtures"
	"github.com/bitmark-inc/assetflow/flow"
	"github.com/bitmark-inc/assetflow/flow/mocks"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

var notaries = []*account.Account{fixtures.Notary.Account()}

func unixTime(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

// transcript - messages one side of a session sent
type transcript struct {
	sync.Mutex
	sent []*flow.Message
}

func (tr *transcript) add(m *flow.Message) {
	tr.Lock()
	defer tr.Unlock()
	tr.sent = append(tr.sent, m)
}

func (tr *transcript) types() []flow.MessageType {
	tr.Lock()
	defer tr.Unlock()
	types := make([]flow.MessageType, len(tr.sent))
	for i, m := range tr.sent {
		types[i] = m.Type
	}
	return types
}

func (tr *transcript) last() *flow.Message {
	tr.Lock()
	defer tr.Unlock()
	if 0 == len(tr.sent) {
		return nil
	}
	return tr.sent[len(tr.sent)-1]
}

// scriptedPeer - a counterparty session that answers each message the
// initiator sends with whatever reply returns
func scriptedPeer(ctl *gomock.Controller, party *account.Account, reply func(*flow.Message) *flow.Message) (*mocks.MockSession, *transcript) {
	tr := &transcript{}
	replies := make(chan []byte, 8)

	session := mocks.NewMockSession(ctl)
	session.EXPECT().Counterparty().Return(party).AnyTimes()
	session.EXPECT().Close().AnyTimes()
	session.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, payload []byte) error {
			m, err := flow.DecodeMessage(payload)
			if nil != err {
				return err
			}
			tr.add(m)
			if r := reply(m); nil != r {
				encoded, err := r.Encode()
				if nil != err {
					return err
				}
				replies <- encoded
			}
			return nil
		}).AnyTimes()
	session.EXPECT().Receive(gomock.Any()).DoAndReturn(
		func(ctx context.Context) ([]byte, error) {
			select {
			case payload := <-replies:
				return payload, nil
			case <-ctx.Done():
				return nil, errors.Wrap(fault.ErrSessionTimeout, "scripted peer")
			}
		}).AnyTimes()
	return session, tr
}

// inboundSession - a session opened by an initiator that delivers the
// given messages in order, then stays silent
func inboundSession(ctl *gomock.Controller, from *account.Account, inbound ...*flow.Message) (*mocks.MockSession, *transcript) {
	tr := &transcript{}
	queue := make(chan []byte, len(inbound))
	for _, m := range inbound {
		encoded, err := m.Encode()
		if nil != err {
			panic(err)
		}
		queue <- encoded
	}

	session := mocks.NewMockSession(ctl)
	session.EXPECT().Counterparty().Return(from).AnyTimes()
	session.EXPECT().Close().AnyTimes()
	session.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, payload []byte) error {
			m, err := flow.DecodeMessage(payload)
			if nil != err {
				return err
			}
			tr.add(m)
			return nil
		}).AnyTimes()
	session.EXPECT().Receive(gomock.Any()).DoAndReturn(
		func(ctx context.Context) ([]byte, error) {
			select {
			case payload := <-queue:
				return payload, nil
			case <-ctx.Done():
				return nil, errors.Wrap(fault.ErrSessionTimeout, "inbound session")
			}
		}).AnyTimes()
	return session, tr
}

// cooperative - sign every proposal and acknowledge finality
func cooperative(key *account.PrivateKey) func(*flow.Message) *flow.Message {
	return func(m *flow.Message) *flow.Message {
		switch m.Type {
		case flow.MessageTypeProposal:
			signed, err := transactionrecord.UnpackSignedTransaction(m.Transaction)
			if nil != err {
				return rejection(m, err.Error())
			}
			s, err := signed.Sign(key)
			if nil != err {
				return rejection(m, err.Error())
			}
			return &flow.Message{
				Type:      flow.MessageTypeSignature,
				TxId:      m.TxId,
				Signer:    s.Signer.Bytes(),
				Signature: s.Signature,
			}
		case flow.MessageTypeFinality:
			return &flow.Message{Type: flow.MessageTypeAck, TxId: m.TxId}
		default:
			return nil
		}
	}
}

func rejection(m *flow.Message, reason string) *flow.Message {
	return &flow.Message{Type: flow.MessageTypeReject, TxId: m.TxId, Reason: reason}
}

// acceptingNotary - attests every submission with the test notary key
func acceptingNotary(t *testing.T, ctl *gomock.Controller, timestamp int64) *mocks.MockNotary {
	n := mocks.NewMockNotary(ctl)
	n.EXPECT().Notarise(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, signed *transactionrecord.SignedTransaction) (*transactionrecord.Attestation, error) {
			assert.Nil(t, signed.VerifyComplete(), "notarised while incomplete")
			return transactionrecord.NewAttestation(fixtures.Notary, signed.Id(), unixTime(timestamp)), nil
		}).Times(1)
	return n
}

// genesis - a live parcel owned by owner
func genesis(owner *account.Account, counterparty *account.Account) *transactionrecord.StateAndRef {
	return &transactionrecord.StateAndRef{
		State: fixtures.Parcel("P-1", owner, counterparty),
		Ref: transactionrecord.StateRef{
			TxId:  merkle.NewDigest([]byte("genesis")),
			Index: 0,
		},
	}
}

// proposalFrom - proposal message for a transaction signed by the initiator
func proposalFrom(t *testing.T, b *builder.Builder, initiator *account.PrivateKey) (*flow.Message, *transactionrecord.SignedTransaction) {
	signed, err := b.Sign(initiator)
	assert.Nil(t, err, "initiator sign")
	return proposalOf(t, signed), signed
}

func proposalOf(t *testing.T, signed *transactionrecord.SignedTransaction) *flow.Message {
	packed, err := signed.Pack()
	assert.Nil(t, err, "pack")
	txId := signed.Id()
	return &flow.Message{
		Type:        flow.MessageTypeProposal,
		TxId:        txId[:],
		Transaction: packed,
	}
}

// finalityOf - finality message for a transaction every signer signed
func finalityOf(t *testing.T, tx *transactionrecord.Transaction, timestamp int64) *flow.Message {
	finalized, err := fixtures.Finalize(tx, unixTime(timestamp))
	assert.Nil(t, err, "finalize")
	packed, err := finalized.Pack()
	assert.Nil(t, err, "pack")
	txId := finalized.Id()
	return &flow.Message{
		Type:        flow.MessageTypeFinality,
		TxId:        txId[:],
		Transaction: packed,
	}
}
