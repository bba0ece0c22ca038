// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flow_test

import (
	"context"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/fixtures"
	"github.com/bitmark-inc/assetflow/flow"
	"github.com/bitmark-inc/assetflow/flow/mocks"
	"github.com/bitmark-inc/assetflow/notary"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

func newInitiator(key *account.PrivateKey, messaging flow.Messaging, n flow.Notary, storage flow.Storage, timeout time.Duration) *flow.Initiator {
	return flow.NewInitiator(key, notaries, messaging, n, storage, timeout, logger.New("initiator"))
}

func TestInitiateOriginate(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	bob, bobSaw := scriptedPeer(ctl, fixtures.Bob.Account(), cooperative(fixtures.Bob))

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), fixtures.Bob.Account()).Return(bob, nil).Times(1)

	var recorded *transactionrecord.FinalizedTransaction
	storage := mocks.NewMockStorage(ctl)
	storage.EXPECT().RecordTransaction(gomock.Any()).DoAndReturn(
		func(finalized *transactionrecord.FinalizedTransaction) error {
			recorded = finalized
			return nil
		}).Times(1)

	i := newInitiator(fixtures.Alice, messaging, acceptingNotary(t, ctl, 1600000000), storage, time.Second)

	txId, err := i.Initiate(context.Background(), flow.Request{
		Command: transactionrecord.Originate,
		Asset:   fixtures.Parcel("P-1", fixtures.Alice.Account(), fixtures.Bob.Account()),
	})
	assert.Nil(t, err, "initiate")
	assert.False(t, txId.IsZero(), "missing transaction id")

	assert.NotNil(t, recorded, "not recorded")
	assert.Equal(t, txId, recorded.Id(), "recorded a different transaction")
	assert.Nil(t, recorded.Verify(), "recorded transaction does not verify")

	assert.Equal(t,
		[]flow.MessageType{flow.MessageTypeProposal, flow.MessageTypeFinality},
		bobSaw.types(),
		"wrong messages to counterparty",
	)
}

func TestInitiateTransferCollectsEverySigner(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	bob, bobSaw := scriptedPeer(ctl, fixtures.Bob.Account(), cooperative(fixtures.Bob))
	carol, carolSaw := scriptedPeer(ctl, fixtures.Carol.Account(), cooperative(fixtures.Carol))

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), fixtures.Bob.Account()).Return(bob, nil).Times(1)
	messaging.EXPECT().OpenSession(gomock.Any(), fixtures.Carol.Account()).Return(carol, nil).Times(1)

	storage := mocks.NewMockStorage(ctl)
	storage.EXPECT().RecordTransaction(gomock.Any()).Return(nil).Times(1)

	i := newInitiator(fixtures.Alice, messaging, acceptingNotary(t, ctl, 1600000000), storage, time.Second)

	_, err := i.Initiate(context.Background(), flow.Request{
		Command:  transactionrecord.Transfer,
		Input:    genesis(fixtures.Alice.Account(), fixtures.Bob.Account()),
		NewOwner: fixtures.Carol.Account(),
	})
	assert.Nil(t, err, "initiate")

	final := []flow.MessageType{flow.MessageTypeProposal, flow.MessageTypeFinality}
	assert.Equal(t, final, bobSaw.types(), "counterparty messages")
	assert.Equal(t, final, carolSaw.types(), "new owner messages")
}

func TestInitiateRejectedByCounterparty(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	bob, bobSaw := scriptedPeer(ctl, fixtures.Bob.Account(), func(m *flow.Message) *flow.Message {
		if flow.MessageTypeProposal == m.Type {
			return rejection(m, "price too low")
		}
		return nil
	})

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), gomock.Any()).Return(bob, nil).Times(1)

	// neither notary nor storage may be called
	i := newInitiator(fixtures.Alice, messaging, mocks.NewMockNotary(ctl), mocks.NewMockStorage(ctl), time.Second)

	_, err := i.Initiate(context.Background(), flow.Request{
		Command: transactionrecord.Originate,
		Asset:   fixtures.Parcel("P-1", fixtures.Alice.Account(), fixtures.Bob.Account()),
	})
	assert.True(t, errors.Is(err, fault.ErrProposalRejected), "wrong error: %s", err)
	assert.Contains(t, err.Error(), "price too low", "reason lost")
	assert.True(t, fault.IsErrProtocol(err), "wrong error class")

	assert.Equal(t,
		[]flow.MessageType{flow.MessageTypeProposal, flow.MessageTypeAbort},
		bobSaw.types(),
		"counterparty was not told to abort",
	)
	assert.False(t, fault.IsErrConflict(err), "plain rejection reported as a conflict")
}

func TestInitiateCounterpartyHoldsInputElsewhere(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	input := genesis(fixtures.Alice.Account(), fixtures.Bob.Account())

	reply := func(m *flow.Message) *flow.Message {
		if flow.MessageTypeProposal == m.Type {
			r := rejection(m, "input: "+input.Ref.String()+": "+fault.ErrStateAlreadyPending.Error())
			r.Conflict = true
			return r
		}
		return nil
	}
	bob, bobSaw := scriptedPeer(ctl, fixtures.Bob.Account(), reply)
	carol, _ := scriptedPeer(ctl, fixtures.Carol.Account(), cooperative(fixtures.Carol))

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), fixtures.Bob.Account()).Return(bob, nil).Times(1)
	messaging.EXPECT().OpenSession(gomock.Any(), fixtures.Carol.Account()).Return(carol, nil).AnyTimes()

	// neither notary nor storage may be called
	i := newInitiator(fixtures.Alice, messaging, mocks.NewMockNotary(ctl), mocks.NewMockStorage(ctl), time.Second)

	_, err := i.Initiate(context.Background(), flow.Request{
		Command:  transactionrecord.Transfer,
		Input:    input,
		NewOwner: fixtures.Carol.Account(),
	})
	assert.True(t, errors.Is(err, fault.ErrProposalConflict), "wrong error: %s", err)
	assert.True(t, fault.IsErrConflict(err), "wrong error class")
	assert.False(t, fault.IsErrProtocol(err), "double spend reported as retryable")
	assert.Contains(t, err.Error(), input.Ref.String(), "reason lost")
	assert.Contains(t, bobSaw.types(), flow.MessageTypeAbort, "counterparty was not told to abort")
}

func TestInitiateRefusesForgedSignature(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	// signature by Carol's key presented as Bob's
	bob, _ := scriptedPeer(ctl, fixtures.Bob.Account(), func(m *flow.Message) *flow.Message {
		if flow.MessageTypeProposal != m.Type {
			return nil
		}
		return &flow.Message{
			Type:      flow.MessageTypeSignature,
			TxId:      m.TxId,
			Signer:    fixtures.Bob.Account().Bytes(),
			Signature: fixtures.Carol.Sign(m.TxId),
		}
	})

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), gomock.Any()).Return(bob, nil).Times(1)

	i := newInitiator(fixtures.Alice, messaging, mocks.NewMockNotary(ctl), mocks.NewMockStorage(ctl), time.Second)

	_, err := i.Initiate(context.Background(), flow.Request{
		Command: transactionrecord.Originate,
		Asset:   fixtures.Parcel("P-1", fixtures.Alice.Account(), fixtures.Bob.Account()),
	})
	assert.True(t, errors.Is(err, fault.ErrInvalidSignature), "wrong error: %s", err)
}

func TestInitiateTimesOutSilentCounterparty(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	bob, bobSaw := scriptedPeer(ctl, fixtures.Bob.Account(), func(*flow.Message) *flow.Message {
		return nil
	})

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), gomock.Any()).Return(bob, nil).Times(1)

	i := newInitiator(fixtures.Alice, messaging, mocks.NewMockNotary(ctl), mocks.NewMockStorage(ctl), 50*time.Millisecond)

	_, err := i.Initiate(context.Background(), flow.Request{
		Command: transactionrecord.Originate,
		Asset:   fixtures.Parcel("P-1", fixtures.Alice.Account(), fixtures.Bob.Account()),
	})
	assert.True(t, errors.Is(err, fault.ErrSessionTimeout), "wrong error: %s", err)
	assert.Equal(t, flow.MessageTypeAbort, bobSaw.last().Type, "no abort after timeout")
}

func TestInitiateUnreachableCounterparty(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), gomock.Any()).Return(nil, fault.ErrPartyNotReachable).Times(1)

	i := newInitiator(fixtures.Alice, messaging, mocks.NewMockNotary(ctl), mocks.NewMockStorage(ctl), time.Second)

	_, err := i.Initiate(context.Background(), flow.Request{
		Command: transactionrecord.Originate,
		Asset:   fixtures.Parcel("P-1", fixtures.Alice.Account(), fixtures.Bob.Account()),
	})
	assert.True(t, errors.Is(err, fault.ErrPartyNotReachable), "wrong error: %s", err)
}

func TestInitiateConflict(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	bob, bobSaw := scriptedPeer(ctl, fixtures.Bob.Account(), cooperative(fixtures.Bob))
	carol, _ := scriptedPeer(ctl, fixtures.Carol.Account(), cooperative(fixtures.Carol))

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), fixtures.Bob.Account()).Return(bob, nil).Times(1)
	messaging.EXPECT().OpenSession(gomock.Any(), fixtures.Carol.Account()).Return(carol, nil).Times(1)

	input := genesis(fixtures.Alice.Account(), fixtures.Bob.Account())

	n := mocks.NewMockNotary(ctl)
	n.EXPECT().Notarise(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, signed *transactionrecord.SignedTransaction) (*transactionrecord.Attestation, error) {
			return nil, &notary.ConflictError{
				TxId:      signed.Id(),
				Conflicts: []transactionrecord.StateRef{input.Ref},
			}
		}).Times(1)

	i := newInitiator(fixtures.Alice, messaging, n, mocks.NewMockStorage(ctl), time.Second)

	_, err := i.Initiate(context.Background(), flow.Request{
		Command:  transactionrecord.Transfer,
		Input:    input,
		NewOwner: fixtures.Carol.Account(),
	})
	assert.True(t, fault.IsErrConflict(err), "wrong error class: %s", err)

	var conflict *notary.ConflictError
	assert.True(t, errors.As(err, &conflict), "not a conflict error")
	assert.Equal(t, []transactionrecord.StateRef{input.Ref}, conflict.Conflicts, "wrong conflicts")

	assert.Equal(t,
		[]flow.MessageType{flow.MessageTypeProposal, flow.MessageTypeAbort},
		bobSaw.types(),
		"counterparty was not told to abort",
	)
}

func TestInitiateDistributionIncomplete(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	// signs, then never acknowledges finality
	bob, _ := scriptedPeer(ctl, fixtures.Bob.Account(), func(m *flow.Message) *flow.Message {
		if flow.MessageTypeProposal == m.Type {
			return cooperative(fixtures.Bob)(m)
		}
		return nil
	})

	messaging := mocks.NewMockMessaging(ctl)
	messaging.EXPECT().OpenSession(gomock.Any(), gomock.Any()).Return(bob, nil).Times(1)

	storage := mocks.NewMockStorage(ctl)
	storage.EXPECT().RecordTransaction(gomock.Any()).Return(nil).Times(1)

	i := newInitiator(fixtures.Alice, messaging, acceptingNotary(t, ctl, 1600000000), storage, 100*time.Millisecond)

	txId, err := i.Initiate(context.Background(), flow.Request{
		Command: transactionrecord.Originate,
		Asset:   fixtures.Parcel("P-1", fixtures.Alice.Account(), fixtures.Bob.Account()),
	})
	assert.False(t, txId.IsZero(), "final transaction id must still be returned")
	assert.True(t, errors.Is(err, fault.ErrDistributionIncomplete), "wrong error: %s", err)
}

func TestInitiatePreconditions(t *testing.T) {
	fixtures.SetupTestLogger()
	defer fixtures.TeardownTestLogger()

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	// no collaborator may be called
	i := newInitiator(fixtures.Alice, mocks.NewMockMessaging(ctl), mocks.NewMockNotary(ctl), mocks.NewMockStorage(ctl), time.Second)

	tests := []struct {
		name     string
		request  flow.Request
		expected error
	}{
		{
			name: "originate for another owner",
			request: flow.Request{
				Command: transactionrecord.Originate,
				Asset:   fixtures.Parcel("P-1", fixtures.Bob.Account(), fixtures.Carol.Account()),
			},
			expected: fault.ErrInitiatorNotOwner,
		},
		{
			name: "transfer of a stranger's asset",
			request: flow.Request{
				Command:  transactionrecord.Transfer,
				Input:    genesis(fixtures.Bob.Account(), fixtures.Dave.Account()),
				NewOwner: fixtures.Carol.Account(),
			},
			expected: fault.ErrInitiatorNotSigner,
		},
		{
			name: "transfer without input",
			request: flow.Request{
				Command:  transactionrecord.Transfer,
				NewOwner: fixtures.Carol.Account(),
			},
			expected: fault.ErrMissingInput,
		},
		{
			name: "transfer to the same owner",
			request: flow.Request{
				Command:  transactionrecord.Transfer,
				Input:    genesis(fixtures.Alice.Account(), fixtures.Bob.Account()),
				NewOwner: fixtures.Alice.Account(),
			},
			expected: fault.ErrOwnerMustChange,
		},
		{
			name: "invalid asset",
			request: flow.Request{
				Command: transactionrecord.Originate,
				Asset: func() *transactionrecord.AssetState {
					state := fixtures.Parcel("P-1", fixtures.Alice.Account(), fixtures.Bob.Account())
					state.Value = -1
					return state
				}(),
			},
			expected: fault.ErrValueNotPositive,
		},
		{
			name:     "unknown command",
			request:  flow.Request{Command: transactionrecord.InvalidCommand},
			expected: fault.ErrUnrecognisedCommand,
		},
	}

	for _, test := range tests {
		_, err := i.Initiate(context.Background(), test.request)
		assert.Equal(t, test.expected, errors.Cause(err), test.name)
	}
}
