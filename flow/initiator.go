// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flow

import (
	"context"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/builder"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

const (
	tracerName = "github.com/bitmark-inc/assetflow/flow"

	// DefaultSessionTimeout - bound on each exchange with counterparties
	DefaultSessionTimeout = 30 * time.Second

	// bound on best-effort abort delivery
	abortTimeout = 5 * time.Second
)

// Request - what the initiating party wants to happen
//
// Originate uses Asset; Transfer uses Input and NewOwner; Retire uses Input
type Request struct {
	Command  transactionrecord.CommandTag
	Asset    *transactionrecord.AssetState
	Input    *transactionrecord.StateAndRef
	NewOwner *account.Account
}

// Initiator - drives a transaction from proposal to finality
type Initiator struct {
	log       *logger.L
	key       *account.PrivateKey
	notaries  []*account.Account
	messaging Messaging
	notary    Notary
	storage   Storage
	timeout   time.Duration
	tracer    trace.Tracer
}

// NewInitiator - initiator for the party holding key
//
// a zero timeout selects DefaultSessionTimeout
func NewInitiator(key *account.PrivateKey, notaries []*account.Account, messaging Messaging, notary Notary, storage Storage, timeout time.Duration, log *logger.L) *Initiator {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Initiator{
		log:       log,
		key:       key,
		notaries:  notaries,
		messaging: messaging,
		notary:    notary,
		storage:   storage,
		timeout:   timeout,
		tracer:    otel.Tracer(tracerName),
	}
}

// Account - the initiating party
func (i *Initiator) Account() *account.Account {
	return i.key.Account()
}

// Initiate - build, sign, collect signatures, notarise and distribute
//
// a failure before notarisation leaves nothing persisted.  A failure
// to distribute after notarisation returns the transaction id with
// fault.ErrDistributionIncomplete; the transaction is still final.
func (i *Initiator) Initiate(ctx context.Context, request Request) (merkle.Digest, error) {
	ctx, span := i.tracer.Start(ctx, "flow.Initiate")
	defer span.End()
	span.SetAttributes(attribute.String("command", request.Command.String()))

	txId, err := i.initiate(ctx, request)
	if !txId.IsZero() {
		span.SetAttributes(attribute.String("tx_id", txId.String()))
	}
	if nil != err {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return txId, err
}

// one protocol instance
type initiation struct {
	*Initiator
	machine  *Machine
	signed   *transactionrecord.SignedTransaction
	txId     merkle.Digest
	sessions map[string]Session
}

func (i *Initiator) initiate(ctx context.Context, request Request) (merkle.Digest, error) {
	b, err := i.builder(request)
	if nil != err {
		return merkle.Digest{}, err
	}
	tx, err := b.Build()
	if nil != err {
		return merkle.Digest{}, err
	}
	if !tx.IsRequiredSigner(i.Account()) {
		return merkle.Digest{}, fault.ErrInitiatorNotSigner
	}

	run := &initiation{
		Initiator: i,
		machine:   NewMachine(InitiatorStateMap, StateBuilt),
		sessions:  make(map[string]Session),
	}
	defer run.close()

	signed, err := b.Sign(i.key)
	if nil != err {
		return merkle.Digest{}, run.reject(err)
	}
	run.signed = signed
	run.txId = signed.Id()
	if err := run.transition(StateLocallySigned); nil != err {
		return run.txId, err
	}

	i.log.Infof("initiate: %s  command: %s  signers: %d", run.txId, request.Command, len(tx.Signers))

	if err := run.transition(StateAwaitingCounterpartySignatures); nil != err {
		return run.txId, err
	}
	if err := run.collect(ctx); nil != err {
		run.abort(ctx, err.Error())
		return run.txId, run.reject(err)
	}
	if err := run.transition(StateFullySigned); nil != err {
		return run.txId, err
	}

	if err := run.transition(StateSubmittedForNotarization); nil != err {
		return run.txId, err
	}
	attestation, err := i.notary.Notarise(ctx, run.signed)
	if nil != err {
		i.log.Warnf("notarise: %s  error: %s", run.txId, err)
		run.abort(ctx, err.Error())
		return run.txId, run.reject(err)
	}

	finalized := &transactionrecord.FinalizedTransaction{
		Signed:      run.signed,
		Attestation: attestation,
	}
	if err := run.transition(StateFinalized); nil != err {
		return run.txId, err
	}
	if err := i.storage.RecordTransaction(finalized); nil != err {
		i.log.Errorf("record: %s  error: %s", run.txId, err)
		return run.txId, errors.Wrap(err, "record finalized transaction")
	}

	if err := run.distribute(ctx, finalized); nil != err {
		i.log.Warnf("distribute: %s  error: %s", run.txId, err)
		return run.txId, errors.Wrap(fault.ErrDistributionIncomplete, err.Error())
	}

	i.log.Infof("finalized: %s", run.txId)
	return run.txId, nil
}

// builder for the requested command
func (i *Initiator) builder(request Request) (*builder.Builder, error) {
	switch request.Command {
	case transactionrecord.Originate:
		if nil == request.Asset {
			return nil, fault.ErrOriginateOutputCount
		}
		if !i.Account().Equal(request.Asset.Owner) {
			return nil, fault.ErrInitiatorNotOwner
		}
		return builder.Originate(i.notaries, request.Asset)

	case transactionrecord.Transfer:
		if nil == request.Input {
			return nil, fault.ErrMissingInput
		}
		return builder.Transfer(i.notaries, *request.Input, request.NewOwner)

	case transactionrecord.Retire:
		if nil == request.Input {
			return nil, fault.ErrMissingInput
		}
		return builder.Retire(i.notaries, *request.Input)

	default:
		return nil, fault.ErrUnrecognisedCommand
	}
}

func (run *initiation) transition(next State) error {
	if err := run.machine.Transition(next); nil != err {
		run.log.Errorf("tx: %s  error: %s", run.txId, err)
		return err
	}
	run.log.Debugf("tx: %s  state: %s", run.txId, next)
	return nil
}

// reject - enter the terminal rejected state and pass the cause on
func (run *initiation) reject(cause error) error {
	if err := run.transition(StateRejected); nil != err {
		return err
	}
	run.log.Infof("rejected: %s  reason: %s", run.txId, cause)
	return cause
}

// collect - one session per counterparty signer, all under one timeout
func (run *initiation) collect(ctx context.Context) error {
	counterparties := make([]*account.Account, 0, len(run.signed.Transaction.Signers))
	for _, signer := range run.signed.MissingSigners() {
		if !signer.Equal(run.Account()) {
			counterparties = append(counterparties, signer)
		}
	}

	proposal, err := newProposal(run.signed)
	if nil != err {
		return err
	}
	payload, err := proposal.Encode()
	if nil != err {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, run.timeout)
	defer cancel()

	sessions := make([]Session, len(counterparties))
	signatures := make([]transactionrecord.TransactionSignature, len(counterparties))

	g, gctx := errgroup.WithContext(ctx)
	for n, signer := range counterparties {
		n, signer := n, signer
		g.Go(func() error {
			session, err := run.messaging.OpenSession(gctx, signer)
			if nil != err {
				return errors.Wrapf(err, "open session: %s", signer)
			}
			sessions[n] = session

			if err := session.Send(gctx, payload); nil != err {
				return errors.Wrapf(err, "propose to: %s", signer)
			}
			s, err := run.awaitSignature(gctx, session)
			if nil != err {
				return errors.Wrapf(err, "signer: %s", signer)
			}
			signatures[n] = s
			return nil
		})
	}
	err = g.Wait()

	for n, session := range sessions {
		if nil != session {
			run.sessions[string(counterparties[n].Bytes())] = session
		}
	}
	if nil != err {
		return err
	}

	for _, s := range signatures {
		if err := run.signed.AddSignature(s); nil != err {
			return err
		}
	}
	return run.signed.VerifyComplete()
}

// awaitSignature - the counterparty's answer to a proposal
func (run *initiation) awaitSignature(ctx context.Context, session Session) (transactionrecord.TransactionSignature, error) {
	none := transactionrecord.TransactionSignature{}

	message, err := run.receive(ctx, session)
	if nil != err {
		return none, err
	}

	switch message.Type {
	case MessageTypeSignature:
		s, err := message.TransactionSignature()
		if nil != err {
			return none, err
		}
		if !s.Signer.Equal(session.Counterparty()) {
			return none, fault.ErrInvalidSignature
		}
		if err := s.Verify(run.txId); nil != err {
			return none, err
		}
		return s, nil

	case MessageTypeReject:
		if message.Conflict {
			return none, errors.Wrap(fault.ErrProposalConflict, message.Reason)
		}
		return none, errors.Wrap(fault.ErrProposalRejected, message.Reason)

	default:
		return none, errors.Wrapf(fault.ErrMessageTypeUnexpected, "%s", message.Type)
	}
}

// receive - next message, which must refer to this transaction
func (run *initiation) receive(ctx context.Context, session Session) (*Message, error) {
	payload, err := session.Receive(ctx)
	if nil != err {
		return nil, err
	}
	message, err := DecodeMessage(payload)
	if nil != err {
		return nil, err
	}
	txId, err := message.Id()
	if nil != err || txId != run.txId {
		return nil, fault.ErrWrongTransaction
	}
	return message, nil
}

// abort - tell every open session the transaction will not complete
func (run *initiation) abort(ctx context.Context, reason string) {
	if 0 == len(run.sessions) {
		return
	}
	payload, err := newReason(MessageTypeAbort, run.txId, reason).Encode()
	if nil != err {
		run.log.Errorf("abort: %s  encode error: %s", run.txId, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	for _, session := range run.sessions {
		if err := session.Send(ctx, payload); nil != err {
			run.log.Debugf("abort: %s  to: %s  error: %s", run.txId, session.Counterparty(), err)
		}
	}
}

// distribute - send finality to every other participant and wait for
// each acknowledgement
func (run *initiation) distribute(ctx context.Context, finalized *transactionrecord.FinalizedTransaction) error {
	message, err := newFinality(finalized)
	if nil != err {
		return err
	}
	payload, err := message.Encode()
	if nil != err {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, run.timeout)
	defer cancel()

	participants := make([]*account.Account, 0)
	for _, party := range run.signed.Transaction.Participants() {
		if party.Equal(run.Account()) {
			continue
		}
		participants = append(participants, party)
	}

	sessions := make([]Session, len(participants))
	for n, party := range participants {
		if session, ok := run.sessions[string(party.Bytes())]; ok {
			sessions[n] = session
		}
	}

	g := errgroup.Group{}
	for n, party := range participants {
		n, party := n, party
		g.Go(func() error {
			session := sessions[n]
			if nil == session {
				s, err := run.messaging.OpenSession(ctx, party)
				if nil != err {
					return errors.Wrapf(err, "open session: %s", party)
				}
				session = s
				sessions[n] = s
			}
			if err := session.Send(ctx, payload); nil != err {
				return errors.Wrapf(err, "finality to: %s", party)
			}
			ack, err := run.receive(ctx, session)
			if nil != err {
				return errors.Wrapf(err, "participant: %s", party)
			}
			if MessageTypeAck != ack.Type {
				return errors.Wrapf(fault.ErrMessageTypeUnexpected, "participant: %s  message: %s", party, ack.Type)
			}
			return nil
		})
	}
	err = g.Wait()

	for n, session := range sessions {
		if nil != session {
			run.sessions[string(participants[n].Bytes())] = session
		}
	}
	return err
}

// close every session this instance opened
func (run *initiation) close() {
	for _, session := range run.sessions {
		session.Close()
	}
}
