// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flow

import (
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/transactionrecord"
	"github.com/bitmark-inc/assetflow/validator"
)

const (
	// an input signed for stays reserved this many session timeouts
	// unless the initiator aborts first
	pendingExpiryFactor = 4
)

// Outcome - how a responder session ended
//
// State is StateRecorded or StateRejected, or StateSigned when the
// session failed after signing and the outcome is unknown
type Outcome struct {
	State  State
	TxId   merkle.Digest
	Reason string
}

// Responder - answers proposals and finality for one party
//
// safe for concurrent use; one Respond call per inbound session
type Responder struct {
	log     *logger.L
	key     *account.PrivateKey
	storage Storage
	policy  Policy
	limiter *rate.Limiter
	timeout time.Duration
	tracer  trace.Tracer

	pendingLock sync.Mutex
	pending     *cache.Cache
}

// NewResponder - responder for the party holding key
//
// policy and limiter are optional.  A zero timeout selects
// DefaultSessionTimeout.
func NewResponder(key *account.PrivateKey, storage Storage, policy Policy, limiter *rate.Limiter, timeout time.Duration, log *logger.L) *Responder {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Responder{
		log:     log,
		key:     key,
		storage: storage,
		policy:  policy,
		limiter: limiter,
		timeout: timeout,
		tracer:  otel.Tracer(tracerName),
		pending: cache.New(pendingExpiryFactor*timeout, 0),
	}
}

// Respond - run the responder side of one session
//
// the returned error reports a session or storage failure; a proposal
// refused by this party is a nil error with a rejected outcome
func (r *Responder) Respond(ctx context.Context, session Session) (*Outcome, error) {
	ctx, span := r.tracer.Start(ctx, "flow.Respond")
	defer span.End()
	if nil != session.Counterparty() {
		span.SetAttributes(attribute.String("counterparty", session.Counterparty().String()))
	}

	outcome, err := r.respond(ctx, session)
	if nil != outcome {
		span.SetAttributes(
			attribute.String("state", outcome.State.String()),
			attribute.String("tx_id", outcome.TxId.String()),
		)
	}
	if nil != err {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return outcome, err
}

// one responder instance
type response struct {
	*Responder
	machine *Machine
	session Session
	txId    merkle.Digest
}

func (r *Responder) respond(ctx context.Context, session Session) (*Outcome, error) {
	run := &response{
		Responder: r,
		machine:   NewMachine(ResponderStateMap, StateReceived),
		session:   session,
	}

	message, err := run.receive(ctx)
	if nil != err {
		return run.fail(err)
	}
	txId, err := message.Id()
	if nil != err {
		return run.fail(err)
	}
	run.txId = txId

	switch message.Type {
	case MessageTypeProposal:
		return run.proposal(ctx, message)
	case MessageTypeFinality:
		return run.record(ctx, message)
	default:
		return run.fail(errors.Wrapf(fault.ErrMessageTypeUnexpected, "first message: %s", message.Type))
	}
}

// proposal - decide whether to sign, then wait for the result
func (run *response) proposal(ctx context.Context, message *Message) (*Outcome, error) {
	signed, err := transactionrecord.UnpackSignedTransaction(message.Transaction)
	if nil != err {
		return run.refuse(ctx, err)
	}
	if signed.Id() != run.txId {
		return run.refuse(ctx, fault.ErrWrongTransaction)
	}
	if err := run.check(signed); nil != err {
		return run.refuse(ctx, err)
	}
	if err := run.transition(StateValidated); nil != err {
		return run.fail(err)
	}

	if nil != run.limiter && !run.limiter.Allow() {
		return run.refuse(ctx, fault.ErrProposalRateLimited)
	}
	if err := run.reserve(signed.Transaction); nil != err {
		return run.refuse(ctx, err)
	}
	if nil != run.policy {
		if err := run.policy(signed.Transaction); nil != err {
			run.release(signed.Transaction)
			return run.refuse(ctx, err)
		}
	}

	s, err := signed.Sign(run.key)
	if nil != err {
		run.release(signed.Transaction)
		return run.refuse(ctx, err)
	}
	if err := run.send(ctx, newSignature(run.txId, s)); nil != err {
		run.release(signed.Transaction)
		return run.fail(err)
	}
	if err := run.transition(StateSigned); nil != err {
		return run.fail(err)
	}
	run.log.Infof("signed: %s  for: %s", run.txId, run.session.Counterparty())

	reply, err := run.receive(ctx)
	if nil != err {
		// the initiator may still notarise; the reservation expires
		run.log.Warnf("after signing: %s  error: %s", run.txId, err)
		return run.outcome(""), err
	}
	switch reply.Type {
	case MessageTypeAbort:
		run.release(signed.Transaction)
		run.log.Infof("aborted: %s  reason: %s", run.txId, reply.Reason)
		if err := run.transition(StateRejected); nil != err {
			return run.fail(err)
		}
		return run.outcome(reply.Reason), nil

	case MessageTypeFinality:
		outcome, err := run.record(ctx, reply)
		if nil == err {
			run.release(signed.Transaction)
		}
		return outcome, err

	default:
		return run.fail(errors.Wrapf(fault.ErrMessageTypeUnexpected, "after signing: %s", reply.Type))
	}
}

// check - never trust the proposer
func (run *response) check(signed *transactionrecord.SignedTransaction) error {
	if !signed.Transaction.IsRequiredSigner(run.key.Account()) {
		return fault.ErrNotARequiredSigner
	}
	if signed.HasSigned(run.key.Account()) {
		return fault.ErrDuplicateSignature
	}
	if err := signed.Verify(); nil != err {
		return err
	}
	return validator.Validate(signed.Transaction)
}

// record - verify a finalized transaction, store it and acknowledge
//
// a participant that did not sign arrives here from StateReceived
func (run *response) record(ctx context.Context, message *Message) (*Outcome, error) {
	finalized, err := transactionrecord.UnpackFinalizedTransaction(message.Transaction)
	if nil != err {
		return run.fail(err)
	}
	if finalized.Id() != run.txId {
		return run.fail(fault.ErrWrongTransaction)
	}
	if err := finalized.Verify(); nil != err {
		return run.fail(err)
	}
	if !account.Contains(finalized.Signed.Transaction.Participants(), run.key.Account()) {
		return run.fail(fault.ErrNotAParticipant)
	}
	if err := validator.Validate(finalized.Signed.Transaction); nil != err {
		return run.fail(err)
	}
	if StateReceived == run.machine.Current() {
		if err := run.transition(StateValidated); nil != err {
			return run.fail(err)
		}
	}

	if err := run.storage.RecordTransaction(finalized); nil != err {
		run.log.Errorf("record: %s  error: %s", run.txId, err)
		return run.fail(errors.Wrap(err, "record finalized transaction"))
	}
	if err := run.transition(StateRecorded); nil != err {
		return run.fail(err)
	}
	run.log.Infof("recorded: %s", run.txId)

	if err := run.send(ctx, newAck(run.txId)); nil != err {
		return run.outcome(""), err
	}
	return run.outcome(""), nil
}

// refuse - tell the initiator why and end the session
func (run *response) refuse(ctx context.Context, cause error) (*Outcome, error) {
	reason := cause.Error()
	run.log.Infof("refuse: %s  from: %s  reason: %s", run.txId, run.session.Counterparty(), reason)
	if err := run.send(ctx, newRejection(run.txId, cause)); nil != err {
		run.log.Debugf("refuse: %s  send error: %s", run.txId, err)
	}
	if err := run.transition(StateRejected); nil != err {
		return run.fail(err)
	}
	return run.outcome(reason), nil
}

// fail - the session cannot continue
func (run *response) fail(cause error) (*Outcome, error) {
	run.log.Warnf("session: %s  error: %s", run.txId, cause)
	if !run.machine.IsTerminal() && StateSigned != run.machine.Current() {
		_ = run.machine.Transition(StateRejected)
	}
	return run.outcome(cause.Error()), cause
}

func (run *response) outcome(reason string) *Outcome {
	return &Outcome{
		State:  run.machine.Current(),
		TxId:   run.txId,
		Reason: reason,
	}
}

func (run *response) transition(next State) error {
	if err := run.machine.Transition(next); nil != err {
		return err
	}
	run.log.Debugf("tx: %s  state: %s", run.txId, next)
	return nil
}

func (run *response) send(ctx context.Context, message *Message) error {
	payload, err := message.Encode()
	if nil != err {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, run.timeout)
	defer cancel()
	return run.session.Send(ctx, payload)
}

func (run *response) receive(ctx context.Context) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, run.timeout)
	defer cancel()
	payload, err := run.session.Receive(ctx)
	if nil != err {
		return nil, err
	}
	message, err := DecodeMessage(payload)
	if nil != err {
		return nil, err
	}
	if !run.txId.IsZero() {
		txId, err := message.Id()
		if nil != err || txId != run.txId {
			return nil, fault.ErrWrongTransaction
		}
	}
	return message, nil
}

// reserve - refuse to sign for an input already signed for in a
// different pending transaction
func (run *response) reserve(tx *transactionrecord.Transaction) error {
	run.pendingLock.Lock()
	defer run.pendingLock.Unlock()

	for _, input := range tx.Inputs {
		if other, found := run.pending.Get(string(input.Ref.Bytes())); found && other.(merkle.Digest) != run.txId {
			return errors.Wrapf(fault.ErrStateAlreadyPending, "input: %s  pending: %s", input.Ref, other)
		}
	}
	for _, input := range tx.Inputs {
		run.pending.SetDefault(string(input.Ref.Bytes()), run.txId)
	}
	return nil
}

// release - drop reservations still held by this transaction
func (run *response) release(tx *transactionrecord.Transaction) {
	run.pendingLock.Lock()
	defer run.pendingLock.Unlock()

	for _, input := range tx.Inputs {
		key := string(input.Ref.Bytes())
		if other, found := run.pending.Get(key); found && other.(merkle.Digest) == run.txId {
			run.pending.Delete(key)
		}
	}
}
