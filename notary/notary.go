// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package notary - single node notary guaranteeing each state is
// consumed at most once
//
// Pools:
//
//	C ++ txId ++ index   - consumed state references
//	                       data: txId of the consuming transaction
//	T ++ txId            - committed transactions
//	                       data: packed finalized transaction
//
// All submissions pass through one lock: every input is checked and
// then all consumption records are written in a single batch.
package notary

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/storage"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

// DatabaseVersion - layout version of the commit log
const DatabaseVersion = 1

type pools struct {
	Consumed  *storage.PoolHandle `prefix:"C"`
	Committed *storage.PoolHandle `prefix:"T"`
}

// ConflictError - some inputs were already consumed by another
// finalized transaction
type ConflictError struct {
	TxId      merkle.Digest
	Conflicts []transactionrecord.StateRef
}

// Error - list the conflicting references
func (e *ConflictError) Error() string {
	refs := make([]string, len(e.Conflicts))
	for i, ref := range e.Conflicts {
		refs[i] = ref.String()
	}
	return fault.ErrInputsAlreadyConsumed.Error() + ": " + strings.Join(refs, ", ")
}

// Unwrap - classify as a conflict
func (e *ConflictError) Unwrap() error {
	return fault.ErrInputsAlreadyConsumed
}

// Notary - commit log for one notary identity
type Notary struct {
	sync.Mutex
	log      *logger.L
	key      *account.PrivateKey
	database *storage.Database
	pools    pools
	clock    func() time.Time
}

// New - notary signing with the given key, committing to an open database
func New(database *storage.Database, key *account.PrivateKey, log *logger.L) (*Notary, error) {
	n := &Notary{
		log:      log,
		key:      key,
		database: database,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	if err := database.Pools(&n.pools); nil != err {
		return nil, err
	}
	return n, nil
}

// Account - the notary identity transactions must name
func (n *Notary) Account() *account.Account {
	return n.key.Account()
}

// Notarise - commit a fully signed transaction
//
// returns the attestation, or a *ConflictError if any input was
// already consumed by a different transaction.  Resubmitting a
// committed transaction returns its original attestation.
func (n *Notary) Notarise(ctx context.Context, signed *transactionrecord.SignedTransaction) (*transactionrecord.Attestation, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	if !n.Account().Equal(signed.Transaction.Notary) {
		return nil, fault.ErrWrongNotary
	}
	if err := signed.VerifyComplete(); nil != err {
		return nil, err
	}

	txId := signed.Id()

	n.Lock()
	defer n.Unlock()

	previous, err := n.committed(txId)
	if nil != err {
		return nil, err
	}
	if nil != previous {
		n.log.Infof("already committed: %s", txId)
		return previous.Attestation, nil
	}

	conflicts := make([]transactionrecord.StateRef, 0)
	for _, input := range signed.Transaction.Inputs {
		consumer, err := n.pools.Consumed.Get(input.Ref.Bytes())
		if nil != err {
			return nil, err
		}
		if nil != consumer {
			conflicts = append(conflicts, input.Ref)
		}
	}
	if 0 != len(conflicts) {
		n.log.Warnf("conflict: %s  inputs: %v", txId, conflicts)
		return nil, &ConflictError{
			TxId:      txId,
			Conflicts: conflicts,
		}
	}

	attestation := transactionrecord.NewAttestation(n.key, txId, n.clock())
	finalized := &transactionrecord.FinalizedTransaction{
		Signed:      signed,
		Attestation: attestation,
	}
	packed, err := finalized.Pack()
	if nil != err {
		return nil, err
	}

	batch := n.database.NewBatch()
	for _, input := range signed.Transaction.Inputs {
		batch.Put(n.pools.Consumed, input.Ref.Bytes(), txId[:])
	}
	batch.Put(n.pools.Committed, txId[:], packed)
	if err := batch.Commit(); nil != err {
		n.log.Errorf("commit: %s  error: %s", txId, err)
		return nil, err
	}

	n.log.Infof("committed: %s  inputs: %d", txId, len(signed.Transaction.Inputs))
	return attestation, nil
}

// ConsumedBy - the transaction that consumed a state
//
// second result is false if the state has not been consumed
func (n *Notary) ConsumedBy(ref transactionrecord.StateRef) (merkle.Digest, bool, error) {
	var txId merkle.Digest
	value, err := n.pools.Consumed.Get(ref.Bytes())
	if nil != err || nil == value {
		return txId, false, err
	}
	if err := merkle.DigestFromBytes(&txId, value); nil != err {
		return txId, false, err
	}
	return txId, true, nil
}

// Transaction - a committed transaction with its attestation
func (n *Notary) Transaction(txId merkle.Digest) (*transactionrecord.FinalizedTransaction, error) {
	finalized, err := n.committed(txId)
	if nil != err {
		return nil, err
	}
	if nil == finalized {
		return nil, fault.ErrNotFound
	}
	return finalized, nil
}

func (n *Notary) committed(txId merkle.Digest) (*transactionrecord.FinalizedTransaction, error) {
	packed, err := n.pools.Committed.Get(txId[:])
	if nil != err || nil == packed {
		return nil, err
	}
	return transactionrecord.UnpackFinalizedTransaction(packed)
}
