// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package vault - one party's record of finalized transactions
//
// Pools:
//
//	T ++ txId            - finalized transactions
//	                       data: packed finalized transaction
//	L ++ txId ++ index   - live states in which this party participates
//	                       data: packed state
package vault

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/storage"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

// DatabaseVersion - layout version of the vault database
const DatabaseVersion = 1

type pools struct {
	Transactions *storage.PoolHandle `prefix:"T"`
	Live         *storage.PoolHandle `prefix:"L"`
}

// Vault - finalized transactions and live states of one party
type Vault struct {
	sync.Mutex
	log      *logger.L
	party    *account.Account
	database *storage.Database
	pools    pools
}

// New - vault for a party stored in an open database
func New(database *storage.Database, party *account.Account, log *logger.L) (*Vault, error) {
	v := &Vault{
		log:      log,
		party:    party,
		database: database,
	}
	if err := database.Pools(&v.pools); nil != err {
		return nil, err
	}
	return v, nil
}

// RecordTransaction - store a finalized transaction
//
// consumed inputs leave the live set and outputs in which this party
// participates join it; recording the same transaction again is a no-op
func (v *Vault) RecordTransaction(finalized *transactionrecord.FinalizedTransaction) error {
	if err := finalized.Verify(); nil != err {
		return err
	}

	txId := finalized.Id()
	packed, err := finalized.Pack()
	if nil != err {
		return err
	}

	v.Lock()
	defer v.Unlock()

	found, err := v.pools.Transactions.Has(txId[:])
	if nil != err {
		return err
	}
	if found {
		v.log.Debugf("already recorded: %s", txId)
		return nil
	}

	batch := v.database.NewBatch()
	batch.Put(v.pools.Transactions, txId[:], packed)

	tx := finalized.Signed.Transaction
	for _, input := range tx.Inputs {
		batch.Delete(v.pools.Live, input.Ref.Bytes())
	}
	for i, output := range tx.Outputs {
		if !account.Contains(output.Participants(), v.party) {
			continue
		}
		state, err := output.Pack()
		if nil != err {
			return err
		}
		ref := transactionrecord.StateRef{
			TxId:  txId,
			Index: uint64(i),
		}
		batch.Put(v.pools.Live, ref.Bytes(), state)
	}

	if err := batch.Commit(); nil != err {
		v.log.Errorf("record: %s  error: %s", txId, err)
		return err
	}

	v.log.Infof("recorded: %s  inputs: %d  outputs: %d", txId, len(tx.Inputs), len(tx.Outputs))
	return nil
}

// Transaction - fetch a recorded transaction
func (v *Vault) Transaction(txId merkle.Digest) (*transactionrecord.FinalizedTransaction, error) {
	packed, err := v.pools.Transactions.Get(txId[:])
	if nil != err {
		return nil, err
	}
	if nil == packed {
		return nil, fault.ErrNotFound
	}
	return transactionrecord.UnpackFinalizedTransaction(packed)
}

// TransactionIds - identifiers of every recorded transaction
func (v *Vault) TransactionIds() ([]merkle.Digest, error) {
	ids := make([]merkle.Digest, 0)
	err := v.pools.Transactions.NewFetchCursor().Map(func(key []byte, value []byte) error {
		var txId merkle.Digest
		if err := merkle.DigestFromBytes(&txId, key); nil != err {
			return err
		}
		ids = append(ids, txId)
		return nil
	})
	return ids, err
}

// LiveStates - unconsumed states in which this party participates
//
// ordered by reference
func (v *Vault) LiveStates() ([]transactionrecord.StateAndRef, error) {
	states := make([]transactionrecord.StateAndRef, 0)
	err := v.pools.Live.NewFetchCursor().Map(func(key []byte, value []byte) error {
		item, n, err := transactionrecord.Packed(value).Unpack()
		if nil != err {
			return err
		}
		state, ok := item.(*transactionrecord.AssetState)
		if !ok || n != len(value) {
			return fault.ErrUnknownStateTag
		}
		ref, err := transactionrecord.StateRefFromBytes(key)
		if nil != err {
			return err
		}
		states = append(states, transactionrecord.StateAndRef{
			State: state,
			Ref:   ref,
		})
		return nil
	})
	return states, err
}

// LiveState - a single live state by reference
func (v *Vault) LiveState(ref transactionrecord.StateRef) (*transactionrecord.StateAndRef, error) {
	value, err := v.pools.Live.Get(ref.Bytes())
	if nil != err {
		return nil, err
	}
	if nil == value {
		return nil, fault.ErrNotFound
	}
	item, _, err := transactionrecord.Packed(value).Unpack()
	if nil != err {
		return nil, err
	}
	state, ok := item.(*transactionrecord.AssetState)
	if !ok {
		return nil, fault.ErrUnknownStateTag
	}
	return &transactionrecord.StateAndRef{
		State: state,
		Ref:   ref,
	}, nil
}
