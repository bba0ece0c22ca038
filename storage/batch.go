// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/bitmark-inc/assetflow/fault"
)

// Batch - writes to any pools of one database that commit together
type Batch struct {
	database *Database
	batch    *leveldb.Batch
}

// NewBatch - start collecting writes
func (d *Database) NewBatch() *Batch {
	return &Batch{
		database: d,
		batch:    new(leveldb.Batch),
	}
}

// Put - queue a key/value pair for a pool
func (b *Batch) Put(pool *PoolHandle, key []byte, value []byte) {
	b.batch.Put(pool.prefixKey(key), value)
}

// Delete - queue removal of a key from a pool
func (b *Batch) Delete(pool *PoolHandle, key []byte) {
	b.batch.Delete(pool.prefixKey(key))
}

// Len - number of queued writes
func (b *Batch) Len() int {
	return b.batch.Len()
}

// Commit - write everything queued atomically and reset
func (b *Batch) Commit() error {
	b.database.RLock()
	defer b.database.RUnlock()
	if nil == b.database.db {
		return fault.ErrDatabaseIsNotSet
	}
	err := b.database.db.Write(b.batch, nil)
	b.batch.Reset()
	return err
}
