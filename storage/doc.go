// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - maintain the on-disk data store
//
// maintain separate pools of a number of elements in key->value form
//
// This maintains a LevelDB database split into a series of tables.
// Each table is defined by a prefix byte that is obtained from the
// prefix tag in the struct defining the available tables, e.g.
//
//	type pools struct {
//		Transactions *storage.PoolHandle `prefix:"T"`
//		Live         *storage.PoolHandle `prefix:"L"`
//	}
//
// Notes:
//  1. each separate pool has a single byte prefix (to spread the keys in LevelDB)
//  2. the key 0x00 ++ "VERSION" holds the database version as big endian uint32
//  3. writes that must be atomic are collected in a Batch and committed together
package storage
