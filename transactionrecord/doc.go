// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package transactionrecord - asset states, commands and transactions
//
// Every record has a canonical packed form:
//
//	Varint64(tag) followed by its fields in declaration order
//
// strings, byte slices and accounts are prefixed by Varint64(length),
// lists by Varint64(count) and signed integers are zig-zag Varint64.
//
// A transaction is packed with its inputs sorted by reference, its
// outputs sorted by their packed bytes and its signers sorted and
// de-duplicated, so that every party computes the same identifier
// for the same proposal.  The identifier is the SHA3-256 digest of
// the packed transaction and is the message each signer signs.
package transactionrecord
