// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flow

import (
	"context"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/interfaces.go -package=mocks

// Notary - commits a fully signed transaction if none of its inputs
// were consumed before
//
// a conflict is reported as an error classified by fault.IsErrConflict
type Notary interface {
	Notarise(ctx context.Context, signed *transactionrecord.SignedTransaction) (*transactionrecord.Attestation, error)
}

// Session - ordered, bidirectional exchange with one counterparty
//
// timeouts and peer closure are reported as fault.ErrSessionTimeout
// and fault.ErrSessionClosed
type Session interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close()
	Counterparty() *account.Account
}

// Messaging - opens sessions to other parties
type Messaging interface {
	OpenSession(ctx context.Context, party *account.Account) (Session, error)
}

// Storage - a party's record of finalized transactions
//
// recording must be idempotent
type Storage interface {
	RecordTransaction(finalized *transactionrecord.FinalizedTransaction) error
}

// Policy - additional acceptance check a responder applies to a
// proposal that already passed validation
//
// a non-nil error rejects the proposal; its text is sent as the reason
type Policy func(tx *transactionrecord.Transaction) error
