// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messaging

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/bitmark-inc/assetflow/account"
)

// Session - one end of an in-memory session
type Session struct {
	id           uuid.UUID
	counterparty *account.Account
	in           *route
	out          *route
	closeOnce    sync.Once
}

// create both ends of a session between two parties
func newSessionPair(initiator *account.Account, responder *account.Account, capacity int) (*Session, *Session) {
	id := uuid.New()
	forward := newRoute(id.String()+"/"+responder.String(), capacity)
	backward := newRoute(id.String()+"/"+initiator.String(), capacity)

	local := &Session{
		id:           id,
		counterparty: responder,
		in:           backward,
		out:          forward,
	}
	remote := &Session{
		id:           id,
		counterparty: initiator,
		in:           forward,
		out:          backward,
	}
	return local, remote
}

// Id - identifier shared by both ends
func (s *Session) Id() uuid.UUID {
	return s.id
}

// Counterparty - the party at the other end
func (s *Session) Counterparty() *account.Account {
	return s.counterparty
}

// Send - deliver a payload to the other end
func (s *Session) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); nil != err {
		return err
	}
	return s.out.enqueue(payload)
}

// Receive - wait for the next payload from the other end
func (s *Session) Receive(ctx context.Context) ([]byte, error) {
	return s.in.dequeue(ctx)
}

// Close - end the session in both directions
//
// the other end can still receive what was already sent
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.out.close()
		s.in.close()
	})
}
