// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messaging - in-process network of parties
//
// each party joins the network and receives an endpoint; opening a
// session to another party queues the far end of the session on that
// party's inbox, from which its node starts a responder
package messaging

import (
	"context"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/flow"
	"github.com/bitmark-inc/assetflow/messagebus"
)

// Network - all joined parties
type Network struct {
	sync.RWMutex
	log       *logger.L
	endpoints map[string]*Endpoint
	capacity  int
}

// NewNetwork - empty network
func NewNetwork(log *logger.L) *Network {
	return &Network{
		log:       log,
		endpoints: make(map[string]*Endpoint),
		capacity:  DefaultMaxMessages,
	}
}

// Join - attach a party; inboxSize bounds the number of sessions
// waiting to be accepted
func (n *Network) Join(party *account.Account, inboxSize int) (*Endpoint, error) {
	n.Lock()
	defer n.Unlock()

	key := party.String()
	if _, ok := n.endpoints[key]; ok {
		return nil, fault.ErrAlreadyInitialised
	}
	e := &Endpoint{
		network: n,
		party:   party,
		inbox:   messagebus.New(inboxSize),
	}
	n.endpoints[key] = e
	n.log.Infof("joined: %s", key)
	return e, nil
}

// Leave - detach a party; later sessions to it fail
func (n *Network) Leave(party *account.Account) {
	n.Lock()
	defer n.Unlock()

	key := party.String()
	if e, ok := n.endpoints[key]; ok {
		e.inbox.Close()
		delete(n.endpoints, key)
		n.log.Infof("left: %s", key)
	}
}

func (n *Network) lookup(party *account.Account) *Endpoint {
	n.RLock()
	defer n.RUnlock()
	return n.endpoints[party.String()]
}

// Endpoint - one party's attachment to the network
type Endpoint struct {
	network *Network
	party   *account.Account
	inbox   *messagebus.Queue
}

// Account - the party owning this endpoint
func (e *Endpoint) Account() *account.Account {
	return e.party
}

// Inbound - sessions opened by other parties
//
// each message item is a flow.Session, From is the opener
func (e *Endpoint) Inbound() <-chan messagebus.Message {
	return e.inbox.Chan()
}

// OpenSession - start a session with another party
func (e *Endpoint) OpenSession(ctx context.Context, party *account.Account) (flow.Session, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	if nil == party {
		return nil, fault.ErrMissingAccount
	}

	remote := e.network.lookup(party)
	if nil == remote {
		return nil, errors.Wrapf(fault.ErrPartyNotReachable, "party: %s", party)
	}

	local, far := newSessionPair(e.party, party, e.network.capacity)
	if !remote.inbox.Send(e.party.String(), far) {
		local.Close()
		return nil, errors.Wrapf(fault.ErrPartyNotReachable, "party: %s inbox refused session", party)
	}

	e.network.log.Debugf("session: %s  from: %s  to: %s", local.Id(), e.party, party)
	return local, nil
}
