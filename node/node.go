// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node - assemble one party from its key, database and
// network endpoint
//
// a node initiates transactions on request and runs a responder for
// every session another party opens to it
package node

import (
	"context"
	"time"

	"github.com/bitmark-inc/logger"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/background"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/flow"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/messaging"
	"github.com/bitmark-inc/assetflow/storage"
	"github.com/bitmark-inc/assetflow/transactionrecord"
	"github.com/bitmark-inc/assetflow/vault"
)

// Settings - protocol limits for a node
//
// a zero ProposalRate refuses every proposal; use rate.Inf for no limit
type Settings struct {
	SessionTimeout time.Duration
	InboxSize      int
	ProposalRate   rate.Limit
	ProposalBurst  int
	Policy         flow.Policy
}

// Node - one party
type Node struct {
	log       *logger.L
	name      string
	key       *account.PrivateKey
	network   *messaging.Network
	vault     *vault.Vault
	endpoint  *messaging.Endpoint
	initiator *flow.Initiator
	responder *flow.Responder
	processes *background.T
}

// New - join the network and start answering sessions
//
// the database must be open and is not closed by the node
func New(name string, key *account.PrivateKey, database *storage.Database, network *messaging.Network, notary flow.Notary, notaries []*account.Account, settings Settings) (*Node, error) {
	log := logger.New("node")

	v, err := vault.New(database, key.Account(), logger.New("vault"))
	if nil != err {
		return nil, err
	}

	endpoint, err := network.Join(key.Account(), settings.InboxSize)
	if nil != err {
		return nil, err
	}

	n := &Node{
		log:      log,
		name:     name,
		key:      key,
		network:  network,
		vault:    v,
		endpoint: endpoint,
		initiator: flow.NewInitiator(
			key,
			notaries,
			endpoint,
			notary,
			v,
			settings.SessionTimeout,
			logger.New("initiator"),
		),
		responder: flow.NewResponder(
			key,
			v,
			settings.Policy,
			rate.NewLimiter(settings.ProposalRate, settings.ProposalBurst),
			settings.SessionTimeout,
			logger.New("responder"),
		),
	}

	processes := background.Processes{
		&dispatcher{
			log:       log,
			name:      name,
			inbound:   endpoint.Inbound(),
			responder: n.responder,
		},
	}
	n.processes = background.Start(processes, nil)

	log.Infof("started: %s  account: %s", name, key.Account())
	return n, nil
}

// Stop - leave the network and wait for running responders
func (n *Node) Stop() {
	n.network.Leave(n.key.Account())
	n.processes.Stop()
	n.log.Infof("stopped: %s", n.name)
}

// Name - configured name of the party
func (n *Node) Name() string {
	return n.name
}

// Account - the party's identity
func (n *Node) Account() *account.Account {
	return n.key.Account()
}

// Vault - the party's finalized transactions and live states
func (n *Node) Vault() *vault.Vault {
	return n.vault
}

// Initiate - run the signing protocol as initiator
func (n *Node) Initiate(ctx context.Context, request flow.Request) (merkle.Digest, error) {
	return n.initiator.Initiate(ctx, request)
}

// Originate - create a new asset owned by this party
func (n *Node) Originate(ctx context.Context, asset *transactionrecord.AssetState) (merkle.Digest, error) {
	return n.Initiate(ctx, flow.Request{
		Command: transactionrecord.Originate,
		Asset:   asset,
	})
}

// Transfer - move a live state from this party's vault to a new owner
func (n *Node) Transfer(ctx context.Context, ref transactionrecord.StateRef, newOwner *account.Account) (merkle.Digest, error) {
	input, err := n.live(ref)
	if nil != err {
		return merkle.Digest{}, err
	}
	return n.Initiate(ctx, flow.Request{
		Command:  transactionrecord.Transfer,
		Input:    input,
		NewOwner: newOwner,
	})
}

// Retire - consume a live state from this party's vault
func (n *Node) Retire(ctx context.Context, ref transactionrecord.StateRef) (merkle.Digest, error) {
	input, err := n.live(ref)
	if nil != err {
		return merkle.Digest{}, err
	}
	return n.Initiate(ctx, flow.Request{
		Command: transactionrecord.Retire,
		Input:   input,
	})
}

func (n *Node) live(ref transactionrecord.StateRef) (*transactionrecord.StateAndRef, error) {
	input, err := n.vault.LiveState(ref)
	if nil != err {
		return nil, err
	}
	if nil == input {
		return nil, fault.ErrNotFound
	}
	return input, nil
}
