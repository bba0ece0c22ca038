// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"path/filepath"
	"sort"

	"github.com/bitmark-inc/logger"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/messaging"
	"github.com/bitmark-inc/assetflow/notary"
	"github.com/bitmark-inc/assetflow/storage"
	"github.com/bitmark-inc/assetflow/vault"
)

// Sandbox - every configured party and the notary on one in-process
// network
type Sandbox struct {
	log       *logger.L
	network   *messaging.Network
	notary    *notary.Notary
	nodes     map[string]*Node
	databases []*storage.Database
}

// NewSandbox - open databases and start a node for each party
func NewSandbox(configuration *Configuration) (*Sandbox, error) {
	s := &Sandbox{
		log:     logger.New("node"),
		network: messaging.NewNetwork(logger.New("messaging")),
		nodes:   make(map[string]*Node),
	}

	notaryKey, err := account.PrivateKeyFromHexSeed(configuration.Notary.Seed)
	if nil != err {
		return nil, errors.Wrap(err, "notary seed")
	}
	notaryDatabase, err := s.open(configuration.Database, "notary", notary.DatabaseVersion)
	if nil != err {
		return nil, err
	}
	s.notary, err = notary.New(notaryDatabase, notaryKey, logger.New("notary"))
	if nil != err {
		s.Stop()
		return nil, err
	}
	notaries := []*account.Account{notaryKey.Account()}

	settings := configuration.Settings()
	for _, party := range configuration.Parties {
		key, err := account.PrivateKeyFromHexSeed(party.Seed)
		if nil != err {
			s.Stop()
			return nil, errors.Wrapf(err, "party: %s seed", party.Name)
		}
		database, err := s.open(configuration.Database, party.Name, vault.DatabaseVersion)
		if nil != err {
			s.Stop()
			return nil, err
		}
		n, err := New(party.Name, key, database, s.network, s.notary, notaries, settings)
		if nil != err {
			s.Stop()
			return nil, errors.Wrapf(err, "party: %s", party.Name)
		}
		s.nodes[party.Name] = n
	}
	return s, nil
}

func (s *Sandbox) open(database DatabaseType, name string, version int) (*storage.Database, error) {
	var db *storage.Database
	var err error
	if database.Memory {
		db, err = storage.OpenMemory(version)
	} else {
		db, err = storage.Open(filepath.Join(database.Directory, name+".leveldb"), version, false)
	}
	if nil != err {
		return nil, errors.Wrapf(err, "database: %s", name)
	}
	s.databases = append(s.databases, db)
	return db, nil
}

// Node - the party with the configured name
func (s *Sandbox) Node(name string) (*Node, error) {
	n, ok := s.nodes[name]
	if !ok {
		return nil, errors.Wrapf(fault.ErrNotFound, "party: %q", name)
	}
	return n, nil
}

// Names - configured party names in order
func (s *Sandbox) Names() []string {
	names := make([]string, 0, len(s.nodes))
	for name := range s.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup - name of the party holding an account
func (s *Sandbox) Lookup(a *account.Account) (string, bool) {
	for name, n := range s.nodes {
		if n.Account().Equal(a) {
			return name, true
		}
	}
	return "", false
}

// Notary - the notary every party uses
func (s *Sandbox) Notary() *notary.Notary {
	return s.notary
}

// Stop - stop every node and close every database
func (s *Sandbox) Stop() {
	for _, n := range s.nodes {
		n.Stop()
	}
	s.nodes = make(map[string]*Node)
	for _, db := range s.databases {
		db.Close()
	}
	s.databases = nil
}
