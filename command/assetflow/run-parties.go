// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetflow/account"
)

type partyView struct {
	Name    string           `json:"name"`
	Account *account.Account `json:"account"`
}

type partiesView struct {
	Notary  *account.Account `json:"notary"`
	Parties []partyView      `json:"parties"`
}

func runParties(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	view := partiesView{
		Notary:  m.sandbox.Notary().Account(),
		Parties: make([]partyView, 0),
	}
	for _, name := range m.sandbox.Names() {
		n, err := m.sandbox.Node(name)
		if nil != err {
			return err
		}
		view.Parties = append(view.Parties, partyView{
			Name:    name,
			Account: n.Account(),
		})
	}

	return printJson(m.w, view)
}
