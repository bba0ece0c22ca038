// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli"
)

func runStates(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	party, err := checkParty(c, "party", m.sandbox)
	if nil != err {
		return err
	}

	states, err := party.Vault().LiveStates()
	if nil != err {
		return err
	}

	views := make([]stateView, 0, len(states))
	for _, item := range states {
		views = append(views, viewState(m.sandbox, item))
	}
	return printJson(m.w, views)
}
