// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetflow/transactionrecord"
)

func runOriginate(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	owner, err := checkParty(c, "owner", m.sandbox)
	if nil != err {
		return err
	}

	counterparty, err := checkParty(c, "counterparty", m.sandbox)
	if nil != err {
		return err
	}

	identifier, err := checkRequired(c, "identifier")
	if nil != err {
		return err
	}

	attributes, err := checkAttributes(c.StringSlice("attribute"))
	if nil != err {
		return err
	}

	asset := &transactionrecord.AssetState{
		Identifier:   identifier,
		Owner:        owner.Account(),
		Counterparty: counterparty.Account(),
		Location:     c.String("location"),
		Attributes:   attributes,
		Magnitude:    c.Int64("magnitude"),
		Value:        c.Int64("value"),
	}

	if m.verbose {
		fmt.Fprintf(m.e, "owner: %s\n", owner.Name())
		fmt.Fprintf(m.e, "counterparty: %s\n", counterparty.Name())
		fmt.Fprintf(m.e, "identifier: %s\n", identifier)
	}

	txId, err := owner.Originate(context.Background(), asset)
	view, err := result(txId, 1, err)
	if nil != err {
		return err
	}
	return printJson(m.w, view)
}
