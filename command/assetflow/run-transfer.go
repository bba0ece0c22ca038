// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli"
)

func runTransfer(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	owner, err := checkParty(c, "owner", m.sandbox)
	if nil != err {
		return err
	}

	ref, err := checkRef(c, "ref")
	if nil != err {
		return err
	}

	receiver, err := checkParty(c, "receiver", m.sandbox)
	if nil != err {
		return err
	}

	if m.verbose {
		fmt.Fprintf(m.e, "ref: %s\n", ref)
		fmt.Fprintf(m.e, "receiver: %s\n", receiver.Name())
		fmt.Fprintf(m.e, "sender: %s\n", owner.Name())
	}

	txId, err := owner.Transfer(context.Background(), ref, receiver.Account())
	view, err := result(txId, 1, err)
	if nil != err {
		return err
	}
	return printJson(m.w, view)
}
