// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"strings"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetflow/merkle"
)

func runTransactions(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	party, err := checkParty(c, "party", m.sandbox)
	if nil != err {
		return err
	}

	if s := strings.TrimSpace(c.String("txid")); "" != s {
		var txId merkle.Digest
		if err := txId.UnmarshalText([]byte(s)); nil != err {
			return err
		}
		finalized, err := party.Vault().Transaction(txId)
		if nil != err {
			return err
		}
		return printJson(m.w, finalized)
	}

	ids, err := party.Vault().TransactionIds()
	if nil != err {
		return err
	}
	return printJson(m.w, ids)
}
