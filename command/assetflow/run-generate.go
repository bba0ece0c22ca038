// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetflow/account"
)

type generatedParty struct {
	Seed    string           `json:"seed"`
	Account *account.Account `json:"account"`
}

func runGenerate(c *cli.Context) error {

	privateKey, err := account.GeneratePrivateKey(nil)
	if nil != err {
		return err
	}

	if c.GlobalBool("verbose") {
		fmt.Fprintf(c.App.ErrWriter, "account: %s\n", privateKey.Account())
	}

	return printJson(c.App.Writer, generatedParty{
		Seed:    hex.EncodeToString(privateKey.PrivateKey.Seed()),
		Account: privateKey.Account(),
	})
}
