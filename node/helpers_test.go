// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node_test

import (
	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/flow"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

func flowTransfer(input *transactionrecord.StateAndRef, newOwner *account.Account) flow.Request {
	return flow.Request{
		Command:  transactionrecord.Transfer,
		Input:    input,
		NewOwner: newOwner,
	}
}
