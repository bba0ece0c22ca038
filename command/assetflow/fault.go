// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/assetflow/fault"
)

// common errors - keep in alphabetic order
const (
	ErrInvalidAttribute = fault.InvalidError("attribute must be KEY=VALUE")
	ErrMissingFlag      = fault.InvalidError("required flag is missing")
	ErrNotFoundParty    = fault.NotFoundError("party name not found")
)
