// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fixtures - shared test setup: logging and deterministic parties
package fixtures

import (
	"bytes"
	"fmt"
	"os"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/assetflow/account"
)

const (
	dir         = "testing"
	LogCategory = "testing"
)

// deterministic keys for the usual cast of test parties
var (
	Alice  = Key(0x0a)
	Bob    = Key(0x0b)
	Carol  = Key(0x0c)
	Dave   = Key(0x0d)
	Notary = Key(0xee)
)

// Key - private key from a seed of 32 repeated bytes
func Key(b byte) *account.PrivateKey {
	key, err := account.NewPrivateKey(bytes.Repeat([]byte{b}, 32))
	if nil != err {
		panic(err)
	}
	return key
}

// SetupTestLogger - start logging into a temporary directory
func SetupTestLogger() {
	removeFiles()
	_ = os.Mkdir(dir, 0700)

	logging := logger.Configuration{
		Directory: dir,
		File:      fmt.Sprintf("%s.log", LogCategory),
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)
}

// TeardownTestLogger - stop logging and remove its files
func TeardownTestLogger() {
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	err := os.RemoveAll(dir)
	if nil != err {
		fmt.Println("remove dir with error: ", err)
	}
}
