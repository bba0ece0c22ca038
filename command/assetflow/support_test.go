// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

func flagContext(t *testing.T, values map[string]string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, value := range values {
		set.String(name, "", "")
		err := set.Set(name, value)
		assert.Nil(t, err, "set flag: %s", name)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestCheckAttributes(t *testing.T) {
	attributes, err := checkAttributes(nil)
	assert.Nil(t, err, "no attributes")
	assert.Nil(t, attributes, "empty map made")

	attributes, err = checkAttributes([]string{"colour=red", "note=a=b", "colour=blue", "empty="})
	assert.Nil(t, err, "attributes")
	assert.Equal(t, map[string]string{
		"colour": "blue",
		"note":   "a=b",
		"empty":  "",
	}, attributes, "attributes")

	for _, item := range []string{"colour", "=red", ""} {
		_, err := checkAttributes([]string{item})
		assert.Equal(t, ErrInvalidAttribute, errors.Cause(err), "accepted: %q", item)
	}
}

func TestCheckRef(t *testing.T) {
	expected := transactionrecord.StateRef{
		TxId:  merkle.NewDigest([]byte("tx")),
		Index: 3,
	}

	ref, err := checkRef(flagContext(t, map[string]string{"ref": " " + expected.String() + " "}), "ref")
	assert.Nil(t, err, "ref")
	assert.Equal(t, expected, ref, "ref")

	_, err = checkRef(flagContext(t, map[string]string{"ref": ""}), "ref")
	assert.Equal(t, ErrMissingFlag, errors.Cause(err), "missing ref")

	_, err = checkRef(flagContext(t, map[string]string{"ref": "tx:3"}), "ref")
	assert.Equal(t, fault.ErrNotLink, errors.Cause(err), "bad ref")
}

func TestResult(t *testing.T) {
	txId := merkle.NewDigest([]byte("tx"))

	view, err := result(txId, 1, nil)
	assert.Nil(t, err, "result")
	assert.Equal(t, txId, view.TxId, "txId")
	assert.Equal(t, []string{txId.String() + ":0"}, view.Outputs, "outputs")
	assert.Equal(t, "", view.Warning, "warning")

	view, err = result(txId, 0, errors.Wrap(fault.ErrDistributionIncomplete, "bob"))
	assert.Nil(t, err, "distribution failure is not fatal")
	assert.Equal(t, txId, view.TxId, "txId")
	assert.Nil(t, view.Outputs, "outputs")
	assert.Contains(t, view.Warning, "bob", "warning")

	_, err = result(txId, 1, errors.Wrap(fault.ErrProposalRejected, "policy"))
	assert.Equal(t, fault.ErrProposalRejected, errors.Cause(err), "rejection")
}
