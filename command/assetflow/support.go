// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
	"github.com/bitmark-inc/assetflow/node"
	"github.com/bitmark-inc/assetflow/transactionrecord"
)

// stateView - a live state as printed, with parties shown by name
type stateView struct {
	Ref          string            `json:"ref"`
	Identifier   string            `json:"identifier"`
	Owner        string            `json:"owner"`
	Counterparty string            `json:"counterparty"`
	Location     string            `json:"location,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Magnitude    int64             `json:"magnitude"`
	Value        int64             `json:"value"`
}

// resultView - outcome of a protocol run
type resultView struct {
	TxId    merkle.Digest `json:"txId"`
	Outputs []string      `json:"outputs,omitempty"`
	Warning string        `json:"warning,omitempty"`
}

func checkRequired(c *cli.Context, flag string) (string, error) {
	s := strings.TrimSpace(c.String(flag))
	if "" == s {
		return "", errors.Wrapf(ErrMissingFlag, "--%s", flag)
	}
	return s, nil
}

func checkParty(c *cli.Context, flag string, sandbox *node.Sandbox) (*node.Node, error) {
	name, err := checkRequired(c, flag)
	if nil != err {
		return nil, err
	}
	n, err := sandbox.Node(name)
	if nil != err {
		return nil, errors.Wrapf(ErrNotFoundParty, "%q", name)
	}
	return n, nil
}

func checkRef(c *cli.Context, flag string) (transactionrecord.StateRef, error) {
	s, err := checkRequired(c, flag)
	if nil != err {
		return transactionrecord.StateRef{}, err
	}
	ref, err := transactionrecord.StateRefFromString(s)
	if nil != err {
		return ref, errors.Wrapf(err, "--%s %q", flag, s)
	}
	return ref, nil
}

// checkAttributes - KEY=VALUE pairs; later keys replace earlier ones
func checkAttributes(items []string) (map[string]string, error) {
	if 0 == len(items) {
		return nil, nil
	}
	attributes := make(map[string]string, len(items))
	for _, item := range items {
		n := strings.IndexByte(item, '=')
		if n <= 0 {
			return nil, errors.Wrapf(ErrInvalidAttribute, "%q", item)
		}
		attributes[item[:n]] = item[n+1:]
	}
	return attributes, nil
}

// partyName - configured name of an account, or its base58 form
func partyName(sandbox *node.Sandbox, a *account.Account) string {
	if nil == a {
		return ""
	}
	if name, ok := sandbox.Lookup(a); ok {
		return name
	}
	return a.String()
}

func viewState(sandbox *node.Sandbox, item transactionrecord.StateAndRef) stateView {
	view := stateView{
		Ref: item.Ref.String(),
	}
	if state, ok := item.State.(*transactionrecord.AssetState); ok {
		view.Identifier = state.Identifier
		view.Owner = partyName(sandbox, state.Owner)
		view.Counterparty = partyName(sandbox, state.Counterparty)
		view.Location = state.Location
		view.Attributes = state.Attributes
		view.Magnitude = state.Magnitude
		view.Value = state.Value
	}
	return view
}

// result - a finalized transaction id with any distribution warning
func result(txId merkle.Digest, outputs int, err error) (*resultView, error) {
	view := &resultView{
		TxId: txId,
	}
	if nil != err {
		if fault.ErrDistributionIncomplete != errors.Cause(err) {
			return nil, err
		}
		view.Warning = err.Error()
	}
	for i := 0; i < outputs; i += 1 {
		view.Outputs = append(view.Outputs, transactionrecord.StateRef{TxId: txId, Index: uint64(i)}.String())
	}
	return view, nil
}
