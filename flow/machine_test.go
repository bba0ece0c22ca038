// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetflow/fault"
)

func TestInitiatorHappyPath(t *testing.T) {
	m := NewMachine(InitiatorStateMap, StateBuilt)

	path := []State{
		StateLocallySigned,
		StateAwaitingCounterpartySignatures,
		StateFullySigned,
		StateSubmittedForNotarization,
		StateFinalized,
	}
	for _, next := range path {
		assert.Nil(t, m.Transition(next), "transition to: %s", next)
	}

	assert.Equal(t, StateFinalized, m.Current(), "wrong current state")
	assert.True(t, m.IsTerminal(), "finalized should be terminal")
	assert.Equal(t, append([]State{StateBuilt}, path...), m.History(), "wrong history")
}

func TestRejectedFromEveryNonTerminalState(t *testing.T) {
	for state, successors := range InitiatorStateMap {
		if 0 == len(successors) {
			continue
		}
		m := NewMachine(InitiatorStateMap, state)
		assert.Nil(t, m.Transition(StateRejected), "reject from: %s", state)
	}
	for state, successors := range ResponderStateMap {
		if 0 == len(successors) {
			continue
		}
		m := NewMachine(ResponderStateMap, state)
		assert.Nil(t, m.Transition(StateRejected), "reject from: %s", state)
	}
}

func TestTerminalStatesNeverLeave(t *testing.T) {
	for _, terminal := range []State{StateFinalized, StateRejected} {
		m := NewMachine(InitiatorStateMap, terminal)
		err := m.Transition(StateBuilt)
		assert.Equal(t, fault.ErrInvalidStateTransition, errorsCause(err), "leaving: %s", terminal)
		assert.Equal(t, terminal, m.Current(), "state changed")
	}
}

func TestSkippingStatesIsRefused(t *testing.T) {
	m := NewMachine(InitiatorStateMap, StateLocallySigned)
	err := m.Transition(StateSubmittedForNotarization)
	assert.True(t, fault.IsErrProcess(err), "wrong error class: %s", err)
	assert.Equal(t, []State{StateLocallySigned}, m.History(), "history changed")

	r := NewMachine(ResponderStateMap, StateReceived)
	err = r.Transition(StateSigned)
	assert.NotNil(t, err, "signed before validation")
}

func TestResponderNonSignerPath(t *testing.T) {
	m := NewMachine(ResponderStateMap, StateReceived)
	assert.Nil(t, m.Transition(StateValidated), "validate")
	assert.Nil(t, m.Transition(StateRecorded), "record")
	assert.True(t, m.IsTerminal(), "recorded should be terminal")
}
