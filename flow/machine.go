// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package flow

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/assetflow/fault"
)

// State - a named protocol state
type State struct {
	Id   uint
	Name string
}

// String - the state name
func (s State) String() string {
	return s.Name
}

// initiator states
var (
	StateBuilt                          = State{Id: 1, Name: "Built"}
	StateLocallySigned                  = State{Id: 2, Name: "LocallySigned"}
	StateAwaitingCounterpartySignatures = State{Id: 3, Name: "AwaitingCounterpartySignatures"}
	StateFullySigned                    = State{Id: 4, Name: "FullySigned"}
	StateSubmittedForNotarization       = State{Id: 5, Name: "SubmittedForNotarization"}
	StateFinalized                      = State{Id: 6, Name: "Finalized"}
	StateRejected                       = State{Id: 7, Name: "Rejected"}
)

// responder states, sharing StateRejected
var (
	StateReceived  = State{Id: 11, Name: "Received"}
	StateValidated = State{Id: 12, Name: "Validated"}
	StateSigned    = State{Id: 13, Name: "Signed"}
	StateRecorded  = State{Id: 14, Name: "Recorded"}
)

// StateMap - the states reachable from each state
//
// a state with no successors is terminal
type StateMap map[State][]State

// InitiatorStateMap - transitions of the party proposing a transaction
var InitiatorStateMap = StateMap{
	StateBuilt:                          {StateLocallySigned, StateRejected},
	StateLocallySigned:                  {StateAwaitingCounterpartySignatures, StateRejected},
	StateAwaitingCounterpartySignatures: {StateFullySigned, StateRejected},
	StateFullySigned:                    {StateSubmittedForNotarization, StateRejected},
	StateSubmittedForNotarization:       {StateFinalized, StateRejected},
	StateFinalized:                      {},
	StateRejected:                       {},
}

// ResponderStateMap - transitions of a party answering a session
//
// a participant that is not a signer goes from Validated straight to
// Recorded when it receives the finalized transaction
var ResponderStateMap = StateMap{
	StateReceived:  {StateValidated, StateRejected},
	StateValidated: {StateSigned, StateRecorded, StateRejected},
	StateSigned:    {StateRecorded, StateRejected},
	StateRecorded:  {},
	StateRejected:  {},
}

// Machine - one protocol instance's current state
type Machine struct {
	sync.Mutex
	stateMap StateMap
	current  State
	history  []State
}

// NewMachine - machine in its initial state
func NewMachine(stateMap StateMap, initial State) *Machine {
	return &Machine{
		stateMap: stateMap,
		current:  initial,
		history:  []State{initial},
	}
}

// Current - the current state
func (m *Machine) Current() State {
	m.Lock()
	defer m.Unlock()
	return m.current
}

// History - every state entered, oldest first
func (m *Machine) History() []State {
	m.Lock()
	defer m.Unlock()
	return append([]State{}, m.history...)
}

// IsTerminal - no further transition is possible
func (m *Machine) IsTerminal() bool {
	m.Lock()
	defer m.Unlock()
	return 0 == len(m.stateMap[m.current])
}

// Transition - move to the next state if the map allows it
func (m *Machine) Transition(next State) error {
	m.Lock()
	defer m.Unlock()
	for _, allowed := range m.stateMap[m.current] {
		if allowed == next {
			m.current = next
			m.history = append(m.history, next)
			return nil
		}
	}
	return errors.Wrapf(fault.ErrInvalidStateTransition, "%s → %s", m.current, next)
}
