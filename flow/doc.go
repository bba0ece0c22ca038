// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package flow - the multi-party signing protocol
//
// an Initiator builds and signs a transaction, collects the signatures
// of every other required signer over one session each, submits the
// fully signed transaction to its notary and then distributes the
// finalized transaction to every participant.
//
// a Responder runs for each inbound session: it re-validates a
// proposal before signing it, and records a finalized transaction it
// is sent.  Both sides step through a Machine whose StateMap refuses
// illegal transitions.
//
// messages on a session are CBOR encoded:
//
//	initiator                         responder
//	    Proposal  ------------------>
//	              <------------------  Signature | Reject
//	    Finality | Abort ----------->
//	              <------------------  Ack
package flow
