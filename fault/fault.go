// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"errors"
)

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ConflictError GenericError
type ExistsError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type ProtocolError GenericError
type ValidationError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised     = ExistsError("already initialised")
	ErrAlreadyRecorded        = ExistsError("transaction already recorded")
	ErrCannotDecodeAccount    = InvalidError("cannot decode account")
	ErrConfigurationFailed    = InvalidError("configuration file could not be read")
	ErrCannotDecodePrivateKey = InvalidError("cannot decode private key")
	ErrChecksumMismatch       = InvalidError("checksum mismatch")
	ErrDatabaseIsNotSet       = ProcessError("database is not set")
	ErrDistributionIncomplete = ProtocolError("finalized transaction was not distributed to every participant")
	ErrDuplicateSignature     = InvalidError("duplicate signature")
	ErrIncompatibleDatabase   = ProcessError("database version is not compatible")
	ErrInitiatorNotOwner      = InvalidError("initiating party must be the owner")
	ErrInitiatorNotSigner     = InvalidError("initiating party must be a required signer")
	ErrInputsAlreadyConsumed  = ConflictError("input state already consumed")
	ErrInvalidAttestation     = InvalidError("invalid notary attestation")
	ErrInvalidKeyLength       = InvalidError("invalid key length")
	ErrInvalidKeyType         = InvalidError("invalid key type")
	ErrInvalidStateTransition = ProcessError("invalid state transition")
	ErrInvalidStructPointer   = InvalidError("invalid struct pointer")
	ErrInvalidSignature       = InvalidError("invalid signature")
	ErrMessageMalformed       = ProtocolError("malformed message")
	ErrMessageTypeUnexpected  = ProtocolError("unexpected message type")
	ErrMissingAccount         = InvalidError("account must be set")
	ErrMissingInput           = InvalidError("transfer and retire require an input state")
	ErrMissingNewOwner        = InvalidError("transfer requires a new owner")
	ErrMissingSignatures      = InvalidError("transaction is missing required signatures")
	ErrNoNotaryAvailable      = NotFoundError("no notary available")
	ErrNotAPublicKey          = InvalidError("not a public key")
	ErrNotARequiredSigner     = InvalidError("party is not a required signer")
	ErrNotAParticipant        = InvalidError("party is not a participant")
	ErrNotFound               = NotFoundError("not found")
	ErrNotLink                = InvalidError("not a link")
	ErrNotTransactionPack     = InvalidError("not transaction pack")
	ErrPartyNotReachable      = ProtocolError("party is not reachable")
	ErrProposalRateLimited    = ProtocolError("too many proposals")
	ErrProposalConflict       = ConflictError("counterparty holds an input for another transaction")
	ErrProposalRejected       = ProtocolError("counterparty rejected the proposal")
	ErrSessionClosed          = ProtocolError("session closed by peer")
	ErrSessionTimeout         = ProtocolError("session timed out")
	ErrStateAlreadyPending    = ConflictError("input state is committed to another pending transaction")
	ErrTrailingBytes          = InvalidError("unexpected trailing bytes")
	ErrTransactionAborted     = ProtocolError("transaction aborted by initiator")
	ErrUnknownStateTag        = InvalidError("unknown state type")
	ErrWrongNotary            = InvalidError("transaction names a different notary")
	ErrWrongTransaction       = ProtocolError("message refers to a different transaction")

	// validation rule clauses
	ErrAmbiguousCommand          = ValidationError("unrecognized or ambiguous command")
	ErrCounterpartyMustBeSigner  = ValidationError("counterparty must be a required signer")
	ErrCounterpartyMustNotChange = ValidationError("counterparty must not change on transfer")
	ErrIdentifierEmpty           = ValidationError("identifier must not be empty")
	ErrInputNotAssetState        = ValidationError("input must be an asset state")
	ErrLocationEmpty             = ValidationError("location must not be empty")
	ErrMagnitudeNotPositive      = ValidationError("magnitude must be positive")
	ErrOriginateHasInputs        = ValidationError("originate must have no inputs")
	ErrOriginateOutputCount      = ValidationError("originate must have one output")
	ErrOutputNotAssetState       = ValidationError("output must be an asset state")
	ErrOwnerMustBeSigner         = ValidationError("owner must be a required signer")
	ErrOwnerMustChange           = ValidationError("owner must change on transfer")
	ErrRetireHasOutputs          = ValidationError("retire must have no outputs")
	ErrRetireInputCount          = ValidationError("retire must have one input")
	ErrTransferInputCount        = ValidationError("transfer must have one input")
	ErrTransferOutputCount       = ValidationError("transfer must have one output")
	ErrUnrecognisedCommand       = ValidationError("unrecognized command")
	ErrValueNotPositive          = ValidationError("value must be positive")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ConflictError) Error() string   { return string(e) }
func (e ExistsError) Error() string     { return string(e) }
func (e InvalidError) Error() string    { return string(e) }
func (e NotFoundError) Error() string   { return string(e) }
func (e ProcessError) Error() string    { return string(e) }
func (e ProtocolError) Error() string   { return string(e) }
func (e ValidationError) Error() string { return string(e) }

// determine the class of an error
//
// wrapped errors are unwrapped until a classified error is found
func IsErrConflict(e error) bool   { var t ConflictError; return errors.As(e, &t) }
func IsErrExists(e error) bool     { var t ExistsError; return errors.As(e, &t) }
func IsErrInvalid(e error) bool    { var t InvalidError; return errors.As(e, &t) }
func IsErrNotFound(e error) bool   { var t NotFoundError; return errors.As(e, &t) }
func IsErrProcess(e error) bool    { var t ProcessError; return errors.As(e, &t) }
func IsErrProtocol(e error) bool   { var t ProtocolError; return errors.As(e, &t) }
func IsErrValidation(e error) bool { var t ValidationError; return errors.As(e, &t) }
