// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"encoding/binary"
	"time"

	"github.com/bitmark-inc/assetflow/account"
	"github.com/bitmark-inc/assetflow/fault"
	"github.com/bitmark-inc/assetflow/merkle"
)

// TransactionSignature - one signer's signature over a transaction id
type TransactionSignature struct {
	Signer    *account.Account  `json:"signer"`
	Signature account.Signature `json:"signature"`
}

// Verify - check the signature against a transaction id
func (s TransactionSignature) Verify(txId merkle.Digest) error {
	if nil == s.Signer {
		return fault.ErrMissingAccount
	}
	return s.Signer.CheckSignature(txId[:], s.Signature)
}

// SignedTransaction - a canonical transaction and the signatures
// collected so far
type SignedTransaction struct {
	Transaction *Transaction           `json:"transaction"`
	Packed      Packed                 `json:"packed"`
	Signatures  []TransactionSignature `json:"signatures"`
}

// NewSignedTransaction - canonicalise and pack a transaction ready
// for signing
func NewSignedTransaction(tx *Transaction) (*SignedTransaction, error) {
	canonical, err := tx.Canonical()
	if nil != err {
		return nil, err
	}
	packed, err := canonical.Pack()
	if nil != err {
		return nil, err
	}
	return &SignedTransaction{
		Transaction: canonical,
		Packed:      packed,
	}, nil
}

// Id - transaction identifier
func (signed *SignedTransaction) Id() merkle.Digest {
	return signed.Packed.MakeLink()
}

// Sign - sign with a private key and add the signature
func (signed *SignedTransaction) Sign(privateKey *account.PrivateKey) (TransactionSignature, error) {
	txId := signed.Id()
	s := TransactionSignature{
		Signer:    privateKey.Account(),
		Signature: privateKey.Sign(txId[:]),
	}
	if err := signed.AddSignature(s); nil != err {
		return TransactionSignature{}, err
	}
	return s, nil
}

// AddSignature - verify and add a signature from a required signer
func (signed *SignedTransaction) AddSignature(s TransactionSignature) error {
	if !signed.Transaction.IsRequiredSigner(s.Signer) {
		return fault.ErrNotARequiredSigner
	}
	if signed.HasSigned(s.Signer) {
		return fault.ErrDuplicateSignature
	}
	if err := s.Verify(signed.Id()); nil != err {
		return err
	}
	signed.Signatures = append(signed.Signatures, s)
	return nil
}

// HasSigned - true if a signature from the account is present
func (signed *SignedTransaction) HasSigned(party *account.Account) bool {
	for _, s := range signed.Signatures {
		if s.Signer.Equal(party) {
			return true
		}
	}
	return false
}

// MissingSigners - required signers that have not yet signed
func (signed *SignedTransaction) MissingSigners() []*account.Account {
	missing := make([]*account.Account, 0, len(signed.Transaction.Signers))
	for _, signer := range signed.Transaction.Signers {
		if !signed.HasSigned(signer) {
			missing = append(missing, signer)
		}
	}
	return missing
}

// Verify - every signature present is valid, unique and from a
// required signer
func (signed *SignedTransaction) Verify() error {
	txId := signed.Id()
	seen := make([]*account.Account, 0, len(signed.Signatures))
	for _, s := range signed.Signatures {
		if !signed.Transaction.IsRequiredSigner(s.Signer) {
			return fault.ErrNotARequiredSigner
		}
		if account.Contains(seen, s.Signer) {
			return fault.ErrDuplicateSignature
		}
		if err := s.Verify(txId); nil != err {
			return err
		}
		seen = append(seen, s.Signer)
	}
	return nil
}

// VerifyComplete - signatures are valid and every required signer
// has signed
func (signed *SignedTransaction) VerifyComplete() error {
	if err := signed.Verify(); nil != err {
		return err
	}
	if 0 != len(signed.MissingSigners()) {
		return fault.ErrMissingSignatures
	}
	return nil
}

// Attestation - the notary's evidence that a transaction was committed
type Attestation struct {
	Notary    *account.Account  `json:"notary"`
	Timestamp time.Time         `json:"timestamp"`
	Signature account.Signature `json:"signature"`
}

// AttestationMessage - the bytes a notary signs: txId ++ big endian
// unix nanoseconds
func AttestationMessage(txId merkle.Digest, timestamp time.Time) []byte {
	message := make([]byte, merkle.DigestLength+8)
	copy(message, txId[:])
	binary.BigEndian.PutUint64(message[merkle.DigestLength:], uint64(timestamp.UnixNano()))
	return message
}

// NewAttestation - notary commit evidence for a transaction
func NewAttestation(privateKey *account.PrivateKey, txId merkle.Digest, timestamp time.Time) *Attestation {
	return &Attestation{
		Notary:    privateKey.Account(),
		Timestamp: timestamp,
		Signature: privateKey.Sign(AttestationMessage(txId, timestamp)),
	}
}

// Verify - the attestation was signed by the expected notary for this
// transaction
func (attestation *Attestation) Verify(txId merkle.Digest, notary *account.Account) error {
	if nil == attestation.Notary {
		return fault.ErrInvalidAttestation
	}
	if !attestation.Notary.Equal(notary) {
		return fault.ErrWrongNotary
	}
	err := attestation.Notary.CheckSignature(AttestationMessage(txId, attestation.Timestamp), attestation.Signature)
	if nil != err {
		return fault.ErrInvalidAttestation
	}
	return nil
}

// FinalizedTransaction - a fully signed transaction committed by its notary
type FinalizedTransaction struct {
	Signed      *SignedTransaction `json:"signed"`
	Attestation *Attestation       `json:"attestation"`
}

// Id - transaction identifier
func (finalized *FinalizedTransaction) Id() merkle.Digest {
	return finalized.Signed.Id()
}

// Verify - complete signatures and an attestation from the named notary
func (finalized *FinalizedTransaction) Verify() error {
	if nil == finalized.Signed || nil == finalized.Attestation {
		return fault.ErrInvalidAttestation
	}
	if err := finalized.Signed.VerifyComplete(); nil != err {
		return err
	}
	return finalized.Attestation.Verify(finalized.Id(), finalized.Signed.Transaction.Notary)
}
