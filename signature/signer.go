// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package signature - detached signature files over finished record
// files and the signers that produce them
package signature

import (
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/recordformat"
)

//go:generate mockgen -source=signer.go -destination=mocks/signer.go -package=mocks

// Signer - produce a signature over a digest
type Signer interface {
	Sign(hash []byte) ([]byte, error)
	Type() recordformat.SignatureType
}

// Verifier - check a signature over a digest
type Verifier interface {
	Verify(hash []byte, signature []byte) error
	Type() recordformat.SignatureType
}

// Ed25519Signer - signs with an Ed25519 private key
type Ed25519Signer struct {
	privateKey ed25519.PrivateKey
}

// Ed25519Verifier - verifies with an Ed25519 public key
type Ed25519Verifier struct {
	publicKey ed25519.PublicKey
}

// NewEd25519Signer - wrap a 64 byte private key
func NewEd25519Signer(privateKey []byte) (*Ed25519Signer, error) {
	if ed25519.PrivateKeySize != len(privateKey) {
		return nil, fault.ErrInvalidKeyLength
	}
	return &Ed25519Signer{
		privateKey: append(ed25519.PrivateKey(nil), privateKey...),
	}, nil
}

// Sign - sign the digest directly
func (s *Ed25519Signer) Sign(hash []byte) ([]byte, error) {
	return ed25519.Sign(s.privateKey, hash), nil
}

// Type - signature type recorded in signature files
func (s *Ed25519Signer) Type() recordformat.SignatureType {
	return recordformat.SignatureTypeEd25519
}

// Verifier - the matching public half
func (s *Ed25519Signer) Verifier() *Ed25519Verifier {
	return &Ed25519Verifier{
		publicKey: s.privateKey.Public().(ed25519.PublicKey),
	}
}

// NewEd25519Verifier - wrap a 32 byte public key
func NewEd25519Verifier(publicKey []byte) (*Ed25519Verifier, error) {
	if ed25519.PublicKeySize != len(publicKey) {
		return nil, fault.ErrInvalidKeyLength
	}
	return &Ed25519Verifier{
		publicKey: append(ed25519.PublicKey(nil), publicKey...),
	}, nil
}

// Verify - check one signature
func (v *Ed25519Verifier) Verify(hash []byte, signature []byte) error {
	if !ed25519.Verify(v.publicKey, hash, signature) {
		return fault.ErrInvalidSignature
	}
	return nil
}

// Type - signature type accepted
func (v *Ed25519Verifier) Type() recordformat.SignatureType {
	return recordformat.SignatureTypeEd25519
}
