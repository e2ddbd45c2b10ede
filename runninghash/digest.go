// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package runninghash

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/bitmark-inc/recordstreamd/fault"
)

// Length - number of bytes in the digest
const Length = sha512.Size384

// Digest - a SHA-384 value
//
// stored and printed in natural byte order
type Digest [Length]byte

// Zero - the all zero digest used as a genesis running hash
var Zero Digest

// NewDigest - create a digest from a byte slice
func NewDigest(record []byte) Digest {
	return Digest(sha512.Sum384(record))
}

// IsZero - true for the all zero digest
func (digest Digest) IsZero() bool {
	return Zero == digest
}

// convert a binary digest to hex string for use by the fmt package (for %s)
func (digest Digest) String() string {
	return hex.EncodeToString(digest[:])
}

// convert a binary digest to hex string for use by the fmt package (for %#v)
func (digest Digest) GoString() string {
	return "<SHA-384:" + hex.EncodeToString(digest[:]) + ">"
}

// MarshalText - convert digest to hex text
func (digest Digest) MarshalText() ([]byte, error) {
	size := hex.EncodedLen(len(digest))
	buffer := make([]byte, size)
	hex.Encode(buffer, digest[:])
	return buffer, nil
}

// UnmarshalText - convert hex text into a digest
func (digest *Digest) UnmarshalText(s []byte) error {
	if hex.EncodedLen(Length) != len(s) {
		return fault.ErrInvalidDigestLength
	}
	_, err := hex.Decode(digest[:], s)
	return err
}

// DigestFromBytes - convert and validate a binary byte slice to a digest
func DigestFromBytes(digest *Digest, buffer []byte) error {
	if Length != len(buffer) {
		return fault.ErrInvalidDigestLength
	}
	copy(digest[:], buffer)
	return nil
}

// DigestFromHex - parse a hex string, as printed by String
func DigestFromHex(s string) (Digest, error) {
	var digest Digest
	if err := digest.UnmarshalText([]byte(s)); nil != err {
		return Zero, fmt.Errorf("digest: %q: %s", s, err)
	}
	return digest, nil
}
