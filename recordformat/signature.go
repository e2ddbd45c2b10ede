// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recordformat

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/runninghash"
)

// SignatureType - the algorithm that produced a signature
type SignatureType int32

// signature types
const (
	SignatureTypeUnknown   SignatureType = 0
	SignatureTypeSHA384RSA SignatureType = 1
	SignatureTypeEd25519   SignatureType = 2
)

// checksum = offset - signature length
const signatureChecksumOffset = 101

func (t SignatureType) String() string {
	switch t {
	case SignatureTypeSHA384RSA:
		return "SHA_384_WITH_RSA"
	case SignatureTypeEd25519:
		return "ED25519"
	default:
		return fmt.Sprintf("SIGNATURE_TYPE(%d)", int32(t))
	}
}

// field numbers
//
//	SignatureFile    {1: file_signature, 2: metadata_signature}
//	SignatureObject  {1: type, 2: length, 3: checksum, 4: signature,
//	                  5: hash_object}
const (
	signatureFileField     = 1
	signatureMetadataField = 2

	signatureTypeField     = 1
	signatureLengthField   = 2
	signatureChecksumField = 3
	signatureValueField    = 4
	signatureHashField     = 5
)

// SignatureObject - one signature over one digest
type SignatureObject struct {
	Type      SignatureType
	Signature []byte
	Hash      runninghash.Digest
}

// SignatureFile - signatures over a record file's content hash and
// its metadata hash
type SignatureFile struct {
	File     SignatureObject
	Metadata SignatureObject
}

// Pack - encode a SignatureFile message
func (s *SignatureFile) Pack() []byte {
	buffer := protowire.AppendTag(nil, signatureFileField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, s.File.pack())
	buffer = protowire.AppendTag(buffer, signatureMetadataField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, s.Metadata.pack())
	return buffer
}

// UnpackSignatureFile - decode a SignatureFile message
func UnpackSignatureFile(buffer []byte) (*SignatureFile, error) {
	s := &SignatureFile{}
	seen := 0
	err := eachField(buffer, func(num protowire.Number, typ protowire.Type, value []byte, _ uint64) error {
		switch num {
		case signatureFileField:
			seen |= 1
			return s.File.unpack(value)
		case signatureMetadataField:
			seen |= 2
			return s.Metadata.unpack(value)
		}
		return fault.ErrUnexpectedField
	})
	if nil != err {
		return nil, err
	}
	if 3 != seen {
		return nil, fault.ErrMissingField
	}
	return s, nil
}

// the checksum is a simple guard against decoding from the wrong offset
func (o *SignatureObject) pack() []byte {
	length := len(o.Signature)
	buffer := protowire.AppendTag(nil, signatureTypeField, protowire.VarintType)
	buffer = protowire.AppendVarint(buffer, uint64(o.Type))
	buffer = protowire.AppendTag(buffer, signatureLengthField, protowire.VarintType)
	buffer = protowire.AppendVarint(buffer, uint64(length))
	buffer = protowire.AppendTag(buffer, signatureChecksumField, protowire.VarintType)
	buffer = protowire.AppendVarint(buffer, uint64(int64(signatureChecksumOffset-length)))
	buffer = protowire.AppendTag(buffer, signatureValueField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, o.Signature)
	return appendHashObject(buffer, signatureHashField, o.Hash)
}

func (o *SignatureObject) unpack(buffer []byte) error {
	length := int64(0)
	checksum := int64(0)
	hasHash := false
	err := eachField(buffer, func(num protowire.Number, typ protowire.Type, value []byte, n uint64) error {
		switch num {
		case signatureTypeField:
			o.Type = SignatureType(n)
		case signatureLengthField:
			length = int64(int32(n))
		case signatureChecksumField:
			checksum = int64(int32(n))
		case signatureValueField:
			o.Signature = append([]byte(nil), value...)
		case signatureHashField:
			hasHash = true
			return parseHashObject(value, &o.Hash)
		}
		return nil
	})
	if nil != err {
		return err
	}
	if !hasHash {
		return fault.ErrMissingField
	}
	if int64(len(o.Signature)) != length || signatureChecksumOffset-length != checksum {
		return fault.ErrInvalidSignature
	}
	return nil
}
