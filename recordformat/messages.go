// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recordformat

import (
	"crypto/sha512"
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// HashAlgorithm - algorithm tag inside a hash object
type HashAlgorithm int32

// supported hash algorithms
const (
	HashAlgorithmUnknown HashAlgorithm = 0
	HashAlgorithmSHA384  HashAlgorithm = 1
)

// field numbers of the framing messages
//
//	RecordStreamFile  {1: hapi_proto_version, 2: start_object_running_hash,
//	                   3: record_stream_items, 4: end_object_running_hash,
//	                   5: block_number, 6: sidecars}
//	SemanticVersion   {1: major, 2: minor, 3: patch}
//	HashObject        {1: algorithm, 2: length, 3: hash}
//	SidecarMetadata   {1: hash, 2: id, 3: types}
//	SidecarFile       {1: sidecar_records}
const (
	fileProtocolVersionField = 1
	fileStartHashField       = 2
	fileItemField            = 3
	fileEndHashField         = 4
	fileBlockNumberField     = 5
	fileSidecarField         = 6

	versionMajorField = 1
	versionMinorField = 2
	versionPatchField = 3

	hashAlgorithmField = 1
	hashLengthField    = 2
	hashValueField     = 3

	sidecarHashField  = 1
	sidecarIDField    = 2
	sidecarTypesField = 3

	sidecarFileRecordField = 1
)

// SidecarMetadata - footer reference to one sidecar file
type SidecarMetadata struct {
	Hash  runninghash.Digest         `json:"hash"`
	Index int32                      `json:"index"`
	Kinds []streamrecord.SidecarKind `json:"kinds"`
}

// RecordFile - the decoded contents of a record file
type RecordFile struct {
	Version         int32
	ProtocolVersion SemanticVersion
	StartHash       runninghash.Digest
	Items           [][]byte
	EndHash         runninghash.Digest
	BlockNumber     int64
	Sidecars        []SidecarMetadata
}

// HeaderBytes - protocol version and starting running hash
func HeaderBytes(protocolVersion SemanticVersion, startHash runninghash.Digest) []byte {
	buffer := protowire.AppendTag(nil, fileProtocolVersionField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, appendSemanticVersion(nil, protocolVersion))
	buffer = appendHashObject(buffer, fileStartHashField, startHash)
	return buffer
}

// ItemBytes - one length delimited storage item
func ItemBytes(storageBytes []byte) []byte {
	buffer := make([]byte, 0, len(storageBytes)+8)
	buffer = protowire.AppendTag(buffer, fileItemField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, storageBytes)
	return buffer
}

// FooterBytes - ending running hash, block number and sidecar references
func FooterBytes(endHash runninghash.Digest, blockNumber int64, sidecars []SidecarMetadata) []byte {
	buffer := appendHashObject(nil, fileEndHashField, endHash)
	buffer = protowire.AppendTag(buffer, fileBlockNumberField, protowire.VarintType)
	buffer = protowire.AppendVarint(buffer, uint64(blockNumber))

	for _, s := range sidecars {
		m := appendHashObject(nil, sidecarHashField, s.Hash)
		m = protowire.AppendTag(m, sidecarIDField, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(s.Index))
		if len(s.Kinds) > 0 {
			packed := []byte{}
			for _, k := range s.Kinds {
				packed = protowire.AppendVarint(packed, uint64(k))
			}
			m = protowire.AppendTag(m, sidecarTypesField, protowire.BytesType)
			m = protowire.AppendBytes(m, packed)
		}
		buffer = protowire.AppendTag(buffer, fileSidecarField, protowire.BytesType)
		buffer = protowire.AppendBytes(buffer, m)
	}
	return buffer
}

// SidecarItemBytes - one record inside a sidecar file
func SidecarItemBytes(packedSidecar []byte) []byte {
	buffer := make([]byte, 0, len(packedSidecar)+8)
	buffer = protowire.AppendTag(buffer, sidecarFileRecordField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, packedSidecar)
	return buffer
}

// MetadataHash - digest binding a record file to its place in the chain
//
//	SHA384(version || major || minor || patch || start || end || blockNumber)
//
// integers are big endian, 4 bytes except the 8 byte block number
func MetadataHash(version int32, protocolVersion SemanticVersion, startHash runninghash.Digest, endHash runninghash.Digest, blockNumber int64) runninghash.Digest {
	h := sha512.New384()
	b := make([]byte, 0, 4*4+2*runninghash.Length+8)
	b = binary.BigEndian.AppendUint32(b, uint32(version))
	b = binary.BigEndian.AppendUint32(b, uint32(protocolVersion.Major))
	b = binary.BigEndian.AppendUint32(b, uint32(protocolVersion.Minor))
	b = binary.BigEndian.AppendUint32(b, uint32(protocolVersion.Patch))
	b = append(b, startHash[:]...)
	b = append(b, endHash[:]...)
	b = binary.BigEndian.AppendUint64(b, uint64(blockNumber))
	h.Write(b)

	var d runninghash.Digest
	h.Sum(d[:0])
	return d
}

// ParseRecordFile - decode the uncompressed bytes of a record file
func ParseRecordFile(buffer []byte) (*RecordFile, error) {
	if len(buffer) < 4 {
		return nil, fault.ErrTruncatedRecord
	}
	file := &RecordFile{
		Version: int32(binary.BigEndian.Uint32(buffer)),
	}
	if _, err := Get(file.Version); nil != err {
		return nil, err
	}

	seen := map[protowire.Number]bool{}
	err := eachField(buffer[4:], func(num protowire.Number, typ protowire.Type, value []byte, n uint64) error {
		seen[num] = true
		switch num {
		case fileProtocolVersionField:
			v, err := parseSemanticVersion(value)
			if nil != err {
				return err
			}
			file.ProtocolVersion = v
		case fileStartHashField:
			return parseHashObject(value, &file.StartHash)
		case fileItemField:
			file.Items = append(file.Items, value)
		case fileEndHashField:
			return parseHashObject(value, &file.EndHash)
		case fileBlockNumberField:
			file.BlockNumber = int64(n)
		case fileSidecarField:
			s, err := parseSidecarMetadata(value)
			if nil != err {
				return err
			}
			file.Sidecars = append(file.Sidecars, s)
		default:
			return fault.ErrUnexpectedField
		}
		return nil
	})
	if nil != err {
		return nil, err
	}
	if !seen[fileStartHashField] || !seen[fileEndHashField] {
		return nil, fault.ErrMissingField
	}
	return file, nil
}

// ParseSidecarFile - decode the uncompressed bytes of a sidecar file
func ParseSidecarFile(buffer []byte) ([]*streamrecord.SidecarRecord, error) {
	records := []*streamrecord.SidecarRecord{}
	err := eachField(buffer, func(num protowire.Number, typ protowire.Type, value []byte, _ uint64) error {
		if sidecarFileRecordField != num || protowire.BytesType != typ {
			return fault.ErrUnexpectedField
		}
		r, err := streamrecord.UnpackSidecar(value)
		if nil != err {
			return err
		}
		records = append(records, r)
		return nil
	})
	if nil != err {
		return nil, err
	}
	return records, nil
}

func appendSemanticVersion(buffer []byte, v SemanticVersion) []byte {
	fields := []struct {
		num   protowire.Number
		value int32
	}{
		{versionMajorField, v.Major},
		{versionMinorField, v.Minor},
		{versionPatchField, v.Patch},
	}
	for _, f := range fields {
		if 0 == f.value {
			continue
		}
		buffer = protowire.AppendTag(buffer, f.num, protowire.VarintType)
		buffer = protowire.AppendVarint(buffer, uint64(f.value))
	}
	return buffer
}

func parseSemanticVersion(buffer []byte) (SemanticVersion, error) {
	v := SemanticVersion{}
	err := eachField(buffer, func(num protowire.Number, typ protowire.Type, _ []byte, n uint64) error {
		switch num {
		case versionMajorField:
			v.Major = int32(n)
		case versionMinorField:
			v.Minor = int32(n)
		case versionPatchField:
			v.Patch = int32(n)
		}
		return nil
	})
	return v, err
}

func appendHashObject(buffer []byte, field protowire.Number, digest runninghash.Digest) []byte {
	m := protowire.AppendTag(nil, hashAlgorithmField, protowire.VarintType)
	m = protowire.AppendVarint(m, uint64(HashAlgorithmSHA384))
	m = protowire.AppendTag(m, hashLengthField, protowire.VarintType)
	m = protowire.AppendVarint(m, runninghash.Length)
	m = protowire.AppendTag(m, hashValueField, protowire.BytesType)
	m = protowire.AppendBytes(m, digest[:])

	buffer = protowire.AppendTag(buffer, field, protowire.BytesType)
	return protowire.AppendBytes(buffer, m)
}

func parseHashObject(buffer []byte, digest *runninghash.Digest) error {
	algorithm := HashAlgorithmUnknown
	length := uint64(0)
	var value []byte
	err := eachField(buffer, func(num protowire.Number, typ protowire.Type, b []byte, n uint64) error {
		switch num {
		case hashAlgorithmField:
			algorithm = HashAlgorithm(n)
		case hashLengthField:
			length = n
		case hashValueField:
			value = b
		}
		return nil
	})
	if nil != err {
		return err
	}
	if HashAlgorithmSHA384 != algorithm {
		return fault.ErrInvalidHashAlgorithm
	}
	if runninghash.Length != length {
		return fault.ErrInvalidDigestLength
	}
	return runninghash.DigestFromBytes(digest, value)
}

func parseSidecarMetadata(buffer []byte) (SidecarMetadata, error) {
	s := SidecarMetadata{}
	err := eachField(buffer, func(num protowire.Number, typ protowire.Type, b []byte, n uint64) error {
		switch num {
		case sidecarHashField:
			return parseHashObject(b, &s.Hash)
		case sidecarIDField:
			s.Index = int32(n)
		case sidecarTypesField:
			if protowire.VarintType == typ {
				s.Kinds = append(s.Kinds, streamrecord.SidecarKind(n))
				return nil
			}
			for len(b) > 0 {
				k, l := protowire.ConsumeVarint(b)
				if l < 0 {
					return protowire.ParseError(l)
				}
				s.Kinds = append(s.Kinds, streamrecord.SidecarKind(k))
				b = b[l:]
			}
		}
		return nil
	})
	return s, err
}

// call f for every top level field: bytes fields pass their contents,
// varint fields pass their value, other wire types are skipped
func eachField(buffer []byte, f func(num protowire.Number, typ protowire.Type, value []byte, n uint64) error) error {
	for len(buffer) > 0 {
		num, typ, l := protowire.ConsumeTag(buffer)
		if l < 0 {
			return protowire.ParseError(l)
		}
		buffer = buffer[l:]

		var value []byte
		n := uint64(0)
		switch typ {
		case protowire.BytesType:
			value, l = protowire.ConsumeBytes(buffer)
		case protowire.VarintType:
			n, l = protowire.ConsumeVarint(buffer)
		default:
			l = protowire.ConsumeFieldValue(num, typ, buffer)
			if l < 0 {
				return protowire.ParseError(l)
			}
			buffer = buffer[l:]
			continue
		}
		if l < 0 {
			return protowire.ParseError(l)
		}
		buffer = buffer[l:]

		if err := f(num, typ, value, n); nil != err {
			return err
		}
	}
	return nil
}
