// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package recordformat - versioned encodings of record stream items
// and of the messages framing record, sidecar and signature files
package recordformat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// Format - strategy for one record file format version
type Format interface {
	// the integer written at the start of every record file
	Version() int32

	// produce both encodings of a transaction; safe for concurrent use
	Serialize(record *streamrecord.ExecutedTransaction, blockNumber int64, protocolVersion SemanticVersion) (*streamrecord.Serialized, error)

	// fold serialized items into the running hash
	RunningHash(previous runninghash.Digest, items []*streamrecord.Serialized) runninghash.Digest

	// recompute the running hash from items as stored in a record file
	Replay(previous runninghash.Digest, storageItems [][]byte) (runninghash.Digest, error)
}

// all supported formats keyed by version
var formats = map[int32]Format{
	6: v6Format{},
}

// CurrentVersion - the format written by default
const CurrentVersion = 6

// Get - select a format by its version number
func Get(version int32) (Format, error) {
	f, ok := formats[version]
	if !ok {
		return nil, fault.ErrUnsupportedRecordFileFormat
	}
	return f, nil
}

// SemanticVersion - protocol version stamped into each record file
type SemanticVersion struct {
	Major int32 `json:"major"`
	Minor int32 `json:"minor"`
	Patch int32 `json:"patch"`
}

// ParseSemanticVersion - convert "major.minor.patch"
func ParseSemanticVersion(s string) (SemanticVersion, error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if 3 != len(parts) {
		return SemanticVersion{}, fault.ErrInvalidProtocolVersion
	}
	n := [3]int32{}
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 32)
		if nil != err || v < 0 {
			return SemanticVersion{}, fault.ErrInvalidProtocolVersion
		}
		n[i] = int32(v)
	}
	return SemanticVersion{Major: n[0], Minor: n[1], Patch: n[2]}, nil
}

func (v SemanticVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
