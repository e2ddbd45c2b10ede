// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package streamrecord - executed transaction records as handed to the
// record stream, and their serialized form
package streamrecord

import (
	"fmt"
	"time"
)

// SidecarKind - the content carried by a sidecar record
//
// values match the SidecarType enumeration written to record file
// footers
type SidecarKind int32

// all sidecar kinds
const (
	KindNone        SidecarKind = 0
	KindStateChange SidecarKind = 1
	KindAction      SidecarKind = 2
	KindBytecode    SidecarKind = 3
	maximumKind     SidecarKind = 4
)

// Valid - true for a kind that can be written
func (kind SidecarKind) Valid() bool {
	return kind > KindNone && kind < maximumKind
}

func (kind SidecarKind) String() string {
	switch kind {
	case KindStateChange:
		return "CONTRACT_STATE_CHANGE"
	case KindAction:
		return "CONTRACT_ACTION"
	case KindBytecode:
		return "CONTRACT_BYTECODE"
	default:
		return fmt.Sprintf("SIDECAR_TYPE(%d)", int32(kind))
	}
}

// SidecarRecord - auxiliary payload for one transaction
//
// Payload is the already serialized inner message (state changes,
// actions or bytecode)
type SidecarRecord struct {
	ConsensusTime time.Time
	Migration     bool
	Kind          SidecarKind
	Payload       []byte
}

// ExecutedTransaction - one transaction and its outcome
//
// Transaction and Record are already serialized protobuf messages
// produced by the executor
type ExecutedTransaction struct {
	Transaction   []byte
	Record        []byte
	ConsensusTime time.Time
	Sidecars      []SidecarRecord
}

// Serialized - immutable result of serializing one ExecutedTransaction
//
// HashBytes feed the running hash, StorageBytes are written to the
// record file and SidecarBytes[i] is the encoding of Sidecars[i]
type Serialized struct {
	HashBytes     []byte
	StorageBytes  []byte
	SidecarBytes  [][]byte
	Sidecars      []SidecarRecord
	ConsensusTime time.Time
}
