// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package streamrecord_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

var consensusTime = time.Date(2022, 10, 19, 21, 35, 39, 123456789, time.UTC)

func TestSidecarRoundTrip(t *testing.T) {
	sidecar := streamrecord.SidecarRecord{
		ConsensusTime: consensusTime,
		Migration:     true,
		Kind:          streamrecord.KindBytecode,
		Payload:       []byte{0x0a, 0x03, 'a', 'b', 'c'},
	}

	packed, err := sidecar.Pack()
	assert.Nil(t, err, "pack error")

	unpacked, err := streamrecord.UnpackSidecar(packed)
	assert.Nil(t, err, "unpack error")
	assert.True(t, consensusTime.Equal(unpacked.ConsensusTime), "timestamp")
	assert.True(t, unpacked.Migration, "migration")
	assert.Equal(t, streamrecord.KindBytecode, unpacked.Kind, "kind")
	assert.Equal(t, sidecar.Payload, unpacked.Payload, "payload")
}

// the payload field number depends on the kind
func TestSidecarFieldNumbers(t *testing.T) {
	expected := map[streamrecord.SidecarKind]byte{
		streamrecord.KindStateChange: 3<<3 | 2,
		streamrecord.KindAction:      4<<3 | 2,
		streamrecord.KindBytecode:    5<<3 | 2,
	}
	for kind, tag := range expected {
		sidecar := streamrecord.SidecarRecord{
			Kind:    kind,
			Payload: []byte{1},
		}
		packed, err := sidecar.Pack()
		assert.Nil(t, err, "pack error")

		// empty timestamp: tag, length 0, then the payload tag
		assert.Equal(t, []byte{1<<3 | 2, 0, tag, 1, 1}, packed, "kind: %s", kind)
	}
}

func TestSidecarInvalidKind(t *testing.T) {
	sidecar := streamrecord.SidecarRecord{
		Kind: streamrecord.KindNone,
	}
	_, err := sidecar.Pack()
	assert.Equal(t, fault.ErrInvalidSidecarKind, err, "wrong error")
}

func TestExecutedTransactionRoundTrip(t *testing.T) {
	record := &streamrecord.ExecutedTransaction{
		Transaction:   []byte("transaction bytes"),
		Record:        []byte("record bytes"),
		ConsensusTime: consensusTime,
		Sidecars: []streamrecord.SidecarRecord{
			{ConsensusTime: consensusTime, Kind: streamrecord.KindStateChange, Payload: []byte("state")},
			{ConsensusTime: consensusTime, Kind: streamrecord.KindAction, Payload: []byte("action")},
		},
	}

	packed, err := record.Pack()
	assert.Nil(t, err, "pack error")

	unpacked, err := streamrecord.Unpack(packed)
	assert.Nil(t, err, "unpack error")
	assert.Equal(t, record.Transaction, unpacked.Transaction, "transaction")
	assert.Equal(t, record.Record, unpacked.Record, "record")
	assert.True(t, consensusTime.Equal(unpacked.ConsensusTime), "timestamp")
	assert.Equal(t, 2, len(unpacked.Sidecars), "sidecar count")
	assert.Equal(t, streamrecord.KindAction, unpacked.Sidecars[1].Kind, "sidecar kind")
	assert.Equal(t, []byte("action"), unpacked.Sidecars[1].Payload, "sidecar payload")
}

func TestExecutedTransactionEmpty(t *testing.T) {
	_, err := (&streamrecord.ExecutedTransaction{Record: []byte{1}}).Pack()
	assert.Equal(t, fault.ErrEmptyTransactionBytes, err, "empty transaction accepted")

	_, err = (&streamrecord.ExecutedTransaction{Transaction: []byte{1}}).Pack()
	assert.Equal(t, fault.ErrEmptyRecordBytes, err, "empty record accepted")

	_, err = streamrecord.Unpack([]byte{})
	assert.Equal(t, fault.ErrEmptyTransactionBytes, err, "empty buffer accepted")
}

func TestUnpackTruncated(t *testing.T) {
	record := &streamrecord.ExecutedTransaction{
		Transaction: []byte("transaction"),
		Record:      []byte("record"),
	}
	packed, err := record.Pack()
	assert.Nil(t, err, "pack error")

	_, err = streamrecord.Unpack(packed[:len(packed)-3])
	assert.NotNil(t, err, "truncated buffer accepted")
}

func TestSidecarKindString(t *testing.T) {
	assert.Equal(t, "CONTRACT_STATE_CHANGE", streamrecord.KindStateChange.String())
	assert.Equal(t, "SIDECAR_TYPE(9)", streamrecord.SidecarKind(9).String())
}
