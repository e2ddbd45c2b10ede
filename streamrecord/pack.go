// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package streamrecord

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bitmark-inc/recordstreamd/fault"
)

// protobuf field numbers
//
//	Timestamp                 {1: seconds, 2: nanos}
//	TransactionSidecarRecord  {1: consensus_timestamp, 2: migration,
//	                           3: state_changes, 4: actions, 5: bytecode}
//	ExecutedTransaction       {1: transaction, 2: record,
//	                           3: consensus_timestamp, 4: sidecars}
const (
	timestampSecondsField = 1
	timestampNanosField   = 2

	sidecarTimestampField = 1
	sidecarMigrationField = 2
	sidecarKindOffset     = 2 // field number = kind + offset

	executedTransactionField = 1
	executedRecordField      = 2
	executedTimestampField   = 3
	executedSidecarField     = 4
)

// AppendTimestamp - encode a Timestamp message body
func AppendTimestamp(buffer []byte, t time.Time) []byte {
	seconds := t.Unix()
	nanos := t.Nanosecond()
	if 0 != seconds {
		buffer = protowire.AppendTag(buffer, timestampSecondsField, protowire.VarintType)
		buffer = protowire.AppendVarint(buffer, uint64(seconds))
	}
	if 0 != nanos {
		buffer = protowire.AppendTag(buffer, timestampNanosField, protowire.VarintType)
		buffer = protowire.AppendVarint(buffer, uint64(nanos))
	}
	return buffer
}

// UnpackTimestamp - decode a Timestamp message body
func UnpackTimestamp(buffer []byte) (time.Time, error) {
	seconds := int64(0)
	nanos := int64(0)
	for len(buffer) > 0 {
		num, typ, n := protowire.ConsumeTag(buffer)
		if n < 0 {
			return time.Time{}, protowire.ParseError(n)
		}
		buffer = buffer[n:]

		switch {
		case timestampSecondsField == num && protowire.VarintType == typ:
			v, n := protowire.ConsumeVarint(buffer)
			if n < 0 {
				return time.Time{}, protowire.ParseError(n)
			}
			seconds = int64(v)
			buffer = buffer[n:]
		case timestampNanosField == num && protowire.VarintType == typ:
			v, n := protowire.ConsumeVarint(buffer)
			if n < 0 {
				return time.Time{}, protowire.ParseError(n)
			}
			nanos = int64(int32(v))
			buffer = buffer[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buffer)
			if n < 0 {
				return time.Time{}, protowire.ParseError(n)
			}
			buffer = buffer[n:]
		}
	}
	return time.Unix(seconds, nanos).UTC(), nil
}

// Pack - encode as a TransactionSidecarRecord message
func (sidecar *SidecarRecord) Pack() ([]byte, error) {
	if !sidecar.Kind.Valid() {
		return nil, fault.ErrInvalidSidecarKind
	}

	buffer := make([]byte, 0, len(sidecar.Payload)+32)

	buffer = protowire.AppendTag(buffer, sidecarTimestampField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, AppendTimestamp(nil, sidecar.ConsensusTime))

	if sidecar.Migration {
		buffer = protowire.AppendTag(buffer, sidecarMigrationField, protowire.VarintType)
		buffer = protowire.AppendVarint(buffer, protowire.EncodeBool(true))
	}

	field := protowire.Number(int32(sidecar.Kind) + sidecarKindOffset)
	buffer = protowire.AppendTag(buffer, field, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, sidecar.Payload)

	return buffer, nil
}

// UnpackSidecar - decode a TransactionSidecarRecord message
func UnpackSidecar(buffer []byte) (*SidecarRecord, error) {
	sidecar := &SidecarRecord{}
	for len(buffer) > 0 {
		num, typ, n := protowire.ConsumeTag(buffer)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		buffer = buffer[n:]

		switch {
		case sidecarTimestampField == num && protowire.BytesType == typ:
			b, n := protowire.ConsumeBytes(buffer)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			t, err := UnpackTimestamp(b)
			if nil != err {
				return nil, err
			}
			sidecar.ConsensusTime = t
			buffer = buffer[n:]

		case sidecarMigrationField == num && protowire.VarintType == typ:
			v, n := protowire.ConsumeVarint(buffer)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			sidecar.Migration = protowire.DecodeBool(v)
			buffer = buffer[n:]

		case protowire.BytesType == typ && SidecarKind(int32(num)-sidecarKindOffset).Valid():
			b, n := protowire.ConsumeBytes(buffer)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			sidecar.Kind = SidecarKind(int32(num) - sidecarKindOffset)
			sidecar.Payload = append([]byte(nil), b...)
			buffer = buffer[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, buffer)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			buffer = buffer[n:]
		}
	}

	if !sidecar.Kind.Valid() {
		return nil, fault.ErrInvalidSidecarKind
	}
	return sidecar, nil
}

// Pack - encode an executed transaction for transport to the record
// stream daemon
func (record *ExecutedTransaction) Pack() ([]byte, error) {
	if 0 == len(record.Transaction) {
		return nil, fault.ErrEmptyTransactionBytes
	}
	if 0 == len(record.Record) {
		return nil, fault.ErrEmptyRecordBytes
	}

	buffer := make([]byte, 0, len(record.Transaction)+len(record.Record)+32)
	buffer = protowire.AppendTag(buffer, executedTransactionField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, record.Transaction)
	buffer = protowire.AppendTag(buffer, executedRecordField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, record.Record)
	buffer = protowire.AppendTag(buffer, executedTimestampField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, AppendTimestamp(nil, record.ConsensusTime))

	for i := range record.Sidecars {
		packed, err := record.Sidecars[i].Pack()
		if nil != err {
			return nil, err
		}
		buffer = protowire.AppendTag(buffer, executedSidecarField, protowire.BytesType)
		buffer = protowire.AppendBytes(buffer, packed)
	}
	return buffer, nil
}

// Unpack - decode an executed transaction
func Unpack(buffer []byte) (*ExecutedTransaction, error) {
	record := &ExecutedTransaction{}
	for len(buffer) > 0 {
		num, typ, n := protowire.ConsumeTag(buffer)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		buffer = buffer[n:]

		if protowire.BytesType != typ {
			n := protowire.ConsumeFieldValue(num, typ, buffer)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			buffer = buffer[n:]
			continue
		}

		b, n := protowire.ConsumeBytes(buffer)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		buffer = buffer[n:]

		switch num {
		case executedTransactionField:
			record.Transaction = append([]byte(nil), b...)
		case executedRecordField:
			record.Record = append([]byte(nil), b...)
		case executedTimestampField:
			t, err := UnpackTimestamp(b)
			if nil != err {
				return nil, err
			}
			record.ConsensusTime = t
		case executedSidecarField:
			sidecar, err := UnpackSidecar(b)
			if nil != err {
				return nil, err
			}
			record.Sidecars = append(record.Sidecars, *sidecar)
		}
	}

	if 0 == len(record.Transaction) {
		return nil, fault.ErrEmptyTransactionBytes
	}
	if 0 == len(record.Record) {
		return nil, fault.ErrEmptyRecordBytes
	}
	return record, nil
}
