// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recordformat

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// ItemHeader - class id and version prefixing the hash form of each
// item; must stay byte identical for files already issued
var ItemHeader = [12]byte{
	0xe3, 0x70, 0x92, 0x9b, 0xa5, 0x42, 0x9d, 0x8b, // class id
	0x00, 0x00, 0x00, 0x01, // version
}

// RecordStreamItem field numbers
const (
	itemTransactionField = 1
	itemRecordField      = 2
)

type v6Format struct{}

func (v6Format) Version() int32 {
	return 6
}

func (v6Format) Serialize(record *streamrecord.ExecutedTransaction, blockNumber int64, protocolVersion SemanticVersion) (*streamrecord.Serialized, error) {
	if nil == record {
		return nil, fault.ErrMissingRecord
	}
	if 0 == len(record.Transaction) {
		return nil, fault.ErrEmptyTransactionBytes
	}
	if 0 == len(record.Record) {
		return nil, fault.ErrEmptyRecordBytes
	}

	sidecarBytes := make([][]byte, len(record.Sidecars))
	sidecars := make([]streamrecord.SidecarRecord, len(record.Sidecars))
	for i := range record.Sidecars {
		packed, err := record.Sidecars[i].Pack()
		if nil != err {
			return nil, err
		}
		sidecarBytes[i] = packed
		sidecars[i] = record.Sidecars[i]
	}

	return &streamrecord.Serialized{
		HashBytes:     hashBytes(record),
		StorageBytes:  StorageBytes(record.Transaction, record.Record),
		SidecarBytes:  sidecarBytes,
		Sidecars:      sidecars,
		ConsensusTime: record.ConsensusTime,
	}, nil
}

func (v6Format) RunningHash(previous runninghash.Digest, items []*streamrecord.Serialized) runninghash.Digest {
	running := previous
	for _, item := range items {
		running = runninghash.Next(running, item.HashBytes)
	}
	return running
}

func (v6Format) Replay(previous runninghash.Digest, storageItems [][]byte) (runninghash.Digest, error) {
	running := previous
	for _, item := range storageItems {
		transaction, record, err := UnpackStorageBytes(item)
		if nil != err {
			return runninghash.Digest{}, err
		}
		running = runninghash.Next(running, hashBytes(&streamrecord.ExecutedTransaction{
			Transaction: transaction,
			Record:      record,
		}))
	}
	return running, nil
}

// header, then record and transaction each with a 4 byte big endian
// length; record comes first
func hashBytes(record *streamrecord.ExecutedTransaction) []byte {
	n := len(ItemHeader) + 4 + len(record.Record) + 4 + len(record.Transaction)
	buffer := make([]byte, 0, n)

	buffer = append(buffer, ItemHeader[:]...)
	buffer = binary.BigEndian.AppendUint32(buffer, uint32(len(record.Record)))
	buffer = append(buffer, record.Record...)
	buffer = binary.BigEndian.AppendUint32(buffer, uint32(len(record.Transaction)))
	buffer = append(buffer, record.Transaction...)

	return buffer
}

// StorageBytes - encode a RecordStreamItem message
func StorageBytes(transaction []byte, record []byte) []byte {
	buffer := make([]byte, 0, len(transaction)+len(record)+16)
	buffer = protowire.AppendTag(buffer, itemTransactionField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, transaction)
	buffer = protowire.AppendTag(buffer, itemRecordField, protowire.BytesType)
	buffer = protowire.AppendBytes(buffer, record)
	return buffer
}

// UnpackStorageBytes - decode a RecordStreamItem message
func UnpackStorageBytes(buffer []byte) (transaction []byte, record []byte, err error) {
	err = eachField(buffer, func(num protowire.Number, typ protowire.Type, value []byte, _ uint64) error {
		if protowire.BytesType != typ {
			return nil
		}
		switch num {
		case itemTransactionField:
			transaction = value
		case itemRecordField:
			record = value
		}
		return nil
	})
	if nil != err {
		return nil, nil, err
	}
	if 0 == len(transaction) {
		return nil, nil, fault.ErrEmptyTransactionBytes
	}
	if 0 == len(record) {
		return nil, nil, fault.ErrEmptyRecordBytes
	}
	return transaction, record, nil
}
