// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package recordfile - record files for one block: layered output
// stream, framing of header, items and footer, and reading back
package recordfile

import (
	"encoding/binary"
	"path/filepath"
	"time"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// Options - where and how to create a record file
type Options struct {
	Directory     string
	ConsensusTime time.Time // first consensus time of the block
	Compress      bool
	Format        recordformat.Format
}

type writerState int

const (
	stateCreated writerState = iota
	stateHeader
	stateFooter
)

// Writer - a single record file
//
// calls must be serialised by the caller
type Writer struct {
	format          recordformat.Format
	stream          *Stream
	state           writerState
	protocolVersion recordformat.SemanticVersion
	startHash       runninghash.Digest
	endHash         runninghash.Digest
	blockNumber     int64
	items           int
	metadataHash    runninghash.Digest
}

// Create - open a new record file
func Create(options Options) (*Writer, error) {
	if nil == options.Format {
		return nil, fault.ErrUnsupportedRecordFileFormat
	}
	path := filepath.Join(options.Directory, RecordFileName(options.ConsensusTime, options.Compress))

	stream, err := OpenStream(path, options.Compress)
	if nil != err {
		return nil, err
	}
	return &Writer{
		format: options.Format,
		stream: stream,
		state:  stateCreated,
	}, nil
}

// WriteHeader - format version, protocol version and starting hash
func (w *Writer) WriteHeader(protocolVersion recordformat.SemanticVersion, startHash runninghash.Digest) error {
	if w.stream.closed {
		return fault.ErrRecordFileClosed
	}
	if stateCreated != w.state {
		return fault.ErrHeaderAlreadyWritten
	}

	buffer := binary.BigEndian.AppendUint32(nil, uint32(w.format.Version()))
	buffer = append(buffer, recordformat.HeaderBytes(protocolVersion, startHash)...)
	if _, err := w.stream.Write(buffer); nil != err {
		return err
	}

	w.protocolVersion = protocolVersion
	w.startHash = startHash
	w.state = stateHeader
	return nil
}

// WriteItem - append one storage item
func (w *Writer) WriteItem(item *streamrecord.Serialized) error {
	if w.stream.closed {
		return fault.ErrRecordFileClosed
	}
	switch w.state {
	case stateCreated:
		return fault.ErrHeaderNotWritten
	case stateFooter:
		return fault.ErrFooterAlreadyWritten
	}

	if _, err := w.stream.Write(recordformat.ItemBytes(item.StorageBytes)); nil != err {
		return err
	}
	w.items += 1
	return nil
}

// WriteFooter - ending hash, block number and sidecar references
func (w *Writer) WriteFooter(endHash runninghash.Digest, blockNumber int64, sidecars []recordformat.SidecarMetadata) error {
	if w.stream.closed {
		return fault.ErrRecordFileClosed
	}
	switch w.state {
	case stateCreated:
		return fault.ErrHeaderNotWritten
	case stateFooter:
		return fault.ErrFooterAlreadyWritten
	}

	if _, err := w.stream.Write(recordformat.FooterBytes(endHash, blockNumber, sidecars)); nil != err {
		return err
	}

	w.endHash = endHash
	w.blockNumber = blockNumber
	w.metadataHash = recordformat.MetadataHash(w.format.Version(), w.protocolVersion, w.startHash, endHash, blockNumber)
	w.state = stateFooter
	return nil
}

// Close - flush and close the file; safe to call more than once
func (w *Writer) Close() error {
	return w.stream.Close()
}

// Hash - content hash of the uncompressed file, valid after Close
func (w *Writer) Hash() runninghash.Digest {
	return w.stream.Hash()
}

// MetadataHash - valid after WriteFooter
func (w *Writer) MetadataHash() runninghash.Digest {
	return w.metadataHash
}

// Path - the file being written
func (w *Writer) Path() string {
	return w.stream.Path()
}

// Items - number of items written
func (w *Writer) Items() int {
	return w.items
}

// StartHash - from the header
func (w *Writer) StartHash() runninghash.Digest {
	return w.startHash
}
