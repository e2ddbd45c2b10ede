// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
)

var lastKey = []byte("last")

// BlockEntry - what is kept for each closed block
type BlockEntry struct {
	Number             int64                          `json:"number"`
	FirstConsensusTime time.Time                      `json:"firstConsensusTime"`
	RecordFile         string                         `json:"recordFile"`
	SignatureFile      string                         `json:"signatureFile"`
	StartHash          runninghash.Digest             `json:"startHash"`
	EndHash            runninghash.Digest             `json:"endHash"`
	FileHash           runninghash.Digest             `json:"fileHash"`
	MetadataHash       runninghash.Digest             `json:"metadataHash"`
	Items              int                            `json:"items"`
	Sidecars           []recordformat.SidecarMetadata `json:"sidecars,omitempty"`
}

// ResumePoint - where a restarted producer continues from
type ResumePoint struct {
	BlockNumber int64
	RunningHash runninghash.Digest
}

// BlockKey - big endian so that keys sort by block number
func BlockKey(number int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(number))
	return key
}

// StoreBlock - index a closed block and advance the resume point
//
// blocks must be stored in increasing order
func StoreBlock(entry *BlockEntry) error {
	if entry.Number < 0 {
		return fault.ErrInvalidBlockNumber
	}

	data, err := json.Marshal(entry)
	if nil != err {
		return err
	}

	trx, err := NewDBTransaction()
	if nil != err {
		return err
	}

	last, err := trx.Get(Pool.State, lastKey)
	if nil != err {
		trx.Abort()
		return err
	}
	if nil != last {
		resume, err := unpackResumePoint(last)
		if nil != err {
			trx.Abort()
			return err
		}
		if entry.Number <= resume.BlockNumber {
			trx.Abort()
			return fault.ErrInvalidBlockNumber
		}
	}

	key := BlockKey(entry.Number)
	trx.Put(Pool.Blocks, key, data)
	trx.PutN(Pool.Files, []byte(filepath.Base(entry.RecordFile)), uint64(entry.Number))
	trx.Put(Pool.State, lastKey, packResumePoint(ResumePoint{
		BlockNumber: entry.Number,
		RunningHash: entry.EndHash,
	}))

	if err := trx.Commit(); nil != err {
		return err
	}
	poolData.log.Debugf("stored block: %d", entry.Number)
	return nil
}

// GetBlock - false if the block was never stored
func GetBlock(number int64) (*BlockEntry, bool, error) {
	data, err := Pool.Blocks.Get(BlockKey(number))
	if nil != err || nil == data {
		return nil, false, err
	}
	entry := &BlockEntry{}
	if err := json.Unmarshal(data, entry); nil != err {
		return nil, false, err
	}
	return entry, true, nil
}

// BlockOfFile - block number of a record file, by base name
func BlockOfFile(name string) (int64, bool, error) {
	n, found, err := Pool.Files.GetN([]byte(filepath.Base(name)))
	return int64(n), found, err
}

// LastBlock - the highest stored block
func LastBlock() (*BlockEntry, bool, error) {
	e, found, err := Pool.Blocks.LastElement()
	if nil != err || !found {
		return nil, false, err
	}
	entry := &BlockEntry{}
	if err := json.Unmarshal(e.Value, entry); nil != err {
		return nil, false, err
	}
	return entry, true, nil
}

// Resume - false for a new database
func Resume() (ResumePoint, bool, error) {
	data, err := Pool.State.Get(lastKey)
	if nil != err || nil == data {
		return ResumePoint{}, false, err
	}
	resume, err := unpackResumePoint(data)
	if nil != err {
		return ResumePoint{}, false, err
	}
	return resume, true, nil
}

// ListBlocks - up to count entries from start in block order
func ListBlocks(start int64, count int) ([]*BlockEntry, error) {
	if start < 0 {
		start = 0
	}
	elements, err := Pool.Blocks.NewFetchCursor().Seek(BlockKey(start)).Fetch(count)
	if nil != err {
		return nil, err
	}
	entries := make([]*BlockEntry, 0, len(elements))
	for _, e := range elements {
		entry := &BlockEntry{}
		if err := json.Unmarshal(e.Value, entry); nil != err {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func packResumePoint(resume ResumePoint) []byte {
	buffer := make([]byte, 8, 8+len(resume.RunningHash))
	binary.BigEndian.PutUint64(buffer, uint64(resume.BlockNumber))
	return append(buffer, resume.RunningHash[:]...)
}

func unpackResumePoint(buffer []byte) (ResumePoint, error) {
	resume := ResumePoint{}
	if len(buffer) != 8+len(resume.RunningHash) {
		return resume, fault.ErrTruncatedRecord
	}
	resume.BlockNumber = int64(binary.BigEndian.Uint64(buffer[:8]))
	copy(resume.RunningHash[:], buffer[8:])
	return resume, nil
}
