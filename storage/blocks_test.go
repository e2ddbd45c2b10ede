// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/storage"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

func makeEntry(number int64) *storage.BlockEntry {
	t := time.Date(2022, 10, 19, 21, 35, 38, 0, time.UTC).Add(time.Duration(number) * 2 * time.Second)
	name := fmt.Sprintf("/logs/record0.0.3/%s.rcd.gz", t.Format("2006-01-02T15_04_05.000000000Z"))
	return &storage.BlockEntry{
		Number:             number,
		FirstConsensusTime: t,
		RecordFile:         name,
		SignatureFile:      name[:len(name)-3] + "_sig",
		StartHash:          runninghash.NewDigest([]byte(fmt.Sprintf("start-%d", number))),
		EndHash:            runninghash.NewDigest([]byte(fmt.Sprintf("end-%d", number))),
		FileHash:           runninghash.NewDigest([]byte(fmt.Sprintf("file-%d", number))),
		MetadataHash:       runninghash.NewDigest([]byte(fmt.Sprintf("metadata-%d", number))),
		Items:              int(number) * 3,
		Sidecars: []recordformat.SidecarMetadata{
			{
				Hash:  runninghash.NewDigest([]byte("sidecar")),
				Index: 1,
				Kinds: []streamrecord.SidecarKind{streamrecord.KindStateChange, streamrecord.KindBytecode},
			},
		},
	}
}

func TestStoreAndGetBlock(t *testing.T) {
	setup(t)
	defer teardown()

	_, found, err := storage.Resume()
	assert.Nil(t, err, "resume on empty database")
	assert.False(t, found, "resume point in empty database")

	for n := int64(0); n < 5; n += 1 {
		assert.Nil(t, storage.StoreBlock(makeEntry(n)), "store block %d", n)
	}

	entry, found, err := storage.GetBlock(3)
	assert.Nil(t, err, "get block")
	assert.True(t, found, "block 3 not found")
	expected := makeEntry(3)
	assert.Equal(t, expected.EndHash, entry.EndHash, "end hash")
	assert.Equal(t, expected.RecordFile, entry.RecordFile, "record file")
	assert.Equal(t, expected.Sidecars, entry.Sidecars, "sidecars")
	assert.True(t, expected.FirstConsensusTime.Equal(entry.FirstConsensusTime), "time")

	_, found, err = storage.GetBlock(9)
	assert.Nil(t, err, "get missing block")
	assert.False(t, found, "block 9 found")

	number, found, err := storage.BlockOfFile(filepath.Base(makeEntry(2).RecordFile))
	assert.Nil(t, err, "block of file")
	assert.True(t, found, "file not indexed")
	assert.Equal(t, int64(2), number, "block of file")

	resume, found, err := storage.Resume()
	assert.Nil(t, err, "resume")
	assert.True(t, found, "no resume point")
	assert.Equal(t, int64(4), resume.BlockNumber, "resume block")
	assert.Equal(t, makeEntry(4).EndHash, resume.RunningHash, "resume hash")

	last, found, err := storage.LastBlock()
	assert.Nil(t, err, "last block")
	assert.True(t, found, "no last block")
	assert.Equal(t, int64(4), last.Number, "last block number")
}

func TestStoreBlockOrder(t *testing.T) {
	setup(t)
	defer teardown()

	assert.Nil(t, storage.StoreBlock(makeEntry(7)), "store 7")
	assert.Equal(t, fault.ErrInvalidBlockNumber, storage.StoreBlock(makeEntry(7)), "store 7 again")
	assert.Equal(t, fault.ErrInvalidBlockNumber, storage.StoreBlock(makeEntry(5)), "store 5")
	assert.Equal(t, fault.ErrInvalidBlockNumber, storage.StoreBlock(makeEntry(-1)), "store -1")

	// a rejected store releases the transaction
	assert.Nil(t, storage.StoreBlock(makeEntry(8)), "store 8")

	resume, _, err := storage.Resume()
	assert.Nil(t, err, "resume")
	assert.Equal(t, int64(8), resume.BlockNumber, "resume block")
}

func TestListBlocks(t *testing.T) {
	setup(t)
	defer teardown()

	for n := int64(0); n < 300; n += 1 {
		assert.Nil(t, storage.StoreBlock(makeEntry(n)), "store block %d", n)
	}

	entries, err := storage.ListBlocks(250, 100)
	assert.Nil(t, err, "list")
	assert.Equal(t, 50, len(entries), "count")
	for i, e := range entries {
		assert.Equal(t, int64(250+i), e.Number, "order")
	}

	// crosses a carry into the second key byte
	cursor := storage.Pool.Blocks.NewFetchCursor().Seek(storage.BlockKey(254))
	first, err := cursor.Fetch(2)
	assert.Nil(t, err, "fetch")
	assert.Equal(t, 2, len(first), "first fetch")
	second, err := cursor.Fetch(2)
	assert.Nil(t, err, "fetch")
	assert.Equal(t, storage.BlockKey(256), second[0].Key, "cursor did not advance")

	_, err = cursor.Fetch(0)
	assert.Equal(t, fault.ErrInvalidCount, err, "zero count")
}

func TestReopenKeepsResumePoint(t *testing.T) {
	setup(t)
	defer teardown()

	assert.Nil(t, storage.StoreBlock(makeEntry(11)), "store")
	storage.Finalise()

	err := storage.Initialise(databaseFileName, storage.ReadOnly)
	assert.Nil(t, err, "reopen")

	resume, found, err := storage.Resume()
	assert.Nil(t, err, "resume")
	assert.True(t, found, "resume point lost")
	assert.Equal(t, int64(11), resume.BlockNumber, "block")

	assert.Equal(t, fault.ErrAlreadyInitialised, storage.Initialise(databaseFileName, storage.ReadOnly), "second initialise")
}
