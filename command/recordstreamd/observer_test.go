// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/messagebus"
	"github.com/bitmark-inc/recordstreamd/mode"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/storage"
	"github.com/bitmark-inc/recordstreamd/stream"
)

func TestBlockIndexer(t *testing.T) {
	resetMode()
	defer resetMode()

	databaseFileName := filepath.Join(dir, "indexer.leveldb")
	os.RemoveAll(databaseFileName)
	if err := storage.Initialise(databaseFileName, storage.ReadWrite); nil != err {
		t.Fatalf("storage initialise error: %s", err)
	}
	defer func() {
		storage.Finalise()
		os.RemoveAll(databaseFileName)
	}()

	queue := messagebus.Bus.Broadcast.Chan(10)
	defer messagebus.Bus.Broadcast.Release(queue)

	info := &stream.BlockInfo{
		Number:             7,
		FirstConsensusTime: base,
		RecordPath:         "/records/record0.0.3/2023-03-01T12_00_00.000000000Z.rcd.gz",
		SignaturePath:      "/records/record0.0.3/2023-03-01T12_00_00.000000000Z.rcd_sig",
		StartHash:          runninghash.NewDigest([]byte("start")),
		EndHash:            runninghash.NewDigest([]byte("end")),
		Items:              3,
	}

	b := newBlockIndexer()
	b.BlockClosed(info)

	entry, found, err := storage.GetBlock(7)
	assert.Nil(t, err, "get block")
	if assert.True(t, found, "block not stored") {
		assert.Equal(t, info.EndHash, entry.EndHash, "end hash")
		assert.Equal(t, info.RecordPath, entry.RecordFile, "record file")
	}

	resume, found, err := storage.Resume()
	assert.Nil(t, err, "resume")
	assert.True(t, found, "resume point")
	assert.Equal(t, int64(7), resume.BlockNumber, "resume block")
	assert.Equal(t, info.EndHash, resume.RunningHash, "resume hash")

	select {
	case m := <-queue:
		assert.Equal(t, blockClosedCommand, m.Command, "command")
		published := storage.BlockEntry{}
		assert.Nil(t, json.Unmarshal(m.Parameters[0], &published), "JSON")
		assert.Equal(t, int64(7), published.Number, "published block")
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}

	// an out of order block cannot be indexed
	b.BlockClosed(info)
	assert.True(t, mode.Is(mode.Halted), "not halted")
	select {
	case m := <-queue:
		t.Fatalf("unexpected publish: %s", m.Command)
	default:
	}
}
