// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/recordstreamd/messagebus"
	"github.com/bitmark-inc/recordstreamd/mode"
	"github.com/bitmark-inc/recordstreamd/storage"
	"github.com/bitmark-inc/recordstreamd/stream"
)

// command sent on the broadcast bus for each closed block
const blockClosedCommand = "block"

// blockIndexer - records every closed block in the database so that a
// restart resumes from its end hash, then announces it to subscribers
type blockIndexer struct {
	log *logger.L
}

func newBlockIndexer() *blockIndexer {
	return &blockIndexer{
		log: logger.New("indexer"),
	}
}

// BlockClosed - runs on an executor worker in block order
func (b *blockIndexer) BlockClosed(info *stream.BlockInfo) {
	entry := &storage.BlockEntry{
		Number:             info.Number,
		FirstConsensusTime: info.FirstConsensusTime,
		RecordFile:         info.RecordPath,
		SignatureFile:      info.SignaturePath,
		StartHash:          info.StartHash,
		EndHash:            info.EndHash,
		FileHash:           info.FileHash,
		MetadataHash:       info.MetadataHash,
		Items:              info.Items,
		Sidecars:           info.Sidecars,
	}

	if err := storage.StoreBlock(entry); nil != err {
		// a missing index entry would resume from the wrong hash
		b.log.Criticalf("store block: %d  error: %s", info.Number, err)
		mode.Halt(err)
		return
	}
	b.log.Infof("block: %d  items: %d  sidecars: %d  end hash: %s", info.Number, info.Items, len(info.Sidecars), info.EndHash)

	data, err := json.Marshal(entry)
	if nil != err {
		b.log.Errorf("block: %d  JSON error: %s", info.Number, err)
		return
	}
	messagebus.Bus.Broadcast.Send(blockClosedCommand, data)
}
