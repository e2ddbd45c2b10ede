// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/mode"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/stream"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// the producer operations the recorder drives
type recordStream interface {
	SwitchBlocks(lastBlockNumber int64, newBlockNumber int64, firstConsensusTime time.Time) error
	WriteRecordStreamItems(blockNumber int64, firstConsensusTime time.Time, records []*streamrecord.ExecutedTransaction) error
	RunningHash() (runninghash.Digest, error)
	NMinus3RunningHash() (runninghash.Digest, bool, error)
	Statistics() stream.Statistics
	Close() error
}

// recorder - turns ingested batches into producer calls
//
// only the ingest goroutine calls a recorder
type recorder struct {
	log                *logger.L
	producer           recordStream
	rotation           *stream.Rotation
	firstConsensusTime time.Time
}

// recorderInfo - reply to an information request
type recorderInfo struct {
	Mode        string              `json:"mode"`
	Block       int64               `json:"block"`
	RunningHash runninghash.Digest  `json:"runningHash"`
	NMinus3     *runninghash.Digest `json:"nMinus3,omitempty"`
	Statistics  stream.Statistics   `json:"statistics"`
}

func newRecorder(producer recordStream, rotation *stream.Rotation) *recorder {
	return &recorder{
		log:      logger.New("recorder"),
		producer: producer,
		rotation: rotation,
	}
}

// records - decode one batch and append it to the stream
//
// the first consensus time of a batch decides its block; any failure
// halts the node since the stream can no longer be extended
func (r *recorder) records(parameters [][]byte) error {
	if mode.IsNot(mode.Normal) {
		return fault.ErrNotAvailableDuringHalt
	}
	if 0 == len(parameters) {
		return fault.ErrMissingRecord
	}

	batch := make([]*streamrecord.ExecutedTransaction, 0, len(parameters))
	for _, p := range parameters {
		record, err := streamrecord.Unpack(p)
		if nil != err {
			// a malformed request is the sender's problem
			r.log.Warnf("unpack error: %s", err)
			return err
		}
		batch = append(batch, record)
	}

	consensusTime := batch[0].ConsensusTime
	if rotate, last, next := r.rotation.Next(consensusTime); rotate {
		r.log.Debugf("switch blocks: %d → %d  at: %s", last, next, consensusTime)
		if err := r.producer.SwitchBlocks(last, next, consensusTime); nil != err {
			return r.halt(err)
		}
		r.firstConsensusTime = consensusTime
	}

	if err := r.producer.WriteRecordStreamItems(r.rotation.Block(), r.firstConsensusTime, batch); nil != err {
		return r.halt(err)
	}
	return nil
}

// info - current state of the stream; waits for the latest hash
func (r *recorder) info() (*recorderInfo, error) {
	hash, err := r.producer.RunningHash()
	if nil != err {
		return nil, err
	}
	info := &recorderInfo{
		Mode:        mode.String(),
		Block:       r.rotation.Block(),
		RunningHash: hash,
		Statistics:  r.producer.Statistics(),
	}
	if lagged, ok, err := r.producer.NMinus3RunningHash(); nil != err {
		return nil, err
	} else if ok {
		info.NMinus3 = &lagged
	}
	return info, nil
}

// close - finish the open block
func (r *recorder) close() error {
	err := r.producer.Close()
	if nil != err {
		r.log.Errorf("close error: %s", err)
	}
	return err
}

func (r *recorder) halt(err error) error {
	r.log.Criticalf("record stream failed: %s", err)
	mode.Halt(err)
	return err
}
