// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stream

import (
	"path/filepath"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/recordstreamd/counter"
	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/future"
	"github.com/bitmark-inc/recordstreamd/recordfile"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/signature"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// number of earlier running hashes retained
const lagDepth = 3

type blockState int

const (
	stateNoBlock blockState = iota
	stateOpen
	stateClosed
)

// BlockObserver - told about every block once its signature file exists
//
// called on an executor worker, so it must not block for long
type BlockObserver interface {
	BlockClosed(info *BlockInfo)
}

// Options - everything a producer needs
type Options struct {
	Config   Config
	Node     NodeInfo
	Settings Settings
	Signer   signature.Signer
	Executor future.Executor
	Observer BlockObserver // optional
}

// Statistics - totals since the producer was created
type Statistics struct {
	Batches uint64 `json:"batches"`
	Items   uint64 `json:"items"`
	Written uint64 `json:"written"`
	Blocks  uint64 `json:"blocks"`
}

// Producer - turns batches of executed transactions into record,
// sidecar and signature files
//
// three independent chains of futures run on the executor: the
// running hash, record file writes and sidecar writes.  Each chain
// preserves call order; the chains only meet when a block closes.
//
// a Producer is driven by a single goroutine; none of its methods may
// be called concurrently
type Producer struct {
	log              *logger.L
	executor         future.Executor
	format           recordformat.Format
	signer           signature.Signer
	settings         Settings
	observer         BlockObserver
	node             NodeInfo
	signatureVersion byte
	recordDirectory  string
	sidecarDirectory string

	batches counter.Counter
	items   counter.Counter
	written counter.Counter
	blocks  counter.Counter

	// the fields below are owned by the calling goroutine; stages only
	// ever see copies taken before a field is reassigned
	state       blockState
	failed      error
	runningHash *future.Future               // runninghash.Digest
	lag         [lagDepth + 1]*future.Future // lag[0] is the latest batch
	writes      *future.Future               // *openBlock
	sidecars    *future.Future               // []*sidecar.File
	closing     *future.Future               // *BlockInfo of the previous block
	current     blockParameters
}

// fixed when a block is opened
type blockParameters struct {
	number             int64
	firstConsensusTime time.Time
	compress           bool
	sidecarMaxSize     int64
}

// the record file of a block, passed along the write chain
type openBlock struct {
	blockParameters
	writer *recordfile.Writer
}

// New - create a producer; no block is open until SwitchBlocks
func New(options Options) (*Producer, error) {
	if nil == options.Signer {
		return nil, fault.ErrMissingSigner
	}
	if nil == options.Executor || nil == options.Settings {
		return nil, fault.ErrNotInitialised
	}

	version := options.Config.RecordFormatVersion
	if 0 == version {
		version = recordformat.CurrentVersion
	}
	format, err := recordformat.Get(version)
	if nil != err {
		return nil, err
	}

	signatureVersion := options.Config.SignatureVersion
	if 0 == signatureVersion {
		signatureVersion = signature.CurrentVersion
	}

	sidecarName := options.Config.SidecarDirectory
	if "" == sidecarName {
		sidecarName = recordfile.SidecarDirectory
	}
	recordDirectory := recordfile.RecordDirectory(options.Config.LogDirectory, options.Node.AccountID)

	p := &Producer{
		log:              logger.New("stream"),
		executor:         options.Executor,
		format:           format,
		signer:           options.Signer,
		settings:         options.Settings,
		observer:         options.Observer,
		node:             options.Node,
		signatureVersion: signatureVersion,
		recordDirectory:  recordDirectory,
		sidecarDirectory: filepath.Join(recordDirectory, sidecarName),
		state:            stateNoBlock,
	}
	p.log.Infof("record directory: %q  format: %d  protocol: %s", recordDirectory, version, options.Node.ProtocolVersion)
	return p, nil
}

// SetRunningHash - seed the chain; must precede every other call
func (p *Producer) SetRunningHash(hash runninghash.Digest) error {
	if stateClosed == p.state {
		return fault.ErrProducerClosed
	}
	if nil != p.runningHash {
		return fault.ErrRunningHashAlreadySet
	}

	p.runningHash = future.Resolved(hash)
	p.lag = [lagDepth + 1]*future.Future{}
	p.log.Infof("running hash: %s", hash)
	return nil
}

// SwitchBlocks - close the open block, if any, and open the next
//
// blocks only to wait for the close of the block before the one being
// closed here, returning its error
func (p *Producer) SwitchBlocks(lastBlockNumber int64, newBlockNumber int64, firstConsensusTime time.Time) error {
	if err := p.usable(); nil != err {
		return err
	}
	if newBlockNumber < 0 || newBlockNumber <= lastBlockNumber {
		return fault.ErrInvalidBlockNumber
	}
	if stateOpen == p.state && lastBlockNumber != p.current.number {
		return fault.ErrWrongBlockNumber
	}

	if nil != p.closing {
		if _, err := p.closing.Wait(); nil != err {
			p.failed = err
			p.log.Criticalf("block close failed: %s", err)
			return err
		}
		p.closing = nil
	}

	if stateOpen == p.state {
		p.closing = p.scheduleClose(p.runningHash, p.writes, p.sidecars, p.current)
	}
	p.open(newBlockNumber, firstConsensusTime)
	return nil
}

// WriteRecordStreamItems - add one user transaction's records, in
// consensus order, to the open block
//
// only enqueues work: serialization, hashing and both writes happen
// on the executor
func (p *Producer) WriteRecordStreamItems(blockNumber int64, firstConsensusTime time.Time, records []*streamrecord.ExecutedTransaction) error {
	if err := p.usable(); nil != err {
		return err
	}
	if stateOpen != p.state {
		return fault.ErrBlockNotOpen
	}
	if blockNumber != p.current.number {
		return fault.ErrWrongBlockNumber
	}
	if !firstConsensusTime.Equal(p.current.firstConsensusTime) {
		return fault.ErrConsensusTimeMismatch
	}

	batch := make([]*streamrecord.ExecutedTransaction, len(records))
	copy(batch, records)

	p.batches.Increment()
	p.items.Add(uint64(len(batch)))

	format := p.format
	protocolVersion := p.node.ProtocolVersion
	serialized := future.Go(p.executor, func() (interface{}, error) {
		items := make([]*streamrecord.Serialized, len(batch))
		for i, r := range batch {
			s, err := format.Serialize(r, blockNumber, protocolVersion)
			if nil != err {
				return nil, err
			}
			items[i] = s
		}
		return items, nil
	})

	p.runningHash = future.Then(p.executor, []*future.Future{p.runningHash, serialized}, func(values []interface{}) (interface{}, error) {
		previous := values[0].(runninghash.Digest)
		items := values[1].([]*streamrecord.Serialized)
		return format.RunningHash(previous, items), nil
	})
	copy(p.lag[1:], p.lag[:lagDepth])
	p.lag[0] = p.runningHash

	p.writes = p.writeItems(p.writes, serialized)
	p.sidecars = p.routeSidecars(p.sidecars, serialized, p.sidecarOpener(p.current))

	return nil
}

// RunningHash - the hash after the most recent batch; blocks
func (p *Producer) RunningHash() (runninghash.Digest, error) {
	if nil == p.runningHash {
		return runninghash.Digest{}, fault.ErrRunningHashNotSet
	}
	v, err := p.runningHash.Wait()
	if nil != err {
		return runninghash.Digest{}, err
	}
	return v.(runninghash.Digest), nil
}

// NMinus3RunningHash - the hash after the batch three calls before the
// most recent one; false until four batches follow SetRunningHash
func (p *Producer) NMinus3RunningHash() (runninghash.Digest, bool, error) {
	if nil == p.runningHash {
		return runninghash.Digest{}, false, fault.ErrRunningHashNotSet
	}
	f := p.lag[lagDepth]
	if nil == f {
		return runninghash.Digest{}, false, nil
	}
	v, err := f.Wait()
	if nil != err {
		return runninghash.Digest{}, false, err
	}
	return v.(runninghash.Digest), true, nil
}

// Close - finish the open block and wait for every outstanding stage
func (p *Producer) Close() error {
	if stateClosed == p.state {
		return nil
	}

	var first error
	if nil != p.closing {
		_, first = p.closing.Wait()
		p.closing = nil
	}

	if stateOpen == p.state {
		hash, writes, sidecars := p.runningHash, p.writes, p.sidecars
		p.writes = nil
		p.sidecars = nil

		_, err := p.scheduleClose(hash, writes, sidecars, p.current).Wait()
		if nil == first {
			first = err
		}
	}

	p.state = stateClosed
	if nil != first {
		p.log.Errorf("close: %s", first)
	} else {
		p.log.Info("closed")
	}
	p.log.Flush()
	return first
}

// Statistics - current totals
func (p *Producer) Statistics() Statistics {
	return Statistics{
		Batches: p.batches.Uint64(),
		Items:   p.items.Uint64(),
		Written: p.written.Uint64(),
		Blocks:  p.blocks.Uint64(),
	}
}

// contract checks shared by the mutating calls
func (p *Producer) usable() error {
	if stateClosed == p.state {
		return fault.ErrProducerClosed
	}
	if nil == p.runningHash {
		return fault.ErrRunningHashNotSet
	}
	return p.failed
}
