// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stream

import (
	"time"

	"github.com/bitmark-inc/recordstreamd/future"
	"github.com/bitmark-inc/recordstreamd/recordfile"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/sidecar"
	"github.com/bitmark-inc/recordstreamd/signature"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// BlockInfo - summary of a closed block
type BlockInfo struct {
	Number             int64                          `json:"number"`
	FirstConsensusTime time.Time                      `json:"firstConsensusTime"`
	RecordPath         string                         `json:"recordPath"`
	SignaturePath      string                         `json:"signaturePath"`
	StartHash          runninghash.Digest             `json:"startHash"`
	EndHash            runninghash.Digest             `json:"endHash"`
	FileHash           runninghash.Digest             `json:"fileHash"`
	MetadataHash       runninghash.Digest             `json:"metadataHash"`
	Items              int                            `json:"items"`
	Sidecars           []recordformat.SidecarMetadata `json:"sidecars"`
}

// start a block: settings are sampled now, on the calling goroutine;
// the file is created once the previous block has closed and its
// header written once the running hash is known; the sidecar chain
// starts after the file is open
func (p *Producer) open(number int64, firstConsensusTime time.Time) {
	parameters := blockParameters{
		number:             number,
		firstConsensusTime: firstConsensusTime,
		compress:           p.settings.Compress(),
		sidecarMaxSize:     p.settings.SidecarMaxSize(),
	}

	dependencies := []*future.Future{p.runningHash}
	if nil != p.closing {
		dependencies = append(dependencies, p.closing)
	}

	format := p.format
	protocolVersion := p.node.ProtocolVersion
	directory := p.recordDirectory
	log := p.log

	p.writes = future.Then(p.executor, dependencies, func(values []interface{}) (interface{}, error) {
		startHash := values[0].(runninghash.Digest)

		w, err := recordfile.Create(recordfile.Options{
			Directory:     directory,
			ConsensusTime: parameters.firstConsensusTime,
			Compress:      parameters.compress,
			Format:        format,
		})
		if nil != err {
			return nil, err
		}
		if err := w.WriteHeader(protocolVersion, startHash); nil != err {
			w.Close()
			return nil, err
		}
		log.Debugf("block: %d  opened: %q", parameters.number, w.Path())

		return &openBlock{
			blockParameters: parameters,
			writer:          w,
		}, nil
	})
	// no sidecar file is created for a block that failed to open
	p.sidecars = future.Then(p.executor, []*future.Future{p.writes}, func([]interface{}) (interface{}, error) {
		return []*sidecar.File(nil), nil
	})
	p.current = parameters
	p.state = stateOpen
}

// write chain stage: append a serialized batch to the record file
//
// waits on its inputs directly so the record file is closed when the
// batch failed to serialize
func (p *Producer) writeItems(previous *future.Future, serialized *future.Future) *future.Future {
	return future.Go(p.executor, func() (interface{}, error) {
		v, err := previous.Wait()
		if nil != err {
			return nil, err
		}
		b := v.(*openBlock)

		v, err = serialized.Wait()
		if nil != err {
			b.writer.Close()
			return nil, err
		}
		items := v.([]*streamrecord.Serialized)

		for _, item := range items {
			if err := b.writer.WriteItem(item); nil != err {
				b.writer.Close()
				return nil, err
			}
		}
		p.written.Add(uint64(len(items)))
		return b, nil
	})
}

// sidecar chain stage: route each sidecar of a batch into the block's
// sidecar files, opening new ones as they fill
func (p *Producer) routeSidecars(previous *future.Future, serialized *future.Future, opener sidecar.Opener) *future.Future {
	return future.Go(p.executor, func() (interface{}, error) {
		v, err := previous.Wait()
		if nil != err {
			return nil, err
		}
		files := v.([]*sidecar.File)

		v, err = serialized.Wait()
		if nil != err {
			sidecar.Finish(files)
			return nil, err
		}

		files, err = sidecar.Route(files, opener, v.([]*streamrecord.Serialized))
		if nil != err {
			sidecar.Finish(files)
			return nil, err
		}
		return files, nil
	})
}

func (p *Producer) sidecarOpener(parameters blockParameters) sidecar.Opener {
	directory := p.sidecarDirectory
	return func(index int32) (*sidecar.File, error) {
		return sidecar.Create(directory, parameters.firstConsensusTime, index, parameters.compress, parameters.sidecarMaxSize)
	}
}

// enqueue the close of a block from snapshots of its three chains
//
// the stage waits on each snapshot itself, rather than through Then,
// so that resources from chains that did succeed are still released
// when another chain failed
func (p *Producer) scheduleClose(hash *future.Future, writes *future.Future, sidecars *future.Future, parameters blockParameters) *future.Future {
	return future.Go(p.executor, func() (interface{}, error) {
		return p.closeBlock(hash, writes, sidecars, parameters)
	})
}

func (p *Producer) closeBlock(hash *future.Future, writes *future.Future, sidecars *future.Future, parameters blockParameters) (*BlockInfo, error) {
	hv, hashErr := hash.Wait()
	wv, writeErr := writes.Wait()
	sv, sidecarErr := sidecars.Wait()

	var b *openBlock
	if nil == writeErr {
		b = wv.(*openBlock)
	}
	var files []*sidecar.File
	if nil == sidecarErr {
		files = sv.([]*sidecar.File)
	}

	metadata, finishErr := sidecar.Finish(files)

	for _, err := range []error{writeErr, hashErr, sidecarErr, finishErr} {
		if nil != err {
			if nil != b {
				b.writer.Close()
			}
			p.log.Errorf("block: %d  close failed: %s", parameters.number, err)
			return nil, err
		}
	}

	endHash := hv.(runninghash.Digest)
	w := b.writer
	if err := w.WriteFooter(endHash, parameters.number, metadata); nil != err {
		w.Close()
		return nil, err
	}
	if err := w.Close(); nil != err {
		return nil, err
	}

	signaturePath, err := signature.WriteFile(p.signatureVersion, w.Path(), p.signer, w.Hash(), w.MetadataHash())
	if nil != err {
		return nil, err
	}

	info := &BlockInfo{
		Number:             parameters.number,
		FirstConsensusTime: parameters.firstConsensusTime,
		RecordPath:         w.Path(),
		SignaturePath:      signaturePath,
		StartHash:          w.StartHash(),
		EndHash:            endHash,
		FileHash:           w.Hash(),
		MetadataHash:       w.MetadataHash(),
		Items:              w.Items(),
		Sidecars:           metadata,
	}
	p.blocks.Increment()
	p.log.Infof("block: %d  items: %d  sidecars: %d  file: %q", info.Number, info.Items, len(metadata), info.RecordPath)

	if nil != p.observer {
		p.observer.BlockClosed(info)
	}
	return info, nil
}
