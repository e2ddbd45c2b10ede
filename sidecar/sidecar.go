// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sidecar - size bounded overflow files holding the sidecar
// records of one block
package sidecar

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/recordfile"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// File - one sidecar file
type File struct {
	index   int32
	maxSize int64
	size    int64
	count   int
	kinds   map[streamrecord.SidecarKind]struct{}
	stream  *recordfile.Stream
}

// Opener - create the sidecar file with the given 1-based index
type Opener func(index int32) (*File, error)

// Create - open a new sidecar file in directory
//
// size accounting counts only the encoded sidecar records, not their
// framing
func Create(directory string, consensusTime time.Time, index int32, compress bool, maxSize int64) (*File, error) {
	path := filepath.Join(directory, recordfile.SidecarFileName(consensusTime, index, compress))
	stream, err := recordfile.OpenStream(path, compress)
	if nil != err {
		return nil, err
	}
	return &File{
		index:   index,
		maxSize: maxSize,
		kinds:   make(map[streamrecord.SidecarKind]struct{}),
		stream:  stream,
	}, nil
}

// Fits - true if a payload of n bytes stays under the size budget
//
// an empty file accepts any payload so that nothing is ever split
func (f *File) Fits(n int) bool {
	if 0 == f.count {
		return true
	}
	return f.size+int64(n) < f.maxSize
}

// Append - add one encoded sidecar record
func (f *File) Append(kind streamrecord.SidecarKind, packed []byte) error {
	if f.Closed() {
		return fault.ErrSidecarFileClosed
	}
	if !kind.Valid() {
		return fault.ErrInvalidSidecarKind
	}
	if _, err := f.stream.Write(recordformat.SidecarItemBytes(packed)); nil != err {
		return err
	}
	f.size += int64(len(packed))
	f.count += 1
	f.kinds[kind] = struct{}{}
	return nil
}

// Close - flush and close; safe to call more than once
func (f *File) Close() error {
	return f.stream.Close()
}

// Closed - true once Close has been called
func (f *File) Closed() bool {
	return f.stream.Closed()
}

// Index - 1-based position within the block
func (f *File) Index() int32 {
	return f.index
}

// Path - the file being written
func (f *File) Path() string {
	return f.stream.Path()
}

// Size - accounted bytes
func (f *File) Size() int64 {
	return f.size
}

// Count - records written
func (f *File) Count() int {
	return f.count
}

// Metadata - footer reference, valid after Close
func (f *File) Metadata() recordformat.SidecarMetadata {
	kinds := make([]streamrecord.SidecarKind, 0, len(f.kinds))
	for k := range f.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return recordformat.SidecarMetadata{
		Hash:  f.stream.Hash(),
		Index: f.index,
		Kinds: kinds,
	}
}

// Hash - content hash of the uncompressed file, valid after Close
func (f *File) Hash() runninghash.Digest {
	return f.stream.Hash()
}

// Route - append every sidecar in the batch, in order, rolling over to
// a new file whenever the latest one cannot take the next payload
//
// returns files extended by any newly opened ones; on error the
// returned list still holds every file opened so far
func Route(files []*File, open Opener, batch []*streamrecord.Serialized) ([]*File, error) {
	for _, item := range batch {
		for i, packed := range item.SidecarBytes {
			var latest *File
			if n := len(files); n > 0 {
				latest = files[n-1]
			}

			if nil == latest || latest.Closed() || !latest.Fits(len(packed)) {
				if nil != latest {
					if err := latest.Close(); nil != err {
						return files, err
					}
				}
				next, err := open(int32(len(files) + 1))
				if nil != err {
					return files, err
				}
				files = append(files, next)
				latest = next
			}

			if err := latest.Append(item.Sidecars[i].Kind, packed); nil != err {
				return files, err
			}
		}
	}
	return files, nil
}

// Finish - close every file and collect their footer references
func Finish(files []*File) ([]recordformat.SidecarMetadata, error) {
	metadata := make([]recordformat.SidecarMetadata, 0, len(files))
	var first error
	for _, f := range files {
		if err := f.Close(); nil != err && nil == first {
			first = err
		}
		metadata = append(metadata, f.Metadata())
	}
	if nil != first {
		return nil, first
	}
	return metadata, nil
}
