// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recordfile

import (
	"bufio"
	"crypto/sha512"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/runninghash"
)

const bufferSize = 64 * 1024

// Stream - layered output:
//
//	file <- optional gzip <- SHA-384 hashing <- buffering
//
// the digest covers the uncompressed bytes
type Stream struct {
	path       string
	file       *os.File
	compressor *gzip.Writer
	hashing    *hashingWriter
	buffered   *bufio.Writer
	closed     bool
	digest     runninghash.Digest
}

// write through to next and add the accepted bytes to the hash
type hashingWriter struct {
	next    io.Writer
	hash    hash.Hash
	written int64
}

func (h *hashingWriter) Write(p []byte) (int, error) {
	n, err := h.next.Write(p)
	h.hash.Write(p[:n])
	h.written += int64(n)
	return n, err
}

// OpenStream - create a file, and any missing parent directories
//
// an existing file is truncated: it can only be left over from a
// block that was never indexed, and is produced again on restart
func OpenStream(path string, compress bool) (*Stream, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if nil != err {
		return nil, errors.Wrapf(err, "create directory for: %q", path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if nil != err {
		return nil, errors.Wrapf(err, "create: %q", path)
	}

	s := &Stream{
		path: path,
		file: file,
	}

	var sink io.Writer = file
	if compress {
		s.compressor = gzip.NewWriter(file)
		sink = s.compressor
	}
	s.hashing = &hashingWriter{
		next: sink,
		hash: sha512.New384(),
	}
	s.buffered = bufio.NewWriterSize(s.hashing, bufferSize)

	return s, nil
}

// Write - append bytes
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fault.ErrRecordFileClosed
	}
	n, err := s.buffered.Write(p)
	if nil != err {
		return n, errors.Wrapf(err, "write: %q", s.path)
	}
	return n, nil
}

// Size - uncompressed bytes written so far, including any still buffered
func (s *Stream) Size() int64 {
	return s.hashing.written + int64(s.buffered.Buffered())
}

// Closed - true once Close has been called
func (s *Stream) Closed() bool {
	return s.closed
}

// Path - location of the file
func (s *Stream) Path() string {
	return s.path
}

// Close - flush and release every layer, innermost first
//
// all layers are released even after a failure; the first error is
// returned
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var first error
	keep := func(err error, action string) {
		if nil != err && nil == first {
			first = errors.Wrapf(err, "%s: %q", action, s.path)
		}
	}

	keep(s.buffered.Flush(), "flush")
	if nil != s.compressor {
		keep(s.compressor.Close(), "compress")
	}
	keep(s.file.Sync(), "sync")
	keep(s.file.Close(), "close")

	s.hashing.hash.Sum(s.digest[:0])
	return first
}

// Hash - SHA-384 of the uncompressed contents, valid after Close
func (s *Stream) Hash() runninghash.Digest {
	return s.digest
}
