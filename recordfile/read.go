// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recordfile

import (
	"crypto/sha512"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

// File - a record file read back from disk
type File struct {
	recordformat.RecordFile
	Path string
	Hash runninghash.Digest // of the uncompressed contents
}

// Read - load and decode a record file
func Read(path string) (*File, error) {
	buffer, digest, err := readAll(path)
	if nil != err {
		return nil, err
	}

	contents, err := recordformat.ParseRecordFile(buffer)
	if nil != err {
		return nil, errors.Wrapf(err, "parse: %q", path)
	}
	return &File{
		RecordFile: *contents,
		Path:       path,
		Hash:       digest,
	}, nil
}

// ReadSidecar - load and decode a sidecar file, returning its records
// and content hash
func ReadSidecar(path string) ([]*streamrecord.SidecarRecord, runninghash.Digest, error) {
	buffer, digest, err := readAll(path)
	if nil != err {
		return nil, runninghash.Digest{}, err
	}

	records, err := recordformat.ParseSidecarFile(buffer)
	if nil != err {
		return nil, runninghash.Digest{}, errors.Wrapf(err, "parse: %q", path)
	}
	return records, digest, nil
}

// uncompressed contents and their hash
func readAll(path string) ([]byte, runninghash.Digest, error) {
	f, err := os.Open(path)
	if nil != err {
		return nil, runninghash.Digest{}, errors.Wrapf(err, "open: %q", path)
	}
	defer f.Close()

	var r io.Reader = f
	if IsCompressed(path) {
		z, err := gzip.NewReader(f)
		if nil != err {
			return nil, runninghash.Digest{}, errors.Wrapf(err, "decompress: %q", path)
		}
		defer z.Close()
		r = z
	}

	buffer, err := io.ReadAll(r)
	if nil != err {
		return nil, runninghash.Digest{}, errors.Wrapf(err, "read: %q", path)
	}
	return buffer, runninghash.Digest(sha512.Sum384(buffer)), nil
}
