// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package verify - check a record directory the way a third party
// holding the files and the node's public key would
package verify

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/recordfile"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/signature"
)

// Result - what was checked for one record file
type Result struct {
	Path             string             `json:"path"`
	BlockNumber      int64              `json:"blockNumber"`
	Items            int                `json:"items"`
	Sidecars         int                `json:"sidecars"`
	StartHash        runninghash.Digest `json:"startHash"`
	EndHash          runninghash.Digest `json:"endHash"`
	SignatureChecked bool               `json:"signatureChecked"`
}

// Options - how much to check
type Options struct {
	SidecarDirectory string              // defaults to recordfile.SidecarDirectory
	Verifier         signature.Verifier  // nil skips signatures
	Start            *runninghash.Digest // expected start of the first file, if known
}

// File - check one record file: the footer hash against a replay of
// its items, its sidecars against their recorded hashes and, given a
// verifier, both signatures
func File(path string, options Options) (*Result, error) {
	file, err := recordfile.Read(path)
	if nil != err {
		return nil, err
	}

	if nil != options.Start && *options.Start != file.StartHash {
		return nil, errors.Wrapf(fault.ErrRunningHashMismatch, "start hash: %q", path)
	}

	format, err := recordformat.Get(file.Version)
	if nil != err {
		return nil, errors.Wrapf(err, "version %d: %q", file.Version, path)
	}
	endHash, err := format.Replay(file.StartHash, file.Items)
	if nil != err {
		return nil, errors.Wrapf(err, "replay: %q", path)
	}
	if endHash != file.EndHash {
		return nil, errors.Wrapf(fault.ErrRunningHashMismatch, "end hash: %q", path)
	}

	if err := checkSidecars(path, file, options.SidecarDirectory); nil != err {
		return nil, err
	}

	result := &Result{
		Path:        path,
		BlockNumber: file.BlockNumber,
		Items:       len(file.Items),
		Sidecars:    len(file.Sidecars),
		StartHash:   file.StartHash,
		EndHash:     file.EndHash,
	}

	if nil != options.Verifier {
		s, err := signature.ReadFile(recordfile.SignaturePath(path))
		if nil != err {
			return nil, err
		}
		metadataHash := recordformat.MetadataHash(file.Version, file.ProtocolVersion, file.StartHash, file.EndHash, file.BlockNumber)
		if err := signature.Verify(s, file.Hash, metadataHash, options.Verifier); nil != err {
			return nil, errors.Wrapf(err, "signature: %q", path)
		}
		result.SignatureChecked = true
	}
	return result, nil
}

// Directory - check every record file in a record directory in
// consensus time order, including that each file starts where the
// previous one ended and that block numbers increase
func Directory(directory string, options Options) ([]*Result, error) {
	paths, err := RecordFiles(directory)
	if nil != err {
		return nil, err
	}

	results := make([]*Result, 0, len(paths))
	for _, path := range paths {
		r, err := File(path, options)
		if nil != err {
			return results, err
		}
		if n := len(results); n > 0 && r.BlockNumber <= results[n-1].BlockNumber {
			return results, errors.Wrapf(fault.ErrInvalidBlockNumber, "block %d after %d: %q", r.BlockNumber, results[n-1].BlockNumber, path)
		}
		results = append(results, r)

		endHash := r.EndHash
		options.Start = &endHash
	}
	return results, nil
}

// RecordFiles - record files of a directory sorted by consensus time
func RecordFiles(directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if nil != err {
		return nil, err
	}

	type timed struct {
		path string
		at   time.Time
	}
	files := make([]timed, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isRecordFile(name) {
			continue
		}
		at, err := recordfile.ParseTime(name)
		if nil != err {
			continue
		}
		files = append(files, timed{
			path: filepath.Join(directory, name),
			at:   at,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].at.Before(files[j].at) })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

func isRecordFile(name string) bool {
	name = strings.TrimSuffix(name, recordfile.CompressedExtension)
	return strings.HasSuffix(name, recordfile.RecordExtension)
}

// sidecar files carry the compression of their record file
func checkSidecars(path string, file *recordfile.File, sidecarName string) error {
	if 0 == len(file.Sidecars) {
		return nil
	}
	if "" == sidecarName {
		sidecarName = recordfile.SidecarDirectory
	}

	at, err := recordfile.ParseTime(filepath.Base(path))
	if nil != err {
		return err
	}
	directory := filepath.Join(filepath.Dir(path), sidecarName)
	compressed := recordfile.IsCompressed(path)

	for _, m := range file.Sidecars {
		sidecarPath := filepath.Join(directory, recordfile.SidecarFileName(at, m.Index, compressed))
		records, digest, err := recordfile.ReadSidecar(sidecarPath)
		if nil != err {
			return err
		}
		if digest != m.Hash {
			return errors.Wrapf(fault.ErrSidecarHashMismatch, "%q", sidecarPath)
		}

		present := make(map[int32]bool)
		for _, r := range records {
			present[int32(r.Kind)] = true
		}
		for _, k := range m.Kinds {
			if !present[int32(k)] {
				return errors.Wrapf(fault.ErrSidecarHashMismatch, "kind %s missing: %q", k, sidecarPath)
			}
		}
	}
	return nil
}
