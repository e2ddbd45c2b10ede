// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recordfile

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitmark-inc/recordstreamd/fault"
)

// file name components
const (
	TimestampLayout     = "2006-01-02T15_04_05.000000000Z"
	RecordExtension     = ".rcd"
	CompressedExtension = ".gz"
	SignatureSuffix     = "_sig"
	SidecarDirectory    = "sidecar"
	recordDirectoryName = "record"
)

// RecordDirectory - node scoped directory for record files
func RecordDirectory(logDirectory string, accountID string) string {
	return filepath.Join(logDirectory, recordDirectoryName+accountID)
}

// RecordFileName - e.g. 2022-10-19T21_35_39.000000123Z.rcd.gz
func RecordFileName(consensusTime time.Time, compress bool) string {
	name := consensusTime.UTC().Format(TimestampLayout) + RecordExtension
	if compress {
		name += CompressedExtension
	}
	return name
}

// SidecarFileName - e.g. 2022-10-19T21_35_39.000000123Z_01.rcd
func SidecarFileName(consensusTime time.Time, index int32, compress bool) string {
	name := fmt.Sprintf("%s_%02d%s", consensusTime.UTC().Format(TimestampLayout), index, RecordExtension)
	if compress {
		name += CompressedExtension
	}
	return name
}

// SignaturePath - signature files sit beside the uncompressed name of
// their record file
func SignaturePath(recordPath string) string {
	return strings.TrimSuffix(recordPath, CompressedExtension) + SignatureSuffix
}

// IsCompressed - true for a .gz file name
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedExtension)
}

// ParseTime - recover the consensus time from a record or sidecar file name
func ParseTime(name string) (time.Time, error) {
	base := filepath.Base(name)
	if len(base) < len(TimestampLayout) {
		return time.Time{}, fault.ErrInvalidFileName
	}
	t, err := time.Parse(TimestampLayout, base[:len(TimestampLayout)])
	if nil != err {
		return time.Time{}, fault.ErrInvalidFileName
	}
	return t, nil
}
