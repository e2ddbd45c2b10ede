// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
)

// EnsureAbsolute - a relative path is taken to be inside directory
func EnsureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}

// EnsureAbsolutePaths - rewrite each path in place, blank paths
// included
func EnsureAbsolutePaths(directory string, paths ...*string) {
	for _, p := range paths {
		*p = EnsureAbsolute(directory, *p)
	}
}

// EnsureOptionalAbsolutePaths - as EnsureAbsolutePaths but a blank
// path stays blank
func EnsureOptionalAbsolutePaths(directory string, paths ...*string) {
	for _, p := range paths {
		if "" != *p {
			*p = EnsureAbsolute(directory, *p)
		}
	}
}

// EnsureDirectories - make each directory absolute and create it,
// with any missing parents, if it does not exist
func EnsureDirectories(directory string, directories ...*string) error {
	for _, d := range directories {
		*d = EnsureAbsolute(directory, *d)
		if err := os.MkdirAll(*d, 0o700); nil != err {
			return err
		}
	}
	return nil
}

// AnyFileExists - true if at least one of the names exists, used to
// refuse replacing key files
func AnyFileExists(names ...string) bool {
	for _, name := range names {
		if _, err := os.Stat(name); nil == err {
			return true
		}
	}
	return false
}
