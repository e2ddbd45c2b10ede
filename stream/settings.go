// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stream

import (
	"sync/atomic"

	"github.com/bitmark-inc/recordstreamd/recordformat"
)

// DefaultSidecarMaxSize - 256 MiB
const DefaultSidecarMaxSize = 256 * 1024 * 1024

// Config - fixed for the life of a producer
type Config struct {
	LogDirectory        string
	SidecarDirectory    string // relative to the record directory
	RecordFormatVersion int32
	SignatureVersion    byte
}

// NodeInfo - identity of the node producing the stream
type NodeInfo struct {
	ProtocolVersion recordformat.SemanticVersion
	AccountID       string
}

// Settings - values that may change while running; sampled each time
// a block is opened
type Settings interface {
	Compress() bool
	SidecarMaxSize() int64
}

// DynamicSettings - Settings that can be replaced from another goroutine
type DynamicSettings struct {
	compress       int32
	sidecarMaxSize int64
}

// NewDynamicSettings - initial values
func NewDynamicSettings(compress bool, sidecarMaxSize int64) *DynamicSettings {
	s := &DynamicSettings{}
	s.Update(compress, sidecarMaxSize)
	return s
}

// Update - replace both values; a non-positive size selects the default
func (s *DynamicSettings) Update(compress bool, sidecarMaxSize int64) {
	c := int32(0)
	if compress {
		c = 1
	}
	if sidecarMaxSize <= 0 {
		sidecarMaxSize = DefaultSidecarMaxSize
	}
	atomic.StoreInt32(&s.compress, c)
	atomic.StoreInt64(&s.sidecarMaxSize, sidecarMaxSize)
}

// Compress - gzip new files
func (s *DynamicSettings) Compress() bool {
	return 0 != atomic.LoadInt32(&s.compress)
}

// SidecarMaxSize - byte budget of one sidecar file
func (s *DynamicSettings) SidecarMaxSize() int64 {
	return atomic.LoadInt64(&s.sidecarMaxSize)
}
