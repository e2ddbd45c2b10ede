// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stream

import (
	"time"
)

// Rotation - decides block boundaries: a new block starts whenever a
// consensus time falls into a later log period than the previous one
type Rotation struct {
	period  time.Duration
	started bool
	index   int64
	block   int64
}

// NewRotation - lastBlock is the number of the most recently closed
// block, or -1 if there is none
func NewRotation(period time.Duration, lastBlock int64) *Rotation {
	if period <= 0 {
		period = 2 * time.Second
	}
	return &Rotation{
		period: period,
		block:  lastBlock,
	}
}

// Next - check a consensus time, returning true with the numbers of the
// block to close and the block to open when a switch is needed
func (r *Rotation) Next(consensusTime time.Time) (bool, int64, int64) {
	index := periodIndex(consensusTime, r.period)
	if r.started && index == r.index {
		return false, r.block, r.block
	}

	last := r.block
	r.started = true
	r.index = index
	r.block += 1
	return true, last, r.block
}

// Block - the current block number
func (r *Rotation) Block() int64 {
	return r.block
}

// floor division so that times before the epoch stay ordered
func periodIndex(t time.Time, period time.Duration) int64 {
	n := t.UnixNano()
	p := int64(period)
	q := n / p
	if n%p < 0 {
		q -= 1
	}
	return q
}
