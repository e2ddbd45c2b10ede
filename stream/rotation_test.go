// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/stream"
)

func TestRotation(t *testing.T) {
	r := stream.NewRotation(2*time.Second, -1)
	assert.Equal(t, int64(-1), r.Block(), "initial block")

	base := time.Date(2022, 10, 19, 21, 35, 38, 0, time.UTC)

	type step struct {
		offset time.Duration
		rotate bool
		last   int64
		next   int64
	}
	steps := []step{
		{0, true, -1, 0},
		{500 * time.Millisecond, false, 0, 0},
		{1999 * time.Millisecond, false, 0, 0},
		{2 * time.Second, true, 0, 1},
		{3 * time.Second, false, 1, 1},
		{10 * time.Second, true, 1, 2},
	}
	for i, s := range steps {
		ok, last, next := r.Next(base.Add(s.offset))
		assert.Equal(t, s.rotate, ok, "%d: switch", i)
		assert.Equal(t, s.last, last, "%d: last", i)
		assert.Equal(t, s.next, next, "%d: next", i)
	}
	assert.Equal(t, int64(2), r.Block(), "final block")
}

func TestRotationResume(t *testing.T) {
	r := stream.NewRotation(0, 41)

	ok, last, next := r.Next(time.Unix(0, 0).Add(-time.Nanosecond))
	assert.True(t, ok, "first time always switches")
	assert.Equal(t, int64(41), last, "last")
	assert.Equal(t, int64(42), next, "next")

	// default period is two seconds and the epoch starts a new one
	ok, _, next = r.Next(time.Unix(0, 0))
	assert.True(t, ok, "epoch boundary")
	assert.Equal(t, int64(43), next, "next")

	ok, _, _ = r.Next(time.Unix(1, 999999999))
	assert.False(t, ok, "same period")
}

func TestDynamicSettings(t *testing.T) {
	s := stream.NewDynamicSettings(true, 0)
	assert.True(t, s.Compress(), "compress")
	assert.Equal(t, int64(stream.DefaultSidecarMaxSize), s.SidecarMaxSize(), "default size")

	s.Update(false, 4096)
	assert.False(t, s.Compress(), "compress after update")
	assert.Equal(t, int64(4096), s.SidecarMaxSize(), "size after update")

	s.Update(true, -1)
	assert.Equal(t, int64(stream.DefaultSidecarMaxSize), s.SidecarMaxSize(), "negative size")
}
