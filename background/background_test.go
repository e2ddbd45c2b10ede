// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/background"
)

// drains a queue of block numbers until shut down
type drainer struct {
	queue    chan int64
	received int64
	finished bool
}

func (d *drainer) Run(args interface{}, shutdown <-chan struct{}) {
	t := args.(*testing.T)
loop:
	for {
		select {
		case <-shutdown:
			break loop
		case n := <-d.queue:
			atomic.AddInt64(&d.received, 1)
			t.Logf("block: %d", n)
		}
	}
	d.finished = true
}

func TestStartAndStop(t *testing.T) {
	d1 := &drainer{queue: make(chan int64)}
	d2 := &drainer{queue: make(chan int64)}

	p := background.Start(background.Processes{d1, d2}, t)

	for n := int64(0); n < 5; n += 1 {
		d1.queue <- n
		d2.queue <- n * 2
	}
	p.Stop()

	assert.True(t, d1.finished, "first process still running")
	assert.True(t, d2.finished, "second process still running")
	assert.Equal(t, int64(5), atomic.LoadInt64(&d1.received), "first process count")
	assert.Equal(t, int64(5), atomic.LoadInt64(&d2.received), "second process count")
}

func TestStopTwice(t *testing.T) {
	d := &drainer{queue: make(chan int64)}

	p := background.Start(background.Processes{d}, t)
	time.Sleep(10 * time.Millisecond)
	p.Stop()
	p.Stop()

	assert.True(t, d.finished, "process still running")
}

func TestStartNothing(t *testing.T) {
	p := background.Start(background.Processes{}, t)
	p.Stop()
}
