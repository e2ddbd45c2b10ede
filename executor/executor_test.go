// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package executor_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/executor"
)

func TestSubmitRunsEveryTask(t *testing.T) {
	e := executor.New(3)

	const n = 500
	var wg sync.WaitGroup
	var mutex sync.Mutex
	seen := make(map[int]bool)

	wg.Add(n)
	for i := 0; i < n; i += 1 {
		i := i
		e.Submit(func() {
			defer wg.Done()
			mutex.Lock()
			seen[i] = true
			mutex.Unlock()
		})
	}
	wg.Wait()
	e.Stop()

	assert.Equal(t, n, len(seen), "wrong task count")
}

func TestSingleWorkerIsFIFO(t *testing.T) {
	e := executor.New(1)

	const n = 200
	order := make([]int, 0, n)
	done := make(chan struct{})

	for i := 0; i < n; i += 1 {
		i := i
		e.Submit(func() {
			order = append(order, i)
			if n-1 == i {
				close(done)
			}
		})
	}
	<-done
	e.Stop()

	for i, v := range order {
		assert.Equal(t, i, v, "out of order at %d", i)
	}
}

// a task that waits on a task submitted earlier must not stall the
// pool, even with a single worker
func TestWaitOnEarlierTask(t *testing.T) {
	e := executor.New(1)

	first := make(chan struct{})
	second := make(chan struct{})

	e.Submit(func() {
		close(first)
	})
	e.Submit(func() {
		<-first
		close(second)
	})

	<-second
	e.Stop()
}

func TestStopDrainsQueue(t *testing.T) {
	e := executor.New(2)

	var mutex sync.Mutex
	count := 0
	for i := 0; i < 100; i += 1 {
		e.Submit(func() {
			mutex.Lock()
			count += 1
			mutex.Unlock()
		})
	}
	e.Stop()

	assert.Equal(t, 100, count, "queue not drained")
	assert.Equal(t, 0, e.Pending(), "pending after stop")
}

func TestSubmitAfterStop(t *testing.T) {
	e := executor.New(1)
	e.Stop()

	done := make(chan struct{})
	e.Submit(func() {
		close(done)
	})
	<-done
}
