// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package executor - a shared pool of workers executing submitted
// tasks in submission order
//
// the queue is unbounded so Submit never blocks the caller.  Tasks are
// dequeued strictly first in, first out; a task that waits on the
// result of an earlier task therefore cannot starve the pool.
package executor

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/recordstreamd/background"
)

// DefaultWorkers - pool size used when zero is requested
const DefaultWorkers = 4

// Executor - a running pool
type Executor struct {
	sync.Mutex
	log        *logger.L
	queue      []func()
	ready      chan struct{}
	background *background.T
	stopped    bool
}

// worker is one pool member
type worker struct {
	n int
	e *Executor
}

// New - start a pool of the given number of workers
func New(workers int) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	e := &Executor{
		log:   logger.New("executor"),
		ready: make(chan struct{}, 1),
	}

	processes := make(background.Processes, workers)
	for i := range processes {
		processes[i] = &worker{n: i, e: e}
	}

	e.log.Infof("starting %d workers…", workers)
	e.background = background.Start(processes, nil)
	return e
}

// Submit - enqueue a task
//
// tasks submitted after Stop run on their own goroutine so that
// anything waiting on them still completes
func (e *Executor) Submit(task func()) {
	e.Lock()
	if e.stopped {
		e.Unlock()
		e.log.Warn("submit after stop: running detached")
		go task()
		return
	}
	e.queue = append(e.queue, task)
	e.Unlock()

	e.signal()
}

// Pending - number of queued tasks not yet started
func (e *Executor) Pending() int {
	e.Lock()
	defer e.Unlock()
	return len(e.queue)
}

// Stop - wait for queued tasks to drain then stop all workers
func (e *Executor) Stop() {
	e.Lock()
	e.stopped = true
	e.Unlock()

	e.log.Info("shutting down…")
	e.background.Stop()
	e.log.Info("finished")
	e.log.Flush()
}

// non-blocking wake up of one idle worker
func (e *Executor) signal() {
	select {
	case e.ready <- struct{}{}:
	default:
	}
}

// take the oldest task, or nil when the queue is empty
func (e *Executor) next() func() {
	e.Lock()
	defer e.Unlock()

	if 0 == len(e.queue) {
		return nil
	}
	task := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]

	// more work remains so make sure another worker wakes
	if len(e.queue) > 0 {
		e.signal()
	}
	return task
}

// Run - worker loop
//
// on shutdown the queue is drained before returning
func (w *worker) Run(args interface{}, shutdown <-chan struct{}) {
	log := w.e.log
	log.Debugf("worker[%d]: starting…", w.n)

loop:
	for {
		if task := w.e.next(); nil != task {
			task()
			continue loop
		}

		select {
		case <-shutdown:
			break loop
		case <-w.e.ready:
		}
	}

	for task := w.e.next(); nil != task; task = w.e.next() {
		task()
	}

	log.Debugf("worker[%d]: stopped", w.n)
}
