// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package future - single assignment results of asynchronous stages
//
// a Future is completed exactly once with either a value or an error.
// Stages created with Then run only after all of their dependencies
// complete; if any dependency failed the stage is skipped and fails
// with the first dependency error, so errors ride the chain until
// something waits on it.
package future

import (
	"github.com/pkg/errors"

	"github.com/bitmark-inc/recordstreamd/fault"
)

// Executor - anything that can run a task asynchronously
type Executor interface {
	Submit(task func())
}

// Future - the eventual result of a stage
type Future struct {
	done  chan struct{}
	value interface{}
	err   error
}

// Func - stage body
type Func func() (interface{}, error)

// ThenFunc - stage body receiving dependency values in order
type ThenFunc func(values []interface{}) (interface{}, error)

// Resolved - an already completed future
func Resolved(value interface{}) *Future {
	f := &Future{
		done:  make(chan struct{}),
		value: value,
	}
	close(f.done)
	return f
}

// Failed - an already failed future
func Failed(err error) *Future {
	f := &Future{
		done: make(chan struct{}),
		err:  err,
	}
	close(f.done)
	return f
}

// Go - run fn on the executor
func Go(e Executor, fn Func) *Future {
	f := &Future{
		done: make(chan struct{}),
	}
	e.Submit(func() {
		f.complete(fn)
	})
	return f
}

// Then - run fn on the executor once every dependency has completed
//
// the dependency list is captured when Then is called, so later
// reassignment of whatever variables the caller used to hold them
// has no effect on this stage
func Then(e Executor, dependencies []*Future, fn ThenFunc) *Future {
	deps := make([]*Future, len(dependencies))
	copy(deps, dependencies)

	f := &Future{
		done: make(chan struct{}),
	}
	e.Submit(func() {
		values := make([]interface{}, len(deps))
		for i, d := range deps {
			v, err := d.Wait()
			if nil != err {
				f.err = err
				close(f.done)
				return
			}
			values[i] = v
		}
		f.complete(func() (interface{}, error) {
			return fn(values)
		})
	})
	return f
}

// Wait - block until complete and return the result
func (f *Future) Wait() (interface{}, error) {
	<-f.done
	return f.value, f.err
}

// Done - channel closed on completion
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// IsDone - non-blocking completion check
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// run the body, converting a panic into a failure
func (f *Future) complete(fn Func) {
	defer close(f.done)
	defer func() {
		if r := recover(); nil != r {
			fault.Criticalf("stage panic: %v", r)
			f.value = nil
			f.err = errors.Wrapf(fault.ErrStagePanic, "%v", r)
		}
	}()
	f.value, f.err = fn()
}
