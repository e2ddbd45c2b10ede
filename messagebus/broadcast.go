// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import (
	"sync"
	"sync/atomic"
)

// internal constants
const (
	defaultQueueSize = 1000
)

// Message - a command and its already encoded parameters
type Message struct {
	Command    string
	Parameters [][]byte
}

// BroadcastQueue - every listener receives every message sent after
// it started listening
//
// Send never blocks: a listener whose channel is full misses the
// message and the miss is counted
type BroadcastQueue struct {
	dropped uint64 // first for 64 bit alignment of atomics

	sync.RWMutex
	listeners []chan Message
}

type busses struct {
	Broadcast *BroadcastQueue
}

// Bus - all available queues
var Bus = busses{
	Broadcast: &BroadcastQueue{},
}

// Send - queue a message for every current listener
func (q *BroadcastQueue) Send(command string, parameters ...[]byte) {
	m := Message{
		Command:    command,
		Parameters: parameters,
	}

	q.RLock()
	defer q.RUnlock()
	for _, listener := range q.listeners {
		select {
		case listener <- m:
		default:
			atomic.AddUint64(&q.dropped, 1)
		}
	}
}

// Dropped - messages lost to full listeners
func (q *BroadcastQueue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

// Chan - add a listener with a buffer of size messages; zero or
// negative selects the default
func (q *BroadcastQueue) Chan(size int) <-chan Message {
	if size <= 0 {
		size = defaultQueueSize
	}
	c := make(chan Message, size)

	q.Lock()
	q.listeners = append(q.listeners, c)
	q.Unlock()
	return c
}

// Release - remove a listener and close its channel
func (q *BroadcastQueue) Release(c <-chan Message) {
	q.Lock()
	defer q.Unlock()
	for i, listener := range q.listeners {
		if (<-chan Message)(listener) == c {
			close(listener)
			q.listeners = append(q.listeners[:i], q.listeners[i+1:]...)
			return
		}
	}
}
