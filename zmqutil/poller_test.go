// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zmqutil_test

import (
	"testing"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/zmqutil"
)

func TestPollerSignal(t *testing.T) {
	push, pull, err := zmqutil.NewSignalPair("inproc://poller-test-signal")
	if nil != err {
		t.Fatalf("signal pair error: %s", err)
	}
	defer push.Close()
	defer pull.Close()

	poller := zmqutil.NewPoller()
	poller.Add(nil, zmq.POLLIN)
	poller.Add(pull, zmq.POLLIN)
	poller.Add(pull, zmq.POLLIN)
	assert.Equal(t, 1, poller.Len(), "nil or duplicate socket added")

	_, err = push.SendMessage("stop")
	assert.Nil(t, err, "send")

	polled, err := poller.Poll(5 * time.Second)
	assert.Nil(t, err, "poll")
	if assert.Equal(t, 1, len(polled), "polled") {
		assert.Equal(t, pull, polled[0].Socket, "socket")
		message, err := polled[0].Socket.RecvMessage(0)
		assert.Nil(t, err, "receive")
		assert.Equal(t, []string{"stop"}, message, "message")
	}
}

func TestPollerRemove(t *testing.T) {
	push1, pull1, err := zmqutil.NewSignalPair("inproc://poller-test-remove-1")
	if nil != err {
		t.Fatalf("signal pair error: %s", err)
	}
	defer push1.Close()
	defer pull1.Close()

	push2, pull2, err := zmqutil.NewSignalPair("inproc://poller-test-remove-2")
	if nil != err {
		t.Fatalf("signal pair error: %s", err)
	}
	defer push2.Close()
	defer pull2.Close()

	poller := zmqutil.NewPoller()
	poller.Add(pull1, zmq.POLLIN)
	poller.Add(pull2, zmq.POLLIN)
	poller.Remove(pull1)
	poller.Remove(pull1)
	assert.Equal(t, 1, poller.Len(), "sockets after remove")

	// pending input on the removed socket is not reported
	_, err = push1.SendMessage("ignored")
	assert.Nil(t, err, "send 1")
	_, err = push2.SendMessage("wanted")
	assert.Nil(t, err, "send 2")

	polled, err := poller.Poll(5 * time.Second)
	assert.Nil(t, err, "poll")
	if assert.Equal(t, 1, len(polled), "polled") {
		assert.Equal(t, pull2, polled[0].Socket, "socket")
	}
}
