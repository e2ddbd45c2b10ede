// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zmqutil

import (
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// Poller - waits on a listener's IPv4 and IPv6 sockets together with
// the inproc signal socket that tells it to stop
//
// a socket may be removed, e.g. once its peer is gone, while another
// goroutine is polling; that poll still uses the previous set
type Poller struct {
	sync.Mutex
	sockets map[*zmq.Socket]zmq.State
	poller  *zmq.Poller
}

// NewPoller - create a poller
func NewPoller() *Poller {
	return &Poller{
		sockets: make(map[*zmq.Socket]zmq.State),
		poller:  zmq.NewPoller(),
	}
}

// Add - add a socket; nil, as left by NewBind for an address family
// with no listen address, and duplicates are ignored
func (poller *Poller) Add(socket *zmq.Socket, events zmq.State) {
	if nil == socket {
		return
	}

	poller.Lock()
	defer poller.Unlock()

	if _, ok := poller.sockets[socket]; ok {
		return
	}

	poller.sockets[socket] = events
	poller.poller.Add(socket, events)
}

// Remove - remove a socket; unknown sockets are ignored
func (poller *Poller) Remove(socket *zmq.Socket) {
	poller.Lock()
	defer poller.Unlock()

	if _, ok := poller.sockets[socket]; !ok {
		return
	}
	delete(poller.sockets, socket)

	// zmq.Poller has no removal, so build a new one
	p := zmq.NewPoller()
	for s, events := range poller.sockets {
		p.Add(s, events)
	}
	poller.poller = p
}

// Len - number of sockets polled
func (poller *Poller) Len() int {
	poller.Lock()
	defer poller.Unlock()
	return len(poller.sockets)
}

// Poll - wait for events, a negative timeout waits for ever
func (poller *Poller) Poll(timeout time.Duration) ([]zmq.Polled, error) {
	poller.Lock()
	p := poller.poller
	poller.Unlock()
	return p.Poll(timeout)
}
