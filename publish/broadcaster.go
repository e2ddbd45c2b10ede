// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package publish

import (
	"encoding/binary"
	"time"

	"github.com/bitmark-inc/logger"
	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/recordstreamd/messagebus"
	"github.com/bitmark-inc/recordstreamd/zmqutil"
)

const (
	heartbeatInterval = 60 * time.Second
	heartbeatCommand  = "heart"
	queueSize         = 1000
)

type broadcaster struct {
	log     *logger.L
	socket4 *zmq.Socket
	socket6 *zmq.Socket
	queue   <-chan messagebus.Message
}

// initialise the broadcaster
func (brdc *broadcaster) initialise(privateKey []byte, publicKey []byte, broadcast []string) error {

	log := logger.New("broadcaster")
	brdc.log = log

	log.Info("initialising…")

	// allocate IPv4 and IPv6 sockets
	socket4, socket6, err := zmqutil.NewBind(log, zmq.PUB, zapDomain, privateKey, publicKey, broadcast)
	if nil != err {
		log.Errorf("bind error: %s", err)
		return err
	}

	brdc.socket4 = socket4
	brdc.socket6 = socket6

	// listen before Run so nothing sent after start up is missed
	brdc.queue = messagebus.Bus.Broadcast.Chan(queueSize)

	return nil
}

// Run - wait for blocks on the bus and send them to subscribers
func (brdc *broadcaster) Run(args interface{}, shutdown <-chan struct{}) {

	log := brdc.log

	log.Info("starting…")

	defer func() {
		messagebus.Bus.Broadcast.Release(brdc.queue)
		if nil != brdc.socket4 {
			brdc.socket4.Close()
		}
		if nil != brdc.socket6 {
			brdc.socket6.Close()
		}
		log.Info("stopped")
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

loop:
	for {
		log.Debug("waiting…")
		select {
		case <-shutdown:
			break loop

		case item := <-brdc.queue:
			log.Debugf("sending: %s", item.Command)
			if err := brdc.send(item.Command, item.Parameters...); nil != err {
				log.Errorf("send: %s  error: %s", item.Command, err)
			}

		case <-heartbeat.C:
			timestamp := make([]byte, 8)
			binary.BigEndian.PutUint64(timestamp, uint64(time.Now().Unix()))
			if err := brdc.send(heartbeatCommand, timestamp); nil != err {
				log.Errorf("heartbeat error: %s", err)
			}
		}
	}
}

// send a multipart message on every bound socket
func (brdc *broadcaster) send(command string, parameters ...[]byte) error {
	frames := Frames(command, parameters...)
	for _, socket := range []*zmq.Socket{brdc.socket4, brdc.socket6} {
		if nil == socket {
			continue
		}
		if _, err := socket.SendMessage(frames...); nil != err {
			return err
		}
	}
	return nil
}

// Frames - the parts of a published message: the command followed by
// each parameter
func Frames(command string, parameters ...[]byte) []interface{} {
	frames := make([]interface{}, 0, 1+len(parameters))
	frames = append(frames, command)
	for _, p := range parameters {
		frames = append(frames, p)
	}
	return frames
}
