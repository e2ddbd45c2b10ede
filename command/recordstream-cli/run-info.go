// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/recordstreamd/storage"
	"github.com/bitmark-inc/recordstreamd/zmqutil"
)

const (
	replyTimeout = 10 * time.Second
)

// connect to one of the daemon's curve servers using a throw away
// client key pair
func connect(c *cli.Context, socketType zmq.Type) (*zmq.Socket, error) {
	address := c.String("connect")
	if "" == address {
		return nil, fmt.Errorf("connect address is required")
	}
	keyFile := c.String("server-key")
	if "" == keyFile {
		return nil, fmt.Errorf("server public key file is required")
	}

	serverPublicKey, err := zmqutil.ReadPublicKeyFile(keyFile)
	if nil != err {
		return nil, err
	}

	publicKey, privateKey, err := zmq.NewCurveKeypair()
	if nil != err {
		return nil, err
	}

	return zmqutil.NewClientSocket(socketType, []byte(privateKey), []byte(publicKey), serverPublicKey, address)
}

func runInfo(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	socket, err := connect(c, zmq.REQ)
	if nil != err {
		return err
	}
	defer socket.Close()

	socket.SetRcvtimeo(replyTimeout)

	if _, err := socket.SendMessage("I"); nil != err {
		return err
	}
	reply, err := socket.RecvMessageBytes(0)
	if nil != err {
		return err
	}
	if len(reply) < 2 {
		return fmt.Errorf("short reply: %d parts", len(reply))
	}
	if "I" != string(reply[0]) {
		return fmt.Errorf("daemon error: %s", reply[1])
	}

	if m.verbose {
		fmt.Fprintf(m.e, "reply: %s\n", reply[1])
	}

	var info interface{}
	if err := json.Unmarshal(reply[1], &info); nil != err {
		return err
	}
	return printJson(m.w, info)
}

func runWatch(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	socket, err := connect(c, zmq.SUB)
	if nil != err {
		return err
	}
	defer socket.Close()

	// only closed blocks, not heartbeats
	socket.SetSubscribe("block")

	limit := c.Int("count")
	for n := 0; 0 == limit || n < limit; n += 1 {
		parts, err := socket.RecvMessageBytes(0)
		if nil != err {
			return err
		}
		if len(parts) < 2 {
			continue
		}

		entry := storage.BlockEntry{}
		if err := json.Unmarshal(parts[1], &entry); nil != err {
			fmt.Fprintf(m.e, "invalid block: %s\n", err)
			continue
		}
		if err := printJson(m.w, entry); nil != err {
			return err
		}
	}
	return nil
}
