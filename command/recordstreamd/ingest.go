// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"time"

	"github.com/bitmark-inc/logger"
	zmq "github.com/pebbe/zmq4"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/zmqutil"
)

const (
	ingestZapDomain = "ingest"
	ingestSignal    = "inproc://recordstream-ingest-signal"
)

// ingest requests
//
//	"R" packed-record...  append one batch of executed transactions
//	"I"                   stream information as JSON
//
// replies are the request code followed by a result or "E" and an
// error message
const (
	recordsRequest = "R"
	infoRequest    = "I"
	errorReply     = "E"
)

type ingest struct {
	log      *logger.L
	recorder *recorder
	limiter  *rate.Limiter // nil for no limit
	push     *zmq.Socket   // signal send
	pull     *zmq.Socket   // signal receive
	socket4  *zmq.Socket   // IPv4 traffic
	socket6  *zmq.Socket   // IPv6 traffic
}

// initialise the ingest listener
func (in *ingest) initialise(r *recorder, limiter *rate.Limiter, privateKey []byte, publicKey []byte, listen []string) error {

	log := logger.New("ingest")
	in.log = log
	in.recorder = r
	in.limiter = limiter

	log.Info("initialising…")

	// signalling channel
	err := error(nil)
	in.push, in.pull, err = zmqutil.NewSignalPair(ingestSignal)
	if nil != err {
		return err
	}

	// allocate IPv4 and IPv6 sockets
	in.socket4, in.socket6, err = zmqutil.NewBind(log, zmq.REP, ingestZapDomain, privateKey, publicKey, listen)
	if nil != err {
		log.Errorf("bind error: %s", err)
		in.push.Close()
		in.pull.Close()
		return err
	}

	return nil
}

// Run - wait for incoming batches, record them and reply
//
// the recorder is only ever called from the polling goroutine
func (in *ingest) Run(args interface{}, shutdown <-chan struct{}) {

	log := in.log

	log.Info("starting…")

	done := make(chan struct{})
	go func() {
		defer close(done)

		poller := zmqutil.NewPoller()
		poller.Add(in.socket4, zmq.POLLIN)
		poller.Add(in.socket6, zmq.POLLIN)
		poller.Add(in.pull, zmq.POLLIN)
	loop:
		for {
			sockets, err := poller.Poll(-1)
			if nil != err {
				log.Errorf("poll error: %s", err)
				continue
			}
			for _, socket := range sockets {
				switch s := socket.Socket; s {
				case in.pull:
					s.RecvMessageBytes(0)
					break loop
				default:
					in.process(s)
				}
			}
		}
		log.Info("shutting down")
		in.pull.Close()
		if nil != in.socket4 {
			in.socket4.Close()
		}
		if nil != in.socket6 {
			in.socket6.Close()
		}
		log.Info("stopped")
	}()

	// wait for shutdown
	log.Info("waiting…")
	<-shutdown
	log.Info("initiate shutdown")
	in.push.SendMessage("stop")
	in.push.Close()
	<-done
}

// receive one request and always send a reply
func (in *ingest) process(socket *zmq.Socket) {

	log := in.log

	data, err := socket.RecvMessageBytes(0)
	if nil != err {
		log.Errorf("receive error: %s", err)
		return
	}

	reply := in.handle(data)

	if _, err := socket.SendMessage(reply...); nil != err {
		log.Errorf("send error: %s", err)
	}
}

// dispatch a request to the recorder
func (in *ingest) handle(data [][]byte) []interface{} {

	log := in.log

	if len(data) < 1 {
		return []interface{}{errorReply, "empty request"}
	}

	fn := string(data[0])
	parameters := data[1:]

	log.Debugf("received: %q  parameters: %d", fn, len(parameters))

	switch fn {
	case recordsRequest:
		if err := rateLimitN(in.limiter, len(parameters)); nil != err {
			return []interface{}{errorReply, err.Error()}
		}
		if err := in.recorder.records(parameters); nil != err {
			return []interface{}{errorReply, err.Error()}
		}
		return []interface{}{fn, "ok"}

	case infoRequest:
		info, err := in.recorder.info()
		if nil != err {
			return []interface{}{errorReply, err.Error()}
		}
		result, err := json.Marshal(info)
		if nil != err {
			return []interface{}{errorReply, err.Error()}
		}
		return []interface{}{fn, result}

	default:
		log.Warnf("unknown request: %q", fn)
		return []interface{}{errorReply, "unknown request: " + fn}
	}
}

// delay until count records are allowed; a batch larger than the
// burst can never be allowed
func rateLimitN(limiter *rate.Limiter, count int) error {
	if nil == limiter {
		return nil
	}
	if count <= 0 {
		count = 1
	}
	r := limiter.ReserveN(time.Now(), count)
	if !r.OK() {
		return fault.ErrRateLimiting
	}
	time.Sleep(r.Delay())
	return nil
}
