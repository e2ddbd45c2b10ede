// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mode - health of the record stream
//
// a node whose stream can no longer be extended is Halted: nothing
// more is accepted until an operator restarts it
package mode

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/recordstreamd/fault"
)

// Mode - type to hold the mode
type Mode int

// all possible modes
const (
	Stopped Mode = iota
	Normal
	Halted
	maximum
)

var globalData struct {
	sync.RWMutex
	log    *logger.L
	mode   Mode
	reason error

	// set once during initialise
	initialised bool
}

// Initialise - set up the mode system
func Initialise() error {
	globalData.Lock()
	defer globalData.Unlock()

	// no need to start if already started
	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("mode")
	globalData.log.Info("starting…")

	globalData.mode = Normal
	globalData.reason = nil

	// all data initialised
	globalData.initialised = true

	return nil
}

// Finalise - shutdown mode handling
func Finalise() error {
	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.log.Flush()

	Set(Stopped)

	// finally...
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()

	return nil
}

// Set - change mode
//
// Halted is final: only Stopped may follow it
func Set(mode Mode) {
	if mode < Stopped || mode >= maximum {
		globalData.log.Errorf("ignore invalid set: %d", mode)
		return
	}

	globalData.Lock()
	if Halted == globalData.mode && Stopped != mode {
		globalData.Unlock()
		globalData.log.Warnf("halted: ignore set: %s", mode)
		return
	}
	globalData.mode = mode
	globalData.Unlock()

	globalData.log.Infof("set: %s", mode)
}

// Halt - stop accepting records because of err
func Halt(err error) {
	globalData.Lock()
	if nil == globalData.reason {
		globalData.reason = err
	}
	globalData.Unlock()

	globalData.log.Criticalf("halt: %s", err)
	Set(Halted)
}

// Reason - the error that caused a halt
func Reason() error {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.reason
}

// Is - detect mode
func Is(mode Mode) bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return mode == globalData.mode
}

// IsNot - detect mode
func IsNot(mode Mode) bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return mode != globalData.mode
}

// String - current mode represented as a string
func String() string {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.mode.String()
}

// String - mode represented as a string
func (m Mode) String() string {
	switch m {
	case Stopped:
		return "Stopped"
	case Normal:
		return "Normal"
	case Halted:
		return "Halted"
	default:
		return "*Unknown*"
	}
}
