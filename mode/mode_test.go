// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mode_test

import (
	"os"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/mode"
)

const (
	dir = "testing"
)

func TestMain(m *testing.M) {
	_ = os.RemoveAll(dir)
	_ = os.Mkdir(dir, 0700)

	logging := logger.Configuration{
		Directory: dir,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}
	_ = logger.Initialise(logging)

	rc := m.Run()

	logger.Finalise()
	_ = os.RemoveAll(dir)
	os.Exit(rc)
}

func TestHaltIsFinal(t *testing.T) {
	assert.Nil(t, mode.Initialise(), "initialise")
	assert.Equal(t, fault.ErrAlreadyInitialised, mode.Initialise(), "second initialise")

	assert.True(t, mode.Is(mode.Normal), "initial mode")
	assert.Equal(t, "Normal", mode.String(), "string")

	mode.Halt(fault.ErrRunningHashMismatch)
	mode.Halt(fault.ErrProducerClosed)
	assert.True(t, mode.Is(mode.Halted), "not halted")
	assert.Equal(t, fault.ErrRunningHashMismatch, mode.Reason(), "first reason kept")

	mode.Set(mode.Normal)
	assert.True(t, mode.IsNot(mode.Normal), "left halted state")

	assert.Nil(t, mode.Finalise(), "finalise")
	assert.True(t, mode.Is(mode.Stopped), "stopped")
	assert.Equal(t, fault.ErrNotInitialised, mode.Finalise(), "second finalise")
	assert.Equal(t, "*Unknown*", mode.Mode(99).String(), "unknown")
}
