// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
)

const sampleConfiguration = `
local M = {}

M.data_directory = "."

M.node = {
    account_id = "0.0.3",
    protocol_version = "0.31.2",
}

M.record_stream = {
    compress = false,
    sidecar_max_size = "1 MiB",
    log_period = "5s",
    workers = 2,
}

M.ingest = {
    listen = {
        "127.0.0.1:2150",
        "[::1]:2150",
    },
}

return M
`

func TestGetConfiguration(t *testing.T) {
	fileName := writeTestFile(t, "recordstreamd.conf", sampleConfiguration)
	directory, _ := filepath.Abs(filepath.Dir(fileName))

	options, err := getConfiguration(fileName)
	assert.Nil(t, err, "configuration")

	assert.Equal(t, "0.0.3", options.Node.AccountID, "account")
	assert.Equal(t, recordformat.SemanticVersion{Major: 0, Minor: 31, Patch: 2}, options.protocolVersion, "protocol version")
	assert.False(t, options.RecordStream.Compress, "compress")
	assert.Equal(t, int64(1048576), options.sidecarMaxSize, "sidecar max size")
	assert.Equal(t, 5*time.Second, options.logPeriod, "log period")
	assert.Equal(t, 2, options.RecordStream.Workers, "workers")
	assert.Equal(t, []string{"127.0.0.1:2150", "[::1]:2150"}, options.Ingest.Listen, "listen")
	assert.Equal(t, runninghash.Zero, options.initialRunningHash, "initial running hash")
	assert.Equal(t, 10000, options.Ingest.RateLimit, "rate limit")
	assert.Equal(t, 1000, options.Ingest.RateBurst, "rate burst")

	// defaults made absolute
	assert.Equal(t, filepath.Join(directory, "records"), options.RecordStream.LogDirectory, "record directory")
	assert.Equal(t, filepath.Join(directory, "data", "recordstream.leveldb"), options.Database.Name, "database")
	assert.Equal(t, filepath.Join(directory, "stream.private"), options.RecordStream.SigningKey, "signing key")
	assert.Equal(t, filepath.Join(directory, "ingest.public"), options.Ingest.PublicKey, "ingest key")
	assert.Equal(t, "", options.Publishing.PrivateKey, "optional path stays blank")

	info, err := os.Stat(options.RecordStream.LogDirectory)
	assert.Nil(t, err, "record directory created")
	assert.True(t, info.IsDir(), "record directory")

	config := options.streamConfig()
	assert.Equal(t, int32(recordformat.CurrentVersion), config.RecordFormatVersion, "format version")
	assert.Equal(t, options.RecordStream.LogDirectory, config.LogDirectory, "log directory")
	assert.Equal(t, "0.0.3", options.nodeInfo().AccountID, "node")
}

func TestGetConfigurationErrors(t *testing.T) {
	tests := []struct {
		from string
		to   string
		text string
	}{
		{`account_id = "0.0.3",`, ``, "account_id"},
		{`"0.31.2"`, `"0.31"`, "protocol_version"},
		{`"1 MiB"`, `"lots"`, "sidecar_max_size"},
		{`"1 MiB"`, `"0"`, "sidecar_max_size"},
		{`"5s"`, `"-5s"`, "log_period"},
		{`"5s"`, `"soon"`, "log_period"},
		{`workers = 2,`, `record_format_version = 5,`, "record_format_version"},
		{`workers = 2,`, `initial_running_hash = "abc",`, "initial_running_hash"},
		{`M.data_directory = "."`, `M.data_directory = ""`, "not a valid directory"},
		{`M.ingest = {`, `M.ingest = { rate_limit = -1,`, "rate_limit"},
		{`M.ingest = {`, `M.ingest = { rate_burst = 0,`, "rate_burst"},
	}

	for i, item := range tests {
		content := strings.Replace(sampleConfiguration, item.from, item.to, 1)
		fileName := writeTestFile(t, "bad.conf", content)

		_, err := getConfiguration(fileName)
		if assert.NotNil(t, err, "%d: accepted", i) {
			assert.Contains(t, err.Error(), item.text, "%d: message", i)
		}
	}
}

func TestInitialRunningHash(t *testing.T) {
	h := runninghash.NewDigest([]byte("genesis"))
	content := strings.Replace(sampleConfiguration, `workers = 2,`, `initial_running_hash = "`+h.String()+`",`, 1)
	fileName := writeTestFile(t, "initial.conf", content)

	options, err := getConfiguration(fileName)
	assert.Nil(t, err, "configuration")
	assert.Equal(t, h, options.initialRunningHash, "initial running hash")
}
