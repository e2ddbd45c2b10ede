// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/recordstreamd/executor"
	"github.com/bitmark-inc/recordstreamd/recordfile"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/signature"
	"github.com/bitmark-inc/recordstreamd/storage"
	"github.com/bitmark-inc/recordstreamd/stream"
	"github.com/bitmark-inc/recordstreamd/streamrecord"
)

const (
	dir     = "testing"
	account = "0.0.9"
)

var base = time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)

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

// run the tool returning what it printed
func run(arguments ...string) (string, string, error) {
	w := &bytes.Buffer{}
	e := &bytes.Buffer{}
	app := newApp(w, e)
	err := app.Run(append([]string{"recordstream-cli"}, arguments...))
	return w.String(), e.String(), err
}

// write signing keys and a few signed blocks with sidecars
func produce(t *testing.T, blocks int) (string, string) {
	directory := filepath.Join(dir, t.Name())
	_ = os.RemoveAll(directory)
	_ = os.MkdirAll(directory, 0700)

	publicKeyFile := filepath.Join(directory, "stream.public")
	privateKeyFile := filepath.Join(directory, "stream.private")
	_, _, err := run("keygen", "--public", publicKeyFile, "--private", privateKeyFile)
	if nil != err {
		t.Fatalf("keygen error: %s", err)
	}
	signer, err := signature.ReadSignerFile(privateKeyFile)
	if nil != err {
		t.Fatalf("read signer error: %s", err)
	}

	e := executor.New(2)
	defer e.Stop()

	p, err := stream.New(stream.Options{
		Config:   stream.Config{LogDirectory: directory},
		Node:     stream.NodeInfo{ProtocolVersion: recordformat.SemanticVersion{Minor: 40}, AccountID: account},
		Settings: stream.NewDynamicSettings(false, 1024),
		Signer:   signer,
		Executor: e,
	})
	if nil != err {
		t.Fatalf("producer error: %s", err)
	}
	if err := p.SetRunningHash(runninghash.Zero); nil != err {
		t.Fatalf("set running hash error: %s", err)
	}

	for b := 1; b <= blocks; b += 1 {
		at := base.Add(time.Duration(b) * time.Minute)
		if err := p.SwitchBlocks(int64(b-1), int64(b), at); nil != err {
			t.Fatalf("switch error: %s", err)
		}
		records := []*streamrecord.ExecutedTransaction{}
		for i := 0; i < 3; i += 1 {
			records = append(records, &streamrecord.ExecutedTransaction{
				Transaction:   []byte(fmt.Sprintf("tx-%d-%d", b, i)),
				Record:        []byte(fmt.Sprintf("rec-%d-%d", b, i)),
				ConsensusTime: at.Add(time.Duration(i) * time.Millisecond),
				Sidecars: []streamrecord.SidecarRecord{{
					ConsensusTime: at,
					Kind:          streamrecord.KindAction,
					Payload:       []byte("action"),
				}},
			})
		}
		if err := p.WriteRecordStreamItems(int64(b), at, records); nil != err {
			t.Fatalf("write error: %s", err)
		}
	}
	if err := p.Close(); nil != err {
		t.Fatalf("close error: %s", err)
	}
	return recordfile.RecordDirectory(directory, account), publicKeyFile
}

func TestKeygen(t *testing.T) {
	directory := filepath.Join(dir, t.Name())
	_ = os.MkdirAll(directory, 0700)
	publicKeyFile := filepath.Join(directory, "k.public")
	privateKeyFile := filepath.Join(directory, "k.private")

	out, _, err := run("keygen", "-p", publicKeyFile, "-P", privateKeyFile)
	assert.Nil(t, err, "keygen")
	assert.Contains(t, out, "generated private key", "output")

	_, err = signature.ReadVerifierFile(publicKeyFile)
	assert.Nil(t, err, "public key file")

	_, _, err = run("keygen", "-p", publicKeyFile, "-P", privateKeyFile)
	assert.NotNil(t, err, "overwrote existing keys")
}

func TestVerify(t *testing.T) {
	directory, publicKeyFile := produce(t, 2)

	out, _, err := run("verify", "--key", publicKeyFile, directory)
	assert.Nil(t, err, "verify")

	result := verifyResult{}
	assert.Nil(t, json.Unmarshal([]byte(out), &result), "JSON")
	assert.Equal(t, 2, result.Files, "files")
	assert.Equal(t, 6, result.Items, "items")
	assert.Equal(t, 2, result.Sidecars, "sidecars")
	assert.True(t, result.Signed, "signed")

	_, _, err = run("verify", "--start", runninghash.NewDigest([]byte("x")).String(), directory)
	assert.NotNil(t, err, "wrong start accepted")

	_, _, err = run("verify")
	assert.NotNil(t, err, "missing directory")
}

func TestDump(t *testing.T) {
	directory, _ := produce(t, 1)

	at := base.Add(time.Minute)
	path := filepath.Join(directory, recordfile.RecordFileName(at, false))

	out, _, err := run("dump", "--items", path)
	assert.Nil(t, err, "dump")

	result := dumpResult{}
	assert.Nil(t, json.Unmarshal([]byte(out), &result), "JSON")
	assert.Equal(t, int64(1), result.BlockNumber, "block")
	assert.Equal(t, 3, result.Items, "items")
	assert.Equal(t, 3, len(result.ItemSizes), "item sizes")
	assert.Equal(t, "0.40.0", result.ProtocolVersion, "protocol version")
	assert.Equal(t, runninghash.Zero, result.StartHash, "start hash")
	assert.Equal(t, 1, len(result.Sidecars), "sidecars")

	sidecarPath := filepath.Join(directory, recordfile.SidecarDirectory, recordfile.SidecarFileName(at, 1, false))
	out, _, err = run("sidecar", sidecarPath)
	assert.Nil(t, err, "sidecar")

	sidecars := sidecarResult{}
	assert.Nil(t, json.Unmarshal([]byte(out), &sidecars), "JSON")
	assert.Equal(t, 3, len(sidecars.Records), "sidecar records")
	assert.Equal(t, result.Sidecars[0].Hash, sidecars.Hash, "sidecar hash")

	_, _, err = run("dump", filepath.Join(directory, "absent.rcd"))
	assert.NotNil(t, err, "missing file")
}

func TestBlocks(t *testing.T) {
	databaseFileName := filepath.Join(dir, "blocks.leveldb")
	_ = os.RemoveAll(databaseFileName)

	assert.Nil(t, storage.Initialise(databaseFileName, storage.ReadWrite), "create")
	for n := int64(1); n <= 3; n += 1 {
		entry := &storage.BlockEntry{
			Number:     n,
			RecordFile: fmt.Sprintf("%d.rcd", n),
			EndHash:    runninghash.NewDigest([]byte{byte(n)}),
		}
		assert.Nil(t, storage.StoreBlock(entry), "store %d", n)
	}
	storage.Finalise()

	out, _, err := run("blocks", "--database", databaseFileName, "--start", "2", "--count", "5")
	assert.Nil(t, err, "blocks")

	entries := []storage.BlockEntry{}
	assert.Nil(t, json.Unmarshal([]byte(out), &entries), "JSON")
	if assert.Equal(t, 2, len(entries), "entries") {
		assert.Equal(t, int64(2), entries[0].Number, "first")
		assert.Equal(t, int64(3), entries[1].Number, "last")
	}

	_, _, err = run("blocks")
	assert.NotNil(t, err, "missing database")
}
