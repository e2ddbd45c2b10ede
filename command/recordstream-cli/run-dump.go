// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/recordstreamd/recordfile"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
)

type dumpResult struct {
	Path            string                         `json:"path"`
	Size            string                         `json:"size"`
	Version         int32                          `json:"version"`
	ProtocolVersion string                         `json:"protocolVersion"`
	BlockNumber     int64                          `json:"blockNumber"`
	StartHash       runninghash.Digest             `json:"startHash"`
	EndHash         runninghash.Digest             `json:"endHash"`
	FileHash        runninghash.Digest             `json:"fileHash"`
	Items           int                            `json:"items"`
	ItemSizes       []string                       `json:"itemSizes,omitempty"`
	Sidecars        []recordformat.SidecarMetadata `json:"sidecars"`
}

type sidecarEntry struct {
	ConsensusTime string `json:"consensusTime"`
	Kind          string `json:"kind"`
	Migration     bool   `json:"migration"`
	Size          string `json:"size"`
}

type sidecarResult struct {
	Path    string             `json:"path"`
	Hash    runninghash.Digest `json:"hash"`
	Records []sidecarEntry     `json:"records"`
}

func runDump(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	path := c.Args().First()
	if "" == path {
		return fmt.Errorf("record file name is required")
	}

	info, err := os.Stat(path)
	if nil != err {
		return err
	}

	if m.verbose {
		fmt.Fprintf(m.e, "reading: %q\n", path)
	}

	file, err := recordfile.Read(path)
	if nil != err {
		return err
	}

	result := dumpResult{
		Path:            path,
		Size:            humanize.Bytes(uint64(info.Size())),
		Version:         file.Version,
		ProtocolVersion: file.ProtocolVersion.String(),
		BlockNumber:     file.BlockNumber,
		StartHash:       file.StartHash,
		EndHash:         file.EndHash,
		FileHash:        file.Hash,
		Items:           len(file.Items),
		Sidecars:        file.Sidecars,
	}
	if c.Bool("items") {
		for _, item := range file.Items {
			result.ItemSizes = append(result.ItemSizes, humanize.Bytes(uint64(len(item))))
		}
	}

	return printJson(m.w, result)
}

func runSidecar(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	path := c.Args().First()
	if "" == path {
		return fmt.Errorf("sidecar file name is required")
	}

	records, digest, err := recordfile.ReadSidecar(path)
	if nil != err {
		return err
	}

	result := sidecarResult{
		Path:    path,
		Hash:    digest,
		Records: make([]sidecarEntry, 0, len(records)),
	}
	for _, r := range records {
		result.Records = append(result.Records, sidecarEntry{
			ConsensusTime: r.ConsensusTime.UTC().Format(time.RFC3339Nano),
			Kind:          r.Kind.String(),
			Migration:     r.Migration,
			Size:          humanize.Bytes(uint64(len(r.Payload))),
		})
	}

	return printJson(m.w, result)
}
