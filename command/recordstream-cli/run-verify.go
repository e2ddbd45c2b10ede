// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/signature"
	"github.com/bitmark-inc/recordstreamd/verify"
)

type verifyResult struct {
	Directory string           `json:"directory"`
	Files     int              `json:"files"`
	Items     int              `json:"items"`
	Sidecars  int              `json:"sidecars"`
	Signed    bool             `json:"signed"`
	Results   []*verify.Result `json:"results,omitempty"`
}

func runVerify(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	directory := c.Args().First()
	if "" == directory {
		return fmt.Errorf("record directory is required")
	}

	options := verify.Options{
		SidecarDirectory: c.String("sidecars"),
	}

	if keyFile := c.String("key"); "" != keyFile {
		verifier, err := signature.ReadVerifierFile(keyFile)
		if nil != err {
			return err
		}
		options.Verifier = verifier
	}

	if start := c.String("start"); "" != start {
		h, err := runninghash.DigestFromHex(start)
		if nil != err {
			return err
		}
		options.Start = &h
	}

	results, err := verify.Directory(directory, options)
	if m.verbose {
		for _, r := range results {
			fmt.Fprintf(m.e, "ok: block: %d  items: %d  file: %q\n", r.BlockNumber, r.Items, r.Path)
		}
	}
	if nil != err {
		return err
	}

	result := verifyResult{
		Directory: directory,
		Files:     len(results),
		Signed:    nil != options.Verifier,
	}
	for _, r := range results {
		result.Items += r.Items
		result.Sidecars += r.Sidecars
	}
	if m.verbose {
		result.Results = results
	}

	return printJson(m.w, result)
}
