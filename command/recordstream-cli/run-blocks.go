// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/recordstreamd/storage"
)

func runBlocks(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	database := c.String("database")
	if "" == database {
		return fmt.Errorf("database file name is required")
	}

	if err := storage.Initialise(database, storage.ReadOnly); nil != err {
		return err
	}
	defer storage.Finalise()

	entries, err := storage.ListBlocks(c.Int64("start"), c.Int("count"))
	if nil != err {
		return err
	}

	if m.verbose {
		fmt.Fprintf(m.e, "blocks: %d\n", len(entries))
	}

	return printJson(m.w, entries)
}
