// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bitmark-inc/logger"
	"github.com/urfave/cli"
)

type metadata struct {
	verbose bool
	e       io.Writer
	w       io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	app := newApp(os.Stdout, os.Stderr)

	// the storage layer logs; only critical messages are kept
	logging := logger.Configuration{
		Directory: os.TempDir(),
		File:      "recordstream-cli.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}
	if err := logger.Initialise(logging); nil != err {
		fmt.Fprintf(app.ErrWriter, "logger setup failed with error: %s\n", err)
		os.Exit(1)
	}

	err := app.Run(os.Args)
	logger.Finalise()
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

func newApp(w io.Writer, e io.Writer) *cli.App {

	app := cli.NewApp()
	app.Name = "recordstream-cli"
	app.Usage = "inspect and verify record stream files"
	app.Version = version
	app.HideVersion = true

	app.Writer = w
	app.ErrWriter = e

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "dump",
			Usage:     "decode a record file",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "items, i",
					Usage: " include the size of every item",
				},
			},
			Action: runDump,
		},
		{
			Name:      "sidecar",
			Usage:     "decode a sidecar file",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{},
			Action:    runSidecar,
		},
		{
			Name:      "verify",
			Usage:     "check every record file of a record directory",
			ArgsUsage: "DIRECTORY\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "key, k",
					Value: "",
					Usage: " signing public key `FILE`, signatures are skipped if absent",
				},
				cli.StringFlag{
					Name:  "sidecars, s",
					Value: "",
					Usage: " sidecar directory `NAME` within the record directory",
				},
				cli.StringFlag{
					Name:  "start",
					Value: "",
					Usage: " expected running hash `HEX` at the start of the first file",
				},
			},
			Action: runVerify,
		},
		{
			Name:      "keygen",
			Usage:     "create a record signing key pair",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "public, p",
					Value: "stream.public",
					Usage: " public key `FILE`",
				},
				cli.StringFlag{
					Name:  "private, P",
					Value: "stream.private",
					Usage: " private key `FILE`",
				},
			},
			Action: runKeygen,
		},
		{
			Name:      "blocks",
			Usage:     "list entries of a block index database",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "database, d",
					Value: "",
					Usage: "*block index `FILE`",
				},
				cli.Int64Flag{
					Name:  "start, s",
					Value: 0,
					Usage: " first block `NUMBER`",
				},
				cli.IntFlag{
					Name:  "count, c",
					Value: 20,
					Usage: " maximum number of blocks `COUNT`",
				},
			},
			Action: runBlocks,
		},
		{
			Name:      "info",
			Usage:     "ask a running daemon for the state of its stream",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "connect, c",
					Value: "",
					Usage: "*daemon ingest `HOST:PORT`",
				},
				cli.StringFlag{
					Name:  "server-key, k",
					Value: "",
					Usage: "*daemon ingest public key `FILE`",
				},
			},
			Action: runInfo,
		},
		{
			Name:      "watch",
			Usage:     "print blocks as a daemon publishes them",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "connect, c",
					Value: "",
					Usage: "*daemon broadcast `HOST:PORT`",
				},
				cli.StringFlag{
					Name:  "server-key, k",
					Value: "",
					Usage: "*daemon publish public key `FILE`",
				},
				cli.IntFlag{
					Name:  "count, n",
					Value: 0,
					Usage: " stop after `COUNT` blocks, 0 to run until interrupted",
				},
			},
			Action: runWatch,
		},
	}

	app.Before = func(c *cli.Context) error {
		c.App.Metadata["config"] = &metadata{
			verbose: c.GlobalBool("verbose"),
			e:       c.App.ErrWriter,
			w:       c.App.Writer,
		}
		return nil
	}

	return app
}
