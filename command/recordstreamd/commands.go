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
	"strconv"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/recordstreamd/signature"
	"github.com/bitmark-inc/recordstreamd/storage"
	"github.com/bitmark-inc/recordstreamd/zmqutil"
)

const (
	streamPublicKeyFilename  = "stream.public"
	streamPrivateKeyFilename = "stream.private"

	ingestPublicKeyFilename  = "ingest.public"
	ingestPrivateKeyFilename = "ingest.private"

	publishPublicKeyFilename  = "publish.public"
	publishPrivateKeyFilename = "publish.private"
)

// setup command handler
//
// commands that run to create key files these commands cannot access
// any internal database or states or the configuration file
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "gen-signing-key", "sign":
		publicKeyFilename := getFilenameWithDirectory(arguments, streamPublicKeyFilename)
		privateKeyFilename := getFilenameWithDirectory(arguments, streamPrivateKeyFilename)
		err := signature.MakeKeyPair(publicKeyFilename, privateKeyFilename)
		if nil != err {
			fmt.Printf("generate private key: %q and public key: %q error: %s\n", privateKeyFilename, publicKeyFilename, err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("generated private key: %q and public key: %q\n", privateKeyFilename, publicKeyFilename)

	case "gen-ingest-identity", "ingest":
		publicKeyFilename := getFilenameWithDirectory(arguments, ingestPublicKeyFilename)
		privateKeyFilename := getFilenameWithDirectory(arguments, ingestPrivateKeyFilename)
		err := zmqutil.MakeKeyPair(publicKeyFilename, privateKeyFilename)
		if nil != err {
			fmt.Printf("generate private key: %q and public key: %q error: %s\n", privateKeyFilename, publicKeyFilename, err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("generated private key: %q and public key: %q\n", privateKeyFilename, publicKeyFilename)

	case "gen-publish-identity", "publish":
		publicKeyFilename := getFilenameWithDirectory(arguments, publishPublicKeyFilename)
		privateKeyFilename := getFilenameWithDirectory(arguments, publishPrivateKeyFilename)
		err := zmqutil.MakeKeyPair(publicKeyFilename, privateKeyFilename)
		if nil != err {
			fmt.Printf("generate private key: %q and public key: %q error: %s\n", privateKeyFilename, publicKeyFilename, err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("generated private key: %q and public key: %q\n", privateKeyFilename, publicKeyFilename)

	case "start", "run":
		return false // continue processing

	case "block", "b", "resume":
		return false // defer processing until database is loaded

	case "config-test", "cfg":
		return false

	case "version", "v":
		fmt.Printf("%s\n", version)

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %q\n", command)
		}
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]\n", program)

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                       (h)       - display this message\n\n")
		fmt.Printf("  version                    (v)       - display version sting\n\n")

		fmt.Printf("  gen-signing-key [DIR]      (sign)    - create record signing key in: %q\n", "DIR/"+streamPrivateKeyFilename)
		fmt.Printf("                                         and the public key in:       %q\n", "DIR/"+streamPublicKeyFilename)
		fmt.Printf("\n")

		fmt.Printf("  gen-ingest-identity [DIR]  (ingest)  - create private key in: %q\n", "DIR/"+ingestPrivateKeyFilename)
		fmt.Printf("                                         and the public key in: %q\n", "DIR/"+ingestPublicKeyFilename)
		fmt.Printf("\n")

		fmt.Printf("  gen-publish-identity [DIR] (publish) - create private key in: %q\n", "DIR/"+publishPrivateKeyFilename)
		fmt.Printf("                                         and the public key in: %q\n", "DIR/"+publishPublicKeyFilename)
		fmt.Printf("\n")

		fmt.Printf("  start                      (run)     - just run the program, same as no arguments\n")
		fmt.Printf("                                         for convienience when passing script arguments\n")
		fmt.Printf("\n")

		fmt.Printf("  config-test                (cfg)     - just check the configuration file\n")
		fmt.Printf("\n")

		fmt.Printf("  block S [E]                (b)       - dump block index entries as JSON to stdout\n")
		fmt.Printf("\n")

		fmt.Printf("  resume                               - display the block and hash a restart continues from\n")
		fmt.Printf("\n")

		exitwithstatus.Exit(1)
	}

	// indicate processing complete and preform normal exit from main
	return true
}

// configuration file enquiry commands
// have configuration file read and decoded, but nothing else
func processConfigCommand(arguments []string, options *Configuration) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {
	case "config-test", "cfg":
		b, err := json.Marshal(options)
		if err != nil {
			exitwithstatus.Message("error: %s", err)
		}
		var out bytes.Buffer
		json.Indent(&out, b, "", "  ")
		out.WriteTo(os.Stdout)
		os.Stdout.WriteString("\n")

	default: // unknown commands fall through to data command
		return false
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// data command handler
// the block index is open so these commands can read it
func processDataCommand(log *logger.L, arguments []string, options *Configuration) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {

	case "start", "run":
		return false // continue processing

	case "block", "b":
		if len(arguments) < 1 {
			exitwithstatus.Message("missing block number argument")
		}

		n, err := strconv.ParseInt(arguments[0], 10, 64)
		if nil != err {
			exitwithstatus.Message("error in block number: %s", err)
		}

		// optional end range
		nEnd := n
		if len(arguments) > 1 {
			nEnd, err = strconv.ParseInt(arguments[1], 10, 64)
			if nil != err {
				exitwithstatus.Message("error in ending block number: %s", err)
			}
			if nEnd < n {
				exitwithstatus.Message("error: invalid ending block number: %d must not be less than %d", nEnd, n)
			}
		}

		entries, err := storage.ListBlocks(n, int(nEnd-n+1))
		if nil != err {
			exitwithstatus.Message("list blocks error: %s", err)
		}
		s, err := json.MarshalIndent(entries, "", "  ")
		if nil != err {
			exitwithstatus.Message("dump block JSON error: %s", err)
		}
		fmt.Printf("%s\n", s)

	case "resume":
		resume, found, err := storage.Resume()
		if nil != err {
			exitwithstatus.Message("resume error: %s", err)
		}
		if !found {
			fmt.Printf("no blocks recorded; initial running hash: %s\n", options.initialRunningHash)
			break
		}
		fmt.Printf("last block: %d\nrunning hash: %s\n", resume.BlockNumber, resume.RunningHash)

	default:
		log.Errorf("unknown command: %q", command)
		exitwithstatus.Message("unknown command: %q", command)
	}

	// indicate processing complete and perform normal exit from main
	return true
}

// get the working directory; if not set in the arguments
// it's set to the current directory
func getFilenameWithDirectory(arguments []string, name string) string {
	dir := "."
	if len(arguments) >= 1 {
		dir = arguments[0]
	}

	return filepath.Join(dir, name)
}
