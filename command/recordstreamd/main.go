// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/recordstreamd/background"
	"github.com/bitmark-inc/recordstreamd/executor"
	"github.com/bitmark-inc/recordstreamd/fault"
	"github.com/bitmark-inc/recordstreamd/mode"
	"github.com/bitmark-inc/recordstreamd/publish"
	"github.com/bitmark-inc/recordstreamd/signature"
	"github.com/bitmark-inc/recordstreamd/storage"
	"github.com/bitmark-inc/recordstreamd/stream"
	"github.com/bitmark-inc/recordstreamd/zmqutil"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		processSetupCommand(program, []string{"version"})
		return
	}

	if len(options["help"]) > 0 {
		processSetupCommand(program, []string{"help"})
		return
	}

	// these commands do not require the configuration and
	// process data needed for initial setup
	if len(arguments) > 0 && processSetupCommand(program, arguments) {
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := getConfiguration(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// these commands require the configuration and
	// perform enquiries on the configuration
	if len(arguments) > 0 && processConfigCommand(arguments, theConfiguration) {
		return
	}

	// start logging
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// last resort logging for panics
	if err = fault.Initialise(); nil != err {
		exitwithstatus.Message("%s: fault setup failed with error: %s", program, err)
	}
	defer fault.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)
	log.Debugf("theConfiguration: %v", theConfiguration)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	// set the initial system mode - before any background tasks are started
	err = mode.Initialise()
	if nil != err {
		log.Criticalf("mode initialise error: %s", err)
		exitwithstatus.Message("mode initialise error: %s", err)
	}
	defer mode.Finalise()

	// general info
	log.Infof("account: %s  protocol: %s", theConfiguration.Node.AccountID, theConfiguration.protocolVersion)
	log.Infof("database: %q", theConfiguration.Database.Name)
	log.Infof("record directory: %q", theConfiguration.RecordStream.LogDirectory)

	// connection info
	log.Debugf("%s = %#v", "Ingest", theConfiguration.Ingest)
	log.Debugf("%s = %#v", "Publishing", theConfiguration.Publishing)

	// start the block index
	log.Info("initialise storage")
	err = storage.Initialise(theConfiguration.Database.Name, storage.ReadWrite)
	if nil != err {
		log.Criticalf("storage initialise error: %s", err)
		exitwithstatus.Message("storage initialise error: %s", err)
	}
	defer storage.Finalise()

	// these commands are allowed to access the internal database
	if len(arguments) > 0 && processDataCommand(log, arguments, theConfiguration) {
		return
	}

	signer, err := signature.ReadSignerFile(theConfiguration.RecordStream.SigningKey)
	if nil != err {
		log.Criticalf("signing key: %q  error: %s", theConfiguration.RecordStream.SigningKey, err)
		exitwithstatus.Message("signing key: %q  error: %s", theConfiguration.RecordStream.SigningKey, err)
	}

	// initialise encryption
	err = zmqutil.StartAuthentication()
	if nil != err {
		log.Criticalf("zmq.AuthStart: error: %s", err)
		exitwithstatus.Message("zmq.AuthStart: error: %s", err)
	}

	// start up the publishing background processes
	if 0 != len(theConfiguration.Publishing.Broadcast) {
		err = publish.Initialise(&theConfiguration.Publishing)
		if nil != err {
			log.Criticalf("publish initialise error: %s", err)
			exitwithstatus.Message("publish initialise error: %s", err)
		}
		defer publish.Finalise()
	}

	// the shared worker pool
	e := executor.New(theConfiguration.RecordStream.Workers)
	defer e.Stop()

	settings := stream.NewDynamicSettings(theConfiguration.RecordStream.Compress, theConfiguration.sidecarMaxSize)

	producer, err := stream.New(stream.Options{
		Config:   theConfiguration.streamConfig(),
		Node:     theConfiguration.nodeInfo(),
		Settings: settings,
		Signer:   signer,
		Executor: e,
		Observer: newBlockIndexer(),
	})
	if nil != err {
		log.Criticalf("record stream initialise error: %s", err)
		exitwithstatus.Message("record stream initialise error: %s", err)
	}

	// continue the chain from the last indexed block
	lastBlock := int64(-1)
	runningHash := theConfiguration.initialRunningHash
	resume, found, err := storage.Resume()
	if nil != err {
		log.Criticalf("resume error: %s", err)
		exitwithstatus.Message("resume error: %s", err)
	}
	if found {
		lastBlock = resume.BlockNumber
		runningHash = resume.RunningHash
	}
	log.Infof("resume after block: %d  running hash: %s", lastBlock, runningHash)

	if err := producer.SetRunningHash(runningHash); nil != err {
		log.Criticalf("set running hash error: %s", err)
		exitwithstatus.Message("set running hash error: %s", err)
	}

	r := newRecorder(producer, stream.NewRotation(theConfiguration.logPeriod, lastBlock))
	defer r.close()

	// ingest keys
	privateKey, err := zmqutil.ReadPrivateKeyFile(theConfiguration.Ingest.PrivateKey)
	if nil != err {
		log.Criticalf("read private key file: %q  error: %s", theConfiguration.Ingest.PrivateKey, err)
		exitwithstatus.Message("read private key file: %q  error: %s", theConfiguration.Ingest.PrivateKey, err)
	}
	publicKey, err := zmqutil.ReadPublicKeyFile(theConfiguration.Ingest.PublicKey)
	if nil != err {
		log.Criticalf("read public key file: %q  error: %s", theConfiguration.Ingest.PublicKey, err)
		exitwithstatus.Message("read public key file: %q  error: %s", theConfiguration.Ingest.PublicKey, err)
	}

	var limiter *rate.Limiter
	if theConfiguration.Ingest.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(theConfiguration.Ingest.RateLimit), theConfiguration.Ingest.RateBurst)
	}

	in := &ingest{}
	err = in.initialise(r, limiter, privateKey, publicKey, theConfiguration.Ingest.Listen)
	if nil != err {
		log.Criticalf("ingest initialise error: %s", err)
		exitwithstatus.Message("ingest initialise error: %s", err)
	}

	watcher, err := newConfigWatcher(configurationFile, settings)
	if nil != err {
		log.Criticalf("configuration watcher error: %s", err)
		exitwithstatus.Message("configuration watcher error: %s", err)
	}

	processes := background.Processes{
		in,
		watcher,
	}
	b := background.Start(processes, log)

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
	mode.Set(mode.Stopped)

	// no more batches after this; the deferred close finishes the block
	b.Stop()
}
