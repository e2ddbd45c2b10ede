// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/dustin/go-humanize"

	"github.com/bitmark-inc/recordstreamd/configuration"
	"github.com/bitmark-inc/recordstreamd/publish"
	"github.com/bitmark-inc/recordstreamd/recordformat"
	"github.com/bitmark-inc/recordstreamd/runninghash"
	"github.com/bitmark-inc/recordstreamd/signature"
	"github.com/bitmark-inc/recordstreamd/stream"
	"github.com/bitmark-inc/recordstreamd/util"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultDatabaseDirectory = "data"
	defaultDatabaseName      = "recordstream.leveldb"

	defaultRecordDirectory = "records"
	defaultSidecarMaxSize  = "256 MiB"
	defaultLogPeriod       = "2s"
	defaultWorkers         = 4

	defaultProtocolVersion = "0.0.0"
	defaultSigningKey      = "stream.private"

	defaultIngestPrivateKey = "ingest.private"
	defaultIngestPublicKey  = "ingest.public"
	defaultIngestRateLimit  = 10000 // records per second
	defaultIngestRateBurst  = 1000  // also the largest accepted batch

	defaultLogDirectory = "log"
	defaultLogFile      = "recordstreamd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// LoglevelMap - to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

// DatabaseType - directory and file name of the block index
type DatabaseType struct {
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
}

// NodeType - identity stamped into every record file
type NodeType struct {
	AccountID       string `gluamapper:"account_id" json:"account_id"`
	ProtocolVersion string `gluamapper:"protocol_version" json:"protocol_version"`
}

// RecordStreamType - how record, sidecar and signature files are produced
//
// compress and sidecar_max_size are re-read whenever the
// configuration file changes and apply from the next block
type RecordStreamType struct {
	LogDirectory        string `gluamapper:"log_directory" json:"log_directory"`
	SidecarDirectory    string `gluamapper:"sidecar_directory" json:"sidecar_directory"`
	Compress            bool   `gluamapper:"compress" json:"compress"`
	SidecarMaxSize      string `gluamapper:"sidecar_max_size" json:"sidecar_max_size"`
	LogPeriod           string `gluamapper:"log_period" json:"log_period"`
	RecordFormatVersion int    `gluamapper:"record_format_version" json:"record_format_version"`
	SignatureVersion    int    `gluamapper:"signature_version" json:"signature_version"`
	SigningKey          string `gluamapper:"signing_key" json:"signing_key"`
	InitialRunningHash  string `gluamapper:"initial_running_hash" json:"initial_running_hash"`
	Workers             int    `gluamapper:"workers" json:"workers"`
}

// IngestType - where executed transactions are received
type IngestType struct {
	Listen     []string `gluamapper:"listen" json:"listen"`
	PrivateKey string   `gluamapper:"private_key" json:"private_key"`
	PublicKey  string   `gluamapper:"public_key" json:"public_key"`
	RateLimit  int      `gluamapper:"rate_limit" json:"rate_limit"`
	RateBurst  int      `gluamapper:"rate_burst" json:"rate_burst"`
}

// Configuration - the whole configuration file
type Configuration struct {
	DataDirectory string                `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string                `gluamapper:"pidfile" json:"pidfile"`
	Database      DatabaseType          `gluamapper:"database" json:"database"`
	Node          NodeType              `gluamapper:"node" json:"node"`
	RecordStream  RecordStreamType      `gluamapper:"record_stream" json:"record_stream"`
	Ingest        IngestType            `gluamapper:"ingest" json:"ingest"`
	Publishing    publish.Configuration `gluamapper:"publishing" json:"publishing"`
	Logging       logger.Configuration  `gluamapper:"logging" json:"logging"`

	// derived from the fields above
	sidecarMaxSize     int64
	logPeriod          time.Duration
	protocolVersion    recordformat.SemanticVersion
	initialRunningHash runninghash.Digest
}

// will read decode and verify the configuration
func getConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default

		Database: DatabaseType{
			Directory: defaultDatabaseDirectory,
			Name:      defaultDatabaseName,
		},

		Node: NodeType{
			ProtocolVersion: defaultProtocolVersion,
		},

		RecordStream: RecordStreamType{
			LogDirectory:        defaultRecordDirectory,
			Compress:            true,
			SidecarMaxSize:      defaultSidecarMaxSize,
			LogPeriod:           defaultLogPeriod,
			RecordFormatVersion: int(recordformat.CurrentVersion),
			SignatureVersion:    int(signature.CurrentVersion),
			SigningKey:          defaultSigningKey,
			Workers:             defaultWorkers,
		},

		Ingest: IngestType{
			PrivateKey: defaultIngestPrivateKey,
			PublicKey:  defaultIngestPublicKey,
			RateLimit:  defaultIngestRateLimit,
			RateBurst:  defaultIngestRateBurst,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := configuration.ParseConfigurationFile(configurationFileName, options); err != nil {
		return nil, err
	}

	if err := options.derive(); nil != err {
		return nil, err
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	util.EnsureAbsolutePaths(options.DataDirectory,
		&options.Database.Directory,
		&options.RecordStream.LogDirectory,
		&options.RecordStream.SigningKey,
		&options.Ingest.PrivateKey,
		&options.Ingest.PublicKey,
		&options.Logging.Directory,
	)

	// optional absolute paths i.e. blank or an absolute path
	util.EnsureOptionalAbsolutePaths(options.DataDirectory,
		&options.PidFile,
		&options.Publishing.PrivateKey,
		&options.Publishing.PublicKey,
	)

	// fail if any of these are not simple file names i.e. must
	// not contain path seperator, then add the correct directory
	// prefix, file item is first and corresponding directory is
	// second (or nil if no prefix can be added)
	mustNotBePaths := [][2]*string{
		{&options.Database.Name, &options.Database.Directory},
		{&options.Logging.File, nil},
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f[0]) {
		case "", ".":
			if nil != f[1] {
				*f[0] = util.EnsureAbsolute(*f[1], *f[0])
			}
		default:
			return nil, fmt.Errorf("Files: %q is not plain name", *f[0])
		}
	}

	// make absolute and create directories if they do not already exist
	err = util.EnsureDirectories(options.DataDirectory,
		&options.Database.Directory,
		&options.RecordStream.LogDirectory,
		&options.Logging.Directory,
	)
	if nil != err {
		return nil, err
	}

	return options, nil
}

// convert and check the fields that are not plain strings
func (options *Configuration) derive() error {

	if "" == options.Node.AccountID {
		return errors.New("Node: account_id is required")
	}

	v, err := recordformat.ParseSemanticVersion(options.Node.ProtocolVersion)
	if nil != err {
		return fmt.Errorf("Node: protocol_version: %q error: %s", options.Node.ProtocolVersion, err)
	}
	options.protocolVersion = v

	size, err := humanize.ParseBytes(options.RecordStream.SidecarMaxSize)
	if nil != err {
		return fmt.Errorf("RecordStream: sidecar_max_size: %q error: %s", options.RecordStream.SidecarMaxSize, err)
	}
	if 0 == size {
		return fmt.Errorf("RecordStream: sidecar_max_size: %q must be positive", options.RecordStream.SidecarMaxSize)
	}
	options.sidecarMaxSize = int64(size)

	period, err := time.ParseDuration(options.RecordStream.LogPeriod)
	if nil != err {
		return fmt.Errorf("RecordStream: log_period: %q error: %s", options.RecordStream.LogPeriod, err)
	}
	if period <= 0 {
		return fmt.Errorf("RecordStream: log_period: %q must be positive", options.RecordStream.LogPeriod)
	}
	options.logPeriod = period

	if _, err := recordformat.Get(int32(options.RecordStream.RecordFormatVersion)); nil != err {
		return fmt.Errorf("RecordStream: record_format_version: %d error: %s", options.RecordStream.RecordFormatVersion, err)
	}
	if options.RecordStream.SignatureVersion < 0 || options.RecordStream.SignatureVersion > 255 {
		return fmt.Errorf("RecordStream: signature_version: %d out of range", options.RecordStream.SignatureVersion)
	}

	if options.Ingest.RateLimit < 0 {
		return fmt.Errorf("Ingest: rate_limit: %d must not be negative", options.Ingest.RateLimit)
	}
	if options.Ingest.RateLimit > 0 && options.Ingest.RateBurst <= 0 {
		return fmt.Errorf("Ingest: rate_burst: %d must be positive", options.Ingest.RateBurst)
	}

	if options.RecordStream.Workers <= 0 {
		options.RecordStream.Workers = defaultWorkers
	}

	if "" != options.RecordStream.InitialRunningHash {
		h, err := runninghash.DigestFromHex(options.RecordStream.InitialRunningHash)
		if nil != err {
			return fmt.Errorf("RecordStream: initial_running_hash error: %s", err)
		}
		options.initialRunningHash = h
	}

	return nil
}

// the parts of the configuration a producer is built from
func (options *Configuration) streamConfig() stream.Config {
	return stream.Config{
		LogDirectory:        options.RecordStream.LogDirectory,
		SidecarDirectory:    options.RecordStream.SidecarDirectory,
		RecordFormatVersion: int32(options.RecordStream.RecordFormatVersion),
		SignatureVersion:    byte(options.RecordStream.SignatureVersion),
	}
}

func (options *Configuration) nodeInfo() stream.NodeInfo {
	return stream.NodeInfo{
		ProtocolVersion: options.protocolVersion,
		AccountID:       options.Node.AccountID,
	}
}
