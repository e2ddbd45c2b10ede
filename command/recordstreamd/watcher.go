// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"path/filepath"

	"github.com/bitmark-inc/logger"
	"github.com/fsnotify/fsnotify"
)

// settingsUpdater - receives the stream settings from a changed
// configuration file
type settingsUpdater interface {
	Update(compress bool, sidecarMaxSize int64)
}

// configWatcher - re-reads the configuration file when it changes and
// applies the settings that may change while running
type configWatcher struct {
	log      *logger.L
	watcher  *fsnotify.Watcher
	filePath string
	settings settingsUpdater
	read     func(string) (*Configuration, error)
}

func newConfigWatcher(configurationFile string, settings settingsUpdater) (*configWatcher, error) {
	filePath, err := filepath.Abs(filepath.Clean(configurationFile))
	if nil != err {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}

	// watch the directory so that editors replacing the file are seen
	if err := watcher.Add(filepath.Dir(filePath)); nil != err {
		watcher.Close()
		return nil, err
	}

	return &configWatcher{
		log:      logger.New("config-watcher"),
		watcher:  watcher,
		filePath: filePath,
		settings: settings,
		read:     getConfiguration,
	}, nil
}

// Run - apply changes until shutdown
func (w *configWatcher) Run(args interface{}, shutdown <-chan struct{}) {

	log := w.log

	log.Infof("watching: %q", w.filePath)

	defer w.watcher.Close()

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case event, ok := <-w.watcher.Events:
			if !ok {
				break loop
			}
			if filepath.Clean(event.Name) != w.filePath || !isChange(event) {
				continue
			}
			log.Infof("file event: %v", event)
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				break loop
			}
			log.Errorf("watcher error: %s", err)
		}
	}
	log.Info("stopped")
}

// a file that fails to parse leaves the current settings in place
func (w *configWatcher) reload() {
	options, err := w.read(w.filePath)
	if nil != err {
		w.log.Errorf("reload: %q  error: %s", w.filePath, err)
		return
	}
	w.log.Infof("compress: %v  sidecar max size: %d", options.RecordStream.Compress, options.sidecarMaxSize)
	w.settings.Update(options.RecordStream.Compress, options.sidecarMaxSize)
}

func isChange(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Rename == fsnotify.Rename
}
