// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"io"
	"os"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/naoina/toml"
	"gopkg.in/natefinch/lumberjack.v2"

	blocksync "github.com/xdc-network/blocksync/sync"
)

// tomlSettings mirrors the relaxed TOML dialect geth's own config loader
// uses: unknown keys in the file are tolerated so older config files keep
// working across releases.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return nil
	},
}

// daemonConfig is the top-level on-disk configuration for blocksyncd.
type daemonConfig struct {
	Sync blocksync.Config
	Log  logConfig
}

// logConfig configures the rotating file sink the daemon layers behind
// go-ethereum's structured logger.
type logConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Sync: blocksync.DefaultConfig(),
		Log: logConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// loadConfig reads a TOML config file into cfg, leaving cfg at its defaults
// for any field the file doesn't set.
func loadConfig(path string, cfg *daemonConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tomlSettings.NewDecoder(f).Decode(cfg)
}

// writer returns the rotation-aware sink described by cfg.Log, or
// os.Stderr if no file is configured.
func (cfg logConfig) writer() io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// watchConfig calls onChange whenever path is rewritten on disk, debounced
// by a short quiet period so editors that write in several small ops don't
// trigger a reload per write.
func watchConfig(path string, onChange func()) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	go func() {
		var timer *time.Timer
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(200*time.Millisecond, onChange)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return w, nil
}
