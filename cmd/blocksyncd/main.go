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

// Command blocksyncd is a standalone harness that wires the block
// synchronization engine up to an in-memory peer pool and runs it against
// an in-memory Chain, for operators who want to exercise the engine without
// a full node. The pool starts empty and no peers are added to it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/urfave/cli/v2"

	blocksync "github.com/xdc-network/blocksync/sync"
	"github.com/xdc-network/blocksync/sync/chain"
	"github.com/xdc-network/blocksync/sync/peer"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to a TOML configuration file",
		EnvVars: []string{"BLOCKSYNCD_CONFIG"},
	}
	watchFlag = &cli.BoolFlag{
		Name:  "config.watch",
		Usage: "Re-read the config file when it changes on disk (changes apply on restart)",
	}
)

func main() {
	app := &cli.App{
		Name:  "blocksyncd",
		Usage: "run the block synchronization engine against a set of peers",
		Flags: []cli.Flag{configFlag, watchFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg := defaultDaemonConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		if err := loadConfig(path, &cfg); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if ctx.Bool(watchFlag.Name) {
			w, err := watchConfig(path, func() {
				var reloaded daemonConfig
				if err := loadConfig(path, &reloaded); err != nil {
					log.Warn("Config reload failed, keeping previous settings", "err", err)
					return
				}
				log.Info("Config file changed, new sync tunables take effect on restart", "path", path)
			})
			if err != nil {
				log.Warn("Config watch disabled", "err", err)
			} else {
				defer w.Close()
			}
		}
	}

	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(cfg.Log.writer(), slog.LevelInfo, true)))

	genesis := types.NewBlockWithHeader(&types.Header{Number: new(big.Int)})
	c := chain.NewMemory(genesis)
	pool := peer.NewMemoryPool()

	signer := types.NewEIP155Signer(nil)
	engine := blocksync.NewEngine(cfg.Sync, c, pool, acceptAllValidator{}, signer, nil)

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ready := func(ctx context.Context) (*types.Header, error) {
		return c.CurrentHead(), nil
	}
	if err := engine.Start(runCtx, ready); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	go hostStatsLoop(runCtx)

	<-runCtx.Done()
	log.Info("Shutdown signal received, stopping sync engine")
	return engine.Stop()
}

// hostStatsLoop periodically logs host resource usage alongside the
// engine's own status log, useful when diagnosing why sync throughput
// dropped on a given machine.
func hostStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			percents, err := cpu.Percent(0, false)
			if err != nil || len(percents) == 0 {
				continue
			}
			vm, err := mem.VirtualMemory()
			if err != nil {
				continue
			}
			log.Info("Host status", "cpu_pct", percents[0], "mem_used_pct", vm.UsedPercent)
		case <-ctx.Done():
			return
		}
	}
}

// acceptAllValidator is the placeholder HeaderValidator this standalone
// harness uses in the absence of a real consensus engine; a production
// caller supplies its own.
type acceptAllValidator struct{}

func (acceptAllValidator) ValidateHeader(*types.Header) error { return nil }
