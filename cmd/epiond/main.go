// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/logger"

	"github.com/epi-one/epiond/addrmgr"
	"github.com/epi-one/epiond/chain"
	"github.com/epi-one/epiond/config"
	"github.com/epi-one/epiond/connmgr"
	"github.com/epi-one/epiond/dag"
	"github.com/epi-one/epiond/genesis"
	"github.com/epi-one/epiond/mempool"
	"github.com/epi-one/epiond/metrics"
	"github.com/epi-one/epiond/mode"
	"github.com/epi-one/epiond/params"
	"github.com/epi-one/epiond/peermgr"
	"github.com/epi-one/epiond/storage"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

const maxOutboundPeers = 8

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "epiond: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	configFile := flag.String("config", "epiond.yaml", "path to the configuration file")
	flag.Parse()

	theConfiguration, err := config.Load(*configFile)
	if err != nil {
		fatal("configuration error: %s", err)
	}

	if err := logger.Initialise(logger.Configuration{
		Directory: ".",
		File:      "epiond.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "info",
		},
	}); err != nil {
		fatal("logger setup failed: %s", err)
	}
	defer logger.Finalise()

	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)

	if !chain.Valid(theConfiguration.Chain) {
		log.Criticalf("unknown chain: %s", theConfiguration.Chain)
		fatal("unknown chain: %s", theConfiguration.Chain)
	}

	if err := mode.Initialise(theConfiguration.Chain); err != nil {
		log.Criticalf("mode initialise error: %s", err)
		fatal("mode initialise error: %s", err)
	}
	defer mode.Finalise()

	if err := params.Initialise(theConfiguration.Chain); err != nil {
		log.Criticalf("params initialise error: %s", err)
		fatal("params initialise error: %s", err)
	}
	defer params.Finalise()

	currentParams := params.Current()

	genesisMilestone, err := genesis.Create(currentParams)
	if err != nil {
		log.Criticalf("genesis create error: %s", err)
		fatal("genesis create error: %s", err)
	}
	log.Infof("genesis hash: %s chainwork: %s", genesisMilestone.Hash, genesisMilestone.Chainwork)

	log.Info("initialise storage")
	store, err := storage.Open(theConfiguration.DBPath, false)
	if err != nil {
		log.Criticalf("storage open error: %s", err)
		fatal("storage open error: %s", err)
	}
	defer store.Close()

	addrManager, err := addrmgr.New(store)
	if err != nil {
		log.Criticalf("addrmgr create error: %s", err)
		fatal("addrmgr create error: %s", err)
	}
	listenPort := defaultPortFor(theConfiguration.Listen)
	if err := addrManager.Init(theConfiguration.Seeds, uint16(listenPort)); err != nil {
		log.Criticalf("addrmgr init error: %s", err)
		fatal("addrmgr init error: %s", err)
	}

	connManager := connmgr.NewLibp2pManager(currentParams.Magic)
	for _, listen := range theConfiguration.Listen {
		host, _, err := net.SplitHostPort(listen)
		if err != nil {
			log.Criticalf("invalid listen address %q: %s", listen, err)
			fatal("invalid listen address %q: %s", listen, err)
		}
		if err := connManager.Bind(host); err != nil {
			log.Criticalf("bind %q error: %s", listen, err)
			fatal("bind %q error: %s", listen, err)
		}
		if err := connManager.Listen(listenPort); err != nil {
			log.Criticalf("listen %q error: %s", listen, err)
			fatal("listen %q error: %s", listen, err)
		}
	}

	mtr := metrics.New()

	// The real DAG engine and transaction pool are out of this core's
	// scope (spec.md §1's Non-goals); dag.Memory/mempool.Memory are
	// non-validating stand-ins so peermgr has something concrete to
	// drive end to end.
	dagEngine := dag.NewMemory()
	txPool := mempool.NewMemory()

	peerManager := peermgr.New(connManager, addrManager, dagEngine, txPool, mtr, maxOutboundPeers, uint16(listenPort))
	peerManager.Start()
	defer peerManager.Stop()

	for _, connect := range theConfiguration.Connect {
		host, portString, err := net.SplitHostPort(connect)
		if err != nil {
			log.Errorf("invalid connect address %q: %s", connect, err)
			continue
		}
		port, err := net.LookupPort("tcp", portString)
		if err != nil {
			log.Errorf("invalid connect port %q: %s", connect, err)
			continue
		}
		if _, err := connManager.Connect(host, port); err != nil {
			log.Errorf("connect to %q failed: %s", connect, err)
		}
	}

	log.Info("waiting for SIGINT or SIGTERM…")
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	log.Info("shutting down…")

	mode.Set(mode.Stopped)
}

// defaultPortFor returns the port named by the first listen address, or
// the mainnet default if none was configured.
func defaultPortFor(listen []string) int {
	const defaultPort = 9443
	if len(listen) == 0 {
		return defaultPort
	}
	_, portString, err := net.SplitHostPort(listen[0])
	if err != nil {
		return defaultPort
	}
	port, err := net.LookupPort("tcp", portString)
	if err != nil {
		return defaultPort
	}
	return port
}
