// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/roast_meter/internal/app"
	"github.com/relabs-tech/roast_meter/internal/config"
)

func main() {
	configPath := flag.String("config", "roast_config.txt", "path to the KEY=VALUE configuration file")
	mock := flag.Bool("mock", false, "use the simulated sensor instead of the MAX30105")
	flag.Parse()

	log.Printf("starting roast-meter %s", app.Revision)

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *mock {
		config.Get().SensorMock = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunRoastMeter(ctx, app.RunOptions{Console: os.Stdin, Out: os.Stdout}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
