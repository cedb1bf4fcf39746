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
	flag.Parse()

	log.Println("starting roast-meter console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsoleMQTT(ctx, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
