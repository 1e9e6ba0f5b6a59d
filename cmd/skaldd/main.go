// Command skaldd runs the skald content-generation daemon in the
// foreground: it opens the job store, starts the workflow manager, and
// serves the HTTP API until interrupted.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"skald/internal/config"
	"skald/internal/daemonrun"
)

func main() {
	// Provider API keys may live in a .env next to the working directory.
	_ = godotenv.Load()

	var configPath string
	var logLevel string
	flag.StringVar(&configPath, "config", "", "configuration file path")
	flag.StringVar(&logLevel, "log-level", "", "override the configured log level")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel: logLevel,
	}); err != nil {
		log.Fatalf("skaldd: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
