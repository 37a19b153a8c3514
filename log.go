package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

// envOverrides are settings read from the environment before the flag
// and config layers exist, so logging works during config loading too.
type envOverrides struct {
	Debug   bool   `env:"EBUPTTS_DEBUG"`
	LogFile string `env:"EBUPTTS_LOGFILE"`
}

// setupLog sends log output to stderr, or to EBUPTTS_LOGFILE when set,
// and returns a closer for the sink.
func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[envOverrides]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if cfg.LogFile == "" {
		log.SetOutput(os.Stderr)
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	log.SetOutput(f)
	return f.Close, nil
}
