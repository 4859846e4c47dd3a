// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logging scopes the shared luxfi/log facade to a component name,
// the way plugin/evm/log/log.go scopes loggers per EVM subsystem in the
// teacher repo.
package logging

import (
	"github.com/luxfi/log"
)

// Logger is the facade every component logs through.
type Logger = log.Logger

// Init installs the process-wide default logger, named after the daemon's
// configured log level string ("trace", "debug", "info", "warn", "error").
// Call once from main.
func Init(levelName string) {
	log.SetDefault(log.New("level", levelName))
}

// For returns a logger scoped to the named component, e.g. For("mempool").
func For(component string) Logger {
	return log.New("component", component)
}
