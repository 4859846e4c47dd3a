// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the sequencer daemon's configuration: flags are
// registered on a pflag.FlagSet, viper is built from env vars, the flag
// set, and an optional config file, then decoded into a typed Config.
// Grounded exactly on the teacher's cmd/simulator/config package
// (BuildFlagSet / BuildViper / BuildConfig), per SPEC_FULL.md's ambient
// stack section.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	VersionKey  = "version"
	LogLevelKey = "log-level"

	ConfigFileKey = "config-file"

	ListenAddrKey = "listen-addr"
	MetricsAddrKey = "metrics-addr"

	MempoolCapacityKey    = "mempool-capacity"
	BatchSizeKey          = "batch-size"
	BlobWriteTimeoutKey   = "blob-write-timeout"
	BlobWriteRateLimitKey = "blob-write-rate-limit"

	L1RPCEndpointKey    = "l1-rpc-endpoint"
	L1PollIntervalKey   = "l1-poll-interval"

	ConsensusTimeoutProposeKey   = "consensus-timeout-propose"
	ConsensusTimeoutPrevoteKey   = "consensus-timeout-prevote"
	ConsensusTimeoutPrecommitKey = "consensus-timeout-precommit"

	DataDirKey = "data-dir"
)

// Version is reported by the version flag; set at build time in a real
// release pipeline, left as a placeholder here.
const Version = "0.1.0-dev"

// BuildFlagSet registers every recognized flag on a fresh pflag.FlagSet,
// matching the teacher's simulator config flag set shape.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("sequencer", pflag.ContinueOnError)

	fs.Bool(VersionKey, false, "print version and exit")
	fs.String(LogLevelKey, "info", "log level (debug, info, warn, error)")
	fs.String(ConfigFileKey, "", "path to a YAML config file")

	fs.String(ListenAddrKey, ":9090", "consensus/gossip listen address")
	fs.String(MetricsAddrKey, ":9091", "prometheus metrics listen address")

	fs.Int(MempoolCapacityKey, 10_000, "maximum number of transactions held in the mempool")
	fs.Int(BatchSizeKey, 200, "transactions requested per GetTxs call")
	fs.Duration(BlobWriteTimeoutKey, 2*time.Second, "deadline for the blob-writer's now_or_never call")
	fs.Float64(BlobWriteRateLimitKey, 0, "max blob-writer calls per second (0 disables limiting)")

	fs.String(L1RPCEndpointKey, "", "L1 JSON-RPC endpoint the L1 provider polls")
	fs.Duration(L1PollIntervalKey, 10*time.Second, "L1 provider poll interval")

	fs.Duration(ConsensusTimeoutProposeKey, 3*time.Second, "TimeoutPropose base duration")
	fs.Duration(ConsensusTimeoutPrevoteKey, 1*time.Second, "TimeoutPrevote base duration")
	fs.Duration(ConsensusTimeoutPrecommitKey, 1*time.Second, "TimeoutPrecommit base duration")

	fs.String(DataDirKey, "./data", "directory for offline storage reads")

	return fs
}

// BuildViper parses args against fs, binds env vars (prefixed SEQUENCER_),
// and layers an optional config file on top of flag defaults. Flags
// explicitly passed on the command line take priority over the file.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("SEQUENCER")
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if file := v.GetString(ConfigFileKey); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", file, err)
		}
	}

	return v, nil
}

// Config is the fully decoded, typed view the daemon's entrypoint
// consumes; everything downstream of main reads this, never viper
// directly.
type Config struct {
	LogLevel string

	ListenAddr  string
	MetricsAddr string

	MempoolCapacity    int
	BatchSize          int
	BlobWriteTimeout   time.Duration
	BlobWriteRateLimit float64

	L1RPCEndpoint  string
	L1PollInterval time.Duration

	ConsensusTimeoutPropose   time.Duration
	ConsensusTimeoutPrevote   time.Duration
	ConsensusTimeoutPrecommit time.Duration

	DataDir string
}

// BuildConfig decodes v into a Config, validating that MempoolCapacity and
// BatchSize are positive.
func BuildConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		LogLevel:                  v.GetString(LogLevelKey),
		ListenAddr:                v.GetString(ListenAddrKey),
		MetricsAddr:               v.GetString(MetricsAddrKey),
		MempoolCapacity:           v.GetInt(MempoolCapacityKey),
		BatchSize:                 v.GetInt(BatchSizeKey),
		BlobWriteTimeout:          v.GetDuration(BlobWriteTimeoutKey),
		BlobWriteRateLimit:        v.GetFloat64(BlobWriteRateLimitKey),
		L1RPCEndpoint:             v.GetString(L1RPCEndpointKey),
		L1PollInterval:            v.GetDuration(L1PollIntervalKey),
		ConsensusTimeoutPropose:   v.GetDuration(ConsensusTimeoutProposeKey),
		ConsensusTimeoutPrevote:   v.GetDuration(ConsensusTimeoutPrevoteKey),
		ConsensusTimeoutPrecommit: v.GetDuration(ConsensusTimeoutPrecommitKey),
		DataDir:                   v.GetString(DataDirKey),
	}

	if cfg.MempoolCapacity <= 0 {
		return Config{}, fmt.Errorf("config: %s must be positive", MempoolCapacityKey)
	}
	if cfg.BatchSize <= 0 {
		return Config{}, fmt.Errorf("config: %s must be positive", BatchSizeKey)
	}

	return cfg, nil
}
