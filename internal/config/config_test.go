// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildConfigAppliesDefaults(t *testing.T) {
	fs := BuildFlagSet()
	v, err := BuildViper(fs, nil)
	require.NoError(t, err)

	cfg, err := BuildConfig(v)
	require.NoError(t, err)
	require.Equal(t, 10_000, cfg.MempoolCapacity)
	require.Equal(t, 200, cfg.BatchSize)
	require.Equal(t, 2*time.Second, cfg.BlobWriteTimeout)
	require.Equal(t, "./data", cfg.DataDir)
}

func TestBuildConfigHonorsExplicitFlags(t *testing.T) {
	fs := BuildFlagSet()
	v, err := BuildViper(fs, []string{"--batch-size=50", "--l1-rpc-endpoint=http://localhost:8545"})
	require.NoError(t, err)

	cfg, err := BuildConfig(v)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.BatchSize)
	require.Equal(t, "http://localhost:8545", cfg.L1RPCEndpoint)
}

func TestBuildConfigRejectsNonPositiveCapacity(t *testing.T) {
	fs := BuildFlagSet()
	v, err := BuildViper(fs, []string{"--mempool-capacity=0"})
	require.NoError(t, err)

	_, err = BuildConfig(v)
	require.Error(t, err)
}

func TestBuildViperSurfacesParseErrors(t *testing.T) {
	fs := BuildFlagSet()
	_, err := BuildViper(fs, []string{"--batch-size=not-a-number"})
	require.Error(t, err)
}
