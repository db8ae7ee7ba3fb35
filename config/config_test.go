package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadReadsFlags(t *testing.T) {
	SetTestFlag(t, "cache_shards", "8")
	SetTestFlag(t, "cache_sync_timeout_seconds", "2")
	SetTestFlag(t, "cache_maintenance_interval", "500ms")

	opt := Load()
	require.Equal(t, 8, opt.Shards)
	require.Equal(t, 2*time.Second, opt.SyncTimeout)
	require.Equal(t, 500*time.Millisecond, opt.MaintenanceInterval)
}

func TestSetTestFlagRestoresPreviousValue(t *testing.T) {
	before := Load().Shards

	t.Run("override", func(t *testing.T) {
		SetTestFlag(t, "cache_shards", "99")
		require.Equal(t, 99, Load().Shards)
	})

	require.Equal(t, before, Load().Shards)
}
