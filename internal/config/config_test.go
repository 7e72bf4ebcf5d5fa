package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hq/internal/sweeper"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	v := newViper(t)
	v.Set(KeyDatabase, ":memory:")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout)
	assert.Equal(t, ":memory:", cfg.Database)
	assert.Equal(t, sweeper.DefaultTick, cfg.SweepTick)
	assert.Empty(t, cfg.ObservabilityConfig)
}

func TestLoadRequiresDatabase(t *testing.T) {
	v := newViper(t)

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path is required")
}

func TestLoadValidatesPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		v := newViper(t)
		v.Set(KeyDatabase, ":memory:")
		v.Set(KeyPort, port)

		_, err := Load(v)
		assert.Error(t, err, "port %d", port)
	}
}

func TestLoadRejectsNegativeRequestTimeout(t *testing.T) {
	v := newViper(t)
	v.Set(KeyDatabase, ":memory:")
	v.Set(KeyRequestTimeout, -5)

	_, err := Load(v)
	require.Error(t, err)
}

func TestLoadRequestTimeoutInSeconds(t *testing.T) {
	v := newViper(t)
	v.Set(KeyDatabase, ":memory:")
	v.Set(KeyRequestTimeout, 30)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoadSweepTickFallsBackToDefault(t *testing.T) {
	v := newViper(t)
	v.Set(KeyDatabase, ":memory:")
	v.Set(KeySweepTick, 0)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, sweeper.DefaultTick, cfg.SweepTick)

	v.Set(KeySweepTick, "250ms")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.SweepTick)
}
