package mainthread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOptions_Defaults(t *testing.T) {
	cfg, err := resolveOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, ModeActive, cfg.mode)
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, defaultFailureLogRates(), cfg.failureLogRates)
	assert.False(t, cfg.metricsEnabled)
	assert.Nil(t, cfg.coroutineHost)
}

// TestResolveOptions_LastWins verifies later options override earlier ones.
func TestResolveOptions_LastWins(t *testing.T) {
	host := &recordingHost{}
	cfg, err := resolveOptions([]Option{
		WithMode(ModeDummy),
		WithMode(ModeActive),
		WithLogger(newTestLogger(&syncBuffer{})),
		WithLogger(nil),
		WithMetrics(true),
		WithCoroutineHost(host),
		WithFailureLogRates(map[time.Duration]int{time.Minute: 1}),
	})
	require.NoError(t, err)
	assert.Equal(t, ModeActive, cfg.mode)
	assert.Nil(t, cfg.logger)
	assert.True(t, cfg.metricsEnabled)
	assert.Same(t, host, cfg.coroutineHost)
	assert.Equal(t, map[time.Duration]int{time.Minute: 1}, cfg.failureLogRates)
}

func TestResolveDriverOptions(t *testing.T) {
	u := UpdaterFunc(func(Frame) {})
	cfg, err := resolveDriverOptions([]DriverOption{
		WithFrameInterval(time.Millisecond),
		WithUpdaters(u, nil),
		WithUpdaters(NewCountdown(nil)),
		WithTickWhilePaused(true),
	})
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, cfg.frameInterval)
	assert.Len(t, cfg.updaters, 2)
	assert.True(t, cfg.tickWhilePaused)

	_, err = resolveDriverOptions([]DriverOption{WithFrameInterval(-time.Second)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
