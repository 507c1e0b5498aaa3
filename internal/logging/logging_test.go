package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	l, err := Init(false)
	require.NoError(t, err)
	assert.Same(t, l, L())
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel), "debug must be off by default")
}

func TestInitVerbose(t *testing.T) {
	l, err := Init(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNamedBeforeInitIsSafe(t *testing.T) {
	// Components constructed before Init (or in tests that never call it)
	// get a working no-op logger.
	log := Named("component")
	require.NotNil(t, log)
	log.Infow("must not panic", "k", "v")
}
