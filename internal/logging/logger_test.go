// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	logger.Info("production logger ready")
}

func TestForCommandAddsScope(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	ForCommand(zap.New(core), "mktables").Info("building")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "mktables", entries[0].LoggerName)
	assert.Equal(t, "mktables", entries[0].ContextMap()["command"])
}

func TestForCommandNilLogger(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, ForCommand(nil, "mktables"))
}
