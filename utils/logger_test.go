package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, log.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, log.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, log.LevelError, ParseLogLevel(" error "))
	assert.Equal(t, log.LevelInfo, ParseLogLevel("verbose"))
	assert.Equal(t, log.LevelInfo, ParseLogLevel(""))
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")

	closer, err := SetupLogger("info", path)
	require.NoError(t, err)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.Info("dataset ready")
	require.NoError(t, closer.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "dataset ready")
}
