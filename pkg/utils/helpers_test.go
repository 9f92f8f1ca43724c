package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ParseDuration("5m", time.Second))
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("not-a-duration", time.Second))
}

func TestNumeric(t *testing.T) {
	assert.Equal(t, 4821.0, Numeric(4821))
	assert.Equal(t, 4821.0, Numeric(int64(4821)))
	assert.Equal(t, 0.045, Numeric(0.045))
	assert.Equal(t, 0.0, Numeric("nope"))
}

func TestOutputManagerPaths(t *testing.T) {
	om := NewOutputManager(t.TempDir())

	path, err := om.GetOutputFilePath("run-1", "../cmo.html")
	require.NoError(t, err)
	// Path separators in the filename must not escape the run directory.
	assert.Contains(t, path, "run-1")
	assert.NotContains(t, path, "..")

	assert.Equal(t, "/api/v1/download/run-1/cmo.html", om.GetDownloadURL("run-1", "cmo.html"))
	assert.Equal(t, "html", om.GetFileType("cmo.html"))
	assert.Equal(t, "python", om.GetFileType("analysis_code.py"))
}
