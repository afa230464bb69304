package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNamed_WritesRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "booking.log")

	log, err := NewNamed("production", "service-booking", Options{File: file})
	require.NoError(t, err)

	log.Info("booking confirmed")
	_ = log.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"booking confirmed"`)
	assert.Contains(t, string(data), `"service":"service-booking"`)
}

func TestNew_Development(t *testing.T) {
	log, err := New("development", Options{})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1), "debug should be enabled in development")
}
