package pdfopt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/titleplant/internal/config"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOptimizeDisabledIsNoop(t *testing.T) {
	o := New(config.OptimizerConfig{Enabled: false})
	data := []byte("%PDF-1.4 original")
	path := writeFile(t, data)

	res, err := o.Optimize(t.Context(), path)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, int64(len(data)), res.OriginalSize)
	assert.Equal(t, res.OriginalSize, res.OptimizedSize)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOptimizeCorruptFileFallsBack(t *testing.T) {
	o := New(config.OptimizerConfig{Enabled: true, Timeout: 30 * time.Second})
	data := []byte("%PDF-1.4 this is not really a pdf")
	path := writeFile(t, data)

	res, err := o.Optimize(t.Context(), path)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, res.OriginalSize, res.OptimizedSize)

	// Original untouched, no temp file left behind.
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	_, err = os.Stat(path + ".opt")
	assert.True(t, os.IsNotExist(err))
}

func TestOptimizeMissingFile(t *testing.T) {
	o := New(config.OptimizerConfig{Enabled: true})
	_, err := o.Optimize(t.Context(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
