package ml

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsemble_SaveLoadRoundTrip(t *testing.T) {
	ds := syntheticDataset(30)
	e := fitTestEnsemble(t, ds)
	e.Version = "v20260301_120000"

	dir := t.TempDir()
	path, err := e.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "v20260301_120000.json"), path)

	loaded, err := LoadEnsemble(path)
	require.NoError(t, err)
	require.True(t, loaded.Fitted)

	v := decayedVector(3)
	want, err := e.PredictProba(v)
	require.NoError(t, err)
	got, err := loaded.PredictProba(v)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12, "loaded artifact must reproduce scores")
}

func TestLoadVersion(t *testing.T) {
	ds := syntheticDataset(30)
	e := fitTestEnsemble(t, ds)
	e.Version = "v20260301_130000"

	dir := t.TempDir()
	_, err := e.Save(dir)
	require.NoError(t, err)

	loaded, err := LoadVersion(dir, "v20260301_130000")
	require.NoError(t, err)
	assert.Equal(t, "v20260301_130000", loaded.Version)
}

func TestLoadVersion_Missing(t *testing.T) {
	_, err := LoadVersion(t.TempDir(), "v19990101_000000")
	assert.Error(t, err)
}
