package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("some input data"), 0644))

	first, err := ChecksumFile(path)
	require.NoError(t, err)
	assert.Len(t, first, 64, "blake2b-256 hex digest")

	// Same content, same digest.
	second, err := ChecksumFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Different content, different digest.
	other := filepath.Join(dir, "other.jsonl")
	require.NoError(t, os.WriteFile(other, []byte("some other data"), 0644))
	changed, err := ChecksumFile(other)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}

func TestChecksumFileMissing(t *testing.T) {
	_, err := ChecksumFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestManifestWrite(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "catalog.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(`{"id":"2M001"}`), 0644))

	m := NewManifest("apogee", "dr14")
	require.NoError(t, m.AddInput(input))
	m.SetParam("maxdist", 2.0)
	m.SetParam("snr_min", 200)
	m.TrainRows = 100
	m.TestRows = 40
	m.Skipped = 3

	path := filepath.Join(dir, "apogee_manifest.json")
	require.NoError(t, m.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "apogee", got.Name)
	assert.Equal(t, "dr14", got.Release)
	assert.Equal(t, "2", got.Params["maxdist"])
	assert.Equal(t, "200", got.Params["snr_min"])
	assert.Equal(t, 100, got.TrainRows)
	assert.Equal(t, 40, got.TestRows)
	assert.Equal(t, 3, got.Skipped)
	assert.Contains(t, got.Inputs, input)
	assert.False(t, got.CreatedAt.IsZero())

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestManifestAddInputMissing(t *testing.T) {
	m := NewManifest("apogee", "dr14")
	assert.Error(t, m.AddInput(filepath.Join(t.TempDir(), "nope")))
}
