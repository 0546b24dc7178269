package dataset

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Manifest records what went into a compilation run: input file checksums
// and the parameters that shaped the selection. Two runs with identical
// manifests are guaranteed to have seen identical inputs.
type Manifest struct {
	Name      string            `json:"name"`
	Release   string            `json:"release"`
	CreatedAt time.Time         `json:"created_at"`
	Inputs    map[string]string `json:"inputs"` // path -> blake2b-256 hex
	Params    map[string]string `json:"params"`
	TrainRows int               `json:"train_rows"`
	TestRows  int               `json:"test_rows"`
	Skipped   int               `json:"skipped"`
}

// NewManifest creates an empty manifest for a named run.
func NewManifest(name, rel string) *Manifest {
	return &Manifest{
		Name:      name,
		Release:   rel,
		CreatedAt: time.Now().UTC(),
		Inputs:    make(map[string]string),
		Params:    make(map[string]string),
	}
}

// AddInput checksums an input file and records it in the manifest.
func (m *Manifest) AddInput(path string) error {
	sum, err := ChecksumFile(path)
	if err != nil {
		return err
	}
	m.Inputs[path] = sum
	return nil
}

// SetParam records a named scalar parameter.
func (m *Manifest) SetParam(key string, value interface{}) {
	m.Params[key] = fmt.Sprint(value)
}

// Write persists the manifest as JSON, via a temp file and rename so a
// partially written manifest is never observed.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

// ChecksumFile returns the blake2b-256 digest of a file as a hex string.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("creating hasher: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
