package spectra

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func rampFlux(n int) []float64 {
	flux := make([]float64, n)
	for i := range flux {
		flux[i] = float64(i) * 0.25
	}
	return flux
}

func TestRoundTripFluxOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.spec")
	flux := rampFlux(128)

	if err := WriteFile(path, flux, nil); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	gotFlux, gotBestFit, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if gotBestFit != nil {
		t.Errorf("expected nil best-fit, got %d samples", len(gotBestFit))
	}
	if len(gotFlux) != len(flux) {
		t.Fatalf("flux length = %d, want %d", len(gotFlux), len(flux))
	}
	for i := range flux {
		if gotFlux[i] != flux[i] {
			t.Fatalf("flux[%d] = %g, want %g", i, gotFlux[i], flux[i])
		}
	}
}

func TestRoundTripWithBestFit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.spec")
	flux := rampFlux(64)
	bestFit := rampFlux(64)
	for i := range bestFit {
		bestFit[i] += 0.5
	}

	if err := WriteFile(path, flux, bestFit); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	gotFlux, gotBestFit, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(gotFlux) != 64 || len(gotBestFit) != 64 {
		t.Fatalf("lengths = %d, %d, want 64, 64", len(gotFlux), len(gotBestFit))
	}
	if gotBestFit[10] != bestFit[10] {
		t.Errorf("bestFit[10] = %g, want %g", gotBestFit[10], bestFit[10])
	}
}

func TestWriteFileRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.spec")

	if err := WriteFile(path, nil, nil); err == nil {
		t.Error("expected error for empty flux")
	}
	if err := WriteFile(path, rampFlux(10), rampFlux(9)); err == nil {
		t.Error("expected error for mismatched best-fit length")
	}
}

func TestReadFileBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.spec")
	if err := os.WriteFile(path, []byte("NOPE\x01\x00\x00\x00"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := ReadFile(path)
	if !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}

func TestReadFileTruncatedFlux(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.spec")
	// Header promises 16 pixels but delivers none.
	data := append([]byte{}, magic[:]...)
	data = binary.LittleEndian.AppendUint32(data, 16)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := ReadFile(path)
	if !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}

func TestReadFileZeroPixelCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.spec")
	data := append([]byte{}, magic[:]...)
	data = binary.LittleEndian.AppendUint32(data, 0)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := ReadFile(path)
	if !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}

func TestReadFileMismatchedBestFit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.spec")
	data := append([]byte{}, magic[:]...)
	data = binary.LittleEndian.AppendUint32(data, 2)
	for _, v := range []float64{1, 2} {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
	}
	data = binary.LittleEndian.AppendUint32(data, 3)
	for _, v := range []float64{1, 2, 3} {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := ReadFile(path)
	if !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}
}
