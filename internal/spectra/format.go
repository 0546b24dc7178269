package spectra

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Spectrum files are little-endian binary: a 4-byte magic, a uint32 pixel
// count, the flux samples as float64, and optionally a second pixel count
// plus best-fit template samples of identical length.
var magic = [4]byte{'S', 'P', 'F', '1'}

// maxPixels caps the declared pixel count so a corrupt header cannot force
// a huge allocation.
const maxPixels = 1 << 20

// ErrBadFormat is returned for files that are not valid spectrum files.
var ErrBadFormat = errors.New("malformed spectrum file")

// ReadFile decodes a spectrum file. The best-fit slice is nil when the file
// carries no template block.
func ReadFile(path string) (flux, bestFit []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return read(f)
}

func read(r io.Reader) (flux, bestFit []float64, err error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: reading magic: %v", ErrBadFormat, err)
	}
	if hdr != magic {
		return nil, nil, fmt.Errorf("%w: bad magic %q", ErrBadFormat, hdr[:])
	}

	flux, err = readBlock(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: flux block: %v", ErrBadFormat, err)
	}

	bestFit, err = readBlock(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return flux, nil, nil // No template block
		}
		return nil, nil, fmt.Errorf("%w: best-fit block: %v", ErrBadFormat, err)
	}
	if len(bestFit) != len(flux) {
		return nil, nil, fmt.Errorf("%w: best-fit length %d != flux length %d",
			ErrBadFormat, len(bestFit), len(flux))
	}
	return flux, bestFit, nil
}

func readBlock(r io.Reader) ([]float64, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 || n > maxPixels {
		return nil, fmt.Errorf("implausible pixel count %d", n)
	}
	data := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("reading %d pixels: %w", n, err)
	}
	return data, nil
}

// WriteFile encodes a spectrum file. Pass a nil bestFit to omit the template
// block; otherwise it must match the flux length.
func WriteFile(path string, flux, bestFit []float64) error {
	if len(flux) == 0 {
		return fmt.Errorf("empty flux sequence")
	}
	if bestFit != nil && len(bestFit) != len(flux) {
		return fmt.Errorf("best-fit length %d != flux length %d", len(bestFit), len(flux))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating spectrum file: %w", err)
	}

	if _, err := f.Write(magic[:]); err != nil {
		f.Close()
		return fmt.Errorf("writing magic: %w", err)
	}
	if err := writeBlock(f, flux); err != nil {
		f.Close()
		return fmt.Errorf("writing flux block: %w", err)
	}
	if bestFit != nil {
		if err := writeBlock(f, bestFit); err != nil {
			f.Close()
			return fmt.Errorf("writing best-fit block: %w", err)
		}
	}
	return f.Close()
}

func writeBlock(w io.Writer, data []float64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}
