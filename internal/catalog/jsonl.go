package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// MaxLineCapacity is the maximum buffer size for reading catalog JSONL lines
// (1MB per line).
const MaxLineCapacity = 1024 * 1024

// LoadJSONL reads a catalog snapshot from a JSONL file, one record per line.
// The whole file is parsed and validated before a Table is returned, so
// malformed rows and duplicate identifiers surface at load time rather than
// deep inside filtering or matching.
func LoadJSONL(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, MaxLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing catalog line %d: %w", lineNum, err)
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("catalog line %d: missing identifier", lineNum)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	table, err := NewTable(records)
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return table, nil
}
