package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hafiznor/go-scrape-coupons/models"
)

// DumpWriter serializes a run to a JSON artifact on disk, keyed by shop
// name.
type DumpWriter struct {
	path string
}

// NewDumpWriter prepares the output location, creating parent directories
// as needed.
func NewDumpWriter(path string) (*DumpWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return &DumpWriter{path: path}, nil
}

// Write dumps the run's shops as indented JSON.
func (dw *DumpWriter) Write(result *models.RunResult) error {
	if result == nil {
		return fmt.Errorf("dump: nil result")
	}

	data, err := json.MarshalIndent(result.Shops, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	if err := os.WriteFile(dw.path, data, 0o644); err != nil {
		return fmt.Errorf("write dump file: %w", err)
	}
	return nil
}

// Validate ensures the dump file exists and has content.
func (dw *DumpWriter) Validate() error {
	info, err := os.Stat(dw.path)
	if err != nil {
		return fmt.Errorf("stat dump file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("dump file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
