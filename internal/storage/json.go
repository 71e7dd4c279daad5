package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"arbScope/internal/model"
)

// JSONFile writes the ranked opportunities as one JSON array, the shape the
// price pages consume. The path "-" writes to stdout.
type JSONFile struct {
	path   string
	stdout io.Writer
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path, stdout: os.Stdout}
}

// PutOpportunities replaces the file contents with opps.
func (f *JSONFile) PutOpportunities(_ context.Context, _ model.ScanRun, opps []model.Opportunity) error {
	if f.path == "-" || f.path == "" {
		return WriteOpportunities(f.stdout, opps)
	}
	if err := ensureDir(f.path); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := WriteOpportunities(file, opps); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace output file: %w", err)
	}
	return nil
}

// WriteOpportunities encodes opps as an indented JSON array. A nil slice is
// written as [] rather than null.
func WriteOpportunities(w io.Writer, opps []model.Opportunity) error {
	if opps == nil {
		opps = []model.Opportunity{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(opps); err != nil {
		return fmt.Errorf("encode opportunities: %w", err)
	}
	return nil
}

// LoadOpportunities reads a JSON array written by WriteOpportunities.
func LoadOpportunities(path string) ([]model.Opportunity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read opportunities: %w", err)
	}
	var opps []model.Opportunity
	if err := json.Unmarshal(data, &opps); err != nil {
		return nil, fmt.Errorf("decode opportunities: %w", err)
	}
	return opps, nil
}
