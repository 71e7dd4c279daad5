package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"arbScope/internal/model"
)

// maxLineSize bounds one JSONL record.
const maxLineSize = 1 << 20

// JsonlStorage writes price records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// Truncate empties the file so a new snapshot does not mix with older ones.
func (s *JsonlStorage) Truncate() error {
	if err := ensureDir(s.path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	return file.Close()
}

// PutPriceBatch appends a batch of price records as JSON lines.
func (s *JsonlStorage) PutPriceBatch(records []model.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ensureDir(s.path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal price record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write price record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// LoadPriceRecords reads a JSONL snapshot from path, or stdin for "-".
func LoadPriceRecords(path string, logger *zap.Logger) ([]model.PriceRecord, error) {
	if path == "-" {
		return ReadPriceRecords(os.Stdin, logger)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer file.Close()
	return ReadPriceRecords(file, logger)
}

// ReadPriceRecords decodes one record per line. Blank lines are ignored and
// malformed lines are logged with their line number and skipped.
func ReadPriceRecords(r io.Reader, logger *zap.Logger) ([]model.PriceRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var out []model.PriceRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec model.PriceRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			logger.Warn("skip malformed price record", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return out, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return nil
}
