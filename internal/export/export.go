// Package export persists fetched result sets as dated JSON and CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/splunk"
)

// Writer saves result sets under a target directory. The zero directory
// defaults to a folder named with today's UTC date, e.g. 20251026.
type Writer struct {
	dir    string
	stamp  string
	logger *zap.Logger
}

// NewWriter builds a Writer for dir. now supplies the date stamp so tests can
// pin it; pass time.Now for production use.
func NewWriter(dir string, now func() time.Time, logger *zap.Logger) *Writer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	stamp := now().UTC().Format("20060102")
	if dir == "" {
		dir = stamp
	}
	return &Writer{dir: dir, stamp: stamp, logger: logger}
}

// Dir returns the target directory.
func (w *Writer) Dir() string { return w.dir }

// WriteJSON writes the structured records as indented JSON and returns the
// file path.
func (w *Writer) WriteJSON(rs *splunk.ResultSet) (string, error) {
	if err := w.ensureDir(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("results-%s.json", w.stamp))

	records := rs.Records
	if records == nil {
		records = []splunk.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json results: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("write json results: %w", err)
	}

	w.logger.Info("saved JSON results", zap.String("path", path), zap.Int("records", rs.Len()))
	return path, nil
}

// WriteCSV writes the delimited form and returns the file path. The raw CSV
// fetched from the server is written verbatim when present; otherwise rows
// are synthesized from the structured records.
func (w *Writer) WriteCSV(rs *splunk.ResultSet) (string, error) {
	if err := w.ensureDir(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("results-%s.csv", w.stamp))

	data := rs.RawCSV
	if data == nil {
		var err error
		data, err = synthesizeCSV(rs)
		if err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write csv results: %w", err)
	}

	w.logger.Info("saved CSV results", zap.String("path", path))
	return path, nil
}

func (w *Writer) ensureDir() error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("create output dir %s: %w", w.dir, err)
	}
	return nil
}

func synthesizeCSV(rs *splunk.ResultSet) ([]byte, error) {
	header := rs.Fields
	if len(header) == 0 && rs.Len() > 0 {
		for field := range rs.Records[0] {
			header = append(header, field)
		}
		sort.Strings(header)
	}

	var buf bytes.Buffer
	out := csv.NewWriter(&buf)
	if len(header) > 0 {
		if err := out.Write(header); err != nil {
			return nil, fmt.Errorf("encode csv header: %w", err)
		}
	}
	for _, rec := range rs.Records {
		row := make([]string, len(header))
		for i, field := range header {
			row[i] = rec.String(field)
		}
		if err := out.Write(row); err != nil {
			return nil, fmt.Errorf("encode csv row: %w", err)
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
