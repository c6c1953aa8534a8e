package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader reads question rows from a JSONL or Parquet file
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Path returns the dataset file path.
func (l *Loader) Path() string { return l.datasetPath }

// Load loads every row of the dataset.
func (l *Loader) Load() ([]Row, error) {
	return l.LoadSample(-1)
}

// LoadSample loads at most limit rows. A negative limit loads everything.
func (l *Loader) LoadSample(limit int) ([]Row, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(limit)
	case ".jsonl", ".json":
		return l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func (l *Loader) loadJSONL(limit int) ([]Row, error) {
	slog.Debug("Opening JSONL file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var rows []Row
	scanner := bufio.NewScanner(file)

	// Increase buffer size for large JSON lines
	const maxCapacity = 10 * 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		if limit >= 0 && len(rows) >= limit {
			break
		}
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var row Row
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_rows", len(rows), "total_lines", lineNum)
	return rows, nil
}

func (l *Loader) loadParquet(limit int) ([]Row, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath, "limit", limit)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	batch := make([]Row, 128)
	for limit < 0 || len(rows) < limit {
		n, err := reader.Read(batch)
		if n > 0 {
			if limit >= 0 && n > limit-len(rows) {
				n = limit - len(rows)
			}
			rows = append(rows, batch[:n]...)
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Finished reading Parquet file", "total_rows", len(rows))
	return rows, nil
}
