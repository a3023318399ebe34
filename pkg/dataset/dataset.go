// Package dataset loads, splits and prepares the question/cypher/answer evaluation sets.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// Column names shared by every CSV data file.
const (
	ColumnQuestion       = "question"
	ColumnCypher         = "cypher"
	ColumnExpectedOutput = "expected_output"
)

// yamlFile is the YAML layout accepted by LoadExamples.
type yamlFile struct {
	Examples []models.TestExample `yaml:"examples"`
}

// LoadExamples reads an evaluation set from a CSV or YAML file, chosen by extension.
func LoadExamples(path string) ([]models.TestExample, error) {
	f, err := os.Open(path) // #nosec G304 -- dataset path comes from config or CLI flag
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(f)
	default:
		return DecodeCSV(f)
	}
}

// DecodeYAML reads `examples:` entries with question, cypher and expected_output keys.
func DecodeYAML(r io.Reader) ([]models.TestExample, error) {
	var doc yamlFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []models.TestExample{}, nil
		}
		return nil, fmt.Errorf("failed to decode yaml dataset: %w", err)
	}
	for i, ex := range doc.Examples {
		if strings.TrimSpace(ex.Question) == "" {
			return nil, fmt.Errorf("%w: example %d has no question", apperrors.ErrDatasetIntegrity, i+1)
		}
	}
	if doc.Examples == nil {
		return []models.TestExample{}, nil
	}
	return doc.Examples, nil
}

// DecodeCSV reads a headered CSV. Columns may appear in any order and extra columns are ignored;
// question and cypher are required, expected_output is optional.
func DecodeCSV(r io.Reader) ([]models.TestExample, error) {
	table, err := readTable(r)
	if err != nil {
		return nil, err
	}
	qi, ok := table.index[ColumnQuestion]
	if !ok {
		return nil, fmt.Errorf("%w: dataset has no question column", apperrors.ErrDatasetIntegrity)
	}
	ci, ok := table.index[ColumnCypher]
	if !ok {
		return nil, fmt.Errorf("%w: dataset has no cypher column", apperrors.ErrDatasetIntegrity)
	}
	ei, hasExpected := table.index[ColumnExpectedOutput]

	examples := make([]models.TestExample, 0, len(table.rows))
	for n, row := range table.rows {
		ex := models.TestExample{
			Question:      row[qi],
			ExpectedQuery: row[ci],
		}
		if hasExpected {
			ex.ExpectedAnswer = row[ei]
		}
		if strings.TrimSpace(ex.Question) == "" {
			return nil, fmt.Errorf("%w: row %d has no question", apperrors.ErrDatasetIntegrity, n+2)
		}
		examples = append(examples, ex)
	}
	return examples, nil
}

// WriteExamples writes examples as a question,cypher,expected_output CSV.
func WriteExamples(path string, examples []models.TestExample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create dataset dir: %w", err)
	}
	f, err := os.Create(path) // #nosec G304 -- dataset path comes from config or CLI flag
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{ColumnQuestion, ColumnCypher, ColumnExpectedOutput})
	for _, ex := range examples {
		_ = w.Write([]string{ex.Question, ex.ExpectedQuery, ex.ExpectedAnswer})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// table is a CSV file with its header resolved to column positions.
type table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: dataset is empty", apperrors.ErrDatasetIntegrity)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	t := &table{header: header, index: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		t.header[i] = name
		t.index[name] = i
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		// Short rows are padded so column lookups never go out of range.
		for len(row) < len(header) {
			row = append(row, "")
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}
