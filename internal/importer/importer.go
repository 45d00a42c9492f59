package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Config describes where the vocabulary fields live in a spreadsheet.
// Columns are spreadsheet letters; an empty column is not read.
type Config struct {
	SheetName         string
	StartRow          int
	WordColumn        string
	MeaningColumn     string
	DescriptionColumn string
	ImageColumn       string
	CaptionColumn     string
}

func DefaultConfig() Config {
	return Config{
		SheetName:         "Sheet1",
		StartRow:          2,
		WordColumn:        "A",
		MeaningColumn:     "B",
		DescriptionColumn: "C",
		ImageColumn:       "D",
		CaptionColumn:     "E",
	}
}

// Row is one vocabulary entry read from a file. Image and Caption are
// optional.
type Row struct {
	Line        int
	Word        string
	Meaning     string
	Description string
	Image       string
	Caption     string
}

// Result holds the parsed rows and a message for every rejected line.
type Result struct {
	Rows   []Row
	Errors []string
}

var ErrUnsupportedFormat = errors.New("unsupported file format")

// ReadFile parses an .xlsx or .csv file.
func ReadFile(path string, cfg Config) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook (path: %s): %w", path, err)
		}
		defer f.Close()
		return ReadWorkbook(f, cfg)
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open csv (path: %s): %w", path, err)
		}
		defer file.Close()
		return ReadCSV(file, cfg)
	default:
		return nil, fmt.Errorf("read %s: %w", path, ErrUnsupportedFormat)
	}
}

func ReadWorkbook(f *excelize.File, cfg Config) (*Result, error) {
	rows, err := f.GetRows(cfg.SheetName)
	if err != nil {
		return nil, fmt.Errorf("get rows (sheet: %s): %w", cfg.SheetName, err)
	}

	result := &Result{}
	for i, cells := range rows {
		collect(result, cells, cfg, i+1)
	}

	return result, nil
}

func ReadCSV(r io.Reader, cfg Config) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	result := &Result{}
	for line := 1; ; line++ {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv (line: %d): %w", line, err)
		}
		collect(result, cells, cfg, line)
	}

	return result, nil
}

func collect(result *Result, cells []string, cfg Config, line int) {
	if line < cfg.StartRow || blank(cells) {
		return
	}

	row := Row{
		Line:        line,
		Word:        cell(cells, cfg.WordColumn),
		Meaning:     cell(cells, cfg.MeaningColumn),
		Description: cell(cells, cfg.DescriptionColumn),
		Image:       cell(cells, cfg.ImageColumn),
		Caption:     cell(cells, cfg.CaptionColumn),
	}

	switch {
	case row.Word == "":
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: word is empty", line))
	case row.Meaning == "":
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: meaning is empty", line))
	default:
		result.Rows = append(result.Rows, row)
	}
}

func cell(cells []string, column string) string {
	if column == "" {
		return ""
	}
	idx := columnToIndex(column)
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columnToIndex converts a column letter ("A", "AB") to a zero-based index.
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
