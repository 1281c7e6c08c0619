package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// manifestRow is one CSV data row keyed by normalized header name
type manifestRow map[string]string

// first returns the trimmed value of the first listed column that is present
// and non-empty.
func (r manifestRow) first(columns ...string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(r[c]); v != "" {
			return v
		}
	}
	return ""
}

// firstOr is first with a fallback default
func (r manifestRow) firstOr(fallback string, columns ...string) string {
	if v := r.first(columns...); v != "" {
		return v
	}
	return fallback
}

// readManifest parses the CSV manifest at path. The first record is the
// header; header names are case/whitespace-normalized. Malformed records
// reject the whole manifest with the parser's diagnostics collected into a
// CSVParseError.
func readManifest(path string) ([]manifestRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	var details []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			details = append(details, err.Error())
			continue
		}
		records = append(records, record)
	}
	if len(details) > 0 {
		return nil, &CSVParseError{Details: details}
	}
	if len(records) == 0 {
		return nil, ErrNoDataRows
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]manifestRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(manifestRow, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
