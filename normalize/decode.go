package normalize

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DecodeJSON reads rows from either a bare JSON array of objects or an
// object with a "rows" array. Non-string cell values are formatted as text.
func DecodeJSON(r io.Reader) ([]Row, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}

	var raw []map[string]any
	if b[0] == '[' {
		err = decodeNumbers(b, &raw)
	} else {
		var wrapped struct {
			Rows []map[string]any `json:"rows"`
		}
		err = decodeNumbers(b, &wrapped)
		raw = wrapped.Rows
	}
	if err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	rows := make([]Row, 0, len(raw))
	for _, m := range raw {
		row := make(Row, len(m))
		for k, v := range m {
			row[k] = cell(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeNumbers(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// DecodeCSV reads rows keyed by the header line.
func DecodeCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row := make(Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
