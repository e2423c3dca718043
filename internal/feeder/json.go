package feeder

import (
	"encoding/json"
	"fmt"
	"os"
)

// JSONFeeder reads records from a JSON file containing an array of objects.
type JSONFeeder struct {
	*cursor
}

// NewJSONFeeder loads the array eagerly, flattening every value to its
// string form.
func NewJSONFeeder(path string) (*JSONFeeder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}
	defer file.Close()

	var rawRecords []map[string]interface{}
	if err := json.NewDecoder(file).Decode(&rawRecords); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if len(rawRecords) == 0 {
		return nil, fmt.Errorf("JSON file contains an empty array")
	}

	records := make([]Record, 0, len(rawRecords))
	for i, raw := range rawRecords {
		if len(raw) == 0 {
			return nil, fmt.Errorf("record %d is empty", i)
		}
		record := make(Record, len(raw))
		for key, value := range raw {
			record[key] = fmt.Sprintf("%v", value)
		}
		records = append(records, record)
	}

	c, err := newCursor(records)
	if err != nil {
		return nil, err
	}
	return &JSONFeeder{cursor: c}, nil
}
