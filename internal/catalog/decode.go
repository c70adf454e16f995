package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// envelope is the object form of a catalog document.
type envelope struct {
	Restaurants *[]json.RawMessage `json:"restaurants"`
}

// SplitItems returns the raw entries of a catalog document. The document is
// either a JSON array of records or an object with a "restaurants" array. A
// leading UTF-8 byte-order mark is ignored.
func SplitItems(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("catalog document is empty")
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decoding catalog array: %w", err)
		}
		return items, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decoding catalog object: %w", err)
		}
		if env.Restaurants == nil {
			return nil, fmt.Errorf("catalog object has no \"restaurants\" array")
		}
		return *env.Restaurants, nil
	default:
		return nil, fmt.Errorf("catalog root must be a list or an object with \"restaurants\"")
	}
}

// DecodeRecord decodes a single raw entry.
func DecodeRecord(raw json.RawMessage) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Decode parses a catalog document. It does not validate field values.
func Decode(data []byte) ([]Record, error) {
	items, err := SplitItems(data)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(items))
	for i, raw := range items {
		rec, err := DecodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("restaurants[%d]: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
