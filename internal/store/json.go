package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap marshals a map to JSONB on write and back on scan.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", src)
	}

	return json.Unmarshal(data, m)
}
