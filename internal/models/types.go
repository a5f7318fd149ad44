package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// History is the jsonb-backed append-only log of an application.
type History []HistoryEntry

func (h History) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	return string(data), nil
}

func (h *History) Scan(value interface{}) error {
	return scanJSON(value, h)
}

// Meta is free-form structured data attached to an activity.
type Meta map[string]interface{}

func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	return string(data), nil
}

func (m *Meta) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func scanJSON(value interface{}, dest interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
