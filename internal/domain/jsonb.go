package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONB column types for PostgreSQL. Each implements sql.Scanner and
// driver.Valuer by round-tripping through encoding/json.

// SourceList is a JSONB array of sources.
type SourceList []Source

// SourceStates maps each source to its final scrape job state.
type SourceStates map[Source]JobState

// SourceErrors maps failed sources to their error detail.
type SourceErrors map[Source]string

// SourceCounts maps each source to the number of listings it produced.
type SourceCounts map[Source]int

// Listings is a JSONB array of canonical listings.
type Listings []Listing

func (v SourceList) Value() (driver.Value, error)   { return jsonValue(v, "[]") }
func (v SourceStates) Value() (driver.Value, error) { return jsonValue(v, "{}") }
func (v SourceErrors) Value() (driver.Value, error) { return jsonValue(v, "{}") }
func (v SourceCounts) Value() (driver.Value, error) { return jsonValue(v, "{}") }
func (v Listings) Value() (driver.Value, error)     { return jsonValue(v, "[]") }

func (v *SourceList) Scan(src any) error   { return jsonScan(src, v) }
func (v *SourceStates) Scan(src any) error { return jsonScan(src, v) }
func (v *SourceErrors) Scan(src any) error { return jsonScan(src, v) }
func (v *SourceCounts) Scan(src any) error { return jsonScan(src, v) }
func (v *Listings) Scan(src any) error     { return jsonScan(src, v) }

func jsonValue[T any](v T, empty string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte(empty), nil
	}
	return data, nil
}

func jsonScan(src, dst any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for JSONB column")
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
