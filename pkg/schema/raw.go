package schema

import (
	"encoding/json"
	"fmt"
	"io"
)

// RawSchema is the per-database metadata record as the metadata store
// delivers it. The JSON layout follows the Spider tables.json format.
type RawSchema struct {
	DBID        string      `json:"db_id"`
	TableNames  []string    `json:"table_names_original"`
	ColumnNames []RawColumn `json:"column_names_original"`
	ColumnTypes []string    `json:"column_types"`
	PrimaryKeys KeyList     `json:"primary_keys"`
	ForeignKeys [][2]int    `json:"foreign_keys"`
}

// RawColumn is one (table_index, column_name) pair. Index -1 marks "*".
type RawColumn struct {
	TableIndex int
	Name       string
}

// UnmarshalJSON decodes the two-element array form [table_index, "name"].
func (c *RawColumn) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("column entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("column entry: expected [table_index, name], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.TableIndex); err != nil {
		return fmt.Errorf("column table index: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Name); err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	return nil
}

// MarshalJSON encodes the column back to its array form.
func (c RawColumn) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.TableIndex, c.Name})
}

// KeyList is a flat list of column indexes. Composite primary keys appear as
// nested arrays in newer metadata files and are flattened on decode.
type KeyList []int

// UnmarshalJSON accepts a mix of integers and integer arrays.
func (k *KeyList) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("key list: %w", err)
	}
	out := make(KeyList, 0, len(items))
	for _, item := range items {
		var single int
		if err := json.Unmarshal(item, &single); err == nil {
			out = append(out, single)
			continue
		}
		var group []int
		if err := json.Unmarshal(item, &group); err != nil {
			return fmt.Errorf("key list entry %s: %w", item, err)
		}
		out = append(out, group...)
	}
	*k = out
	return nil
}

// LoadSpiderTables reads a tables.json metadata file and indexes the records
// by database id. A repeated database id is a *SchemaError.
func LoadSpiderTables(r io.Reader) (map[string]RawSchema, error) {
	var records []RawSchema
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode tables metadata: %w", err)
	}

	out := make(map[string]RawSchema, len(records))
	for _, rec := range records {
		if _, dup := out[rec.DBID]; dup {
			return nil, &SchemaError{DBID: rec.DBID, Message: "database id listed twice in metadata"}
		}
		out[rec.DBID] = rec
	}
	return out, nil
}
