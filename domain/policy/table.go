package policy

import (
	"claimstat/domain/core"
)

// Record is one policy row. Row is the 1-based data row in the source file.
type Record struct {
	Row    int              `json:"row"`
	Values map[string]Value `json:"values"`
}

// Get returns the value of a column, missing if the record does not carry it
func (r Record) Get(column string) Value {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return NewMissingValue()
}

// With returns a copy of the record with extra columns set. The receiver is
// not modified.
func (r Record) With(values map[string]Value) Record {
	out := Record{Row: r.Row, Values: make(map[string]Value, len(r.Values)+len(values))}
	for k, v := range r.Values {
		out.Values[k] = v
	}
	for k, v := range values {
		out.Values[k] = v
	}
	return out
}

// Table is a loaded, typed policy table
type Table struct {
	Headers []string `json:"headers"`
	Schema  Schema   `json:"schema"`
	Records []Record `json:"records"`
}

// NewTable creates an empty table with the given headers and schema
func NewTable(headers []string, schema Schema) *Table {
	h := make([]string, len(headers))
	copy(h, headers)
	return &Table{Headers: h, Schema: schema}
}

// Len returns the number of records
func (t *Table) Len() int {
	return len(t.Records)
}

// Column resolves a column name (or alias) to the header the table carries
func (t *Table) Column(name string) (string, error) {
	canonical := t.Schema.Resolve(name)
	for _, h := range t.Headers {
		if h == canonical {
			return canonical, nil
		}
	}
	return "", core.NewColumnError(name)
}

// HasColumn reports whether the table carries a column
func (t *Table) HasColumn(name string) bool {
	_, err := t.Column(name)
	return err == nil
}

// TypeOf returns the declared type of a column
func (t *Table) TypeOf(name string) ColumnType {
	return t.Schema.TypeOf(name)
}

// Derive returns a table sharing headers and schema with the receiver but
// holding the given records. Extra headers are appended once.
func (t *Table) Derive(records []Record, extraHeaders ...string) *Table {
	out := NewTable(t.Headers, t.Schema.Clone())
	for _, h := range extraHeaders {
		if !out.HasColumn(h) {
			out.Headers = append(out.Headers, h)
		}
	}
	out.Records = records
	return out
}

// Subset returns the records at the given indexes
func (t *Table) Subset(indexes []int) []Record {
	out := make([]Record, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, t.Records[i])
	}
	return out
}
