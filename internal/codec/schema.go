package codec

import "strings"

const (
	ColID          = "id"
	ColTitle       = "title"
	ColDescription = "description"
	ColCompleted   = "completed"
	ColCreatedAt   = "createdAt"
	ColUpdatedAt   = "updatedAt"
	ColDueDate     = "dueDate"
	ColParentID    = "parentId"
	ColCategory    = "category"
	ColPriority    = "priority"
)

// Schema is a versioned column layout.
type Schema struct {
	Version int
	Columns []string
}

var (
	// SchemaV1 is the baseline layout every backend understands.
	SchemaV1 = Schema{
		Version: 1,
		Columns: []string{ColID, ColTitle, ColDescription, ColCompleted, ColCreatedAt, ColUpdatedAt, ColDueDate, ColParentID},
	}
	// SchemaV2 appends category and priority.
	SchemaV2 = Schema{
		Version: 2,
		Columns: append(append([]string{}, SchemaV1.Columns...), ColCategory, ColPriority),
	}
)

// SchemaFor picks the layout for the extended-fields feature flag.
func SchemaFor(extended bool) Schema {
	if extended {
		return SchemaV2
	}
	return SchemaV1
}

// header maps column names to record positions.
type header map[string]int

// parseHeader matches column names case-insensitively. It reports false when
// the record names none of the known columns.
func parseHeader(record []string) (header, Schema, bool) {
	known := make(map[string]string, len(SchemaV2.Columns))
	for _, c := range SchemaV2.Columns {
		known[strings.ToLower(c)] = c
	}

	h := make(header)
	for i, name := range record {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if col, ok := known[name]; ok {
			if _, dup := h[col]; !dup {
				h[col] = i
			}
		}
	}
	if _, ok := h[ColID]; !ok {
		return nil, Schema{}, false
	}

	schema := SchemaV1
	_, hasCategory := h[ColCategory]
	_, hasPriority := h[ColPriority]
	if hasCategory || hasPriority {
		schema = SchemaV2
	}
	return h, schema, true
}

// positional maps the V2 column order onto record positions, for input that
// arrives without a header.
func positional() header {
	h := make(header, len(SchemaV2.Columns))
	for i, c := range SchemaV2.Columns {
		h[c] = i
	}
	return h
}

// get returns the named field, or "" when the record is too short.
func (h header) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
