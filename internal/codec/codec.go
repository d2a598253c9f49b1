// Package codec converts a task forest to flat CSV rows and back.
//
// Encoding writes a header row followed by one row per task in depth-first
// pre-order, each row naming the id of the task it was nested under. Decoding
// is the inverse and never fails: malformed rows are skipped, missing columns
// take their defaults and rows whose parent cannot be found are promoted to
// the root level.
//
// Round trips are exact except for one loss in the quoting scheme: a CRLF
// inside a quoted field reads back as a single newline.
package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nick-dorsch/planner/internal/ids"
	"github.com/nick-dorsch/planner/pkg/models"
)

// Encode renders the forest as CSV text in the given schema.
func Encode(f models.Forest, s Schema) string {
	var b strings.Builder
	// strings.Builder never fails a write.
	_ = EncodeTo(&b, f, s)
	return b.String()
}

// EncodeTo writes the forest as CSV to w.
func EncodeTo(w io.Writer, f models.Forest, s Schema) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range Rows(f) {
		if err := cw.Write(r.fields(s)); err != nil {
			return fmt.Errorf("failed to write row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// Report describes what Decode did with its input.
type Report struct {
	// Schema is the layout detected from the header.
	Schema Schema
	// Rows counts data rows turned into tasks.
	Rows int
	// Skipped counts rows that could not be parsed.
	Skipped int
	// Orphans lists ids of tasks whose parent was not found and which were
	// promoted to the root level.
	Orphans []string
	// Generated counts rows that had no id and were given a fresh one. Such
	// text decodes differently every time.
	Generated int
}

type options struct {
	forwardRefs bool
}

type Option func(*options)

// WithForwardReferences links a child to a parent that appears later in the
// input. Without it, decoding is a single pass and such children become
// orphans.
func WithForwardReferences() Option {
	return func(o *options) { o.forwardRefs = true }
}

// Decode parses CSV text into a forest. Empty input yields an empty forest.
func Decode(text string, opts ...Option) (models.Forest, Report) {
	if strings.TrimSpace(text) == "" {
		return models.Forest{}, Report{Schema: SchemaV1}
	}
	return DecodeReader(strings.NewReader(text), opts...)
}

// DecodeReader is Decode over a stream.
func DecodeReader(r io.Reader, opts ...Option) (models.Forest, Report) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	report := Report{Schema: SchemaV1}
	var h header
	var rows []Row

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				report.Skipped++
				continue
			}
			break
		}
		if blank(record) {
			continue
		}

		if h == nil {
			var ok bool
			h, report.Schema, ok = parseHeader(record)
			if ok {
				continue
			}
			// No recognizable header: read positionally and keep the line.
			h, report.Schema = positional(), SchemaV2
		}

		row := rowFromRecord(h, record)
		if row.ID == "" {
			if strings.TrimSpace(row.Title) == "" {
				report.Skipped++
				continue
			}
			row.ID = ids.New()
			report.Generated++
		}
		rows = append(rows, row)
	}

	f, built := Build(rows, opts...)
	report.Rows = built.Rows
	report.Orphans = built.Orphans
	return f, report
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

type node struct {
	task     models.Task
	parent   *node
	children []*node
}

// Build rebuilds a forest from rows in order. By default a row is nested
// only under a parent that appeared earlier; see WithForwardReferences.
func Build(rows []Row, opts ...Option) (models.Forest, Report) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	report := Report{Schema: SchemaV2, Rows: len(rows)}
	byID := make(map[string]*node, len(rows))
	nodes := make([]*node, len(rows))
	for i, r := range rows {
		nodes[i] = &node{task: r.task()}
		if o.forwardRefs {
			byID[r.ID] = nodes[i]
		}
	}

	var roots []*node
	for i, r := range rows {
		n := nodes[i]
		if !o.forwardRefs {
			byID[r.ID] = n
		}

		parent, ok := byID[r.ParentID]
		if r.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		if !ok || createsCycle(n, parent) {
			n.task.ParentID = ""
			report.Orphans = append(report.Orphans, r.ID)
			roots = append(roots, n)
			continue
		}
		n.parent = parent
		parent.children = append(parent.children, n)
	}

	f := make(models.Forest, 0, len(roots))
	for _, n := range roots {
		f = append(f, n.materialize())
	}
	return f, report
}

// createsCycle reports whether hanging n under parent would make n its own
// ancestor.
func createsCycle(n, parent *node) bool {
	for p := parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

func (n *node) materialize() models.Task {
	t := n.task
	t.Subtasks = make([]models.Task, 0, len(n.children))
	for _, c := range n.children {
		t.Subtasks = append(t.Subtasks, c.materialize())
	}
	return t
}
