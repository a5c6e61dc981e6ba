// Package report assembles aggregation results and chart images into an
// ordered artifact and serializes it to a downloadable workbook.
package report

import "time"

// SectionKind tags a section payload so sinks can dispatch without
// inspecting the payload itself.
type SectionKind string

const (
	KindTable SectionKind = "table"
	KindImage SectionKind = "image"
)

// Table is a rendered result table with presentation-formatted cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Section is one named entry of an artifact. Exactly one of Table or
// Image is set, according to Kind.
type Section struct {
	Name  string      `json:"name"`
	Kind  SectionKind `json:"kind"`
	Table *Table      `json:"table,omitempty"`
	Image []byte      `json:"-"`
}

// Artifact is the final ordered report. Sections whose source aggregate
// was unavailable are absent, not empty, so consumers must not assume a
// fixed section count.
type Artifact struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`
}

// TableByName returns the named table section, or nil when the report
// omitted it.
func (a *Artifact) TableByName(name string) *Table {
	for _, s := range a.Sections {
		if s.Name == name && s.Kind == KindTable {
			return s.Table
		}
	}
	return nil
}
