package analysis

import (
	"salesight/internal/ingest"
)

// Mapping is the caller-supplied column mapping. Item and Price name source
// columns and are required; the optional fields are skipped when empty.
type Mapping struct {
	Item     string `json:"item" validate:"required"`
	Price    string `json:"price" validate:"required"`
	Quantity string `json:"quantity,omitempty"`
	Date     string `json:"date,omitempty"`
	Category string `json:"category,omitempty"`
}

// BuildFieldMap validates a Mapping against the source table's columns and
// resolves it to column indices. Pure validation, no side effects.
//
// Rules: Item and Price must be mapped to existing columns; optional fields
// may be empty (declared absent); no source column may serve two fields.
func BuildFieldMap(table *ingest.RawTable, m Mapping) (FieldMap, error) {
	declared := map[Field]string{
		FieldItem:     m.Item,
		FieldPrice:    m.Price,
		FieldQuantity: m.Quantity,
		FieldDate:     m.Date,
		FieldCategory: m.Category,
	}

	for _, field := range RequiredFields {
		if declared[field] == "" {
			return nil, &MissingFieldError{Field: field}
		}
	}

	fm := make(FieldMap)
	claimed := make(map[int]Field)

	for _, field := range append(append([]Field{}, RequiredFields...), OptionalFields...) {
		column := declared[field]
		if column == "" {
			continue
		}

		idx := table.ColumnIndex(column)
		if idx < 0 {
			return nil, &UnknownColumnError{Field: field, Column: column}
		}

		if prev, taken := claimed[idx]; taken {
			return nil, &DuplicateMappingError{
				Column: table.Columns[idx],
				Fields: []Field{prev, field},
			}
		}

		claimed[idx] = field
		fm[field] = idx
	}

	return fm, nil
}

// Has reports whether a canonical field was mapped
func (fm FieldMap) Has(field Field) bool {
	_, ok := fm[field]
	return ok
}
