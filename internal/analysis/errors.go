package analysis

import "fmt"

// MissingFieldError is returned when a required canonical field is not
// mapped to any source column. Fatal; the user must fix their mapping.
type MissingFieldError struct {
	Field Field
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %s is not mapped to a source column", e.Field)
}

// DuplicateMappingError is returned when two canonical fields claim the
// same source column. Fatal.
type DuplicateMappingError struct {
	Column string
	Fields []Field
}

func (e *DuplicateMappingError) Error() string {
	return fmt.Sprintf("source column %q is mapped to more than one field: %v", e.Column, e.Fields)
}

// UnknownColumnError is returned when a mapping names a column the source
// table does not have. Fatal.
type UnknownColumnError struct {
	Field  Field
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("field %s is mapped to column %q which does not exist in the source", e.Field, e.Column)
}

// UnusableColumnError is returned when the mapped Price column contains no
// numerically coercible values at all, which almost always means the user
// picked the wrong column. Fatal.
type UnusableColumnError struct {
	Column string
	Sample string
}

func (e *UnusableColumnError) Error() string {
	if e.Sample != "" {
		return fmt.Sprintf("column %q contains no numeric values (sample value: %q)", e.Column, e.Sample)
	}
	return fmt.Sprintf("column %q contains no numeric values", e.Column)
}
