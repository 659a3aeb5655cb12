package core

// Row maps column names to decoded JSON values. A missing key reads as null.
type Row map[string]any

// Get returns the value stored under column and whether the key is present.
func (r Row) Get(column string) (any, bool) {
	v, ok := r[column]
	return v, ok
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
