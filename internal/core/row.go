package core

// Row is a single result row keyed by column name. Column names match the
// declared field names of the schema, so a row can be passed straight back
// into an entity constructor.
type Row map[string]interface{}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
