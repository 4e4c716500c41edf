package pgdock

// Row is an ordered mapping from column name to Value, one entry per
// column, preserving the server's column order. Column names are not
// guaranteed unique; Get returns the first match.
type Row struct {
	names  []string
	values []Value
}

// NewRow builds a Row from parallel name and value slices.
// Panics if the slices differ in length; the decode path always produces
// matched slices.
func NewRow(names []string, values []Value) Row {
	if len(names) != len(values) {
		panic("pgdock: mismatched row column counts")
	}
	return Row{names: names, values: values}
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.values) }

// Columns returns the column names in server order.
func (r Row) Columns() []string { return r.names }

// Values returns the column values in server order.
func (r Row) Values() []Value { return r.values }

// Value returns the value at column index i.
func (r Row) Value(i int) Value { return r.values[i] }

// Get returns the value of the first column with the given name.
func (r Row) Get(name string) (Value, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return Null(), false
}

// Native returns the row as a map of column name to plain Go value.
// Later duplicate columns overwrite earlier ones; use Columns/Values when
// duplicates matter.
func (r Row) Native() map[string]any {
	out := make(map[string]any, len(r.names))
	for i, n := range r.names {
		out[n] = r.values[i].Native()
	}
	return out
}
