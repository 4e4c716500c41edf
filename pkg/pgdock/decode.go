package pgdock

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// decodeRows drains a result set into decoded Rows.
func decodeRows(rows pgx.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		row, err := decodeCurrentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading result rows: %v: %w", err, ErrQuery)
	}
	return out, nil
}

// decodeCurrentRow converts the row the cursor is positioned on.
func decodeCurrentRow(rows pgx.Rows) (Row, error) {
	raw, err := rows.Values()
	if err != nil {
		return Row{}, fmt.Errorf("reading row values: %v: %w", err, ErrQuery)
	}

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	values := make([]Value, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
		values[i] = decodeColumn(fd.DataTypeOID, raw[i])
	}
	return NewRow(names, values), nil
}

// decodeColumn converts one driver-decoded column value to a Value,
// dispatching on the column's declared wire type. NULL wins over the
// declared type. Unrecognized types decode best-effort as text, else Null.
func decodeColumn(oid uint32, v any) Value {
	if v == nil {
		return Null()
	}

	switch oid {
	case pgtype.BoolOID:
		if b, ok := v.(bool); ok {
			return Bool(b)
		}

	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		switch n := v.(type) {
		case int16:
			return Int64(int64(n))
		case int32:
			return Int64(int64(n))
		case int64:
			return Int64(n)
		case int:
			return Int64(int64(n))
		}

	case pgtype.Float4OID:
		if f, ok := v.(float32); ok {
			return Float64(float64(f))
		}

	case pgtype.Float8OID:
		if f, ok := v.(float64); ok {
			return Float64(f)
		}

	case pgtype.NumericOID:
		// Arbitrary precision narrows to double; documented precision loss.
		switch n := v.(type) {
		case pgtype.Numeric:
			if f8, err := n.Float64Value(); err == nil && f8.Valid {
				return Float64(f8.Float64)
			}
		case float64:
			return Float64(n)
		}

	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID:
		if s, ok := v.(string); ok {
			return String(s)
		}

	case pgtype.ByteaOID:
		if b, ok := v.([]byte); ok {
			return Bytes(b)
		}

	case pgtype.UUIDOID:
		// Decodes as canonical text, not the UUID variant. The asymmetry
		// with inbound classification is intentional.
		switch u := v.(type) {
		case [16]byte:
			return String(uuid.UUID(u).String())
		case string:
			return String(u)
		}

	case pgtype.JSONOID, pgtype.JSONBOID:
		switch j := v.(type) {
		case []byte:
			var decoded any
			if err := json.Unmarshal(j, &decoded); err == nil {
				return JSON(decoded)
			}
		case string:
			var decoded any
			if err := json.Unmarshal([]byte(j), &decoded); err == nil {
				return JSON(decoded)
			}
		default:
			return JSON(v)
		}

	case pgtype.DateOID:
		switch d := v.(type) {
		case time.Time:
			return Date(d)
		case pgtype.Date:
			if d.Valid {
				return Date(d.Time)
			}
		}

	case pgtype.TimeOID:
		// Nanosecond wire precision is already microseconds in postgres;
		// anything finer is truncated, not rounded.
		switch t := v.(type) {
		case pgtype.Time:
			if t.Valid {
				return Value{kind: KindTime, microVal: t.Microseconds}
			}
		case time.Duration:
			return Value{kind: KindTime, microVal: t.Microseconds()}
		}

	case pgtype.TimestampOID:
		if t, ok := v.(time.Time); ok {
			return DateTime(t)
		}

	case pgtype.TimestamptzOID:
		if t, ok := v.(time.Time); ok {
			return DateTimeTZ(t)
		}
	}

	return decodeFallback(v)
}

// decodeFallback handles unrecognized wire types and declared-type
// mismatches: best-effort text, else Null.
func decodeFallback(v any) Value {
	switch s := v.(type) {
	case string:
		return String(s)
	case []byte:
		return String(string(s))
	case fmt.Stringer:
		return String(s.String())
	default:
		return Null()
	}
}
