package pgdock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
	KindBytes
	KindUUID
	KindJSON
	KindDate
	KindTime
	KindDateTime
	KindDateTimeTZ
	KindList
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt64:
		return "Int64"
	case KindFloat64:
		return "Float64"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindUUID:
		return "UUID"
	case KindJSON:
		return "JSON"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindDateTime:
		return "DateTime"
	case KindDateTimeTZ:
		return "DateTimeTZ"
	case KindList:
		return "List"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the tagged union moving data between callers and the wire
// format. Values are created per call and never retained by the connector.
//
// The zero Value is Null.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	byteVal  []byte
	uuidVal  uuid.UUID
	jsonVal  any
	timeVal  time.Time // Date, DateTime, DateTimeTZ
	microVal int64     // Time: microseconds since midnight
	listVal  []Value
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Int64 wraps a whole number.
func Int64(i int64) Value { return Value{kind: KindInt64, intVal: i} }

// Float64 wraps a real number.
func Float64(f float64) Value { return Value{kind: KindFloat64, floatVal: f} }

// String wraps text. No UUID sniffing is applied; use Classify for the
// inference path.
func String(s string) Value { return Value{kind: KindString, strVal: s} }

// Bytes wraps a raw byte sequence.
func Bytes(b []byte) Value { return Value{kind: KindBytes, byteVal: b} }

// UUID wraps a UUID.
func UUID(u uuid.UUID) Value { return Value{kind: KindUUID, uuidVal: u} }

// JSON wraps an already-decoded structured value (maps, slices, scalars).
func JSON(v any) Value { return Value{kind: KindJSON, jsonVal: v} }

// Date wraps a calendar date. The clock portion of t is discarded.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, timeVal: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// TimeOfDay wraps a wall-clock time with microsecond precision.
func TimeOfDay(hour, min, sec, micros int) Value {
	total := ((int64(hour)*3600+int64(min)*60+int64(sec))*1e6 + int64(micros))
	return Value{kind: KindTime, microVal: total}
}

// DateTime wraps a zoneless timestamp, truncated to microseconds.
func DateTime(t time.Time) Value {
	return Value{kind: KindDateTime, timeVal: t.Truncate(time.Microsecond)}
}

// DateTimeTZ wraps a timestamp normalized to UTC, truncated to microseconds.
func DateTimeTZ(t time.Time) Value {
	return Value{kind: KindDateTimeTZ, timeVal: t.UTC().Truncate(time.Microsecond)}
}

// List wraps an ordered sequence of Values.
func List(vs ...Value) Value { return Value{kind: KindList, listVal: vs} }

// Kind reports which variant the Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the Value is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload; false if the Value is not a Bool.
func (v Value) Bool() bool { return v.boolVal }

// Int64 returns the integer payload; 0 if the Value is not an Int64.
func (v Value) Int64() int64 { return v.intVal }

// Float64 returns the float payload; 0 if the Value is not a Float64.
func (v Value) Float64() float64 { return v.floatVal }

// Text returns the string payload; "" if the Value is not a String.
func (v Value) Text() string { return v.strVal }

// Bytes returns the byte payload; nil if the Value is not Bytes.
func (v Value) Bytes() []byte { return v.byteVal }

// UUID returns the UUID payload; the zero UUID if the Value is not a UUID.
func (v Value) UUID() uuid.UUID { return v.uuidVal }

// JSON returns the decoded structured payload; nil if the Value is not JSON.
func (v Value) JSON() any { return v.jsonVal }

// Time returns the temporal payload for Date, DateTime, and DateTimeTZ.
func (v Value) Time() time.Time { return v.timeVal }

// Clock returns the wall-clock components of a Time value.
func (v Value) Clock() (hour, min, sec, micros int) {
	m := v.microVal
	micros = int(m % 1e6)
	s := m / 1e6
	return int(s / 3600), int(s % 3600 / 60), int(s % 60), micros
}

// List returns the element slice; nil if the Value is not a List.
func (v Value) List() []Value { return v.listVal }

// String renders the Value for logs and test failures.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "Null"
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.boolVal)
	case KindInt64:
		return fmt.Sprintf("Int64(%d)", v.intVal)
	case KindFloat64:
		return fmt.Sprintf("Float64(%g)", v.floatVal)
	case KindString:
		return fmt.Sprintf("String(%q)", v.strVal)
	case KindBytes:
		return fmt.Sprintf("Bytes(%d bytes)", len(v.byteVal))
	case KindUUID:
		return fmt.Sprintf("UUID(%s)", v.uuidVal)
	case KindJSON:
		return fmt.Sprintf("JSON(%v)", v.jsonVal)
	case KindDate:
		return fmt.Sprintf("Date(%s)", v.timeVal.Format("2006-01-02"))
	case KindTime:
		h, m, s, us := v.Clock()
		return fmt.Sprintf("Time(%02d:%02d:%02d.%06d)", h, m, s, us)
	case KindDateTime:
		return fmt.Sprintf("DateTime(%s)", v.timeVal.Format("2006-01-02T15:04:05.000000"))
	case KindDateTimeTZ:
		return fmt.Sprintf("DateTimeTZ(%s)", v.timeVal.Format(time.RFC3339Nano))
	case KindList:
		return fmt.Sprintf("List(%v)", v.listVal)
	default:
		return fmt.Sprintf("Value(kind=%d)", int(v.kind))
	}
}

// Equal reports whether two Values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == o.boolVal
	case KindInt64:
		return v.intVal == o.intVal
	case KindFloat64:
		return v.floatVal == o.floatVal
	case KindString:
		return v.strVal == o.strVal
	case KindBytes:
		return bytes.Equal(v.byteVal, o.byteVal)
	case KindUUID:
		return v.uuidVal == o.uuidVal
	case KindJSON:
		return reflect.DeepEqual(v.jsonVal, o.jsonVal)
	case KindDate, KindDateTime, KindDateTimeTZ:
		return v.timeVal.Equal(o.timeVal)
	case KindTime:
		return v.microVal == o.microVal
	case KindList:
		if len(v.listVal) != len(o.listVal) {
			return false
		}
		for i := range v.listVal {
			if !v.listVal[i].Equal(o.listVal[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Native returns the Value as a plain Go value suitable for JSON output
// or generic consumption: nil, bool, int64, float64, string, []byte,
// formatted temporal strings, decoded JSON values, or []any for lists.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.boolVal
	case KindInt64:
		return v.intVal
	case KindFloat64:
		return v.floatVal
	case KindString:
		return v.strVal
	case KindBytes:
		return v.byteVal
	case KindUUID:
		return v.uuidVal.String()
	case KindJSON:
		return v.jsonVal
	case KindDate:
		return v.timeVal.Format("2006-01-02")
	case KindTime:
		h, m, s, us := v.Clock()
		return fmt.Sprintf("%02d:%02d:%02d.%06d", h, m, s, us)
	case KindDateTime:
		return v.timeVal.Format("2006-01-02T15:04:05.000000")
	case KindDateTimeTZ:
		return v.timeVal.Format(time.RFC3339Nano)
	case KindList:
		out := make([]any, len(v.listVal))
		for i, e := range v.listVal {
			out[i] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// Classify converts a caller-supplied value into a Value.
//
// The classification order is a contract, not an implementation detail:
//
//	nil → Null
//	bool → Bool
//	whole number → Int64
//	real number → Float64
//	text → UUID if it parses as one, else String
//	byte slice → Bytes
//	sequence → List (elements classified recursively)
//	anything else → JSON via the default serialization, or a
//	                TypeConversion error if the value cannot be serialized
//
// Do not reorder it.
func Classify(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int64(int64(x)), nil
	case int8:
		return Int64(int64(x)), nil
	case int16:
		return Int64(int64(x)), nil
	case int32:
		return Int64(int64(x)), nil
	case int64:
		return Int64(x), nil
	case uint:
		return classifyUint64(uint64(x)), nil
	case uint8:
		return Int64(int64(x)), nil
	case uint16:
		return Int64(int64(x)), nil
	case uint32:
		return Int64(int64(x)), nil
	case uint64:
		return classifyUint64(x), nil
	case float32:
		return Float64(float64(x)), nil
	case float64:
		return Float64(x), nil
	case string:
		if u, err := uuid.Parse(x); err == nil {
			return UUID(u), nil
		}
		return String(x), nil
	case []byte:
		return Bytes(x), nil
	case uuid.UUID:
		return UUID(x), nil
	case time.Time:
		return DateTimeTZ(x), nil
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(x, &decoded); err != nil {
			return Null(), fmt.Errorf("invalid raw JSON parameter: %v: %w", err, ErrTypeConversion)
		}
		return JSON(decoded), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		elems := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := Classify(rv.Index(i).Interface())
			if err != nil {
				return Null(), err
			}
			elems[i] = e
		}
		return List(elems...), nil
	}

	return classifyJSONFallback(v)
}

// classifyUint64 widens to Int64 when the value fits, otherwise falls back
// to Float64 the way an oversized integer degrades to a real number.
func classifyUint64(x uint64) Value {
	if x <= math.MaxInt64 {
		return Int64(int64(x))
	}
	return Float64(float64(x))
}

// classifyJSONFallback serializes an unrecognized value through the host's
// default object-to-JSON serialization and carries it as a JSON value.
func classifyJSONFallback(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Null(), fmt.Errorf("cannot convert %T to a database value: %v: %w", v, err, ErrTypeConversion)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Null(), fmt.Errorf("cannot convert %T to a database value: %v: %w", v, err, ErrTypeConversion)
	}
	return JSON(decoded), nil
}

// EncodeParams classifies each caller parameter and converts it to the
// form handed to the driver.
func EncodeParams(params []any) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		v, err := Classify(p)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		wire, err := v.wireValue()
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		out[i] = wire
	}
	return out, nil
}

// wireValue converts a Value to an argument the driver can bind.
func (v Value) wireValue() (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.boolVal, nil
	case KindInt64:
		return v.intVal, nil
	case KindFloat64:
		return v.floatVal, nil
	case KindString:
		return v.strVal, nil
	case KindBytes:
		return v.byteVal, nil
	case KindUUID:
		return pgtype.UUID{Bytes: v.uuidVal, Valid: true}, nil
	case KindJSON:
		raw, err := json.Marshal(v.jsonVal)
		if err != nil {
			return nil, fmt.Errorf("cannot serialize JSON parameter: %v: %w", err, ErrTypeConversion)
		}
		return string(raw), nil
	case KindDate:
		return pgtype.Date{Time: v.timeVal, Valid: true}, nil
	case KindTime:
		return pgtype.Time{Microseconds: v.microVal, Valid: true}, nil
	case KindDateTime, KindDateTimeTZ:
		return v.timeVal, nil
	case KindList:
		// Mixed-kind lists flatten to their JSON-equivalent representation
		// and travel as a single JSON value. The target column must accept
		// JSON; this is deliberately not true array-typed binding.
		raw, err := json.Marshal(v.listJSON())
		if err != nil {
			return nil, fmt.Errorf("cannot serialize list parameter: %v: %w", err, ErrTypeConversion)
		}
		return string(raw), nil
	default:
		return nil, fmt.Errorf("cannot encode %s value: %w", v.kind, ErrTypeConversion)
	}
}

// listJSON flattens list elements to JSON scalars. Element kinds without a
// JSON scalar form become null.
func (v Value) listJSON() []any {
	out := make([]any, len(v.listVal))
	for i, e := range v.listVal {
		switch e.kind {
		case KindBool:
			out[i] = e.boolVal
		case KindInt64:
			out[i] = e.intVal
		case KindFloat64:
			out[i] = e.floatVal
		case KindString:
			out[i] = e.strVal
		default:
			out[i] = nil
		}
	}
	return out
}
