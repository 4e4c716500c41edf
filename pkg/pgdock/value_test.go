package pgdock_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/pgdock/pkg/pgdock"
)

func mustClassify(t *testing.T, v any) pgdock.Value {
	t.Helper()
	out, err := pgdock.Classify(v)
	if err != nil {
		t.Fatalf("Classify(%#v) failed: %v", v, err)
	}
	return out
}

func TestClassifyScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want pgdock.Value
	}{
		{"nil", nil, pgdock.Null()},
		{"bool true", true, pgdock.Bool(true)},
		{"bool false", false, pgdock.Bool(false)},
		{"int", 42, pgdock.Int64(42)},
		{"int8", int8(-7), pgdock.Int64(-7)},
		{"int64", int64(math.MaxInt64), pgdock.Int64(math.MaxInt64)},
		{"uint32", uint32(7), pgdock.Int64(7)},
		{"float32", float32(1.5), pgdock.Float64(1.5)},
		{"float64", 2.25, pgdock.Float64(2.25)},
		{"plain text", "hello", pgdock.String("hello")},
		{"bytes", []byte{0xde, 0xad}, pgdock.Bytes([]byte{0xde, 0xad})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustClassify(t, tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("Classify(%#v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

// Booleans must classify before numbers, and numbers before text, so that
// each input lands on the first matching rule and nothing downstream can
// steal it.
func TestClassifyOrderIsStable(t *testing.T) {
	if got := mustClassify(t, true); got.Kind() != pgdock.KindBool {
		t.Errorf("bool classified as %s", got.Kind())
	}
	if got := mustClassify(t, 1); got.Kind() != pgdock.KindInt64 {
		t.Errorf("int classified as %s", got.Kind())
	}
	if got := mustClassify(t, 1.0); got.Kind() != pgdock.KindFloat64 {
		t.Errorf("float classified as %s", got.Kind())
	}
	if got := mustClassify(t, "1"); got.Kind() != pgdock.KindString {
		t.Errorf("numeric text classified as %s", got.Kind())
	}
}

func TestClassifyUUIDSniffing(t *testing.T) {
	id := uuid.MustParse("a2cdc2f5-8a4b-4b3e-b9a9-4b9b8f3cfc11")

	got := mustClassify(t, id.String())
	if got.Kind() != pgdock.KindUUID {
		t.Fatalf("UUID-shaped text classified as %s", got.Kind())
	}
	if got.UUID() != id {
		t.Errorf("UUID payload = %s, want %s", got.UUID(), id)
	}

	// Close but not a UUID stays text.
	almost := "a2cdc2f5-8a4b-4b3e-b9a9-4b9b8f3cfc1"
	if got := mustClassify(t, almost); got.Kind() != pgdock.KindString {
		t.Errorf("near-UUID text classified as %s", got.Kind())
	}

	// A typed UUID skips the sniff entirely.
	if got := mustClassify(t, id); got.Kind() != pgdock.KindUUID {
		t.Errorf("uuid.UUID classified as %s", got.Kind())
	}
}

func TestClassifyUint64Overflow(t *testing.T) {
	if got := mustClassify(t, uint64(math.MaxInt64)); got.Kind() != pgdock.KindInt64 {
		t.Errorf("max int64 classified as %s", got.Kind())
	}
	got := mustClassify(t, uint64(math.MaxInt64)+1)
	if got.Kind() != pgdock.KindFloat64 {
		t.Errorf("oversized uint64 classified as %s, want Float64", got.Kind())
	}
}

func TestClassifyTime(t *testing.T) {
	loc := time.FixedZone("TST", 3*3600)
	in := time.Date(2024, 6, 15, 12, 30, 45, 123456000, loc)

	got := mustClassify(t, in)
	if got.Kind() != pgdock.KindDateTimeTZ {
		t.Fatalf("time.Time classified as %s", got.Kind())
	}
	if got.Time().Location() != time.UTC {
		t.Errorf("DateTimeTZ not normalized to UTC: %s", got.Time())
	}
	if !got.Time().Equal(in) {
		t.Errorf("DateTimeTZ = %s, want instant %s", got.Time(), in)
	}
}

func TestClassifyList(t *testing.T) {
	got := mustClassify(t, []any{1, "two", true, nil})
	if got.Kind() != pgdock.KindList {
		t.Fatalf("slice classified as %s", got.Kind())
	}
	elems := got.List()
	if len(elems) != 4 {
		t.Fatalf("len(list) = %d, want 4", len(elems))
	}
	wants := []pgdock.Value{pgdock.Int64(1), pgdock.String("two"), pgdock.Bool(true), pgdock.Null()}
	for i, want := range wants {
		if !elems[i].Equal(want) {
			t.Errorf("list[%d] = %s, want %s", i, elems[i], want)
		}
	}

	// Typed slices recurse too.
	got = mustClassify(t, []int{1, 2, 3})
	if got.Kind() != pgdock.KindList || len(got.List()) != 3 {
		t.Errorf("[]int classified as %s with %d elems", got.Kind(), len(got.List()))
	}
}

func TestClassifyJSONFallback(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	got := mustClassify(t, payload{Name: "a", Count: 2})
	if got.Kind() != pgdock.KindJSON {
		t.Fatalf("struct classified as %s", got.Kind())
	}
	m, ok := got.JSON().(map[string]any)
	if !ok {
		t.Fatalf("JSON payload is %T, want map", got.JSON())
	}
	if m["name"] != "a" || m["count"] != float64(2) {
		t.Errorf("JSON payload = %v", m)
	}

	if got := mustClassify(t, map[string]int{"x": 1}); got.Kind() != pgdock.KindJSON {
		t.Errorf("map classified as %s", got.Kind())
	}

	_, err := pgdock.Classify(func() {})
	if err == nil {
		t.Fatal("Classify(func) succeeded, want error")
	}
	if !errors.Is(err, pgdock.ErrTypeConversion) {
		t.Errorf("Classify(func) error = %v, want ErrTypeConversion", err)
	}
}

func TestClassifyRawJSON(t *testing.T) {
	got := mustClassify(t, json.RawMessage(`{"k": [1, 2]}`))
	if got.Kind() != pgdock.KindJSON {
		t.Fatalf("raw JSON classified as %s", got.Kind())
	}

	_, err := pgdock.Classify(json.RawMessage(`{invalid`))
	if !errors.Is(err, pgdock.ErrTypeConversion) {
		t.Errorf("invalid raw JSON error = %v, want ErrTypeConversion", err)
	}
}

func TestClassifyValuePassthrough(t *testing.T) {
	in := pgdock.Date(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	got := mustClassify(t, in)
	if !got.Equal(in) {
		t.Errorf("Value passthrough = %s, want %s", got, in)
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b pgdock.Value
		want bool
	}{
		{"null == null", pgdock.Null(), pgdock.Null(), true},
		{"int == int", pgdock.Int64(5), pgdock.Int64(5), true},
		{"int != int", pgdock.Int64(5), pgdock.Int64(6), false},
		{"kind mismatch", pgdock.Int64(1), pgdock.Float64(1), false},
		{"bytes equal", pgdock.Bytes([]byte{1, 2}), pgdock.Bytes([]byte{1, 2}), true},
		{"lists equal", pgdock.List(pgdock.Int64(1)), pgdock.List(pgdock.Int64(1)), true},
		{"lists differ", pgdock.List(pgdock.Int64(1)), pgdock.List(pgdock.Int64(2)), false},
		{"list length differs", pgdock.List(pgdock.Int64(1)), pgdock.List(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%s.Equal(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValueNative(t *testing.T) {
	date := pgdock.Date(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	if got := date.Native(); got != "2024-03-09" {
		t.Errorf("Date Native() = %v", got)
	}

	clock := pgdock.TimeOfDay(13, 45, 30, 250)
	if got := clock.Native(); got != "13:45:30.000250" {
		t.Errorf("Time Native() = %v", got)
	}

	list := pgdock.List(pgdock.Int64(1), pgdock.Null())
	native, ok := list.Native().([]any)
	if !ok || len(native) != 2 || native[0] != int64(1) || native[1] != nil {
		t.Errorf("List Native() = %v", list.Native())
	}

	if pgdock.Null().Native() != nil {
		t.Error("Null Native() should be nil")
	}
}

func TestTimeOfDayClock(t *testing.T) {
	v := pgdock.TimeOfDay(23, 59, 59, 999999)
	h, m, s, us := v.Clock()
	if h != 23 || m != 59 || s != 59 || us != 999999 {
		t.Errorf("Clock() = %d:%d:%d.%d", h, m, s, us)
	}
}

func TestEncodeParams(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	args, err := pgdock.EncodeParams([]any{nil, 1, "x", id.String(), []any{1, "a", true}})
	if err != nil {
		t.Fatalf("EncodeParams failed: %v", err)
	}
	if len(args) != 5 {
		t.Fatalf("len(args) = %d, want 5", len(args))
	}
	if args[0] != nil {
		t.Errorf("args[0] = %v, want nil", args[0])
	}
	if args[1] != int64(1) {
		t.Errorf("args[1] = %v, want int64(1)", args[1])
	}
	if args[2] != "x" {
		t.Errorf("args[2] = %v, want \"x\"", args[2])
	}

	// Lists travel as a single JSON text value.
	listArg, ok := args[4].(string)
	if !ok {
		t.Fatalf("args[4] is %T, want string", args[4])
	}
	if listArg != `[1,"a",true]` {
		t.Errorf("list wire form = %q", listArg)
	}

	if _, err := pgdock.EncodeParams([]any{make(chan int)}); !errors.Is(err, pgdock.ErrTypeConversion) {
		t.Errorf("EncodeParams(chan) error = %v, want ErrTypeConversion", err)
	}

	if args, err := pgdock.EncodeParams(nil); err != nil || args != nil {
		t.Errorf("EncodeParams(nil) = %v, %v", args, err)
	}
}
