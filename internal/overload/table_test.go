package overload

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestTable_RegisterAndLookup(t *testing.T) {
	tbl := NewTable()
	e1, err := tbl.Register("f", []SignatureKey{KeyInteger, KeyString}, "f-is")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := tbl.Register("f", []SignatureKey{KeyInteger, KeyInteger}, "f-ii"); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, ok := tbl.Lookup("f", []SignatureKey{KeyInteger, KeyString})
	if !ok || got != e1 {
		t.Fatalf("Lookup(f, i s) = %v, %v; want first entry", got, ok)
	}
	if got.Point != "f-is" {
		t.Errorf("Point = %v, want f-is", got.Point)
	}
	if _, ok := tbl.Lookup("f", []SignatureKey{KeyInteger}); ok {
		t.Error("Lookup with a prefix tuple should miss")
	}
	if _, ok := tbl.Lookup("f", []SignatureKey{KeyString, KeyString}); ok {
		t.Error("Lookup of an unregistered tuple should miss")
	}
	if _, ok := tbl.Lookup("g", nil); ok {
		t.Error("Lookup of an unknown name should miss")
	}
	if tbl.Len() != 2 {
		t.Errorf("Len = %d, want 2", tbl.Len())
	}
}

func TestTable_ZeroArity(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.Register("now", nil, "now"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := tbl.Lookup("now", nil); !ok {
		t.Error("zero-arity overload not found")
	}
	_, err := tbl.Register("now", []SignatureKey{}, "again")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestTable_RegisterConflict(t *testing.T) {
	tbl := NewTable()
	keys := []SignatureKey{KeyFloat}
	if _, err := tbl.Register("sqrt", keys, 1); err != nil {
		t.Fatal(err)
	}
	_, err := tbl.Register("sqrt", keys, 2)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	e, _ := tbl.Lookup("sqrt", keys)
	if e.Point != 1 {
		t.Error("conflicting registration replaced the original entry")
	}
}

func TestTable_RegisterRejects(t *testing.T) {
	tbl := NewTable(WithMaxArity(2))
	tests := []struct {
		name string
		fn   string
		keys []SignatureKey
		want error
	}{
		{"arity limit", "f", []SignatureKey{KeyBool, KeyBool, KeyBool}, ErrArityLimit},
		{"zero key", "f", []SignatureKey{{}}, ErrInvalidKey},
		{"nil class", "f", []SignatureKey{ClassKey(uuid.Nil)}, ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tbl.Register(tt.fn, tt.keys, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := tbl.Register("", nil, nil); err == nil {
		t.Error("empty name should be rejected")
	}
	if tbl.Len() != 0 {
		t.Errorf("rejected registrations left %d entries", tbl.Len())
	}
}

func TestTable_Introspection(t *testing.T) {
	reg := NewRegistry(nil)
	shape, _ := reg.Register(NewToken(), "Shape", uuid.Nil)

	tbl := NewTable()
	mustRegister(t, tbl, "scale", KeyFloat, shape.Key())
	mustRegister(t, tbl, "area", shape.Key())
	mustRegister(t, tbl, "area")
	mustRegister(t, tbl, "area", KeyInteger, KeyInteger)

	if got, want := tbl.Names(), []string{"area", "scale"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
	if got, want := tbl.Arities("area"), []int{0, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Arities = %v, want %v", got, want)
	}
	var sigs []string
	for _, e := range tbl.Entries("area") {
		sigs = append(sigs, e.Signature(reg))
	}
	want := []string{"area()", "area(Shape)", "area(integer, integer)"}
	if !reflect.DeepEqual(sigs, want) {
		t.Errorf("signatures = %v, want %v", sigs, want)
	}
	if !tbl.Has("scale") || tbl.Has("volume") {
		t.Error("Has reported the wrong names")
	}
}

func TestSignatureKey_String(t *testing.T) {
	token := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tests := []struct {
		key  SignatureKey
		want string
	}{
		{KeyBool, "b"},
		{KeyInteger, "i"},
		{KeyFloat, "f"},
		{KeyString, "s"},
		{KeyArray, "a"},
		{KeyFunction, "c"},
		{KeyTable, "t"},
		{ClassKey(token), "@6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func mustRegister(t *testing.T, tbl *Table, name string, keys ...SignatureKey) *Entry {
	t.Helper()
	e, err := tbl.Register(name, keys, name)
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return e
}
