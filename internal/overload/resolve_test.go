package overload

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func args(kinds ...ValueKind) []Arg {
	out := make([]Arg, len(kinds))
	for i, k := range kinds {
		out[i] = Arg{Kind: k}
	}
	return out
}

func instance(id *ClassIdentity) Arg {
	return Arg{Kind: ValueInstance, Tags: []any{id}}
}

func TestResolve_ExactMatch(t *testing.T) {
	tbl := NewTable()
	is := mustRegister(t, tbl, "f", KeyInteger, KeyString)
	si := mustRegister(t, tbl, "f", KeyString, KeyInteger)
	ff := mustRegister(t, tbl, "f", KeyFloat, KeyFloat)
	a := mustRegister(t, tbl, "f", KeyArray)
	r := NewResolver(tbl, nil, nil)

	tests := []struct {
		name string
		args []Arg
		want *Entry
	}{
		{"integer string", args(ValueInteger, ValueString), is},
		{"string integer", args(ValueString, ValueInteger), si},
		{"float float", args(ValueFloat, ValueFloat), ff},
		{"array", args(ValueArray), a},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve("f", tt.args)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolved %v, want %v", got.Keys, tt.want.Keys)
			}
		})
	}
}

func TestResolve_PrimitiveFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		declared SignatureKey
		arg      ValueKind
		ok       bool
	}{
		{"bool to integer", KeyInteger, ValueBool, true},
		{"bool to float", KeyFloat, ValueBool, true},
		{"integer to float", KeyFloat, ValueInteger, true},
		{"integer to bool", KeyBool, ValueInteger, true},
		{"float to integer", KeyInteger, ValueFloat, true},
		{"float to bool", KeyBool, ValueFloat, true},
		{"null to bool", KeyBool, ValueNull, true},
		{"null to string", KeyString, ValueNull, true},
		{"string to integer", KeyInteger, ValueString, false},
		{"array to integer", KeyInteger, ValueArray, false},
		{"table to array", KeyArray, ValueTable, false},
		{"closure to string", KeyString, ValueClosure, false},
		{"null to integer", KeyInteger, ValueNull, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable()
			want := mustRegister(t, tbl, "g", tt.declared)
			got, err := NewResolver(tbl, nil, nil).Resolve("g", args(tt.arg))
			if tt.ok {
				if err != nil || got != want {
					t.Fatalf("Resolve = %v, %v; want the %v overload", got, err, tt.declared)
				}
				return
			}
			if !errors.Is(err, ErrTypeMismatch) {
				t.Fatalf("err = %v, want type mismatch", err)
			}
		})
	}
}

func TestResolve_FallbackOrder(t *testing.T) {
	// With integer and float overloads both present, a bool takes the
	// integer one and a float never drops to integer.
	tbl := NewTable()
	i := mustRegister(t, tbl, "h", KeyInteger)
	f := mustRegister(t, tbl, "h", KeyFloat)
	r := NewResolver(tbl, nil, nil)

	if got, _ := r.Resolve("h", args(ValueBool)); got != i {
		t.Error("bool should prefer integer over float")
	}
	if got, _ := r.Resolve("h", args(ValueFloat)); got != f {
		t.Error("float should resolve to the float overload")
	}
	if got, _ := r.Resolve("h", args(ValueInteger)); got != i {
		t.Error("integer should resolve to the integer overload")
	}
}

func TestResolve_NearestAncestorWins(t *testing.T) {
	reg := NewRegistry(nil)
	a, _ := reg.Register(NewToken(), "A", uuid.Nil)
	b, _ := reg.Register(NewToken(), "B", a.Token())
	c, _ := reg.Register(NewToken(), "C", b.Token())
	d, _ := reg.Register(NewToken(), "D", uuid.Nil)

	tbl := NewTable()
	onA := mustRegister(t, tbl, "area", a.Key())
	onB := mustRegister(t, tbl, "area", b.Key())
	r := NewResolver(tbl, reg, nil)

	got, err := r.Resolve("area", []Arg{instance(c)})
	if err != nil {
		t.Fatalf("Resolve(C): %v", err)
	}
	if got != onB {
		t.Errorf("C resolved to %s, want area(B)", got.Signature(reg))
	}
	if got, _ := r.Resolve("area", []Arg{instance(a)}); got != onA {
		t.Error("A should resolve to area(A)")
	}

	_, err = r.Resolve("area", []Arg{instance(d)})
	var tm *TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("err = %v, want *TypeMismatchError", err)
	}
	if got := strings.Join(tm.Expected, "|"); got != "A|B" {
		t.Errorf("expected = %q, want A|B", got)
	}

	if e, ok := tbl.NearestOverload("area", c); !ok || e != onB {
		t.Error("NearestOverload(C) should find area(B)")
	}
	if _, ok := tbl.NearestOverload("area", d); ok {
		t.Error("NearestOverload(D) should miss")
	}
}

func TestResolve_ScriptSubclassOfNativeClass(t *testing.T) {
	reg := NewRegistry(nil)
	shape, _ := reg.Register(NewToken(), "Shape", uuid.Nil)
	tbl := NewTable()
	want := mustRegister(t, tbl, "draw", shape.Key())

	// The script class carries no tag; its native base does.
	arg := Arg{Kind: ValueInstance, Tags: []any{nil, shape}}
	got, err := NewResolver(tbl, reg, nil).Resolve("draw", []Arg{arg})
	if err != nil || got != want {
		t.Fatalf("Resolve = %v, %v; want draw(Shape)", got, err)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	reg := NewRegistry(nil)
	base, _ := reg.Register(NewToken(), "Base", uuid.Nil)
	derived, _ := reg.Register(NewToken(), "Derived", base.Token())
	tbl := NewTable()
	mustRegister(t, tbl, "k", KeyFloat, base.Key())
	mustRegister(t, tbl, "k", KeyString, base.Key())
	r := NewResolver(tbl, reg, nil)

	call := []Arg{{Kind: ValueInteger}, instance(derived)}
	first, err := r.Resolve("k", call)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		got, err := r.Resolve("k", call)
		if err != nil || got != first {
			t.Fatalf("call %d resolved differently: %v, %v", i, got, err)
		}
	}
}

func TestResolve_NoBacktracking(t *testing.T) {
	// Position 1 commits to integer, so (integer, integer) cannot reach
	// m(float, integer) even though it would accept the call.
	tbl := NewTable()
	mustRegister(t, tbl, "m", KeyInteger, KeyString)
	mustRegister(t, tbl, "m", KeyFloat, KeyInteger)
	r := NewResolver(tbl, nil, nil)

	_, err := r.Resolve("m", args(ValueInteger, ValueInteger))
	var tm *TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("err = %v, want *TypeMismatchError", err)
	}
	if tm.Position != 2 {
		t.Errorf("position = %d, want 2", tm.Position)
	}
	if got := strings.Join(tm.Expected, "|"); got != "string" {
		t.Errorf("expected = %q, want string", got)
	}
	if got := tm.Tried.String(); got != "[i] [i f b]" {
		t.Errorf("tried = %q, want [i] [i f b]", got)
	}
}

func TestResolve_MismatchDiagnostic(t *testing.T) {
	tbl := NewTable()
	mustRegister(t, tbl, "q", KeyInteger, KeyString)
	mustRegister(t, tbl, "q", KeyFloat, KeyString)
	mustRegister(t, tbl, "q", KeyInteger, KeyInteger)
	r := NewResolver(tbl, nil, nil)

	_, err := r.Resolve("q", args(ValueString, ValueString))
	var tm *TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("err = %v, want *TypeMismatchError", err)
	}
	if tm.Position != 1 || tm.Got != ValueString {
		t.Errorf("position/got = %d/%v, want 1/string", tm.Position, tm.Got)
	}
	want := "parameter 1 of 'q' has wrong type string: expected type integer|float"
	if err.Error() != want {
		t.Errorf("message = %q\nwant      %q", err.Error(), want)
	}
	if len(tm.Tried) != 1 || len(tm.Tried[0]) != 1 || tm.Tried[0][0] != KeyString {
		t.Errorf("tried = %v, want [[s]]", tm.Tried)
	}
}

func TestResolve_UnknownClassRendersUnknown(t *testing.T) {
	reg := NewRegistry(nil)
	known, _ := reg.Register(NewToken(), "Known", uuid.Nil)
	tbl := NewTable()
	mustRegister(t, tbl, "u", known.Key())
	mustRegister(t, tbl, "u", ClassKey(NewToken()))
	mustRegister(t, tbl, "u", ClassKey(NewToken()))

	_, err := NewResolver(tbl, reg, nil).Resolve("u", args(ValueString))
	if err == nil || !strings.HasSuffix(err.Error(), "expected type Known|unknown") {
		t.Errorf("err = %v, want Known|unknown", err)
	}
}

func TestResolve_ClassificationFailure(t *testing.T) {
	reg := NewRegistry(nil)
	shape, _ := reg.Register(NewToken(), "Shape", uuid.Nil)
	tbl := NewTable()
	mustRegister(t, tbl, "draw", shape.Key())

	_, err := NewResolver(tbl, reg, nil).Resolve("draw", []Arg{{Kind: ValueInstance}})
	if !errors.Is(err, ErrTypeMismatch) || !errors.Is(err, ErrClassification) {
		t.Fatalf("err = %v, want mismatch caused by classification failure", err)
	}
	if !strings.Contains(err.Error(), "expected type Shape") {
		t.Errorf("message %q should list Shape", err.Error())
	}
}

func TestResolve_LookupErrors(t *testing.T) {
	tbl := NewTable()
	mustRegister(t, tbl, "f", KeyInteger)
	r := NewResolver(tbl, nil, nil)

	_, err := r.Resolve("nope", nil)
	if !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("err = %v, want ErrUnknownFunction", err)
	}
	if err == nil || err.Error() != "the index 'nope' does not exist" {
		t.Errorf("message = %v", err)
	}

	_, err = r.Resolve("f", args(ValueInteger, ValueInteger))
	if !errors.Is(err, ErrArity) {
		t.Errorf("err = %v, want ErrArity", err)
	}
	if errors.Is(err, ErrTypeMismatch) {
		t.Error("arity errors are not type mismatches")
	}
}

func TestResolve_EndToEnd(t *testing.T) {
	tbl := NewTable()
	onInt := mustRegister(t, tbl, "f", KeyInteger)
	onStr := mustRegister(t, tbl, "f", KeyString)
	r := NewResolver(tbl, NewRegistry(nil), nil)

	if got, _ := r.Resolve("f", args(ValueInteger)); got != onInt {
		t.Error("f(5) should dispatch to the integer overload")
	}
	if got, _ := r.Resolve("f", args(ValueString)); got != onStr {
		t.Error(`f("x") should dispatch to the string overload`)
	}
	if got, _ := r.Resolve("f", args(ValueBool)); got != onInt {
		t.Error("f(true) should fall back to the integer overload")
	}
	_, err := r.Resolve("f", args(ValueArray))
	if err == nil || !strings.Contains(err.Error(), "integer|string") {
		t.Errorf("f([1,2]) err = %v, want a diagnostic listing integer|string", err)
	}
}
