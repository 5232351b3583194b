package main

import (
	"strings"
	"testing"

	"github.com/substring/sqrat/internal/vm"
)

func newTestEvaluator() *evaluator {
	machine := vm.New()
	machine.SetGlobal("sum", vm.ObjVal(&vm.NativeClosure{
		Name: "sum",
		Fn: func(m *vm.VM) (int, error) {
			var total int64
			for i := 2; i <= m.Top(); i++ {
				total += m.Get(i).AsInt()
			}
			m.Push(vm.IntVal(total))
			return 1, nil
		},
	}))
	return newEvaluator(machine)
}

func TestEvalLiterals(t *testing.T) {
	e := newTestEvaluator()
	tests := []struct {
		src  string
		want string
	}{
		{"1", "1"},
		{"-2.5", "-2.5"},
		{"0x10", "16"},
		{`"hi"`, `"hi"`},
		{"true", "true"},
		{"null", "null"},
		{`[1, "a", false]`, `[1, "a", false]`},
		{"[]", "[]"},
		{"(7)", "7"},
		{"sum(1, 2, 3)", "6"},
		{"sum()", "0"},
		{"sum(sum(1, 1), 2)", "4"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := e.Eval(tt.src)
			if err != nil {
				t.Fatalf("Eval(%q): %v", tt.src, err)
			}
			if got.Inspect() != tt.want {
				t.Errorf("Eval(%q) = %s, want %s", tt.src, got.Inspect(), tt.want)
			}
		})
	}
}

func TestEvalTable(t *testing.T) {
	e := newTestEvaluator()
	got, err := e.Eval(`{a: 1, "b c": [2]}`)
	if err != nil {
		t.Fatal(err)
	}
	tbl, ok := got.Obj.(*vm.Table)
	if !ok {
		t.Fatalf("got %s, want a table", got.ObjectType())
	}
	if a, _ := tbl.Get("a"); a.AsInt() != 1 {
		t.Errorf("a = %s, want 1", a.Inspect())
	}
	if _, ok := tbl.Get("b c"); !ok {
		t.Error("quoted key missing")
	}
}

func TestEvalLetAndMembers(t *testing.T) {
	e := newTestEvaluator()
	if _, err := e.Eval("let t = {n: 5}"); err != nil {
		t.Fatal(err)
	}
	got, err := e.Eval("t.n")
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 5 {
		t.Errorf("t.n = %s, want 5", got.Inspect())
	}
	if _, err := e.Eval("t.missing"); err == nil {
		t.Error("reading a missing member should fail")
	}
}

func TestEvalErrors(t *testing.T) {
	e := newTestEvaluator()
	tests := []struct {
		src  string
		want string
	}{
		{"nope", "the index 'nope' does not exist"},
		{"nope()", "the index 'nope' does not exist"},
		{"1 2", "unexpected 2"},
		{"[1,", "unexpected end of input"},
		{"sum(1", "expected \")\""},
		{"let = 1", "expected identifier"},
		{`"open`, "literal not terminated"},
		{"-x", "expected number"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := e.Eval(tt.src)
			if err == nil {
				t.Fatalf("Eval(%q) should fail", tt.src)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Eval(%q) error = %q, want it to contain %q", tt.src, err, tt.want)
			}
		})
	}
}

func TestEvalWhichHook(t *testing.T) {
	e := newTestEvaluator()
	var seen []string
	e.which = func(name string, args []vm.Value) (vm.Value, error) {
		seen = append(seen, name)
		return vm.StringVal(name), nil
	}
	got, err := e.Eval("sum(sum(1), 2)")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := got.AsString(); s != "sum" {
		t.Errorf("got %s, want the hook result", got.Inspect())
	}
	if len(seen) != 1 {
		t.Errorf("hook ran %d times, want only for the outermost call", len(seen))
	}
}
