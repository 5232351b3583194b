package catalog

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/substring/sqrat/internal/overload"
)

func fixture(t *testing.T) (*overload.Registry, []Scope) {
	t.Helper()
	reg := overload.NewRegistry(nil)
	shape, err := reg.Register(overload.NewToken(), "Shape", uuid.Nil)
	if err != nil {
		t.Fatal(err)
	}
	square, err := reg.Register(overload.NewToken(), "Square", shape.Token())
	if err != nil {
		t.Fatal(err)
	}

	globals := overload.NewTable()
	methods := overload.NewTable()
	register := func(tbl *overload.Table, name string, keys ...overload.SignatureKey) {
		if _, err := tbl.Register(name, keys, nil); err != nil {
			t.Fatal(err)
		}
	}
	register(globals, "f", overload.KeyInteger)
	register(globals, "f", overload.KeyString)
	register(globals, "describe", shape.Key())
	register(globals, "now")
	register(methods, "scale", overload.KeyFloat)
	register(methods, "fit", square.Key(), overload.KeyBool)

	return reg, []Scope{
		{Name: "", Table: globals, Mode: func(string) string { return "value" }},
		{Name: "Square", Table: methods},
	}
}

func TestExportAndQuery(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	reg, scopes := fixture(t)
	if err := c.Export(ctx, reg, scopes); err != nil {
		t.Fatalf("Export: %v", err)
	}

	classes, err := c.Classes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 2 || classes[0].Name != "Shape" || classes[1].Base != "Shape" {
		t.Errorf("classes = %+v", classes)
	}

	all, err := c.Overloads(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	var sigs []string
	for _, o := range all {
		sigs = append(sigs, o.Scope+":"+o.Signature)
	}
	want := []string{
		":describe(Shape)",
		":f(integer)",
		":f(string)",
		":now()",
		"Square:fit(Square, bool)",
		"Square:scale(float)",
	}
	if !reflect.DeepEqual(sigs, want) {
		t.Errorf("overloads = %v\nwant        %v", sigs, want)
	}
	if all[0].Mode != "value" || all[4].Mode != "" {
		t.Errorf("modes = %q, %q", all[0].Mode, all[4].Mode)
	}

	fs, err := c.Overloads(ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 2 || fs[0].Keys != "i" || fs[0].Arity != 1 {
		t.Errorf("overloads of f = %+v", fs)
	}

	takesShape, err := c.Accepting(ctx, "Shape")
	if err != nil {
		t.Fatal(err)
	}
	if len(takesShape) != 1 || takesShape[0].Name != "describe" {
		t.Errorf("Accepting(Shape) = %+v", takesShape)
	}
}

func TestExportReplaces(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "overloads.db")
	c, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}

	reg, scopes := fixture(t)
	if err := c.Export(ctx, reg, scopes); err != nil {
		t.Fatal(err)
	}
	empty := overload.NewRegistry(nil)
	if err := c.Export(ctx, empty, []Scope{{Table: overload.NewTable()}}); err != nil {
		t.Fatal(err)
	}
	c.Close()

	c, err = Open(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	all, err := c.Overloads(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	classes, err := c.Classes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 || len(classes) != 0 {
		t.Errorf("second export left %d overloads and %d classes", len(all), len(classes))
	}
}
