package overload

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry(nil)
	a, err := reg.Register(NewToken(), "A", uuid.Nil)
	if err != nil {
		t.Fatalf("register A: %v", err)
	}
	b, err := reg.Register(NewToken(), "B", a.Token())
	if err != nil {
		t.Fatalf("register B: %v", err)
	}
	c, err := reg.Register(NewToken(), "C", b.Token())
	if err != nil {
		t.Fatalf("register C: %v", err)
	}

	if c.Base() != b || b.Base() != a || a.Base() != nil {
		t.Fatal("base chain not linked")
	}
	chain := c.Ancestry()
	if len(chain) != 3 || chain[0] != c || chain[1] != b || chain[2] != a {
		t.Errorf("Ancestry = %v, want [C B A]", chain)
	}
	if !c.DerivesFrom(a) || a.DerivesFrom(c) {
		t.Error("DerivesFrom is wrong")
	}

	if got, ok := reg.ByName("B"); !ok || got != b {
		t.Error("ByName(B) failed")
	}
	if got, ok := reg.ByToken(c.Token()); !ok || got != c {
		t.Error("ByToken(C) failed")
	}
	if reg.Len() != 3 {
		t.Errorf("Len = %d, want 3", reg.Len())
	}
	if reg.TypeName(b.Key()) != "B" {
		t.Errorf("TypeName = %q, want B", reg.TypeName(b.Key()))
	}
	if reg.TypeName(ClassKey(NewToken())) != "unknown" {
		t.Error("unregistered class should render as unknown")
	}
	if reg.TypeName(KeyTable) != "table" {
		t.Error("primitive key should render its tag name")
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	reg := NewRegistry(nil)
	a, _ := reg.Register(NewToken(), "A", uuid.Nil)

	tests := []struct {
		name  string
		token uuid.UUID
		class string
		base  uuid.UUID
		want  error
	}{
		{"nil token", uuid.Nil, "X", uuid.Nil, ErrInvalidClass},
		{"empty name", NewToken(), "", uuid.Nil, ErrInvalidClass},
		{"duplicate token", a.Token(), "Y", uuid.Nil, ErrInvalidClass},
		{"duplicate name", NewToken(), "A", uuid.Nil, ErrInvalidClass},
		{"unknown base", NewToken(), "Z", NewToken(), ErrUnknownClass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Register(tt.token, tt.class, tt.base)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if reg.Len() != 1 {
		t.Errorf("failed registrations changed the registry: Len = %d", reg.Len())
	}
}

func TestClassify(t *testing.T) {
	reg := NewRegistry(nil)
	a, _ := reg.Register(NewToken(), "A", uuid.Nil)
	b, _ := reg.Register(NewToken(), "B", a.Token())

	tests := []struct {
		name string
		arg  Arg
		want []SignatureKey
	}{
		{"bool", Arg{Kind: ValueBool}, []SignatureKey{KeyBool, KeyInteger, KeyFloat}},
		{"integer", Arg{Kind: ValueInteger}, []SignatureKey{KeyInteger, KeyFloat, KeyBool}},
		{"float", Arg{Kind: ValueFloat}, []SignatureKey{KeyFloat, KeyInteger, KeyBool}},
		{"string", Arg{Kind: ValueString}, []SignatureKey{KeyString}},
		{"array", Arg{Kind: ValueArray}, []SignatureKey{KeyArray}},
		{"closure", Arg{Kind: ValueClosure}, []SignatureKey{KeyFunction}},
		{"native closure", Arg{Kind: ValueNativeClosure}, []SignatureKey{KeyFunction}},
		{"table", Arg{Kind: ValueTable}, []SignatureKey{KeyTable}},
		{"null", Arg{Kind: ValueNull}, []SignatureKey{KeyBool, KeyString}},
		{"userpointer", Arg{Kind: ValueUserPointer}, []SignatureKey{KeyBool, KeyString}},
		{"class object", Arg{Kind: ValueClass}, []SignatureKey{KeyBool, KeyString}},
		{"instance", Arg{Kind: ValueInstance, Tags: []any{b}}, []SignatureKey{b.Key(), a.Key()}},
		{"script subclass", Arg{Kind: ValueInstance, Tags: []any{nil, nil, b}}, []SignatureKey{b.Key(), a.Key()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Classify(tt.arg)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			got := c.Keys()
			if len(got) != len(tt.want) {
				t.Fatalf("keys = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("keys[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClassify_UnusableInstance(t *testing.T) {
	tests := []struct {
		name string
		tags []any
	}{
		{"no tags", nil},
		{"all untagged", []any{nil, nil}},
		{"foreign tag", []any{"not an identity"}},
		{"typed nil", []any{(*ClassIdentity)(nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(Arg{Kind: ValueInstance, Tags: tt.tags})
			if !errors.Is(err, ErrClassification) {
				t.Errorf("err = %v, want ErrClassification", err)
			}
		})
	}
}
