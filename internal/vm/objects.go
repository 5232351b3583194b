package vm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type ObjectType string

const (
	NULL_OBJ           ObjectType = "NULL"
	INTEGER_OBJ        ObjectType = "INTEGER"
	FLOAT_OBJ          ObjectType = "FLOAT"
	BOOLEAN_OBJ        ObjectType = "BOOLEAN"
	STRING_OBJ         ObjectType = "STRING"
	ARRAY_OBJ          ObjectType = "ARRAY"
	TABLE_OBJ          ObjectType = "TABLE"
	CLOSURE_OBJ        ObjectType = "CLOSURE"
	NATIVE_CLOSURE_OBJ ObjectType = "NATIVE_CLOSURE"
	CLASS_OBJ          ObjectType = "CLASS"
	INSTANCE_OBJ       ObjectType = "INSTANCE"
	USER_POINTER_OBJ   ObjectType = "USER_POINTER"
)

// Object is any heap value the VM can hold.
type Object interface {
	Type() ObjectType
	Inspect() string
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return strconv.Quote(s.Value) }

type Array struct {
	Elements []Value
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Table is a string-keyed slot table. The root table holds globals.
type Table struct {
	slots map[string]Value
}

func NewTable() *Table {
	return &Table{slots: make(map[string]Value)}
}

func (t *Table) Type() ObjectType { return TABLE_OBJ }
func (t *Table) Inspect() string {
	keys := t.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " = " + t.slots[k].Inspect()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (t *Table) Get(key string) (Value, bool) {
	v, ok := t.slots[key]
	return v, ok
}

func (t *Table) Set(key string, v Value) {
	t.slots[key] = v
}

func (t *Table) Delete(key string) {
	delete(t.slots, key)
}

func (t *Table) Len() int { return len(t.slots) }

// Keys returns the slot names in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.slots))
	for k := range t.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NativeFunction is a Go function callable from the VM. It reads its frame
// through the VM stack API and returns how many results it left on top (0 or
// 1).
type NativeFunction func(vm *VM) (int, error)

// ScriptFunction is the body of a script-level closure. It receives the
// receiver and the declared number of arguments.
type ScriptFunction func(vm *VM, this Value, args []Value) (Value, error)

// Closure is a function defined on the script side.
type Closure struct {
	Name   string
	Params int
	Body   ScriptFunction
}

func (c *Closure) Type() ObjectType { return CLOSURE_OBJ }
func (c *Closure) Inspect() string  { return fmt.Sprintf("<closure %s>", c.Name) }

// NativeClosure wraps a Go function. Free values are pushed on top of the
// frame before the function runs, so the last one is at index -1.
type NativeClosure struct {
	Name string
	Fn   NativeFunction
	Free []Value
}

func (n *NativeClosure) Type() ObjectType { return NATIVE_CLOSURE_OBJ }
func (n *NativeClosure) Inspect() string  { return fmt.Sprintf("<native %s>", n.Name) }

// Class is a VM class. Native classes carry a non-nil TypeTag; classes
// defined in script leave it nil.
type Class struct {
	Name    string
	Base    *Class
	TypeTag any
	Members *Table
}

func NewClass(name string, base *Class, tag any) *Class {
	return &Class{Name: name, Base: base, TypeTag: tag, Members: NewTable()}
}

func (c *Class) Type() ObjectType { return CLASS_OBJ }
func (c *Class) Inspect() string  { return fmt.Sprintf("<class %s>", c.Name) }

// Lookup finds a member on the class or the nearest base defining it.
func (c *Class) Lookup(name string) (Value, bool) {
	for cur := c; cur != nil; cur = cur.Base {
		if v, ok := cur.Members.Get(name); ok {
			return v, true
		}
	}
	return NullVal(), false
}

// TypeTags returns the type tag of c and of each base, nearest first.
func (c *Class) TypeTags() []any {
	var tags []any
	for cur := c; cur != nil; cur = cur.Base {
		tags = append(tags, cur.TypeTag)
	}
	return tags
}

// Instance is an object of a Class. UserData holds the host value behind
// instances of native classes.
type Instance struct {
	Class    *Class
	Fields   *Table
	UserData any
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: NewTable()}
}

func (i *Instance) Type() ObjectType { return INSTANCE_OBJ }
func (i *Instance) Inspect() string  { return fmt.Sprintf("<%s instance>", i.Class.Name) }

// Get reads a field, then falls back to class members.
func (i *Instance) Get(name string) (Value, bool) {
	if v, ok := i.Fields.Get(name); ok {
		return v, true
	}
	return i.Class.Lookup(name)
}

// UserPointer is an opaque host pointer.
type UserPointer struct {
	Ptr any
}

func (u *UserPointer) Type() ObjectType { return USER_POINTER_OBJ }
func (u *UserPointer) Inspect() string  { return fmt.Sprintf("<userpointer %v>", u.Ptr) }
