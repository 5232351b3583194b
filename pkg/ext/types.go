// Package ext re-exports the VM value types and overload errors for code
// outside this module that writes native functions or inspects failures.
package ext

import (
	"github.com/substring/sqrat/internal/overload"
	"github.com/substring/sqrat/internal/vm"
)

// Value and object type aliases
type VM = vm.VM
type Value = vm.Value
type Object = vm.Object
type String = vm.String
type Array = vm.Array
type Table = vm.Table
type Closure = vm.Closure
type NativeClosure = vm.NativeClosure
type NativeFunction = vm.NativeFunction
type Class = vm.Class
type Instance = vm.Instance
type UserPointer = vm.UserPointer
type CallError = vm.CallError

// Overload diagnostics
type TypeMismatchError = overload.TypeMismatchError
type LookupError = overload.LookupError

var (
	ErrUnknownFunction = overload.ErrUnknownFunction
	ErrArity           = overload.ErrArity
	ErrTypeMismatch    = overload.ErrTypeMismatch
	ErrClassification  = overload.ErrClassification
)

func Null() Value { return vm.NullVal() }
func Int(v int64) Value { return vm.IntVal(v) }
func Float(v float64) Value { return vm.FloatVal(v) }
func Bool(v bool) Value { return vm.BoolVal(v) }
func Str(v string) Value { return vm.StringVal(v) }
func Obj(o Object) Value { return vm.ObjVal(o) }
func NewTable() *Table { return vm.NewTable() }
func ArrayOf(vs ...Value) Value { return vm.ObjVal(&vm.Array{Elements: vs}) }

// NewNative wraps fn as a native closure value.
func NewNative(name string, fn NativeFunction) Value {
	return vm.ObjVal(&vm.NativeClosure{Name: name, Fn: fn})
}

// ToValue converts common Go scalars without reflection. Other values
// become user pointers.
func ToValue(val interface{}) Value {
	switch v := val.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case Object:
		return Obj(v)
	case int:
		return Int(int64(v))
	case int64:
		return Int(v)
	case float64:
		return Float(v)
	case bool:
		return Bool(v)
	case string:
		return Str(v)
	case []Value:
		return ArrayOf(v...)
	}
	return Obj(&UserPointer{Ptr: val})
}
