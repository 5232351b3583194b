package vm

import (
	"fmt"
	"math"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValNull ValueType = iota
	ValInt
	ValFloat
	ValBool
	ValObj // Heap object (String, Array, Table, Closure, Instance, ...)
)

// Value is a stack-allocated tagged union.
// Primitives live in Data; everything else is an Object.
type Value struct {
	Type ValueType
	Data uint64 // Stores int64 bits, float64 bits, or bool (0/1)
	Obj  Object
}

// Constructors

func NullVal() Value {
	return Value{Type: ValNull}
}

func IntVal(v int64) Value {
	return Value{Type: ValInt, Data: uint64(v)}
}

func FloatVal(v float64) Value {
	return Value{Type: ValFloat, Data: math.Float64bits(v)}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func ObjVal(o Object) Value {
	if o == nil {
		return NullVal()
	}
	return Value{Type: ValObj, Obj: o}
}

func StringVal(s string) Value {
	return ObjVal(&String{Value: s})
}

// Accessors

func (v Value) AsInt() int64 {
	return int64(v.Data)
}

func (v Value) AsFloat() float64 {
	return math.Float64frombits(v.Data)
}

func (v Value) AsBool() bool {
	return v.Data == 1
}

// AsString returns the string held by v, if any.
func (v Value) AsString() (string, bool) {
	if s, ok := v.Obj.(*String); ok {
		return s.Value, true
	}
	return "", false
}

// Type checking helpers

func (v Value) IsInt() bool   { return v.Type == ValInt }
func (v Value) IsFloat() bool { return v.Type == ValFloat }
func (v Value) IsBool() bool  { return v.Type == ValBool }
func (v Value) IsNull() bool  { return v.Type == ValNull }
func (v Value) IsObj() bool   { return v.Type == ValObj }

// ObjectType returns the type of the heap object in v, or the primitive type
// name for primitives.
func (v Value) ObjectType() ObjectType {
	switch v.Type {
	case ValInt:
		return INTEGER_OBJ
	case ValFloat:
		return FLOAT_OBJ
	case ValBool:
		return BOOLEAN_OBJ
	case ValObj:
		if v.Obj != nil {
			return v.Obj.Type()
		}
	}
	return NULL_OBJ
}

// Equals compares values, allowing implicit Int -> Float conversion
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		if v.Type == ValInt && other.Type == ValFloat {
			return float64(v.AsInt()) == other.AsFloat()
		}
		if v.Type == ValFloat && other.Type == ValInt {
			return v.AsFloat() == float64(other.AsInt())
		}
		return false
	}
	switch v.Type {
	case ValInt, ValBool:
		return v.Data == other.Data
	case ValFloat:
		return v.AsFloat() == other.AsFloat()
	case ValNull:
		return true
	case ValObj:
		if a, ok := v.Obj.(*String); ok {
			b, ok := other.Obj.(*String)
			return ok && a.Value == b.Value
		}
		return v.Obj == other.Obj
	default:
		return false
	}
}

// Inspect returns string representation
func (v Value) Inspect() string {
	switch v.Type {
	case ValInt:
		return fmt.Sprintf("%d", int64(v.Data))
	case ValFloat:
		return fmt.Sprintf("%g", math.Float64frombits(v.Data))
	case ValBool:
		return fmt.Sprintf("%t", v.Data == 1)
	case ValNull:
		return "null"
	case ValObj:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "null"
	default:
		return "<?>"
	}
}
