// Package overload picks which of several same-named native functions a
// script call should reach.
//
// Overloads are registered per scope (the root table or one class) into a
// Table keyed by name, arity and an ordered tuple of SignatureKeys. At call
// time the Resolver classifies every argument into a short list of candidate
// keys, most specific first, and descends the table one position at a time,
// taking the first candidate the table knows about. Instance arguments are
// matched against their own class and then every ancestor, nearest first.
//
// The package does not depend on a particular VM. The Trampoline talks to the
// VM through CallContext and turns resolution failures into errors that the
// VM raises in the script.
package overload

import (
	"github.com/google/uuid"

	"github.com/substring/sqrat/internal/config"
)

// Kind is the shape class of a SignatureKey.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindArray
	KindFunction
	KindTable
	KindClass
)

// SignatureKey identifies one parameter shape. Keys are comparable and may be
// used as map keys.
type SignatureKey struct {
	kind  Kind
	class uuid.UUID
}

// Built-in keys for the primitive parameter shapes.
var (
	KeyBool     = SignatureKey{kind: KindBool}
	KeyInteger  = SignatureKey{kind: KindInteger}
	KeyFloat    = SignatureKey{kind: KindFloat}
	KeyString   = SignatureKey{kind: KindString}
	KeyArray    = SignatureKey{kind: KindArray}
	KeyFunction = SignatureKey{kind: KindFunction}
	KeyTable    = SignatureKey{kind: KindTable}
)

// ClassKey returns the key of the native class with the given identity token.
func ClassKey(token uuid.UUID) SignatureKey {
	return SignatureKey{kind: KindClass, class: token}
}

func (k SignatureKey) Kind() Kind { return k.kind }

// Class returns the identity token of a class key, or uuid.Nil.
func (k SignatureKey) Class() uuid.UUID { return k.class }

func (k SignatureKey) IsClass() bool { return k.kind == KindClass }

func (k SignatureKey) IsValid() bool {
	if k.kind == KindClass {
		return k.class != uuid.Nil
	}
	return k.kind > KindInvalid && k.kind < KindClass
}

// String renders the compact code of the key: "i", "s", "@<token>", ...
func (k SignatureKey) String() string {
	switch k.kind {
	case KindBool:
		return config.BoolCode
	case KindInteger:
		return config.IntegerCode
	case KindFloat:
		return config.FloatCode
	case KindString:
		return config.StringCode
	case KindArray:
		return config.ArrayCode
	case KindFunction:
		return config.FunctionCode
	case KindTable:
		return config.TableCode
	case KindClass:
		return config.ClassCodePre + k.class.String()
	}
	return "?"
}

// primitiveName returns the diagnostic name of a non-class key.
func primitiveName(k SignatureKey) (string, bool) {
	switch k.kind {
	case KindBool:
		return config.BoolTagName, true
	case KindInteger:
		return config.IntegerTagName, true
	case KindFloat:
		return config.FloatTagName, true
	case KindString:
		return config.StringTagName, true
	case KindArray:
		return config.ArrayTagName, true
	case KindFunction:
		return config.FunctionTagName, true
	case KindTable:
		return config.TableTagName, true
	}
	return "", false
}

// ValueKind is the runtime type of a script value as reported by the VM.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueInteger
	ValueFloat
	ValueBool
	ValueString
	ValueArray
	ValueTable
	ValueClosure
	ValueNativeClosure
	ValueClass
	ValueInstance
	ValueUserPointer
)

var valueKindNames = [...]string{
	ValueNull:          "null",
	ValueInteger:       "integer",
	ValueFloat:         "float",
	ValueBool:          "bool",
	ValueString:        "string",
	ValueArray:         "array",
	ValueTable:         "table",
	ValueClosure:       "closure",
	ValueNativeClosure: "native closure",
	ValueClass:         "class",
	ValueInstance:      "instance",
	ValueUserPointer:   "userpointer",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return config.UnknownTagName
}
