package sqrat

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/substring/sqrat/internal/overload"
	"github.com/substring/sqrat/internal/vm"
)

// ErrUnsupportedType is returned for Go parameter types that have no
// signature key, such as interfaces or pointers to unregistered structs.
var ErrUnsupportedType = errors.New("unsupported parameter type")

var (
	valueType         = reflect.TypeOf(vm.Value{})
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	arrayObjType      = reflect.TypeOf((*vm.Array)(nil))
	tableObjType      = reflect.TypeOf((*vm.Table)(nil))
	closureObjType    = reflect.TypeOf((*vm.Closure)(nil))
	nativeClosureType = reflect.TypeOf((*vm.NativeClosure)(nil))
)

// TypeRegistry maps Go types bound as classes to their class.
type TypeRegistry struct {
	classes map[reflect.Type]*Class
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{classes: make(map[reflect.Type]*Class)}
}

func (r *TypeRegistry) add(t reflect.Type, c *Class) { r.classes[t] = c }

// ClassOf returns the class bound for pointer type t.
func (r *TypeRegistry) ClassOf(t reflect.Type) (*Class, bool) {
	c, ok := r.classes[t]
	return c, ok
}

// KeyFor returns the signature key a parameter of Go type t is registered
// under.
func (r *TypeRegistry) KeyFor(t reflect.Type) (overload.SignatureKey, error) {
	switch t {
	case arrayObjType:
		return overload.KeyArray, nil
	case tableObjType:
		return overload.KeyTable, nil
	case closureObjType, nativeClosureType:
		return overload.KeyFunction, nil
	}
	if c, ok := r.classes[t]; ok {
		return c.identity.Key(), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return overload.KeyBool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return overload.KeyInteger, nil
	case reflect.Float32, reflect.Float64:
		return overload.KeyFloat, nil
	case reflect.String:
		return overload.KeyString, nil
	case reflect.Slice, reflect.Array:
		return overload.KeyArray, nil
	case reflect.Func:
		return overload.KeyFunction, nil
	case reflect.Map:
		if t.Key().Kind() == reflect.String {
			return overload.KeyTable, nil
		}
	}
	return overload.SignatureKey{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// KeysFor returns the keys for the parameters of fn starting at parameter
// skip.
func (r *TypeRegistry) KeysFor(fn reflect.Type, skip int) ([]overload.SignatureKey, error) {
	if fn.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic function %s", ErrUnsupportedType, fn)
	}
	keys := make([]overload.SignatureKey, 0, fn.NumIn()-skip)
	for i := skip; i < fn.NumIn(); i++ {
		k, err := r.KeyFor(fn.In(i))
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1-skip, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// returnMode reports whether fn yields a script value. Supported shapes are
// (), (T), (error) and (T, error).
func returnMode(fn reflect.Type) (overload.ReturnMode, error) {
	switch fn.NumOut() {
	case 0:
		return overload.ReturnsNothing, nil
	case 1:
		if fn.Out(0) == errorType {
			return overload.ReturnsNothing, nil
		}
		return overload.ReturnsValue, nil
	case 2:
		if fn.Out(1) == errorType && fn.Out(0) != errorType {
			return overload.ReturnsValue, nil
		}
	}
	return 0, fmt.Errorf("%w: results of %s", ErrUnsupportedType, fn)
}
