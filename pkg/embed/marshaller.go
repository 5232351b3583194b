package sqrat

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/substring/sqrat/internal/overload"
	"github.com/substring/sqrat/internal/vm"
)

// Marshaller handles conversion between Go and VM values.
type Marshaller struct {
	machine *vm.VM
	types   *TypeRegistry
}

func NewMarshaller(machine *vm.VM, types *TypeRegistry) *Marshaller {
	return &Marshaller{machine: machine, types: types}
}

// ToValue converts a Go value to a VM value.
func (m *Marshaller) ToValue(val interface{}) (vm.Value, error) {
	if val == nil {
		return vm.NullVal(), nil
	}
	switch o := val.(type) {
	case vm.Value:
		return o, nil
	case vm.Object:
		return vm.ObjVal(o), nil
	case *Class:
		return vm.ObjVal(o.object), nil
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return vm.IntVal(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Uint() > math.MaxInt64 {
			return vm.NullVal(), fmt.Errorf("cannot convert %s %d: out of integer range", v.Type(), v.Uint())
		}
		return vm.IntVal(int64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return vm.FloatVal(v.Float()), nil
	case reflect.Bool:
		return vm.BoolVal(v.Bool()), nil
	case reflect.String:
		return vm.StringVal(v.String()), nil
	case reflect.Slice, reflect.Array:
		return m.sliceToArray(v)
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			return m.mapToTable(v)
		}
	case reflect.Ptr:
		if v.IsNil() {
			return vm.NullVal(), nil
		}
		if c, ok := m.types.ClassOf(v.Type()); ok {
			inst := vm.NewInstance(c.object)
			inst.UserData = val
			return vm.ObjVal(inst), nil
		}
	case reflect.Func:
		fn, err := m.hostFunction("<host>", v)
		if err != nil {
			return vm.NullVal(), err
		}
		return vm.ObjVal(fn), nil
	}
	return vm.ObjVal(&vm.UserPointer{Ptr: val}), nil
}

func (m *Marshaller) sliceToArray(v reflect.Value) (vm.Value, error) {
	elements := make([]vm.Value, v.Len())
	for i := range elements {
		val, err := m.ToValue(v.Index(i).Interface())
		if err != nil {
			return vm.NullVal(), fmt.Errorf("element %d: %w", i, err)
		}
		elements[i] = val
	}
	return vm.ObjVal(&vm.Array{Elements: elements}), nil
}

func (m *Marshaller) mapToTable(v reflect.Value) (vm.Value, error) {
	t := vm.NewTable()
	iter := v.MapRange()
	for iter.Next() {
		val, err := m.ToValue(iter.Value().Interface())
		if err != nil {
			return vm.NullVal(), fmt.Errorf("map value %q: %w", iter.Key().String(), err)
		}
		t.Set(iter.Key().String(), val)
	}
	return vm.ObjVal(t), nil
}

// FromValue converts a VM value to a Go value.
// targetType is optional; without it the natural Go type is used.
func (m *Marshaller) FromValue(val vm.Value, targetType reflect.Type) (interface{}, error) {
	if targetType == nil || (targetType.Kind() == reflect.Interface && targetType.NumMethod() == 0) {
		return m.natural(val)
	}
	rv, err := m.convert(val, targetType)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

// natural converts without a target type.
func (m *Marshaller) natural(val vm.Value) (interface{}, error) {
	switch val.Type {
	case vm.ValNull:
		return nil, nil
	case vm.ValInt:
		return int(val.AsInt()), nil
	case vm.ValFloat:
		return val.AsFloat(), nil
	case vm.ValBool:
		return val.AsBool(), nil
	}
	switch o := val.Obj.(type) {
	case *vm.String:
		return o.Value, nil
	case *vm.Array:
		out := make([]interface{}, len(o.Elements))
		for i, e := range o.Elements {
			v, err := m.natural(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *vm.Table:
		out := make(map[string]interface{}, o.Len())
		for _, k := range o.Keys() {
			e, _ := o.Get(k)
			v, err := m.natural(e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *vm.Instance:
		if o.UserData != nil {
			return o.UserData, nil
		}
		return o, nil
	case *vm.UserPointer:
		return o.Ptr, nil
	}
	return val.Obj, nil
}

// convert produces a reflect.Value of type target. Primitive conversions
// follow the fallbacks overload resolution allows: bool, integer and float
// convert into one another and null converts to a zero value.
func (m *Marshaller) convert(val vm.Value, target reflect.Type) (reflect.Value, error) {
	if target == valueType {
		return reflect.ValueOf(val), nil
	}
	if val.IsNull() {
		return reflect.Zero(target), nil
	}
	if val.IsObj() && reflect.TypeOf(val.Obj) == target {
		return reflect.ValueOf(val.Obj), nil
	}

	switch target.Kind() {
	case reflect.Bool:
		switch val.Type {
		case vm.ValBool, vm.ValInt:
			return reflect.ValueOf(val.Data != 0).Convert(target), nil
		case vm.ValFloat:
			return reflect.ValueOf(val.AsFloat() != 0).Convert(target), nil
		}
		if s, ok := val.AsString(); ok {
			return reflect.ValueOf(s != "").Convert(target), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := val.AsInt()
		if !val.IsInt() {
			f, ok := asNumber(val)
			if !ok {
				break
			}
			n = int64(f)
		}
		if reflect.Zero(target).OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("cannot convert %d to %s: out of range", n, target)
		}
		return reflect.ValueOf(n).Convert(target), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := val.AsInt()
		if !val.IsInt() {
			f, ok := asNumber(val)
			if !ok {
				break
			}
			if f < 0 {
				return reflect.Value{}, fmt.Errorf("cannot convert %g to %s: negative value", f, target)
			}
			n = int64(f)
		}
		if n < 0 {
			return reflect.Value{}, fmt.Errorf("cannot convert %d to %s: negative value", n, target)
		}
		if reflect.Zero(target).OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("cannot convert %d to %s: out of range", n, target)
		}
		return reflect.ValueOf(uint64(n)).Convert(target), nil
	case reflect.Float32, reflect.Float64:
		if val.IsInt() {
			return reflect.ValueOf(float64(val.AsInt())).Convert(target), nil
		}
		if n, ok := asNumber(val); ok {
			return reflect.ValueOf(n).Convert(target), nil
		}
	case reflect.String:
		if s, ok := val.AsString(); ok {
			return reflect.ValueOf(s).Convert(target), nil
		}
	case reflect.Slice:
		if arr, ok := val.Obj.(*vm.Array); ok {
			return m.arrayToSlice(arr, target)
		}
	case reflect.Map:
		if t, ok := val.Obj.(*vm.Table); ok && target.Key().Kind() == reflect.String {
			return m.tableToMap(t, target)
		}
	case reflect.Func:
		if val.IsObj() {
			return m.scriptFunction(val, target), nil
		}
	case reflect.Ptr:
		if inst, ok := val.Obj.(*vm.Instance); ok {
			return instanceData(inst, target)
		}
	case reflect.Interface:
		v, err := m.natural(val)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.ValueOf(v)
		if v != nil && rv.Type().Implements(target) {
			out := reflect.New(target).Elem()
			out.Set(rv)
			return out, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", val.ObjectType(), target)
}

// asNumber reads bool, integer and float values as float64.
func asNumber(val vm.Value) (float64, bool) {
	switch val.Type {
	case vm.ValInt:
		return float64(val.AsInt()), true
	case vm.ValFloat:
		return val.AsFloat(), true
	case vm.ValBool:
		if val.AsBool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (m *Marshaller) arrayToSlice(arr *vm.Array, target reflect.Type) (reflect.Value, error) {
	out := reflect.MakeSlice(target, len(arr.Elements), len(arr.Elements))
	for i, e := range arr.Elements {
		rv, err := m.convert(e, target.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(rv)
	}
	return out, nil
}

func (m *Marshaller) tableToMap(t *vm.Table, target reflect.Type) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(target, t.Len())
	for _, k := range t.Keys() {
		e, _ := t.Get(k)
		rv, err := m.convert(e, target.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("slot %q: %w", k, err)
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(target.Key()), rv)
	}
	return out, nil
}

// instanceData returns the host object behind inst as target. A derived
// object is upcast through its embedded base struct.
func instanceData(inst *vm.Instance, target reflect.Type) (reflect.Value, error) {
	if inst.UserData == nil {
		return reflect.Value{}, fmt.Errorf("instance of %s has no native object", inst.Class.Name)
	}
	rv := reflect.ValueOf(inst.UserData)
	if up, ok := upcast(rv, target); ok {
		return up, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s instance to %s", inst.Class.Name, target)
}

func upcast(rv reflect.Value, target reflect.Type) (reflect.Value, bool) {
	if rv.Type().AssignableTo(target) {
		return rv, true
	}
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	elem := rv.Elem()
	for i := 0; i < elem.NumField(); i++ {
		f := elem.Type().Field(i)
		if !f.Anonymous {
			continue
		}
		field := elem.Field(i)
		if !f.IsExported() {
			// Unexported embedded bases are read-only through reflection;
			// rebuild the field from its address so it can be passed on.
			field = reflect.NewAt(f.Type, unsafe.Pointer(field.UnsafeAddr())).Elem()
		}
		if f.Type.Kind() == reflect.Struct {
			field = field.Addr()
		}
		if up, ok := upcast(field, target); ok {
			return up, true
		}
	}
	return reflect.Value{}, false
}

// scriptFunction wraps a callable VM value as a Go function of type target.
// If the call fails the error is returned through a trailing error result
// when target has one, and otherwise dropped.
func (m *Marshaller) scriptFunction(fn vm.Value, target reflect.Type) reflect.Value {
	return reflect.MakeFunc(target, func(in []reflect.Value) []reflect.Value {
		out := make([]reflect.Value, target.NumOut())
		for i := range out {
			out[i] = reflect.Zero(target.Out(i))
		}
		setErr := func(err error) {
			if n := target.NumOut(); n > 0 && target.Out(n-1) == errorType {
				out[n-1] = reflect.ValueOf(&err).Elem()
			}
		}

		args := make([]vm.Value, len(in))
		for i, a := range in {
			v, err := m.ToValue(a.Interface())
			if err != nil {
				setErr(err)
				return out
			}
			args[i] = v
		}
		res, err := m.machine.CallFunction(fn, vm.ObjVal(m.machine.Root()), args...)
		if err != nil {
			setErr(err)
			return out
		}
		if target.NumOut() > 0 && target.Out(0) != errorType {
			rv, err := m.convert(res, target.Out(0))
			if err != nil {
				setErr(err)
				return out
			}
			out[0] = rv
		}
		return out
	})
}

// hostFunction wraps a Go function as a native closure that converts its
// arguments (frame slots 2 and up) and pushes its result.
func (m *Marshaller) hostFunction(name string, fn reflect.Value) (*vm.NativeClosure, error) {
	return m.nativeEntry(name, fn, false)
}

// nativeEntry builds the native closure for fn. When method is set the
// frame receiver is passed as the first Go argument.
func (m *Marshaller) nativeEntry(name string, fn reflect.Value, method bool) (*vm.NativeClosure, error) {
	fnType := fn.Type()
	mode, err := returnMode(fnType)
	if err != nil {
		return nil, err
	}
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic function %s", ErrUnsupportedType, fnType)
	}
	first := 0
	if method {
		first = 1
	}
	numIn := fnType.NumIn()

	call := func(machine *vm.VM) (int, error) {
		argc := machine.Top() - 1
		if argc != numIn-first {
			return 0, fmt.Errorf("wrong number of parameters (%d) for '%s'", argc, name)
		}
		goArgs := make([]reflect.Value, numIn)
		for i := range goArgs {
			slot := i + 2 - first
			rv, err := m.convert(machine.Get(slot), fnType.In(i))
			if err != nil {
				if method && i == 0 {
					return 0, fmt.Errorf("receiver of '%s': %w", name, err)
				}
				return 0, fmt.Errorf("parameter %d of '%s': %w", i+1-first, name, err)
			}
			goArgs[i] = rv
		}

		results := fn.Call(goArgs)
		if n := len(results); n > 0 && fnType.Out(n-1) == errorType {
			if e := results[n-1].Interface(); e != nil {
				return 0, e.(error)
			}
			results = results[:n-1]
		}
		if mode == overload.ReturnsValue && len(results) > 0 {
			v, err := m.ToValue(results[0].Interface())
			if err != nil {
				return 0, fmt.Errorf("result of '%s': %w", name, err)
			}
			machine.Push(v)
			return 1, nil
		}
		return 0, nil
	}
	return &vm.NativeClosure{Name: name, Fn: call}, nil
}
