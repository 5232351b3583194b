package sqrat

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/substring/sqrat/internal/overload"
	"github.com/substring/sqrat/internal/vm"
)

// Class is a Go type bound as a VM class. Instances hold a *T as their
// native object.
type Class struct {
	owner    *VM
	goType   reflect.Type
	identity *overload.ClassIdentity
	object   *vm.Class
	methods  *Scope
}

func (c *Class) Name() string                      { return c.identity.Name() }
func (c *Class) Identity() *overload.ClassIdentity { return c.identity }
func (c *Class) Object() *vm.Class                 { return c.object }
func (c *Class) GoType() reflect.Type              { return c.goType }
func (c *Class) Methods() *Scope                   { return c.methods }

// Base returns the bound base class, or nil.
func (c *Class) Base() *Class {
	if base := c.identity.Base(); base != nil {
		if bc, ok := c.owner.byToken[base.Token()]; ok {
			return bc
		}
	}
	return nil
}

// BindClass binds *T as class name, deriving from base when it is not nil,
// and publishes the class as a global. A derived type should embed its base
// struct so that methods bound on the base accept it.
func BindClass[T any](v *VM, name string, base *Class) (*Class, error) {
	goType := reflect.TypeOf((*T)(nil))
	if _, ok := v.types.ClassOf(goType); ok {
		return nil, fmt.Errorf("bind class %s: %w: %s already bound", name, overload.ErrInvalidClass, goType)
	}
	baseToken := uuid.Nil
	var baseObj *vm.Class
	if base != nil {
		baseToken = base.identity.Token()
		baseObj = base.object
	}
	id, err := v.classes.Register(overload.NewToken(), name, baseToken)
	if err != nil {
		return nil, fmt.Errorf("bind class %s: %w", name, err)
	}

	c := &Class{
		owner:    v,
		goType:   goType,
		identity: id,
		object:   vm.NewClass(name, baseObj, id),
	}
	c.methods = v.newScope(c, c.object.Members)
	v.types.add(goType, c)
	v.byToken[id.Token()] = c
	v.classList = append(v.classList, c)
	v.machine.SetGlobal(name, vm.ObjVal(c.object))
	return c, nil
}

// Method binds fns as overloads of the method name. Each func takes *T as
// its first parameter; the rest are the script-visible arguments.
func (c *Class) Method(name string, fns ...any) error {
	ofs := make([]overloadFunc, len(fns))
	for i, fn := range fns {
		ofs[i] = overloadFunc{fn: reflect.ValueOf(fn), receiver: c.goType}
	}
	return c.owner.bindAll(c.methods, name, ofs)
}

// Constructor binds fns as overloaded constructors. Each returns *T, or
// (*T, error); the result becomes the native object of the new instance.
func (c *Class) Constructor(fns ...any) error {
	ofs := make([]overloadFunc, len(fns))
	for i, fn := range fns {
		ofs[i] = overloadFunc{fn: reflect.ValueOf(fn), receiver: c.goType, construct: true}
	}
	return c.owner.bindAll(c.methods, vm.ConstructorName, ofs)
}

// constructorEntry wraps a constructor func. It converts frame slots 2 and
// up, and stores the result on the receiver instance.
func (v *VM) constructorEntry(name string, fn reflect.Value, self reflect.Type) (*vm.NativeClosure, error) {
	fnType := fn.Type()
	ok := fnType.NumOut() == 1 || (fnType.NumOut() == 2 && fnType.Out(1) == errorType)
	if !ok || fnType.Out(0) != self {
		return nil, fmt.Errorf("%w: constructor %s must return %s", ErrUnsupportedType, fnType, self)
	}
	numIn := fnType.NumIn()

	call := func(machine *vm.VM) (int, error) {
		inst, isInst := machine.Get(1).Obj.(*vm.Instance)
		if !isInst {
			return 0, fmt.Errorf("%s: receiver is not an instance", name)
		}
		goArgs := make([]reflect.Value, numIn)
		for i := range goArgs {
			rv, err := v.marshaller.convert(machine.Get(i+2), fnType.In(i))
			if err != nil {
				return 0, fmt.Errorf("parameter %d of '%s': %w", i+1, name, err)
			}
			goArgs[i] = rv
		}
		results := fn.Call(goArgs)
		if len(results) == 2 {
			if e := results[1].Interface(); e != nil {
				return 0, e.(error)
			}
		}
		inst.UserData = results[0].Interface()
		return 0, nil
	}
	return &vm.NativeClosure{Name: name, Fn: call}, nil
}
