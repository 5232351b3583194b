package sqrat

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/substring/sqrat/internal/config"
	"github.com/substring/sqrat/internal/overload"
	"github.com/substring/sqrat/internal/vm"
)

// VM wraps the underlying VM and provides a high-level embedding API.
type VM struct {
	machine    *vm.VM
	marshaller *Marshaller
	types      *TypeRegistry
	classes    *overload.Registry
	globals    *Scope
	settings   *config.Settings
	logger     *zap.Logger

	byToken   map[uuid.UUID]*Class
	classList []*Class
}

type Option func(*VM)

// WithLogger sets the logger for the VM and everything it creates.
func WithLogger(l *zap.Logger) Option {
	return func(v *VM) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithSettings applies loaded settings. Nil keeps the defaults.
func WithSettings(s *config.Settings) Option {
	return func(v *VM) {
		if s != nil {
			v.settings = s
		}
	}
}

// New creates a new VM instance.
func New(opts ...Option) *VM {
	v := &VM{
		settings: config.DefaultSettings(),
		logger:   zap.NewNop(),
		types:    NewTypeRegistry(),
		byToken:  make(map[uuid.UUID]*Class),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.machine = vm.New(vm.WithLogger(v.logger))
	v.marshaller = NewMarshaller(v.machine, v.types)
	v.classes = overload.NewRegistry(v.logger)
	v.globals = v.newScope(nil, v.machine.Root())
	return v
}

// Machine returns the underlying VM.
func (v *VM) Machine() *vm.VM { return v.machine }

func (v *VM) Marshaller() *Marshaller { return v.marshaller }

func (v *VM) Settings() *config.Settings { return v.settings }

// Classes returns the registry of bound classes.
func (v *VM) Classes() *overload.Registry { return v.classes }

// BoundClasses returns the bound classes in binding order.
func (v *VM) BoundClasses() []*Class { return append([]*Class(nil), v.classList...) }

// Globals is the scope of global overloads.
func (v *VM) Globals() *Scope { return v.globals }

// Table returns the overload table of global functions.
func (v *VM) Table() *overload.Table { return v.globals.table }

// Scopes returns the global scope followed by each class's method scope.
func (v *VM) Scopes() []*Scope {
	scopes := []*Scope{v.globals}
	for _, c := range v.classList {
		scopes = append(scopes, c.methods)
	}
	return scopes
}

// Overload binds fns as overloads of the global function name. Bind
// failures of individual funcs are collected; the others are still bound.
func (v *VM) Overload(name string, fns ...any) error {
	ofs := make([]overloadFunc, len(fns))
	for i, fn := range fns {
		ofs[i] = overloadFunc{fn: reflect.ValueOf(fn)}
	}
	return v.bindAll(v.globals, name, ofs)
}

// Bind registers a single Go function or value as a global without
// overload resolution.
func (v *VM) Bind(name string, val interface{}) error {
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Func {
		fn, err := v.marshaller.hostFunction(name, rv)
		if err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
		v.machine.SetGlobal(name, vm.ObjVal(fn))
		return nil
	}
	return v.Set(name, val)
}

// Set sets a global variable in the VM.
func (v *VM) Set(name string, val interface{}) error {
	obj, err := v.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	v.machine.SetGlobal(name, obj)
	return nil
}

// Get retrieves a global variable from the VM.
func (v *VM) Get(name string) (interface{}, error) {
	obj, ok := v.machine.Global(name)
	if !ok {
		return nil, fmt.Errorf("variable '%s' not found", name)
	}
	return v.marshaller.FromValue(obj, nil)
}

// Call calls a global function by name with Go arguments.
func (v *VM) Call(funcName string, args ...interface{}) (interface{}, error) {
	vals, err := v.values(args)
	if err != nil {
		return nil, err
	}
	result, err := v.machine.CallGlobal(funcName, vals...)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}

// CallMethod calls method name on obj, which is a bound Go object or a VM
// value.
func (v *VM) CallMethod(obj interface{}, name string, args ...interface{}) (interface{}, error) {
	this, err := v.marshaller.ToValue(obj)
	if err != nil {
		return nil, err
	}
	vals, err := v.values(args)
	if err != nil {
		return nil, err
	}
	result, err := v.machine.CallMethod(this, name, vals...)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}

// NewInstance constructs an instance of class c with args, running its
// constructor overloads.
func (v *VM) NewInstance(c *Class, args ...interface{}) (vm.Value, error) {
	vals, err := v.values(args)
	if err != nil {
		return vm.NullVal(), err
	}
	return v.machine.CallFunction(vm.ObjVal(c.object), vm.ObjVal(v.machine.Root()), vals...)
}

// ScriptClass defines a class on the script side deriving from base. It
// carries no type tag of its own.
func (v *VM) ScriptClass(name string, base *Class) *vm.Class {
	var baseObj *vm.Class
	if base != nil {
		baseObj = base.object
	}
	c := vm.NewClass(name, baseObj, nil)
	v.machine.SetGlobal(name, vm.ObjVal(c))
	return c
}

func (v *VM) values(args []interface{}) ([]vm.Value, error) {
	vals := make([]vm.Value, len(args))
	for i, a := range args {
		val, err := v.marshaller.ToValue(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		vals[i] = val
	}
	return vals, nil
}
