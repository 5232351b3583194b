package sqrat

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/substring/sqrat/internal/overload"
	"github.com/substring/sqrat/internal/vm"
)

// ErrMixedReturn is returned when overloads of one name disagree on whether
// they return a value.
var ErrMixedReturn = errors.New("overloads mix value and void results")

// Scope is one overload namespace: the globals, or the methods of a class.
type Scope struct {
	// Class is the class owning the scope, or nil for globals.
	Class *Class

	table    *overload.Table
	resolver *overload.Resolver
	families map[string]*overload.Trampoline
	slots    *vm.Table
}

func (v *VM) newScope(class *Class, slots *vm.Table) *Scope {
	table := overload.NewTable(
		overload.WithLogger(v.logger),
		overload.WithMaxArity(v.settings.VM.MaxArity))
	return &Scope{
		Class:    class,
		table:    table,
		resolver: overload.NewResolver(table, v.classes, v.logger),
		families: make(map[string]*overload.Trampoline),
		slots:    slots,
	}
}

// Name is the class name, or "" for globals.
func (s *Scope) Name() string {
	if s.Class == nil {
		return ""
	}
	return s.Class.Name()
}

func (s *Scope) Table() *overload.Table { return s.table }

// Mode returns the return mode of the overload family name.
func (s *Scope) Mode(name string) (overload.ReturnMode, bool) {
	t, ok := s.families[name]
	if !ok {
		return 0, false
	}
	return t.Mode(), true
}

// overloadFunc describes how one Go func is bound.
type overloadFunc struct {
	fn reflect.Value
	// receiver is the Go type of the frame receiver when the func takes it
	// as its first parameter.
	receiver reflect.Type
	// construct marks constructor funcs, whose result becomes the native
	// object of the receiver instance.
	construct bool
}

// bindAll registers each func as an overload of name, continuing past
// failures.
func (v *VM) bindAll(s *Scope, name string, fns []overloadFunc) error {
	var errs error
	for _, f := range fns {
		errs = multierr.Append(errs, v.bindOverload(s, name, f))
	}
	return errs
}

func (v *VM) bindOverload(s *Scope, name string, f overloadFunc) error {
	if f.fn.Kind() != reflect.Func {
		return fmt.Errorf("bind %s: %w: %s is not a function", name, ErrUnsupportedType, f.fn.Type())
	}
	fnType := f.fn.Type()
	skip := 0
	if f.receiver != nil && !f.construct {
		if fnType.NumIn() == 0 || fnType.In(0) != f.receiver {
			return fmt.Errorf("bind %s: first parameter of %s must be %s", name, fnType, f.receiver)
		}
		skip = 1
	}
	keys, err := v.types.KeysFor(fnType, skip)
	if err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}

	var (
		entry *vm.NativeClosure
		mode  overload.ReturnMode
	)
	if f.construct {
		mode = overload.ReturnsNothing
		entry, err = v.constructorEntry(name, f.fn, f.receiver)
	} else {
		mode, err = returnMode(fnType)
		if err == nil {
			entry, err = v.marshaller.nativeEntry(name, f.fn, skip == 1)
		}
	}
	if err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	if existing, ok := s.families[name]; ok && existing.Mode() != mode {
		return fmt.Errorf("bind %s: %w: %s is %s, family is %s", name, ErrMixedReturn, fnType, mode, existing.Mode())
	}

	e, err := s.table.Register(name, keys, entry)
	if err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	entry.Name = e.Signature(v.classes)
	if s.Class != nil {
		entry.Name = s.Class.Name() + "." + entry.Name
	}

	if _, ok := s.families[name]; !ok {
		s.install(name, overload.NewTrampoline(s.resolver, mode, v.settings.VM.RaiseErrors()))
	}
	v.logger.Debug("overload bound",
		zap.String("scope", s.Name()),
		zap.String("signature", entry.Name),
		zap.Stringer("mode", mode))
	return nil
}

// install places the trampoline for name in the scope's slot table. The
// function name travels as the closure's single free variable.
func (s *Scope) install(name string, t *overload.Trampoline) {
	s.families[name] = t
	s.slots.Set(name, vm.ObjVal(&vm.NativeClosure{
		Name: name,
		Fn: func(machine *vm.VM) (int, error) {
			return t.Dispatch(vmContext{machine: machine})
		},
		Free: []vm.Value{vm.StringVal(name)},
	}))
}

// Which resolves name against args the way a call would, without calling.
func (s *Scope) Which(name string, args ...vm.Value) (*overload.Entry, error) {
	return s.resolver.Resolve(name, argsOf(args))
}
