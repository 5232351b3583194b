package vm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ConstructorName is the class member run when a class is called.
const ConstructorName = "constructor"

// CallError is an error raised inside a call. It records the callee for
// diagnostics; Error returns the underlying message unchanged.
type CallError struct {
	Callee string
	Err    error
}

func (e *CallError) Error() string { return e.Err.Error() }
func (e *CallError) Unwrap() error { return e.Err }

// Call invokes the value below the top nargs values. nargs counts the
// receiver, so the stack must hold [callee receiver arg1 ... argN] with
// nargs = N+1. The callee and its arguments are popped; when retval is set
// the result (or null) is pushed.
func (vm *VM) Call(nargs int, retval bool) error {
	if nargs < 1 || nargs+1 > vm.Top() {
		return fmt.Errorf("call with %d values: %w", nargs, errStackUnderflow)
	}
	fnPos := len(vm.stack) - nargs - 1
	result, err := vm.invoke(vm.stack[fnPos], fnPos+1)
	vm.stack = vm.stack[:fnPos]
	if err != nil {
		return err
	}
	if retval {
		vm.Push(result)
	}
	return nil
}

func (vm *VM) invoke(fn Value, base int) (Value, error) {
	name := calleeName(fn)
	if vm.Depth() >= vm.maxDepth {
		return NullVal(), &CallError{Callee: name, Err: errStackOverflow}
	}
	vm.frames = append(vm.frames, frame{base: base, callee: name})
	defer func() { vm.frames = vm.frames[:len(vm.frames)-1] }()

	var (
		result = NullVal()
		err    error
	)
	switch f := fn.Obj.(type) {
	case *NativeClosure:
		for _, v := range f.Free {
			vm.Push(v)
		}
		var n int
		n, err = f.Fn(vm)
		if err == nil && n > 0 && vm.Top() > 0 {
			result = vm.Get(-1)
		}
	case *Closure:
		args := append([]Value(nil), vm.stack[base+1:]...)
		if len(args) != f.Params {
			err = fmt.Errorf("%w (%d) for '%s'", ErrArgCount, len(args), f.Name)
			break
		}
		result, err = f.Body(vm, vm.stack[base], args)
	case *Class:
		result, err = vm.construct(f, base)
	default:
		err = fmt.Errorf("attempt to call '%s': %w", fn.ObjectType(), ErrNotCallable)
	}

	if err != nil {
		var ce *CallError
		if !errors.As(err, &ce) {
			err = &CallError{Callee: name, Err: err}
		}
		vm.logger.Debug("call failed", zap.String("callee", name), zap.Int("depth", vm.Depth()), zap.Error(err))
		return NullVal(), err
	}
	return result, nil
}

// construct creates an instance of class and runs its constructor, if any,
// with the arguments of the current frame.
func (vm *VM) construct(class *Class, base int) (Value, error) {
	inst := ObjVal(NewInstance(class))
	args := vm.stack[base+1:]
	ctor, ok := class.Lookup(ConstructorName)
	if !ok {
		if len(args) > 0 {
			return NullVal(), fmt.Errorf("%w (%d) for '%s'", ErrArgCount, len(args), class.Name)
		}
		return inst, nil
	}
	vm.Push(ctor)
	vm.Push(inst)
	for i := base + 1; i < base+1+len(args); i++ {
		vm.Push(vm.stack[i])
	}
	if err := vm.Call(len(args)+1, false); err != nil {
		return NullVal(), err
	}
	return inst, nil
}

// CallFunction calls fn with receiver this and returns its result.
func (vm *VM) CallFunction(fn, this Value, args ...Value) (Value, error) {
	vm.Push(fn)
	vm.Push(this)
	for _, a := range args {
		vm.Push(a)
	}
	if err := vm.Call(len(args)+1, true); err != nil {
		return NullVal(), err
	}
	result := vm.Get(-1)
	_ = vm.Pop(1)
	return result, nil
}

// CallGlobal calls the global function name with the root table as
// receiver.
func (vm *VM) CallGlobal(name string, args ...Value) (Value, error) {
	fn, ok := vm.root.Get(name)
	if !ok {
		return NullVal(), fmt.Errorf("the index '%s' does not exist", name)
	}
	return vm.CallFunction(fn, ObjVal(vm.root), args...)
}

// CallMethod looks name up on this (an instance, class or table) and calls
// it with this as receiver.
func (vm *VM) CallMethod(this Value, name string, args ...Value) (Value, error) {
	fn, ok := Member(this, name)
	if !ok {
		return NullVal(), fmt.Errorf("the index '%s' does not exist", name)
	}
	return vm.CallFunction(fn, this, args...)
}

// Member reads slot name of an instance, class or table.
func Member(v Value, name string) (Value, bool) {
	switch o := v.Obj.(type) {
	case *Instance:
		return o.Get(name)
	case *Class:
		return o.Lookup(name)
	case *Table:
		return o.Get(name)
	}
	return NullVal(), false
}

func calleeName(fn Value) string {
	switch f := fn.Obj.(type) {
	case *NativeClosure:
		return f.Name
	case *Closure:
		return f.Name
	case *Class:
		return f.Name
	}
	return fn.Inspect()
}
