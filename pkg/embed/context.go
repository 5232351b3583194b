package sqrat

import (
	"github.com/substring/sqrat/internal/overload"
	"github.com/substring/sqrat/internal/vm"
)

// vmContext exposes the current VM frame to the overload trampoline.
type vmContext struct {
	machine *vm.VM
}

var _ overload.CallContext = vmContext{}

func (c vmContext) Top() int { return c.machine.Top() }

func (c vmContext) Kind(idx int) overload.ValueKind { return valueKind(c.machine.Get(idx)) }

func (c vmContext) TypeTags(idx int) []any {
	if inst, ok := c.machine.Get(idx).Obj.(*vm.Instance); ok {
		return inst.Class.TypeTags()
	}
	return nil
}

func (c vmContext) String(idx int) (string, bool) { return c.machine.Get(idx).AsString() }

func (c vmContext) Push(idx int) { c.machine.PushCopy(idx) }

func (c vmContext) PushNull() { c.machine.PushNull() }

func (c vmContext) PushEntry(point overload.EntryPoint) {
	c.machine.Push(vm.ObjVal(point.(*vm.NativeClosure)))
}

func (c vmContext) Call(nargs int, retval bool) error { return c.machine.Call(nargs, retval) }

// valueKind maps a VM value to the kind the classifier works on.
func valueKind(v vm.Value) overload.ValueKind {
	switch v.Type {
	case vm.ValInt:
		return overload.ValueInteger
	case vm.ValFloat:
		return overload.ValueFloat
	case vm.ValBool:
		return overload.ValueBool
	case vm.ValNull:
		return overload.ValueNull
	}
	switch v.Obj.(type) {
	case *vm.String:
		return overload.ValueString
	case *vm.Array:
		return overload.ValueArray
	case *vm.Table:
		return overload.ValueTable
	case *vm.Closure:
		return overload.ValueClosure
	case *vm.NativeClosure:
		return overload.ValueNativeClosure
	case *vm.Class:
		return overload.ValueClass
	case *vm.Instance:
		return overload.ValueInstance
	case *vm.UserPointer:
		return overload.ValueUserPointer
	}
	return overload.ValueNull
}

// argsOf describes values the way the trampoline describes a frame.
func argsOf(values []vm.Value) []overload.Arg {
	out := make([]overload.Arg, len(values))
	for i, v := range values {
		out[i].Kind = valueKind(v)
		if inst, ok := v.Obj.(*vm.Instance); ok {
			out[i].Tags = inst.Class.TypeTags()
		}
	}
	return out
}
