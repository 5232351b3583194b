package vm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	errStackUnderflow = errors.New("stack underflow")
	errStackOverflow  = errors.New("stack overflow")
	ErrNotCallable    = errors.New("value is not callable")
	ErrArgCount       = errors.New("wrong number of parameters")
)

// Initial size for the stack
const InitialStackSize = 256

// Maximum call depth to prevent infinite recursion
const DefaultMaxDepth = 1024

// frame is one active call. Slot 1 of the frame is stack[base].
type frame struct {
	base   int
	callee string
}

// VM is a stack-based host for script values and calls. Values are addressed
// relative to the current frame: index 1 is the bottom of the frame (the
// receiver during a call) and -1 is the top.
type VM struct {
	stack    []Value
	frames   []frame
	root     *Table
	maxDepth int
	logger   *zap.Logger
}

type Option func(*VM)

func WithLogger(l *zap.Logger) Option {
	return func(vm *VM) {
		if l != nil {
			vm.logger = l
		}
	}
}

func WithMaxDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxDepth = n
		}
	}
}

// New creates a new VM instance
func New(opts ...Option) *VM {
	vm := &VM{
		stack:    make([]Value, 0, InitialStackSize),
		frames:   []frame{{base: 0, callee: "<root>"}},
		root:     NewTable(),
		maxDepth: DefaultMaxDepth,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Root returns the global table.
func (vm *VM) Root() *Table { return vm.root }

// SetGlobal sets a global variable
func (vm *VM) SetGlobal(name string, v Value) { vm.root.Set(name, v) }

// Global reads a global variable
func (vm *VM) Global(name string) (Value, bool) { return vm.root.Get(name) }

func (vm *VM) current() frame { return vm.frames[len(vm.frames)-1] }

// Depth is the number of active calls.
func (vm *VM) Depth() int { return len(vm.frames) - 1 }

// Callee names the function running in the current frame.
func (vm *VM) Callee() string { return vm.current().callee }

// Top returns the number of values in the current frame.
func (vm *VM) Top() int { return len(vm.stack) - vm.current().base }

// abs converts a frame index to a stack position, or -1 when out of range.
func (vm *VM) abs(idx int) int {
	base := vm.current().base
	var pos int
	switch {
	case idx > 0:
		pos = base + idx - 1
	case idx < 0:
		pos = len(vm.stack) + idx
	default:
		return -1
	}
	if pos < base || pos >= len(vm.stack) {
		return -1
	}
	return pos
}

// Get returns the value at idx, or null when idx is outside the frame.
func (vm *VM) Get(idx int) Value {
	pos := vm.abs(idx)
	if pos < 0 {
		return NullVal()
	}
	return vm.stack[pos]
}

// Replace overwrites the value at idx.
func (vm *VM) Replace(idx int, v Value) error {
	pos := vm.abs(idx)
	if pos < 0 {
		return fmt.Errorf("replace %d: %w", idx, errStackUnderflow)
	}
	vm.stack[pos] = v
	return nil
}

func (vm *VM) Push(v Value) {
	vm.stack = append(vm.stack, v)
}

// PushCopy pushes a copy of the value at idx.
func (vm *VM) PushCopy(idx int) {
	vm.Push(vm.Get(idx))
}

func (vm *VM) PushNull() { vm.Push(NullVal()) }

// Pop removes n values from the top of the current frame.
func (vm *VM) Pop(n int) error {
	if n > vm.Top() {
		return errStackUnderflow
	}
	vm.stack = vm.stack[:len(vm.stack)-n]
	return nil
}

// SetTop grows (with nulls) or shrinks the current frame to n values.
func (vm *VM) SetTop(n int) {
	want := vm.current().base + n
	for len(vm.stack) < want {
		vm.PushNull()
	}
	if want >= vm.current().base && want < len(vm.stack) {
		vm.stack = vm.stack[:want]
	}
}
