package overload

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/substring/sqrat/internal/config"
)

// CallContext is the view of a VM call frame the trampoline needs. Indices
// are 1-based from the bottom of the frame; negative indices count from the
// top (-1 is the top value).
type CallContext interface {
	Top() int
	Kind(idx int) ValueKind
	// TypeTags returns the type tags of an instance's class chain, nearest
	// first. See Arg.Tags.
	TypeTags(idx int) []any
	String(idx int) (string, bool)

	// Push copies the value at idx to the top of the stack.
	Push(idx int)
	PushNull()
	// PushEntry pushes a callable for an overload entry point.
	PushEntry(point EntryPoint)
	// Call invokes the callable below the top nargs values (receiver and
	// arguments), pops them all and pushes the result when retval is set.
	Call(nargs int, retval bool) error
}

// ReturnMode tells the trampoline whether its overload family yields a value.
type ReturnMode uint8

const (
	ReturnsValue ReturnMode = iota
	ReturnsNothing
)

func (m ReturnMode) String() string {
	if m == ReturnsNothing {
		return "void"
	}
	return "value"
}

var errMalformedFrame = errors.New("overload trampoline: malformed call frame")

// Trampoline is the native function the VM calls for an overloaded name. The
// frame holds the receiver in slot 1, the arguments, and the function name as
// a free variable in the top slot.
type Trampoline struct {
	resolver *Resolver
	mode     ReturnMode
	raise    bool
	logger   *zap.Logger
}

// NewTrampoline creates a trampoline for one overload family. When
// raiseErrors is false, errors returned by the resolved entry point are logged
// and the call yields null (or nothing, for void families).
func NewTrampoline(resolver *Resolver, mode ReturnMode, raiseErrors bool) *Trampoline {
	return &Trampoline{resolver: resolver, mode: mode, raise: raiseErrors, logger: resolver.logger}
}

func (t *Trampoline) Mode() ReturnMode { return t.mode }

// Arguments classifies the argc arguments of the current frame.
func Arguments(ctx CallContext, argc int) []Arg {
	args := make([]Arg, argc)
	for i := range args {
		idx := i + config.FirstArgSlot
		args[i].Kind = ctx.Kind(idx)
		if args[i].Kind == ValueInstance {
			args[i].Tags = ctx.TypeTags(idx)
		}
	}
	return args
}

// Dispatch resolves the call in ctx and forwards it to the chosen entry point
// with the original receiver and arguments. It returns the number of results
// left on the stack (0 or 1).
func (t *Trampoline) Dispatch(ctx CallContext) (int, error) {
	argc := ctx.Top() - config.TrampolineExtras
	if argc < 0 {
		return 0, errMalformedFrame
	}
	name, ok := ctx.String(-1)
	if !ok {
		return 0, fmt.Errorf("%w: function name is not a string", errMalformedFrame)
	}

	entry, err := t.resolver.Resolve(name, Arguments(ctx, argc))
	if err != nil {
		return 0, err
	}

	ctx.PushEntry(entry.Point)
	for i := config.ReceiverSlot; i <= argc+1; i++ {
		ctx.Push(i)
	}

	retval := t.mode == ReturnsValue
	if err := ctx.Call(argc+1, retval); err != nil {
		if t.raise {
			return 0, err
		}
		t.logger.Warn("overload entry point failed",
			zap.String("name", name),
			zap.String("signature", entry.Signature(t.resolver.classes)),
			zap.Error(err))
		if retval {
			ctx.PushNull()
			return 1, nil
		}
		return 0, nil
	}
	if retval {
		return 1, nil
	}
	return 0, nil
}
