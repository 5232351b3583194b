package overload

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CandidateList records, per argument position, every key tried during one
// resolution, in the order tried.
type CandidateList [][]SignatureKey

func (c CandidateList) String() string {
	var sb strings.Builder
	for i, keys := range c {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('[')
		for j, k := range keys {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(k.String())
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// Resolver picks the overload matching a call's arguments.
type Resolver struct {
	table   *Table
	classes *Registry
	logger  *zap.Logger
}

// NewResolver creates a resolver over table. classes is used to render class
// names in diagnostics and may be nil.
func NewResolver(table *Table, classes *Registry, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{table: table, classes: classes, logger: logger}
}

func (r *Resolver) Table() *Table { return r.table }

// Resolve returns the overload of name that accepts args.
//
// Arguments are matched left to right. At each position the argument's
// candidate keys are tried in order against the overloads still reachable
// from the positions already fixed; the first key present is kept and the
// next position starts. There is no backtracking: once a position is fixed,
// a later failure fails the call. Failures are a *LookupError when name or
// arity is unknown and a *TypeMismatchError otherwise.
func (r *Resolver) Resolve(name string, args []Arg) (*Entry, error) {
	b, err := r.table.bucket(name, len(args))
	if err != nil {
		return nil, err
	}

	tried := make(CandidateList, len(args))
	cur := b.root
	for i, arg := range args {
		cands, err := Classify(arg)
		if err != nil {
			return nil, r.mismatch(name, i, arg, cur, tried, err)
		}

		probe := func(k SignatureKey) bool {
			_, ok := cur.child(k)
			return ok
		}

		var key SignatureKey
		ok := false
		if id := cands.Class(); id != nil {
			var match *ClassIdentity
			match, tried[i] = walkHierarchy(id, probe)
			if match != nil {
				key, ok = match.Key(), true
			}
		} else {
			key, tried[i], ok = firstMatch(cands.keys, probe)
		}
		if !ok {
			return nil, r.mismatch(name, i, arg, cur, tried, nil)
		}
		cur, _ = cur.child(key)
	}

	if cur.entry == nil {
		return nil, fmt.Errorf("resolve %s: overload path %s has no entry", name, tried)
	}
	r.logger.Debug("overload resolved",
		zap.String("name", name),
		zap.Int("argc", len(args)),
		zap.Stringer("tried", tried))
	return cur.entry, nil
}

// mismatch builds the diagnostic for a failure at pos. The accepted types are
// the keys registered at pos below the prefix already fixed, so every name
// listed would have let resolution continue.
func (r *Resolver) mismatch(name string, pos int, arg Arg, at *node, tried CandidateList, cause error) error {
	var expected []string
	seen := make(map[string]bool)
	for _, k := range at.order {
		n := r.classes.TypeName(k)
		if !seen[n] {
			seen[n] = true
			expected = append(expected, n)
		}
	}

	err := &TypeMismatchError{
		Function: name,
		Position: pos + 1,
		Got:      arg.Kind,
		Expected: expected,
		Tried:    tried[:pos+1],
		Cause:    cause,
	}
	r.logger.Debug("overload mismatch",
		zap.String("name", name),
		zap.Int("position", pos+1),
		zap.Stringer("tried", err.Tried),
		zap.Strings("expected", expected))
	return err
}
