package overload

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/substring/sqrat/internal/config"
)

// EntryPoint is the bound native callable of one overload. The table treats it
// as opaque; the CallContext that receives it in PushEntry knows its type.
type EntryPoint any

// Entry is one registered overload.
type Entry struct {
	Name  string
	Keys  []SignatureKey
	Point EntryPoint
}

func (e *Entry) ArgCount() int { return len(e.Keys) }

// Signature renders the entry as "name(integer, Shape)".
func (e *Entry) Signature(classes *Registry) string {
	names := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		names[i] = classes.TypeName(k)
	}
	return e.Name + "(" + strings.Join(names, ", ") + ")"
}

// node is one level of the key trie; depth equals the argument position.
// Children keep their insertion order for diagnostics.
type node struct {
	children map[SignatureKey]*node
	order    []SignatureKey
	entry    *Entry
}

func newNode() *node {
	return &node{children: make(map[SignatureKey]*node)}
}

func (n *node) child(k SignatureKey) (*node, bool) {
	c, ok := n.children[k]
	return c, ok
}

// bucket holds every overload of one name and arity.
type bucket struct {
	root    *node
	entries []*Entry
}

// Table maps name → arity → key tuple → Entry. It is filled at bind time and
// only read afterwards; it has no internal locking.
type Table struct {
	funcs    map[string]map[int]*bucket
	maxArity int
	logger   *zap.Logger
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithLogger sets the logger used for registration traces.
func WithLogger(logger *zap.Logger) TableOption {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMaxArity sets the largest accepted key tuple length.
func WithMaxArity(n int) TableOption {
	return func(t *Table) {
		if n > 0 {
			t.maxArity = n
		}
	}
}

func NewTable(opts ...TableOption) *Table {
	t := &Table{
		funcs:    make(map[string]map[int]*bucket),
		maxArity: config.DefaultMaxArity,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) MaxArity() int { return t.maxArity }

// Register adds one overload. The arity is len(keys). Registering the same
// name and key tuple twice fails with ErrConflict.
func (t *Table) Register(name string, keys []SignatureKey, point EntryPoint) (*Entry, error) {
	if name == "" {
		return nil, fmt.Errorf("register: empty function name")
	}
	if len(keys) > t.maxArity {
		return nil, fmt.Errorf("register %s: %d parameters, limit is %d: %w", name, len(keys), t.maxArity, ErrArityLimit)
	}
	for i, k := range keys {
		if !k.IsValid() {
			return nil, fmt.Errorf("register %s: parameter %d: %w", name, i+1, ErrInvalidKey)
		}
	}

	arities, ok := t.funcs[name]
	if !ok {
		arities = make(map[int]*bucket)
		t.funcs[name] = arities
	}
	b, ok := arities[len(keys)]
	if !ok {
		b = &bucket{root: newNode()}
		arities[len(keys)] = b
	}

	// Check for a conflict before touching the trie.
	if n := b.root.walk(keys); n != nil && n.entry != nil {
		return nil, fmt.Errorf("register %s%s: %w", name, tupleString(keys), ErrConflict)
	}

	cur := b.root
	for _, k := range keys {
		next, ok := cur.children[k]
		if !ok {
			next = newNode()
			cur.children[k] = next
			cur.order = append(cur.order, k)
		}
		cur = next
	}

	e := &Entry{Name: name, Keys: append([]SignatureKey(nil), keys...), Point: point}
	cur.entry = e
	b.entries = append(b.entries, e)

	t.logger.Debug("overload registered",
		zap.String("name", name),
		zap.Int("argc", len(keys)),
		zap.String("keys", tupleString(keys)))
	return e, nil
}

func (n *node) walk(keys []SignatureKey) *node {
	cur := n
	for _, k := range keys {
		next, ok := cur.children[k]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Lookup returns the overload registered for exactly this name and key tuple.
func (t *Table) Lookup(name string, keys []SignatureKey) (*Entry, bool) {
	b, ok := t.funcs[name][len(keys)]
	if !ok {
		return nil, false
	}
	n := b.root.walk(keys)
	if n == nil || n.entry == nil {
		return nil, false
	}
	return n.entry, true
}

// bucket returns the overloads of name taking argc arguments.
func (t *Table) bucket(name string, argc int) (*bucket, error) {
	arities, ok := t.funcs[name]
	if !ok {
		return nil, &LookupError{Function: name, ArgCount: argc, Err: ErrUnknownFunction}
	}
	b, ok := arities[argc]
	if !ok {
		return nil, &LookupError{Function: name, ArgCount: argc, Err: ErrArity}
	}
	return b, nil
}

// Has reports whether any overload of name is registered.
func (t *Table) Has(name string) bool {
	_, ok := t.funcs[name]
	return ok
}

// Names returns every registered function name, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Arities returns the registered arities of name in ascending order.
func (t *Table) Arities(name string) []int {
	var arities []int
	for argc := range t.funcs[name] {
		arities = append(arities, argc)
	}
	sort.Ints(arities)
	return arities
}

// Entries returns the overloads of name ordered by arity, then by
// registration order.
func (t *Table) Entries(name string) []*Entry {
	var entries []*Entry
	for _, argc := range t.Arities(name) {
		entries = append(entries, t.funcs[name][argc].entries...)
	}
	return entries
}

// Len returns the number of registered overloads.
func (t *Table) Len() int {
	n := 0
	for _, arities := range t.funcs {
		for _, b := range arities {
			n += len(b.entries)
		}
	}
	return n
}

func tupleString(keys []SignatureKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}
