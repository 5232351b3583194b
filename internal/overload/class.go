package overload

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/substring/sqrat/internal/config"
)

// ClassIdentity describes one registered native class. It never changes after
// registration.
type ClassIdentity struct {
	token uuid.UUID
	name  string
	base  *ClassIdentity
}

func (c *ClassIdentity) Token() uuid.UUID { return c.token }
func (c *ClassIdentity) Name() string     { return c.name }

// Base returns the direct base class, or nil for a root class.
func (c *ClassIdentity) Base() *ClassIdentity { return c.base }

// Key returns the SignatureKey that stands for this class in overload tuples.
func (c *ClassIdentity) Key() SignatureKey { return ClassKey(c.token) }

// Ancestry lists the class itself followed by every ancestor, nearest first.
func (c *ClassIdentity) Ancestry() []*ClassIdentity {
	var chain []*ClassIdentity
	for cur := c; cur != nil; cur = cur.base {
		chain = append(chain, cur)
	}
	return chain
}

// DerivesFrom reports whether c is other or one of its descendants.
func (c *ClassIdentity) DerivesFrom(other *ClassIdentity) bool {
	for cur := c; cur != nil; cur = cur.base {
		if cur == other {
			return true
		}
	}
	return false
}

func (c *ClassIdentity) String() string { return c.name }

// Registry holds the ClassIdentity records of one VM. Classes are looked up
// by identity token or by display name.
type Registry struct {
	byToken map[uuid.UUID]*ClassIdentity
	byName  map[string]*ClassIdentity
	order   []*ClassIdentity
	logger  *zap.Logger
}

// NewRegistry creates an empty class registry. A nil logger disables logging.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byToken: make(map[uuid.UUID]*ClassIdentity),
		byName:  make(map[string]*ClassIdentity),
		logger:  logger,
	}
}

// NewToken returns a fresh identity token.
func NewToken() uuid.UUID { return uuid.New() }

// Register records a class. base is the token of the direct base class, or
// uuid.Nil for a root class; the base must already be registered.
func (r *Registry) Register(token uuid.UUID, name string, base uuid.UUID) (*ClassIdentity, error) {
	if token == uuid.Nil {
		return nil, fmt.Errorf("class %q: %w: nil identity token", name, ErrInvalidClass)
	}
	if name == "" {
		return nil, fmt.Errorf("class %s: %w: empty name", token, ErrInvalidClass)
	}
	if prev, ok := r.byToken[token]; ok {
		return nil, fmt.Errorf("class %q: %w: token already used by %q", name, ErrInvalidClass, prev.name)
	}
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("class %q: %w: name already registered", name, ErrInvalidClass)
	}

	var baseID *ClassIdentity
	if base != uuid.Nil {
		b, ok := r.byToken[base]
		if !ok {
			return nil, fmt.Errorf("class %q: base %s: %w", name, base, ErrUnknownClass)
		}
		baseID = b
	}

	id := &ClassIdentity{token: token, name: name, base: baseID}
	r.byToken[token] = id
	r.byName[name] = id
	r.order = append(r.order, id)

	if baseID != nil {
		r.logger.Debug("class registered", zap.String("class", name), zap.String("base", baseID.name))
	} else {
		r.logger.Debug("class registered", zap.String("class", name))
	}
	return id, nil
}

// ByToken returns the class with the given identity token.
func (r *Registry) ByToken(token uuid.UUID) (*ClassIdentity, bool) {
	id, ok := r.byToken[token]
	return id, ok
}

// ByName returns the class with the given display name.
func (r *Registry) ByName(name string) (*ClassIdentity, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Classes returns all classes in registration order. Bases always precede
// the classes deriving from them.
func (r *Registry) Classes() []*ClassIdentity {
	return append([]*ClassIdentity(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }

// TypeName renders a key the way mismatch diagnostics show it: a primitive
// tag name, the display name of a registered class, or "unknown".
func (r *Registry) TypeName(k SignatureKey) string {
	if name, ok := primitiveName(k); ok {
		return name
	}
	if k.IsClass() && r != nil {
		if id, ok := r.byToken[k.class]; ok {
			return id.name
		}
	}
	return config.UnknownTagName
}
