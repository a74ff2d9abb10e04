package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hanpama/graphmock/internal/response"
)

// Runtime is the host integration surface consulted before a value is
// synthesized.
//
// Contract
//   - Resolve returns ok=false when it has nothing for the field; the
//     synthesizer then produces a value itself. An error becomes a located
//     GraphQL error and the field is null.
//   - objectType is the concrete object type name, source the parent value
//     (nil for root fields and for synthesized parents), args the coerced
//     argument values. Implementations must not mutate source or args.
//   - ResolveType picks the concrete object type for an interface or union
//     value. An error, or a name that is not a possible type, makes the
//     synthesizer fall back to the first possible type.
type Runtime interface {
	Resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (value any, ok bool, err error)
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)
}

// Resolver resolves a single field.
type Resolver func(ctx context.Context, source any, args map[string]any) (any, error)

// TypeResolver picks the concrete type of an abstract value.
type TypeResolver func(ctx context.Context, value any) (string, error)

// ErrNoTypeResolver is returned by Resolvers.ResolveType when neither a
// registered TypeResolver nor a __typename key identifies the type.
var ErrNoTypeResolver = errors.New("cannot resolve type")

// NewValueResolver returns a Resolver that always returns val.
func NewValueResolver(val any) Resolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return val, nil
	}
}

// NewErrorResolver returns a Resolver that always fails with err.
func NewErrorResolver(err error) Resolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, err
	}
}

// Resolvers is a Runtime backed by a registry of per-field functions.
// It is safe for concurrent use.
type Resolvers struct {
	mu     sync.RWMutex
	fields map[string]Resolver
	types  map[string]TypeResolver
}

// NewResolvers creates a registry from a map keyed by "ObjectType.field".
func NewResolvers(fields map[string]Resolver) *Resolvers {
	r := &Resolvers{
		fields: make(map[string]Resolver, len(fields)),
		types:  make(map[string]TypeResolver),
	}
	for k, v := range fields {
		r.fields[k] = v
	}
	return r
}

// Set registers or replaces the resolver for objectType.field.
func (r *Resolvers) Set(objectType, field string, fn Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[objectType+"."+field] = fn
}

// SetTypeResolver registers the type resolver for an interface or union.
func (r *Resolvers) SetTypeResolver(abstractType string, fn TypeResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[abstractType] = fn
}

// Len reports the number of field resolvers.
func (r *Resolvers) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fields)
}

func (r *Resolvers) Resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (any, bool, error) {
	r.mu.RLock()
	fn := r.fields[objectType+"."+field]
	r.mu.RUnlock()
	if fn == nil {
		return nil, false, nil
	}
	v, err := fn(ctx, source, args)
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

func (r *Resolvers) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	r.mu.RLock()
	fn := r.types[abstractType]
	r.mu.RUnlock()
	if fn != nil {
		return fn(ctx, value)
	}
	if name, ok := typenameOf(value); ok {
		return name, nil
	}
	return "", fmt.Errorf("%w for %s", ErrNoTypeResolver, abstractType)
}

// typenameOf reads a "__typename" key from a map or ordered object.
func typenameOf(value any) (string, bool) {
	v, ok := lookupSource(value, "__typename")
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok && name != ""
}

// lookupSource reads key from a parent value produced by a resolver.
func lookupSource(source any, key string) (any, bool) {
	switch s := source.(type) {
	case map[string]any:
		v, ok := s[key]
		return v, ok
	case *response.Object:
		if s == nil {
			return nil, false
		}
		return s.Get(key)
	default:
		return nil, false
	}
}
