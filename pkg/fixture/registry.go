package fixture

import (
	"fmt"
	"sort"
	"sync"
)

// Blueprint supplies the default attribute shape for one entity type. The
// definition is re-evaluated per instance so producers and data-driven values vary
// across a batch.
type Blueprint interface {
	Type() string
	Definition(data Data) Definition
}

// Registry resolves entity types to blueprints and declared relations. It is the
// name-resolution strategy behind Factory(type) and the dynamic relationship
// forms; every registry carries its own Convention and Data source so tests can
// substitute either without ambient global state.
type Registry struct {
	mu         sync.RWMutex
	blueprints map[string]Blueprint
	relations  map[string]Relations
	convention Convention
	data       Data
	repo       Repository
}

// RegistryOption configures a registry at construction time.
type RegistryOption func(*Registry)

// WithConvention substitutes the naming convention strategy.
func WithConvention(c Convention) RegistryOption {
	return func(r *Registry) { r.convention = c }
}

// WithDataSource substitutes the fake-data source handed to blueprints.
func WithDataSource(d Data) RegistryOption {
	return func(r *Registry) { r.data = d }
}

// WithRepository sets the default repository used by Create on factories obtained
// from this registry.
func WithRepository(repo Repository) RegistryOption {
	return func(r *Registry) { r.repo = repo }
}

// NewRegistry constructs an empty registry with the default convention and a
// deterministic data source.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		blueprints: make(map[string]Blueprint),
		relations:  make(map[string]Relations),
		convention: DefaultConvention{},
		data:       NewData(1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds blueprints, capturing declared relations from blueprints that
// implement RelationDeclarer. Re-registering a type replaces the previous entry.
func (r *Registry) Register(bps ...Blueprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bp := range bps {
		r.blueprints[bp.Type()] = bp
		if rd, ok := bp.(RelationDeclarer); ok {
			r.relations[bp.Type()] = rd.Relations()
		}
	}
}

// Factory returns a fresh factory for the entity type, wired to this registry's
// convention, data source and repository. Unknown types yield a NotFoundError.
func (r *Registry) Factory(entityType string) (*Factory, error) {
	r.mu.RLock()
	bp, ok := r.blueprints[entityType]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{EntityType: entityType}
	}
	return &Factory{
		blueprint: bp,
		registry:  r,
		data:      r.data,
		repo:      r.repo,
		count:     1,
	}, nil
}

// MustFactory is Factory that panics on unknown types; intended for seed programs
// where registration errors are programmer errors.
func (r *Registry) MustFactory(entityType string) *Factory {
	f, err := r.Factory(entityType)
	if err != nil {
		panic(err)
	}
	return f
}

// Blueprint looks up a registered blueprint.
func (r *Registry) Blueprint(entityType string) (Blueprint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.blueprints[entityType]
	return bp, ok
}

// RelationsFor returns the declared relation table of an entity type (nil when the
// blueprint declares none).
func (r *Registry) RelationsFor(entityType string) Relations {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.relations[entityType]
}

// Convention returns the registry's naming strategy.
func (r *Registry) Convention() Convention {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.convention
}

func (r *Registry) relationFor(entityType, relation string) (Relation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rels, ok := r.relations[entityType]
	if !ok {
		return nil, false
	}
	rel, ok := rels[relation]
	return rel, ok
}

// Violation describes one registry consistency problem found by Validate.
type Violation struct {
	EntityType string `json:"entity_type"`
	Relation   string `json:"relation"`
	Reason     string `json:"reason"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s.%s: %s", v.EntityType, v.Relation, v.Reason)
}

// Validate checks every declared relation: targets must be registered, morph
// declarations must name both fields. It returns all violations rather than
// stopping at the first.
func (r *Registry) Validate() []Violation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Violation
	report := func(entityType, relation, reason string) {
		out = append(out, Violation{EntityType: entityType, Relation: relation, Reason: reason})
	}
	for entityType, rels := range r.relations {
		for name, rel := range rels {
			switch decl := rel.(type) {
			case HasManyRel:
				if _, ok := r.blueprints[decl.Target]; !ok {
					report(entityType, name, fmt.Sprintf("has-many target %q is not registered", decl.Target))
				}
			case BelongsToRel:
				if _, ok := r.blueprints[decl.Target]; !ok {
					report(entityType, name, fmt.Sprintf("belongs-to target %q is not registered", decl.Target))
				}
			case BelongsToManyRel:
				if _, ok := r.blueprints[decl.Target]; !ok {
					report(entityType, name, fmt.Sprintf("belongs-to-many target %q is not registered", decl.Target))
				}
			case MorphToRel:
				if decl.TypeField == "" || decl.KeyField == "" {
					report(entityType, name, "morph-to declaration must name both type and key fields")
				}
			default:
				report(entityType, name, "unknown relation kind")
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].Relation < out[j].Relation
	})
	return out
}
