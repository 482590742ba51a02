package fixture

import (
	"context"
	"fmt"
)

// StateFunc layers attribute overrides onto a factory. It receives the current
// raw attribute layer (deferred values included, unevaluated) and, for
// relationship-triggered resolutions, the owning parent entity — nil otherwise.
// The returned values are merged on top of the layer; nil means no change.
type StateFunc func(attrs Values, parent *Entity) (Values, error)

// Hook observes a resolved entity. For relationship-triggered resolutions the
// second argument is the owning parent, whatever its persistence status.
type Hook func(entity, parent *Entity) error

type runMode int

const (
	rawMode runMode = iota
	makeMode
	createMode
)

// maxResolveDepth bounds nested factory resolution. Definitions that reference
// themselves (directly or through relation chains) fail fast with a
// ResolutionError instead of hanging.
const maxResolveDepth = 32

// runContext threads per-terminal-call state through nested resolutions.
type runContext struct {
	ctx    context.Context
	mode   runMode
	repo   Repository
	parent *Entity // owning entity for relationship-triggered resolutions
	inject Values  // foreign-key layer supplied by a has-many binding
	depth  int
}

func (rc *runContext) child(parent *Entity, inject Values) *runContext {
	return &runContext{
		ctx:    rc.ctx,
		mode:   rc.mode,
		repo:   rc.repo,
		parent: parent,
		inject: inject,
		depth:  rc.depth + 1,
	}
}

// Factory is an immutable configuration snapshot describing how to produce one
// batch of entities. Every configuration call returns a derived copy; a factory
// value can therefore be branched freely without one chain observing another's
// configuration. Configuration errors are recorded on the derived factory and
// reported by the terminal operation.
type Factory struct {
	blueprint   Blueprint
	registry    *Registry
	data        Data
	repo        Repository
	count       int
	states      []StateFunc
	sequence    *Sequence
	bindings    []binding
	afterMake   []Hook
	afterCreate []Hook
	err         error
}

// New builds a standalone factory for the blueprint with count 1, the default
// convention and a deterministic data source. Registry-backed factories (see
// Registry.Factory) are required for the dynamic relation forms.
func New(bp Blueprint) *Factory {
	return &Factory{blueprint: bp, data: NewData(1), count: 1}
}

func (f *Factory) clone() *Factory {
	c := *f
	c.states = append([]StateFunc(nil), f.states...)
	c.bindings = append([]binding(nil), f.bindings...)
	c.afterMake = append([]Hook(nil), f.afterMake...)
	c.afterCreate = append([]Hook(nil), f.afterCreate...)
	return &c
}

func (f *Factory) fail(err error) *Factory {
	c := f.clone()
	if c.err == nil {
		c.err = err
	}
	return c
}

func (f *Factory) typeName() string { return f.blueprint.Type() }

func (f *Factory) convention() Convention {
	if f.registry != nil {
		return f.registry.Convention()
	}
	return DefaultConvention{}
}

// Count sets the batch size. Zero is legal and yields an empty collection.
func (f *Factory) Count(n int) *Factory {
	if n < 0 {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Reason: fmt.Sprintf("invalid count %d", n)})
	}
	c := f.clone()
	c.count = n
	return c
}

// State appends a layered override producer.
func (f *Factory) State(fn StateFunc) *Factory {
	c := f.clone()
	c.states = append(c.states, fn)
	return c
}

// Set is shorthand for a static State layer.
func (f *Factory) Set(overrides Values) *Factory {
	return f.State(func(Values, *Entity) (Values, error) {
		return overrides, nil
	})
}

// WithSequence attaches (or replaces) the sequence of per-instance override sets.
func (f *Factory) WithSequence(steps ...Values) *Factory {
	if len(steps) == 0 {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Reason: "sequence requires at least one override set"})
	}
	c := f.clone()
	c.sequence = NewSequence(steps...)
	return c
}

// UsingRepository overrides the repository used by Create.
func (f *Factory) UsingRepository(repo Repository) *Factory {
	c := f.clone()
	c.repo = repo
	return c
}

// UsingData overrides the data source handed to the blueprint.
func (f *Factory) UsingData(d Data) *Factory {
	c := f.clone()
	c.data = d
	return c
}

// Has appends a has-many binding: after each produced entity resolves (and is
// saved when creating), the child factory runs with the parent's identifier
// injected into the foreign-key field. The optional foreignKey argument overrides
// the declared/convention-derived key.
func (f *Factory) Has(child *Factory, relation string, foreignKey ...string) *Factory {
	c := f.clone()
	fk := ""
	if len(foreignKey) > 0 {
		fk = foreignKey[0]
	}
	c.bindings = append(c.bindings, &hasManyBinding{child: child, relation: relation, foreignKey: fk})
	return c
}

// HasRelated is the dynamic form of Has: the child factory is resolved through
// the registry's declared relation table. An undeclared or mistyped relation is a
// configuration error reported by the terminal operation.
func (f *Factory) HasRelated(relation string, n int) *Factory {
	if f.err != nil {
		return f.clone()
	}
	if f.registry == nil {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: "dynamic relation forms require a registry-backed factory"})
	}
	rel, ok := f.registry.relationFor(f.typeName(), relation)
	if !ok {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: "relation is not declared"})
	}
	hm, ok := rel.(HasManyRel)
	if !ok {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: "relation is not declared has-many"})
	}
	child, err := f.registry.Factory(hm.Target)
	if err != nil {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: fmt.Sprintf("target %q has no registered blueprint", hm.Target)})
	}
	return f.Has(child.Count(n), relation, hm.ForeignKey)
}

// For appends a belongs-to binding: the parent factory resolves first — once per
// terminal call, not once per produced instance — and its identifier is injected
// into the pending entity's foreign-key field before attributes resolve.
func (f *Factory) For(parent *Factory, relation string) *Factory {
	c := f.clone()
	c.bindings = append(c.bindings, &belongsToBinding{parent: parent, relation: relation})
	return c
}

// ForParent is the dynamic form of For, resolving the parent factory through the
// registry's declared relation table.
func (f *Factory) ForParent(relation string) *Factory {
	if f.err != nil {
		return f.clone()
	}
	if f.registry == nil {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: "dynamic relation forms require a registry-backed factory"})
	}
	rel, ok := f.registry.relationFor(f.typeName(), relation)
	if !ok {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: "relation is not declared"})
	}
	bt, ok := rel.(BelongsToRel)
	if !ok {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: "relation is not declared belongs-to"})
	}
	parent, err := f.registry.Factory(bt.Target)
	if err != nil {
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: fmt.Sprintf("target %q has no registered blueprint", bt.Target)})
	}
	return f.For(parent, relation)
}

// ForMorph appends a polymorphic belongs-to binding: besides the foreign key, the
// parent's entity type is injected into the relation's type-discriminator field.
func (f *Factory) ForMorph(parent *Factory, relation string) *Factory {
	c := f.clone()
	c.bindings = append(c.bindings, &belongsToBinding{parent: parent, relation: relation, morph: true})
	return c
}

// HasAttached appends a many-to-many binding: each related entity is resolved and
// persisted independently, then linked to the owner through a join record. pivot
// supplies the extra join attributes as a static Values map (identical per link)
// or a *Sequence (the Nth link gets the Nth set, cursor local to each binding
// application). nil means no pivot attributes.
func (f *Factory) HasAttached(related *Factory, pivot any, relation string) *Factory {
	c := f.clone()
	b := &attachedBinding{related: related, relation: relation}
	switch p := pivot.(type) {
	case nil:
	case Values:
		b.pivot = p
	case map[string]any:
		b.pivot = Values(p)
	case *Sequence:
		b.pivotSeq = p
	default:
		return f.fail(&ConfigurationError{EntityType: f.typeName(), Relation: relation, Reason: fmt.Sprintf("pivot must be Values or *Sequence, got %T", pivot)})
	}
	c.bindings = append(c.bindings, b)
	return c
}

// AfterMaking registers a hook fired once an entity is resolved, before any
// persistence.
func (f *Factory) AfterMaking(h Hook) *Factory {
	c := f.clone()
	c.afterMake = append(c.afterMake, h)
	return c
}

// AfterCreating registers a hook fired after the entity and its relationship
// bindings have been persisted.
func (f *Factory) AfterCreating(h Hook) *Factory {
	c := f.clone()
	c.afterCreate = append(c.afterCreate, h)
	return c
}

// Raw resolves attribute maps only: nothing is persisted and relationship
// bindings are skipped; nested factories inside the definition resolve inline to
// embedded maps.
func (f *Factory) Raw(overrides ...Values) ([]Values, error) {
	col, err := f.run(&runContext{ctx: context.Background(), mode: rawMode}, flattenOverrides(overrides), nil)
	if err != nil {
		return nil, err
	}
	out := make([]Values, len(col))
	for i, e := range col {
		out[i] = e.Fields
	}
	return out, nil
}

// RawOne is Raw with count forced to 1, returning a single map.
func (f *Factory) RawOne(overrides ...Values) (Values, error) {
	maps, err := f.withCountOne().Raw(overrides...)
	if err != nil {
		return nil, err
	}
	return maps[0], nil
}

// Make resolves attributes and relationships into in-memory entities without
// persisting anything; after-making hooks fire per entity.
func (f *Factory) Make(overrides ...Values) (Collection, error) {
	return f.run(&runContext{ctx: context.Background(), mode: makeMode}, flattenOverrides(overrides), nil)
}

// MakeOne is Make with count forced to 1, returning a single entity.
func (f *Factory) MakeOne(overrides ...Values) (*Entity, error) {
	col, err := f.withCountOne().Make(overrides...)
	if err != nil {
		return nil, err
	}
	return col.First(), nil
}

// Create performs Make semantics and additionally persists every entity through
// the repository: each parent before its dependent children, each belongs-to
// parent before the child that references it. After-creating hooks fire once
// persistence (including relationship bindings) has completed.
func (f *Factory) Create(ctx context.Context, overrides ...Values) (Collection, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return f.run(&runContext{ctx: ctx, mode: createMode, repo: f.repo}, flattenOverrides(overrides), nil)
}

// CreateOne is Create with count forced to 1, returning a single entity.
func (f *Factory) CreateOne(ctx context.Context, overrides ...Values) (*Entity, error) {
	col, err := f.withCountOne().Create(ctx, overrides...)
	if err != nil {
		return nil, err
	}
	return col.First(), nil
}

// CreateMany persists one entity per supplied override set; the batch size is
// implied by the slice length.
func (f *Factory) CreateMany(ctx context.Context, sets []Values) (Collection, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := f.clone()
	c.count = len(sets)
	return c.run(&runContext{ctx: ctx, mode: createMode, repo: f.repo}, nil, sets)
}

func (f *Factory) withCountOne() *Factory {
	if f.count == 1 {
		return f
	}
	c := f.clone()
	c.count = 1
	return c
}

type resolvedParent struct {
	binding *belongsToBinding
	entity  *Entity
	inject  Values
}

// run is the single resolution loop behind every terminal operation.
func (f *Factory) run(rc *runContext, callOverrides Values, perInstance []Values) (Collection, error) {
	if f.err != nil {
		return nil, f.err
	}
	if rc.depth > maxResolveDepth {
		return nil, &ResolutionError{EntityType: f.typeName(), Reason: "maximum nesting depth exceeded; circular definition suspected"}
	}
	if rc.mode == createMode && rc.repo == nil {
		return nil, &ConfigurationError{EntityType: f.typeName(), Reason: "create requires a repository; configure one on the registry or via UsingRepository"}
	}
	if f.count == 0 {
		return Collection{}, nil
	}

	parents, err := f.resolveParents(rc)
	if err != nil {
		return nil, err
	}

	seq := f.sequence.fork()
	out := make(Collection, 0, f.count)
	for i := 0; i < f.count; i++ {
		var step Values
		if seq.Len() > 0 {
			step = seq.Next()
		}
		var instance Values
		if perInstance != nil {
			instance = perInstance[i]
		}
		e, err := f.resolveInstance(rc, parents, step, instance, callOverrides)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			e.attachRelated(p.binding.relation, p.entity)
		}
		if rc.mode != rawMode {
			for _, h := range f.afterMake {
				if err := h(e, rc.parent); err != nil {
					return nil, fmt.Errorf("fixture: after-making hook for %s: %w", f.typeName(), err)
				}
			}
		}
		if rc.mode == createMode {
			if err := rc.repo.Save(rc.ctx, e); err != nil {
				return nil, &PersistenceError{EntityType: f.typeName(), Err: err}
			}
		}
		if rc.mode != rawMode {
			if err := f.applyBindings(rc, e); err != nil {
				return nil, err
			}
		}
		if rc.mode == createMode {
			for _, h := range f.afterCreate {
				if err := h(e, rc.parent); err != nil {
					return nil, fmt.Errorf("fixture: after-creating hook for %s: %w", f.typeName(), err)
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// resolveParents resolves every belongs-to parent exactly once per terminal call
// and precomputes the foreign-key injection layer for the pending children.
func (f *Factory) resolveParents(rc *runContext) ([]resolvedParent, error) {
	if rc.mode == rawMode {
		return nil, nil
	}
	var parents []resolvedParent
	for _, b := range f.bindings {
		bt, ok := b.(*belongsToBinding)
		if !ok {
			continue
		}
		pe, err := bt.parent.runOne(rc.child(nil, nil))
		if err != nil {
			return nil, fmt.Errorf("fixture: belongs-to %q of %s: %w", bt.relation, f.typeName(), err)
		}
		inject := Values{}
		if bt.morph {
			typeField, keyField := f.morphFields(bt.relation)
			inject[typeField] = pe.Type
			inject[keyField] = pe.ID
		} else {
			inject[f.belongsToForeignKey(bt)] = pe.ID
		}
		parents = append(parents, resolvedParent{binding: bt, entity: pe, inject: inject})
	}
	return parents, nil
}

// resolveInstance merges override layers onto the definition and evaluates the
// result in declaration order. Layering, later wins: definition < belongs-to keys
// < states < sequence step < has-many key injection < per-instance set <
// call-time overrides.
func (f *Factory) resolveInstance(rc *runContext, parents []resolvedParent, seqStep, instance, callOverrides Values) (*Entity, error) {
	def := f.blueprint.Definition(f.data)
	ordered := make(Definition, len(def))
	copy(ordered, def)

	for _, p := range parents {
		ordered = mergeOverride(ordered, p.inject)
	}
	for _, st := range f.states {
		patch, err := st(rawValues(ordered), rc.parent)
		if err != nil {
			return nil, &ResolutionError{EntityType: f.typeName(), Reason: "state producer failed", Err: err}
		}
		ordered = mergeOverride(ordered, patch)
	}
	ordered = mergeOverride(ordered, seqStep)
	ordered = mergeOverride(ordered, rc.inject)
	ordered = mergeOverride(ordered, instance)
	ordered = mergeOverride(ordered, callOverrides)

	acc := make(Values, len(ordered))
	for _, attr := range ordered {
		v, err := f.evalValue(rc, attr.Value, acc)
		if err != nil {
			return nil, &ResolutionError{EntityType: f.typeName(), Field: attr.Name, Err: err}
		}
		acc[attr.Name] = v
	}
	return &Entity{Type: f.typeName(), Fields: acc}, nil
}

// evalValue turns one raw attribute value into a concrete one: producers are
// invoked with a copy of the accumulator-so-far, nested factories resolve as
// sub-records (identifier when creating, entity when making, embedded map for
// raw), literals pass through verbatim.
func (f *Factory) evalValue(rc *runContext, raw any, acc Values) (any, error) {
	switch v := raw.(type) {
	case Producer:
		return v(acc.Clone())
	case func(Values) (any, error):
		return v(acc.Clone())
	case func(Values) any:
		return v(acc.Clone()), nil
	case *Factory:
		e, err := v.runOne(rc.child(nil, nil))
		if err != nil {
			return nil, err
		}
		switch rc.mode {
		case rawMode:
			return e.Fields, nil
		case createMode:
			return e.ID, nil
		default:
			return e, nil
		}
	default:
		return raw, nil
	}
}

// runOne resolves a single entity regardless of the factory's configured count;
// belongs-to parents and nested factory attributes always yield one record.
func (f *Factory) runOne(rc *runContext) (*Entity, error) {
	col, err := f.withCountOne().run(rc, nil, nil)
	if err != nil {
		return nil, err
	}
	return col.First(), nil
}

// applyBindings runs the deferred has-many and attached bindings for one resolved
// (and, when creating, persisted) entity. Belongs-to bindings were applied before
// resolution.
func (f *Factory) applyBindings(rc *runContext, e *Entity) error {
	for _, b := range f.bindings {
		switch bind := b.(type) {
		case *hasManyBinding:
			fk := f.hasManyForeignKey(bind)
			col, err := bind.child.run(rc.child(e, Values{fk: e.ID}), nil, nil)
			if err != nil {
				return fmt.Errorf("fixture: has %q of %s: %w", bind.relation, f.typeName(), err)
			}
			e.attachRelated(bind.relation, col...)
		case *attachedBinding:
			col, err := bind.related.run(rc.child(e, nil), nil, nil)
			if err != nil {
				return fmt.Errorf("fixture: attach %q of %s: %w", bind.relation, f.typeName(), err)
			}
			if rc.mode == createMode {
				joinTable, ownerKey, relatedKey := f.attachedKeys(bind)
				pivots := bind.pivotSeq.fork()
				for _, related := range col {
					pivot := bind.pivot
					if pivots.Len() > 0 {
						pivot = pivots.Next()
					}
					record := JoinRecord{
						JoinTable:   joinTable,
						OwnerType:   f.typeName(),
						OwnerKey:    ownerKey,
						OwnerID:     e.ID,
						RelatedType: related.Type,
						RelatedKey:  relatedKey,
						RelatedID:   related.ID,
						Pivot:       pivot.Clone(),
					}
					if err := rc.repo.Link(rc.ctx, record); err != nil {
						return &PersistenceError{EntityType: f.typeName(), Relation: bind.relation, Err: err}
					}
				}
			}
			e.attachRelated(bind.relation, col...)
		}
	}
	return nil
}

func (f *Factory) hasManyForeignKey(bind *hasManyBinding) string {
	if bind.foreignKey != "" {
		return bind.foreignKey
	}
	if f.registry != nil {
		if rel, ok := f.registry.relationFor(f.typeName(), bind.relation); ok {
			if hm, ok := rel.(HasManyRel); ok && hm.ForeignKey != "" {
				return hm.ForeignKey
			}
		}
	}
	return f.convention().ForeignKey(f.typeName())
}

func (f *Factory) belongsToForeignKey(bind *belongsToBinding) string {
	if f.registry != nil {
		if rel, ok := f.registry.relationFor(f.typeName(), bind.relation); ok {
			if bt, ok := rel.(BelongsToRel); ok && bt.ForeignKey != "" {
				return bt.ForeignKey
			}
		}
	}
	return f.convention().ForeignKey(bind.parent.typeName())
}

func (f *Factory) morphFields(relation string) (string, string) {
	if f.registry != nil {
		if rel, ok := f.registry.relationFor(f.typeName(), relation); ok {
			if mt, ok := rel.(MorphToRel); ok && mt.TypeField != "" && mt.KeyField != "" {
				return mt.TypeField, mt.KeyField
			}
		}
	}
	return f.convention().MorphFields(relation)
}

func (f *Factory) attachedKeys(bind *attachedBinding) (joinTable, ownerKey, relatedKey string) {
	conv := f.convention()
	relatedType := bind.related.typeName()
	joinTable = conv.JoinTable(f.typeName(), relatedType)
	ownerKey = conv.ForeignKey(f.typeName())
	relatedKey = conv.ForeignKey(relatedType)
	if f.registry != nil {
		if rel, ok := f.registry.relationFor(f.typeName(), bind.relation); ok {
			if bm, ok := rel.(BelongsToManyRel); ok {
				if bm.JoinTable != "" {
					joinTable = bm.JoinTable
				}
				if bm.OwnerKey != "" {
					ownerKey = bm.OwnerKey
				}
				if bm.RelatedKey != "" {
					relatedKey = bm.RelatedKey
				}
			}
		}
	}
	return joinTable, ownerKey, relatedKey
}

func flattenOverrides(list []Values) Values {
	if len(list) == 0 {
		return nil
	}
	out := Values{}
	for _, v := range list {
		for k, val := range v {
			out[k] = val
		}
	}
	return out
}
