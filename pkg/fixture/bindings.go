package fixture

// A binding is a deferred graph-construction step applied once the owning entity
// has resolved (and, when creating, persisted). Bindings own their child/parent
// factory snapshots; resolved entities are transient.
type binding interface {
	isBinding()
}

// hasManyBinding creates children referencing the parent via a foreign key.
type hasManyBinding struct {
	child      *Factory
	relation   string
	foreignKey string // optional explicit override; declared/convention otherwise
}

// belongsToBinding resolves the parent first (once per terminal call) and injects
// its identifier into the pending child's foreign-key field before the child
// resolves. morph marks the polymorphic variant, which additionally injects the
// parent's entity type into a discriminator field.
type belongsToBinding struct {
	parent   *Factory
	relation string
	morph    bool
}

// attachedBinding persists related entities independently and links each one to
// the owner through a join record carrying pivot attributes. Exactly one of
// pivot/pivotSeq is set; a sequence walks its own cursor per binding application,
// independent of any sequence on the related factory.
type attachedBinding struct {
	related  *Factory
	relation string
	pivot    Values
	pivotSeq *Sequence
}

func (*hasManyBinding) isBinding()   {}
func (*belongsToBinding) isBinding() {}
func (*attachedBinding) isBinding()  {}
