package fixture

import (
	"sort"
	"strings"
)

// Relation declares one named association of an entity type. The declared table is
// the dispatch surface for the dynamic HasRelated/ForParent forms: relation names
// resolve through it at configuration time, never through runtime name parsing.
type Relation interface {
	relation()
}

// HasManyRel declares a parent-to-children association. ForeignKey overrides the
// convention-derived key on the child pointing back at the parent.
type HasManyRel struct {
	Target     string
	ForeignKey string
}

// BelongsToRel declares a child-to-parent association.
type BelongsToRel struct {
	Target     string
	ForeignKey string
}

// BelongsToManyRel declares a many-to-many association with a join table.
type BelongsToManyRel struct {
	Target     string
	JoinTable  string
	OwnerKey   string
	RelatedKey string
}

// MorphToRel declares a polymorphic child-to-parent association: the parent's
// entity type is stored in TypeField alongside the foreign key in KeyField.
type MorphToRel struct {
	TypeField string
	KeyField  string
}

func (HasManyRel) relation()       {}
func (BelongsToRel) relation()     {}
func (BelongsToManyRel) relation() {}
func (MorphToRel) relation()       {}

// Relations maps relation names to declarations for one entity type.
type Relations map[string]Relation

// RelationDeclarer is implemented by blueprints that declare relations for the
// dynamic relationship forms.
type RelationDeclarer interface {
	Relations() Relations
}

// Convention derives names the registry needs when a relation declaration leaves
// them out. It is an explicit, injected strategy: each registry carries its own
// instance, there is no package-level mutable convention.
type Convention interface {
	// ForeignKey names the field referencing an entity of the given type.
	ForeignKey(entityType string) string
	// JoinTable names the join table linking two entity types.
	JoinTable(ownerType, relatedType string) string
	// MorphFields names the type-discriminator and key fields of a polymorphic
	// relation.
	MorphFields(relation string) (typeField, keyField string)
}

// DefaultConvention implements the stock naming scheme: <type>_id foreign keys,
// alphabetically joined join tables, <relation>_type/<relation>_id morph fields.
type DefaultConvention struct{}

// ForeignKey implements Convention.
func (DefaultConvention) ForeignKey(entityType string) string {
	return entityType + "_id"
}

// JoinTable implements Convention.
func (DefaultConvention) JoinTable(ownerType, relatedType string) string {
	pair := []string{ownerType, relatedType}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// MorphFields implements Convention.
func (DefaultConvention) MorphFields(relation string) (string, string) {
	return relation + "_type", relation + "_id"
}
