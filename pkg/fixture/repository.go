package fixture

import "context"

// JoinRecord links an owner and a related entity through a many-to-many join
// table, carrying extra pivot attributes. Key names are resolved by the engine
// (declared relation first, naming convention otherwise) so repositories can
// materialize columns without guessing.
type JoinRecord struct {
	JoinTable   string `json:"join_table"`
	OwnerType   string `json:"owner_type"`
	OwnerKey    string `json:"owner_key"`
	OwnerID     any    `json:"owner_id"`
	RelatedType string `json:"related_type"`
	RelatedKey  string `json:"related_key"`
	RelatedID   any    `json:"related_id"`
	Pivot       Values `json:"pivot,omitempty"`
}

// Repository is the persistence adapter consumed by Create. Implementations must
// expose the persisted identifier on the entity so foreign keys can be injected
// into dependent records. Rollback of partially persisted batches is the
// repository's (or caller's) concern, not the engine's.
type Repository interface {
	// Save persists the entity, assigning its identifier onto e.ID (and the "id"
	// field when the definition did not provide one).
	Save(ctx context.Context, e *Entity) error
	// SaveMany persists entities in order, stopping at the first failure.
	SaveMany(ctx context.Context, entities []*Entity) error
	// Link persists one join record.
	Link(ctx context.Context, record JoinRecord) error
	// Count reports how many records of the entity type are stored.
	Count(ctx context.Context, entityType string) (int, error)
}
