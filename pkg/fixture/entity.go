package fixture

// Entity is one resolved record: a concrete field map plus, once persisted, the
// identifier assigned by the repository. Related holds entities produced by
// relationship bindings, keyed by relation name, in creation order.
type Entity struct {
	Type      string               `json:"type"`
	Fields    Values               `json:"fields"`
	ID        any                  `json:"id,omitempty"`
	Persisted bool                 `json:"persisted"`
	Related   map[string][]*Entity `json:"related,omitempty"`
}

// Get returns the named field value, or nil when absent.
func (e *Entity) Get(name string) any {
	if e == nil || e.Fields == nil {
		return nil
	}
	return e.Fields[name]
}

// Set assigns a field value in place.
func (e *Entity) Set(name string, value any) {
	if e.Fields == nil {
		e.Fields = Values{}
	}
	e.Fields[name] = value
}

// RelatedOne returns the first entity attached under the relation, or nil.
func (e *Entity) RelatedOne(relation string) *Entity {
	rel := e.Related[relation]
	if len(rel) == 0 {
		return nil
	}
	return rel[0]
}

func (e *Entity) attachRelated(relation string, entities ...*Entity) {
	if e.Related == nil {
		e.Related = make(map[string][]*Entity)
	}
	e.Related[relation] = append(e.Related[relation], entities...)
}

// Collection is an ordered batch of entities preserving creation order.
type Collection []*Entity

// First returns the first entity, or nil for an empty collection.
func (c Collection) First() *Entity {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// IDs returns the persisted identifiers in creation order.
func (c Collection) IDs() []any {
	out := make([]any, 0, len(c))
	for _, e := range c {
		out = append(out, e.ID)
	}
	return out
}

// Pluck returns the named field of every entity in creation order.
func (c Collection) Pluck(name string) []any {
	out := make([]any, 0, len(c))
	for _, e := range c {
		out = append(out, e.Get(name))
	}
	return out
}
