package fixture

import (
	"context"
	"errors"
	"sync"
)

// staticBlueprint builds test blueprints without a struct type per entity.
type staticBlueprint struct {
	typ  string
	def  func(Data) Definition
	rels Relations
}

func (b staticBlueprint) Type() string                 { return b.typ }
func (b staticBlueprint) Definition(d Data) Definition { return b.def(d) }
func (b staticBlueprint) Relations() Relations         { return b.rels }

func userBP() Blueprint {
	return staticBlueprint{
		typ: "user",
		def: func(d Data) Definition {
			return Definition{
				{Name: "name", Value: d.Name()},
				{Name: "email", Value: d.Email()},
				{Name: "active", Value: true},
			}
		},
		rels: Relations{
			"posts": HasManyRel{Target: "post", ForeignKey: "author_id"},
		},
	}
}

func postBP() Blueprint {
	return staticBlueprint{
		typ: "post",
		def: func(d Data) Definition {
			return Definition{
				{Name: "title", Value: d.Sentence(3)},
				{Name: "published", Value: false},
			}
		},
		rels: Relations{
			"author": BelongsToRel{Target: "user", ForeignKey: "author_id"},
			"tags":   BelongsToManyRel{Target: "tag", JoinTable: "post_tag"},
		},
	}
}

func tagBP() Blueprint {
	return staticBlueprint{
		typ: "tag",
		def: func(d Data) Definition {
			return Definition{{Name: "name", Value: d.Word()}}
		},
	}
}

func commentBP() Blueprint {
	return staticBlueprint{
		typ: "comment",
		def: func(d Data) Definition {
			return Definition{{Name: "body", Value: d.Sentence(5)}}
		},
		rels: Relations{
			"commentable": MorphToRel{TypeField: "commentable_type", KeyField: "commentable_id"},
		},
	}
}

// fakeRepo is an in-test Repository assigning sequential int64 identifiers.
type fakeRepo struct {
	mu       sync.Mutex
	nextID   int64
	saved    []*Entity
	joins    []JoinRecord
	failSave bool
}

func (r *fakeRepo) Save(_ context.Context, e *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New("save refused")
	}
	r.nextID++
	e.ID = r.nextID
	e.Persisted = true
	e.Set("id", r.nextID)
	r.saved = append(r.saved, e)
	return nil
}

func (r *fakeRepo) SaveMany(ctx context.Context, entities []*Entity) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepo) Link(_ context.Context, record JoinRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, record)
	return nil
}

func (r *fakeRepo) Count(_ context.Context, entityType string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.saved {
		if e.Type == entityType {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) savedOfType(entityType string) []*Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Entity
	for _, e := range r.saved {
		if e.Type == entityType {
			out = append(out, e)
		}
	}
	return out
}

var _ Repository = (*fakeRepo)(nil)
