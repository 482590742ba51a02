package fixture

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestConfigurationIsCopyOnWrite(t *testing.T) {
	base := New(userBP())
	admins := base.Set(Values{"role": "admin"})
	guests := base.Set(Values{"role": "guest"})

	a, err := admins.RawOne()
	if err != nil {
		t.Fatalf("admins raw: %v", err)
	}
	g, err := guests.RawOne()
	if err != nil {
		t.Fatalf("guests raw: %v", err)
	}
	if a["role"] != "admin" || g["role"] != "guest" {
		t.Fatalf("branched factories leaked state: %v / %v", a["role"], g["role"])
	}
	b, err := base.RawOne()
	if err != nil {
		t.Fatalf("base raw: %v", err)
	}
	if _, ok := b["role"]; ok {
		t.Fatalf("base factory gained a role from a derived chain: %v", b["role"])
	}
}

func TestProducerSeesEarlierSiblings(t *testing.T) {
	bp := staticBlueprint{
		typ: "account",
		def: func(Data) Definition {
			return Definition{
				{Name: "handle", Value: "ada"},
				{Name: "email", Value: Producer(func(attrs Values) (any, error) {
					return fmt.Sprintf("%v@example.org", attrs["handle"]), nil
				})},
				{Name: "upstream", Value: Producer(func(attrs Values) (any, error) {
					// Declared after email, sees it; nothing later is visible.
					if attrs["email"] != "ada@example.org" {
						return nil, fmt.Errorf("email not resolved yet: %v", attrs["email"])
					}
					return attrs["missing"], nil
				})},
			}
		},
	}
	got, err := New(bp).RawOne()
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if got["email"] != "ada@example.org" {
		t.Fatalf("email: got %v", got["email"])
	}
	if got["upstream"] != nil {
		t.Fatalf("later fields must be invisible to earlier producers, got %v", got["upstream"])
	}
}

func TestLayeringOrder(t *testing.T) {
	bp := staticBlueprint{
		typ: "doc",
		def: func(Data) Definition {
			return Definition{{Name: "status", Value: "draft"}}
		},
	}
	f := New(bp).
		State(func(Values, *Entity) (Values, error) {
			return Values{"status": "stated", "reviewed": false}, nil
		}).
		WithSequence(Values{"status": "sequenced"})

	got, err := f.RawOne()
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if got["status"] != "sequenced" {
		t.Fatalf("sequence should override state: %v", got["status"])
	}
	if got["reviewed"] != false {
		t.Fatalf("state-added field missing: %v", got["reviewed"])
	}

	got, err = f.RawOne(Values{"status": "called"})
	if err != nil {
		t.Fatalf("raw with override: %v", err)
	}
	if got["status"] != "called" {
		t.Fatalf("call override should win over every layer: %v", got["status"])
	}
}

func TestStateReceivesRawLayer(t *testing.T) {
	bp := staticBlueprint{
		typ: "doc",
		def: func(Data) Definition {
			return Definition{
				{Name: "title", Value: "fixed"},
				{Name: "slug", Value: Producer(func(Values) (any, error) { return "deferred", nil })},
			}
		},
	}
	f := New(bp).State(func(attrs Values, parent *Entity) (Values, error) {
		if parent != nil {
			t.Fatalf("standalone resolution should have no parent")
		}
		if attrs["title"] != "fixed" {
			t.Fatalf("state should see literal defaults: %v", attrs["title"])
		}
		if _, ok := attrs["slug"].(Producer); !ok {
			t.Fatalf("state should see deferred values unevaluated, got %T", attrs["slug"])
		}
		return nil, nil
	})
	if _, err := f.RawOne(); err != nil {
		t.Fatalf("raw: %v", err)
	}
}

func TestSequenceCursorLocalToTerminalCall(t *testing.T) {
	f := New(tagBP()).Count(3).WithSequence(Values{"n": 1}, Values{"n": 2})

	for call := 0; call < 2; call++ {
		maps, err := f.Raw()
		if err != nil {
			t.Fatalf("call %d: %v", call, err)
		}
		want := []int{1, 2, 1}
		for i, m := range maps {
			if m["n"] != want[i] {
				t.Fatalf("call %d instance %d: got %v, want %d", call, i, m["n"], want[i])
			}
		}
	}
}

func TestMakeResolvesWithoutPersisting(t *testing.T) {
	repo := &fakeRepo{}
	var afterMakeRan, afterCreateRan bool
	f := New(userBP()).
		UsingRepository(repo).
		AfterMaking(func(e, _ *Entity) error {
			afterMakeRan = true
			return nil
		}).
		AfterCreating(func(e, _ *Entity) error {
			afterCreateRan = true
			return nil
		})

	e, err := f.MakeOne()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if e.Persisted || e.ID != nil {
		t.Fatalf("make must not persist: persisted=%v id=%v", e.Persisted, e.ID)
	}
	if len(repo.saved) != 0 {
		t.Fatalf("repository touched by make: %d saves", len(repo.saved))
	}
	if !afterMakeRan {
		t.Fatalf("after-making hook did not run")
	}
	if afterCreateRan {
		t.Fatalf("after-creating hook must not run on make")
	}
}

func TestCreatePersistsAndOrdersHooks(t *testing.T) {
	repo := &fakeRepo{}
	var sawUnpersisted, sawPersisted bool
	f := New(userBP()).
		UsingRepository(repo).
		AfterMaking(func(e, _ *Entity) error {
			sawUnpersisted = !e.Persisted && e.ID == nil
			return nil
		}).
		AfterCreating(func(e, _ *Entity) error {
			sawPersisted = e.Persisted && e.ID != nil
			return nil
		})

	e, err := f.CreateOne(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !e.Persisted || e.ID != int64(1) {
		t.Fatalf("entity not persisted: persisted=%v id=%v", e.Persisted, e.ID)
	}
	if !sawUnpersisted {
		t.Fatalf("after-making should fire before persistence")
	}
	if !sawPersisted {
		t.Fatalf("after-creating should fire after persistence")
	}
}

func TestCreateManyUsesPerInstanceOverrides(t *testing.T) {
	repo := &fakeRepo{}
	col, err := New(userBP()).UsingRepository(repo).CreateMany(context.Background(), []Values{
		{"name": "Ada"},
		{"name": "Grace"},
		{"name": "Barbara"},
	})
	if err != nil {
		t.Fatalf("create many: %v", err)
	}
	if len(col) != 3 {
		t.Fatalf("batch size: got %d, want 3", len(col))
	}
	want := []string{"Ada", "Grace", "Barbara"}
	for i, e := range col {
		if e.Get("name") != want[i] {
			t.Fatalf("instance %d: got %v, want %s", i, e.Get("name"), want[i])
		}
	}
}

func TestNestedFactoryAttributePerMode(t *testing.T) {
	userF := New(userBP())
	bp := staticBlueprint{
		typ: "post",
		def: func(Data) Definition {
			return Definition{
				{Name: "title", Value: "t"},
				{Name: "author", Value: userF},
			}
		},
	}

	raw, err := New(bp).RawOne()
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if _, ok := raw["author"].(Values); !ok {
		t.Fatalf("raw should embed the nested record as a map, got %T", raw["author"])
	}

	made, err := New(bp).MakeOne()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if _, ok := made.Get("author").(*Entity); !ok {
		t.Fatalf("make should embed the nested entity, got %T", made.Get("author"))
	}

	repo := &fakeRepo{}
	created, err := New(bp).UsingRepository(repo).CreateOne(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Get("author") != int64(1) {
		t.Fatalf("create should substitute the persisted identifier, got %v", created.Get("author"))
	}
	if len(repo.savedOfType("user")) != 1 {
		t.Fatalf("nested user not persisted")
	}
	// Nested record saved before the record embedding its identifier.
	if repo.saved[0].Type != "user" || repo.saved[1].Type != "post" {
		t.Fatalf("persistence order wrong: %s then %s", repo.saved[0].Type, repo.saved[1].Type)
	}
}

func TestCountZeroYieldsEmptyBatch(t *testing.T) {
	repo := &fakeRepo{}
	col, err := New(userBP()).UsingRepository(repo).Count(0).Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(col) != 0 || len(repo.saved) != 0 {
		t.Fatalf("count zero should produce nothing: %d entities, %d saves", len(col), len(repo.saved))
	}
}

func TestNegativeCountIsDeferredConfigurationError(t *testing.T) {
	base := New(userBP())
	bad := base.Count(-1)
	if _, err := bad.Make(); err == nil {
		t.Fatalf("expected configuration error")
	} else {
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("got %T, want *ConfigurationError", err)
		}
	}
	// The originating factory stays usable.
	if _, err := base.MakeOne(); err != nil {
		t.Fatalf("base factory poisoned by failed derivation: %v", err)
	}
}

func TestEmptySequenceIsConfigurationError(t *testing.T) {
	_, err := New(userBP()).WithSequence().Make()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want *ConfigurationError", err)
	}
}

func TestCreateWithoutRepositoryFails(t *testing.T) {
	_, err := New(userBP()).Create(context.Background())
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want *ConfigurationError", err)
	}
}

func TestProducerErrorWrapsField(t *testing.T) {
	boom := errors.New("boom")
	bp := staticBlueprint{
		typ: "doc",
		def: func(Data) Definition {
			return Definition{
				{Name: "bad", Value: Producer(func(Values) (any, error) { return nil, boom })},
			}
		},
	}
	_, err := New(bp).RawOne()
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("got %v, want *ResolutionError", err)
	}
	if resErr.Field != "bad" {
		t.Fatalf("field: got %q, want bad", resErr.Field)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("producer error should be wrapped: %v", err)
	}
}

func TestStateErrorSurfacesAsResolutionError(t *testing.T) {
	f := New(userBP()).State(func(Values, *Entity) (Values, error) {
		return nil, errors.New("state refused")
	})
	_, err := f.MakeOne()
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("got %v, want *ResolutionError", err)
	}
}

func TestCircularDefinitionFailsFast(t *testing.T) {
	var self *Factory
	bp := staticBlueprint{
		typ: "node",
		def: func(Data) Definition {
			return Definition{{Name: "parent", Value: self}}
		},
	}
	self = New(bp)
	_, err := self.MakeOne()
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("got %v, want *ResolutionError", err)
	}
}

func TestAfterCreatingErrorAborts(t *testing.T) {
	repo := &fakeRepo{}
	f := New(userBP()).UsingRepository(repo).AfterCreating(func(*Entity, *Entity) error {
		return errors.New("hook refused")
	})
	if _, err := f.CreateOne(context.Background()); err == nil {
		t.Fatalf("expected hook error to propagate")
	}
}

func TestSaveFailureWrapsPersistenceError(t *testing.T) {
	repo := &fakeRepo{failSave: true}
	_, err := New(userBP()).UsingRepository(repo).CreateOne(context.Background())
	var perErr *PersistenceError
	if !errors.As(err, &perErr) {
		t.Fatalf("got %v, want *PersistenceError", err)
	}
	if perErr.EntityType != "user" {
		t.Fatalf("entity type: got %q", perErr.EntityType)
	}
}

func TestBareFuncValuesAreDeferred(t *testing.T) {
	bp := staticBlueprint{
		typ: "doc",
		def: func(Data) Definition {
			return Definition{
				{Name: "a", Value: func(Values) any { return "plain" }},
				{Name: "b", Value: func(Values) (any, error) { return "fallible", nil }},
			}
		},
	}
	got, err := New(bp).RawOne()
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if got["a"] != "plain" || got["b"] != "fallible" {
		t.Fatalf("bare func values not evaluated: %v / %v", got["a"], got["b"])
	}
}
