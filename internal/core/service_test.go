package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	blobmemory "seedcore/internal/infra/blob/memory"
	"seedcore/internal/infra/persistence/memory"
	"seedcore/pkg/fixture"
)

type testBlueprint struct {
	typ string
	def func(fixture.Data) fixture.Definition
}

func (b testBlueprint) Type() string { return b.typ }

func (b testBlueprint) Definition(d fixture.Data) fixture.Definition { return b.def(d) }

func seedRegistry() *fixture.Registry {
	reg := fixture.NewRegistry()
	reg.Register(
		testBlueprint{typ: "user", def: func(d fixture.Data) fixture.Definition {
			return fixture.Definition{
				{Name: "name", Value: d.Name()},
				{Name: "email", Value: d.Email()},
			}
		}},
		testBlueprint{typ: "tag", def: func(d fixture.Data) fixture.Definition {
			return fixture.Definition{{Name: "name", Value: d.Word()}}
		}},
	)
	return reg
}

func TestSeederRunExecutesPlansInOrder(t *testing.T) {
	reg := seedRegistry()
	repo := memory.NewStore()
	rec := NewExpvarMetricsRecorder("")
	var traceBuf bytes.Buffer
	seeder := NewSeeder(repo,
		WithMetrics(rec),
		WithTracer(NewJSONTracer(&traceBuf)),
	)

	report, err := seeder.Run(context.Background(),
		Plan{Label: "users", Factory: reg.MustFactory("user"), Count: 3},
		Plan{Label: "tags", Factory: reg.MustFactory("tag"), Count: 2},
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RunID == "" {
		t.Fatalf("run id missing")
	}
	if report.Created != 5 {
		t.Fatalf("created: got %d, want 5", report.Created)
	}
	if len(report.Collections["users"]) != 3 || len(report.Collections["tags"]) != 2 {
		t.Fatalf("collections: %d users, %d tags",
			len(report.Collections["users"]), len(report.Collections["tags"]))
	}
	if n, _ := repo.Count(context.Background(), "user"); n != 3 {
		t.Fatalf("repository users: got %d", n)
	}

	snap := rec.Snapshot()
	if snap.Created["users"] != 3 || snap.Created["tags"] != 2 {
		t.Fatalf("metrics created: %+v", snap.Created)
	}
	if snap.Results["users"]["success"] != 1 {
		t.Fatalf("metrics results: %+v", snap.Results)
	}

	var first JSONTraceEntry
	if err := json.NewDecoder(&traceBuf).Decode(&first); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	if first.Operation != "seed.users" || first.Status != "success" {
		t.Fatalf("trace entry: %+v", first)
	}
}

func TestSeederRunWithPerInstanceOverrides(t *testing.T) {
	reg := seedRegistry()
	seeder := NewSeeder(memory.NewStore())

	report, err := seeder.Run(context.Background(), Plan{
		Label:   "named-users",
		Factory: reg.MustFactory("user"),
		Overrides: []fixture.Values{
			{"name": "Ada"},
			{"name": "Grace"},
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	col := report.Collections["named-users"]
	if len(col) != 2 || col[0].Get("name") != "Ada" || col[1].Get("name") != "Grace" {
		t.Fatalf("overrides not applied: %v", col.Pluck("name"))
	}
}

func TestSeederExportsSnapshots(t *testing.T) {
	reg := seedRegistry()
	blobs := blobmemory.NewStore()
	seeder := NewSeeder(memory.NewStore(), WithSnapshotStore(blobs))

	report, err := seeder.Run(context.Background(),
		Plan{Label: "users", Factory: reg.MustFactory("user"), Count: 2},
		Plan{Label: "tags", Factory: reg.MustFactory("tag"), Count: 1},
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Snapshots) != 2 {
		t.Fatalf("snapshot infos: got %d, want 2", len(report.Snapshots))
	}

	key := fmt.Sprintf("snapshots/%s/user.json", report.RunID)
	_, data, err := blobs.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get snapshot %s: %v", key, err)
	}
	var rows []fixture.Values
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(rows) != 2 || rows[0]["id"] == nil {
		t.Fatalf("snapshot rows: %v", rows)
	}
}

func TestSeederFailedPlanAbortsRun(t *testing.T) {
	reg := seedRegistry()
	failing := testBlueprint{typ: "broken", def: func(fixture.Data) fixture.Definition {
		return fixture.Definition{
			{Name: "x", Value: fixture.Producer(func(fixture.Values) (any, error) {
				return nil, errors.New("produce refused")
			})},
		}
	}}
	reg.Register(failing)

	rec := NewExpvarMetricsRecorder("")
	seeder := NewSeeder(memory.NewStore(), WithMetrics(rec))

	_, err := seeder.Run(context.Background(),
		Plan{Label: "broken", Factory: reg.MustFactory("broken"), Count: 1},
		Plan{Label: "users", Factory: reg.MustFactory("user"), Count: 1},
	)
	if err == nil {
		t.Fatalf("expected plan failure")
	}
	snap := rec.Snapshot()
	if snap.Results["broken"]["error"] != 1 {
		t.Fatalf("error not recorded: %+v", snap.Results)
	}
	if _, ok := snap.Results["users"]; ok {
		t.Fatalf("later plans should not run after a failure")
	}
}

func TestSeederRejectsNilFactory(t *testing.T) {
	seeder := NewSeeder(memory.NewStore())
	if _, err := seeder.Run(context.Background(), Plan{Label: "empty"}); err == nil {
		t.Fatalf("nil factory should fail")
	}
}
