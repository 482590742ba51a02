package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"seedcore/internal/blob"
)

// Plan names one unit of seeding work: a factory run with a count and
// optional per-instance overrides.
type Plan struct {
	Label     string
	Factory   *Factory
	Count     int
	Overrides []Values
}

// Report summarizes a completed seed run.
type Report struct {
	RunID       string                `json:"run_id"`
	Created     int                   `json:"created"`
	Collections map[string]Collection `json:"-"`
	Snapshots   []blob.Info           `json:"snapshots,omitempty"`
}

// Seeder executes seed plans against a repository, recording metrics and
// traces per plan and optionally exporting run snapshots to a blob store.
type Seeder struct {
	repo      Repository
	metrics   []MetricsRecorder
	tracer    Tracer
	snapshots blob.Store
}

// SeederOption configures a Seeder at construction time.
type SeederOption func(*Seeder)

// WithMetrics appends a metrics recorder. Multiple recorders all observe
// every plan, so expvar and Prometheus can run side by side.
func WithMetrics(rec MetricsRecorder) SeederOption {
	return func(s *Seeder) {
		if rec != nil {
			s.metrics = append(s.metrics, rec)
		}
	}
}

// WithTracer installs a tracer for per-plan spans.
func WithTracer(tr Tracer) SeederOption {
	return func(s *Seeder) { s.tracer = tr }
}

// WithSnapshotStore enables snapshot export after successful runs.
func WithSnapshotStore(store blob.Store) SeederOption {
	return func(s *Seeder) { s.snapshots = store }
}

// NewSeeder constructs a seeder backed by the supplied repository.
func NewSeeder(repo Repository, opts ...SeederOption) *Seeder {
	s := &Seeder{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the plans in order. All created entities land in the report
// keyed by plan label; a failed plan aborts the run and returns the partial
// report alongside the error.
func (s *Seeder) Run(ctx context.Context, plans ...Plan) (Report, error) {
	report := Report{
		RunID:       uuid.NewString(),
		Collections: make(map[string]Collection, len(plans)),
	}
	for _, plan := range plans {
		col, err := s.runPlan(ctx, plan)
		report.Collections[plan.Label] = col
		report.Created += len(col)
		if err != nil {
			return report, fmt.Errorf("plan %s: %w", plan.Label, err)
		}
	}
	if s.snapshots != nil {
		infos, err := s.exportSnapshots(ctx, report)
		if err != nil {
			return report, fmt.Errorf("export snapshots: %w", err)
		}
		report.Snapshots = infos
	}
	return report, nil
}

func (s *Seeder) runPlan(ctx context.Context, plan Plan) (Collection, error) {
	if plan.Factory == nil {
		return nil, fmt.Errorf("plan %s has no factory", plan.Label)
	}
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "seed."+plan.Label)
	}
	started := time.Now()

	f := plan.Factory.UsingRepository(s.repo)
	if plan.Count > 0 {
		f = f.Count(plan.Count)
	}
	var col Collection
	var err error
	if len(plan.Overrides) > 0 {
		col, err = f.CreateMany(ctx, plan.Overrides)
	} else {
		col, err = f.Create(ctx)
	}

	duration := time.Since(started)
	for _, rec := range s.metrics {
		rec.Observe(ctx, plan.Label, err == nil, len(col), duration)
	}
	if span != nil {
		span.End(err)
	}
	return col, err
}

// exportSnapshots groups the run's entities by type and writes one JSON blob
// per type under snapshots/<run-id>/.
func (s *Seeder) exportSnapshots(ctx context.Context, report Report) ([]blob.Info, error) {
	byType := make(map[string][]Values)
	for _, col := range report.Collections {
		for _, e := range col {
			fields := e.Fields.Clone()
			fields["id"] = e.ID
			byType[e.Type] = append(byType[e.Type], fields)
		}
	}
	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	sort.Strings(types)

	infos := make([]blob.Info, 0, len(types))
	for _, typ := range types {
		payload, err := json.MarshalIndent(byType[typ], "", "  ")
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("snapshots/%s/%s.json", report.RunID, typ)
		info, err := s.snapshots.Put(ctx, key, payload, "application/json")
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
