package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dynquery/internal/catalog"
	"dynquery/internal/mapping"
	"dynquery/internal/planner"
	"dynquery/internal/queryspec"
	"dynquery/internal/rowmap"
)

// fakeStore records the plans it receives and answers with canned data.
type fakeStore struct {
	mu         sync.Mutex
	rows       []rowmap.Row
	count      uint64
	err        error
	plans      []*planner.Plan
	countPlans []*planner.CountPlan
	snapshots  int
	block      bool
}

func (s *fakeStore) Execute(ctx context.Context, plan *planner.Plan) ([]rowmap.Row, error) {
	s.mu.Lock()
	s.plans = append(s.plans, plan)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, normalizeStoreError(ctx.Err())
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func (s *fakeStore) ExecuteCount(ctx context.Context, plan *planner.CountPlan) (uint64, error) {
	s.mu.Lock()
	s.countPlans = append(s.countPlans, plan)
	s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.count, nil
}

func (s *fakeStore) Snapshot(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	s.snapshots++
	s.mu.Unlock()
	return fn(s)
}

func newRegistry(t *testing.T) (*mapping.Registry, catalog.Mappings) {
	t.Helper()
	r := mapping.NewRegistry()
	ms, err := catalog.Register(r)
	require.NoError(t, err)
	r.Seal()
	return r, ms
}

func cond(field string, op queryspec.Operator, value any) queryspec.Predicate {
	return queryspec.MustCond(field, op, value)
}
