package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/domain"
)

type call struct {
	cypher string
	params map[string]any
	inTx   bool
}

type fakeResult struct {
	records []*neo4j.Record
	i       int
	err     error
}

func (r *fakeResult) Next(context.Context) bool {
	if r.i >= len(r.records) {
		return false
	}
	r.i++
	return true
}

func (r *fakeResult) Record() *neo4j.Record { return r.records[r.i-1] }
func (r *fakeResult) Err() error            { return r.err }

type fakeSession struct {
	calls     []call
	runResult *fakeResult
	runErr    error
	failAt    int // 1-based tx statement that fails; 0 never
	committed bool
	closed    bool
}

func (s *fakeSession) Run(_ context.Context, cypher string, params map[string]any) (Result, error) {
	s.calls = append(s.calls, call{cypher: cypher, params: params})
	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.runResult, nil
}

type fakeTx struct{ s *fakeSession }

func (t fakeTx) Run(_ context.Context, cypher string, params map[string]any) (Result, error) {
	t.s.calls = append(t.s.calls, call{cypher: cypher, params: params, inTx: true})
	if t.s.failAt > 0 && len(t.s.calls) == t.s.failAt {
		return nil, errors.New("constraint violated")
	}
	return &fakeResult{}, nil
}

func (s *fakeSession) ExecuteWrite(_ context.Context, work func(Tx) error) error {
	if err := work(fakeTx{s}); err != nil {
		return err
	}
	s.committed = true
	return nil
}

func (s *fakeSession) Close(context.Context) error {
	s.closed = true
	return nil
}

type fakeOpener struct{ sess *fakeSession }

func (o fakeOpener) OpenSession(context.Context) Session { return o.sess }

const testVehicles = `{
  "manufacturers": {"volkswagen": ["Golf", "T-Roc"]},
  "models": {"volkswagen": {
    "golf": {"2013-2016": ["2.0 TDI - 150hp", "1.6 Mystery - 90hp"], "2020+": ["2.0 TSI GTI - 245hp"]}
  }}
}`

func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	v, err := catalog.DecodeVehicles(strings.NewReader(testVehicles), catalog.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	engines := catalog.EngineCatalogue{
		"2.0-tdi-150hp": {Capacity: "2.0", Cylinders: 4, FuelType: domain.FuelDiesel,
			Stock: domain.Performance{Power: 150, Torque: 340}, Stage1: domain.Performance{Power: 190, Torque: 400}},
		"2.0-tsi-245hp": {Capacity: "2.0", Cylinders: 4, FuelType: domain.FuelPetrol,
			Stock: domain.Performance{Power: 245, Torque: 370}, Stage1: domain.Performance{Power: 310, Torque: 420},
			Stage2: &domain.Performance{Power: 340, Torque: 450}},
	}
	snap, err := catalog.NewSnapshot(v, engines, "v-test")
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestFlatten(t *testing.T) {
	r := flatten(testSnapshot(t))

	if diff := cmp.Diff(SyncStats{Makes: 1, Models: 1, YearRanges: 2, Options: 3, Engines: 2, Resolutions: 2, Version: "v"}, r.stats("v")); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	if got := r.models[0]["name"]; got != "Golf" {
		t.Errorf("model display name = %v", got)
	}
	wantYR := map[string]any{"id": "volkswagen/golf/2020+", "model": "volkswagen/golf", "range": "2020+", "from": int64(2020), "open": true}
	if diff := cmp.Diff(wantYR, r.yearRanges[1]); diff != "" {
		t.Errorf("open year range (-want +got):\n%s", diff)
	}
	wantRes := []map[string]any{
		{"option": "volkswagen/golf/2013-2016#2.0 TDI - 150hp", "engine": "2.0-tdi-150hp", "tier": "exact"},
		{"option": "volkswagen/golf/2020+#2.0 TSI GTI - 245hp", "engine": "2.0-tsi-245hp", "tier": "variant"},
	}
	if diff := cmp.Diff(wantRes, r.resolutions); diff != "" {
		t.Errorf("resolutions (-want +got):\n%s", diff)
	}
	if _, ok := r.engines[0]["stage2Power"]; ok {
		t.Error("stage2 set for an engine without one")
	}
	if r.engines[1]["stage2Power"] != 340.0 {
		t.Errorf("stage2 = %v", r.engines[1]["stage2Power"])
	}
}

func TestSyncCatalogue(t *testing.T) {
	sess := &fakeSession{}
	st, err := New(fakeOpener{sess}, nil).SyncCatalogue(context.Background(), testSnapshot(t))
	if err != nil {
		t.Fatal(err)
	}
	if !sess.committed || !sess.closed {
		t.Errorf("committed=%v closed=%v", sess.committed, sess.closed)
	}
	if st.Version != "v-test" || st.Options != 3 {
		t.Errorf("stats = %+v", st)
	}
	// six UNWIND batches plus the catalogue marker
	if len(sess.calls) != 7 {
		t.Fatalf("statements = %d, want 7", len(sess.calls))
	}
	for i, c := range sess.calls {
		if !c.inTx {
			t.Errorf("statement %d ran outside the transaction", i)
		}
	}
	if !strings.Contains(sess.calls[5].cypher, "RESOLVES_TO") {
		t.Errorf("resolutions must be written after engines:\n%s", sess.calls[5].cypher)
	}
	if got := sess.calls[6].params["version"]; got != "v-test" {
		t.Errorf("marker version = %v", got)
	}
}

func TestSyncCatalogueSkipsEmptyBatches(t *testing.T) {
	sess := &fakeSession{}
	snap, err := catalog.NewSnapshot(&catalog.VehicleCatalogue{}, catalog.EngineCatalogue{}, "empty")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(fakeOpener{sess}, nil).SyncCatalogue(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	if len(sess.calls) != 1 {
		t.Errorf("statements = %d, want only the marker", len(sess.calls))
	}
}

func TestSyncCatalogueError(t *testing.T) {
	sess := &fakeSession{failAt: 3}
	_, err := New(fakeOpener{sess}, nil).SyncCatalogue(context.Background(), testSnapshot(t))
	if err == nil || !strings.Contains(err.Error(), "statement 2") {
		t.Fatalf("err = %v", err)
	}
	if sess.committed {
		t.Error("failed sync committed")
	}
	if !sess.closed {
		t.Error("session not closed")
	}
}

func TestNodeCounts(t *testing.T) {
	sess := &fakeSession{runResult: &fakeResult{records: []*neo4j.Record{
		{Keys: []string{"type", "count"}, Values: []any{"Make", int64(18)}},
		{Keys: []string{"type", "count"}, Values: []any{"EngineSpec", int64(49)}},
		{Keys: []string{"type", "count"}, Values: []any{nil, int64(3)}},
	}}}
	got, err := New(fakeOpener{sess}, nil).NodeCounts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]int64{"Make": 18, "EngineSpec": 49}, got); diff != "" {
		t.Errorf("NodeCounts (-want +got):\n%s", diff)
	}
	if !sess.closed {
		t.Error("session not closed")
	}
}

func TestRelationshipCountsError(t *testing.T) {
	sess := &fakeSession{runErr: errors.New("unavailable")}
	if _, err := New(fakeOpener{sess}, nil).RelationshipCounts(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(sess.calls[0].cypher, "type(r)") {
		t.Errorf("unexpected query %q", sess.calls[0].cypher)
	}
}
