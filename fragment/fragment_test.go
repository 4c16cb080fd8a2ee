package fragment

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/geoarrow-go/box"
	"github.com/hugr-lab/geoarrow-go/geobuilder"
	"github.com/hugr-lab/geoarrow-go/geotype"
)

// scanFragment is a fragment with no advertised statistics, forcing
// BuildIndex down the scan-and-aggregate path.
type scanFragment struct {
	field  arrow.Field
	points [][2]float64
}

func (f scanFragment) Statistics(string) (Stats, bool) { return Stats{}, false }

func (f scanFragment) Scan(ctx context.Context) (array.RecordReader, error) {
	dt, err := geotype.Make(geotype.Point, geotype.XY, geotype.Separate)
	if err != nil {
		return nil, err
	}
	b, err := geobuilder.New(memory.DefaultAllocator, dt)
	if err != nil {
		return nil, err
	}
	for _, p := range f.points {
		if err := b.FeatureBegin(1); err != nil {
			return nil, err
		}
		if err := b.GeometryBegin(geotype.Point, geotype.XY); err != nil {
			return nil, err
		}
		if err := b.Coords([]float64{p[0]}, []float64{p[1]}, nil, nil, 1); err != nil {
			return nil, err
		}
		if err := b.GeometryEnd(); err != nil {
			return nil, err
		}
		if err := b.FeatureEnd(); err != nil {
			return nil, err
		}
	}
	col := b.NewArray()
	defer col.Release()

	schema := arrow.NewSchema([]arrow.Field{f.field}, nil)
	rec := array.NewRecord(schema, []arrow.Array{col}, int64(len(f.points)))
	defer rec.Release()
	return array.NewRecordReader(schema, []arrow.RecordBatch{rec})
}

// statsFragment advertises column statistics directly, so BuildIndex
// never has to scan it.
type statsFragment struct {
	bounds Stats
}

func (f statsFragment) Statistics(string) (Stats, bool) { return f.bounds, true }

func (f statsFragment) Scan(ctx context.Context) (array.RecordReader, error) {
	panic("Scan should not be called when statistics are advertised")
}

func geomField(name string) arrow.Field {
	dt, err := geotype.Make(geotype.Point, geotype.XY, geotype.Separate)
	if err != nil {
		panic(err)
	}
	st, err := dt.StorageType()
	if err != nil {
		panic(err)
	}
	return arrow.Field{Name: name, Type: st, Nullable: true}
}

func TestBuildIndexScansWhenNoStatistics(t *testing.T) {
	cols := []Column{{Name: "geom", Type: mustPointType(t)}}
	frags := []Fragment{
		scanFragment{field: geomField("geom"), points: [][2]float64{{0, 0}, {1, 1}}},
		scanFragment{field: geomField("geom"), points: [][2]float64{{5, 5}, {6, 7}}},
	}

	table, err := BuildIndex(context.Background(), frags, cols)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if table.Rows[0].FragmentIndex != 0 || table.Rows[1].FragmentIndex != 1 {
		t.Fatalf("fragment index order not preserved: %+v", table.Rows)
	}
	b0 := table.Rows[0].Columns["geom"]
	if b0 == nil || b0.XMin != 0 || b0.XMax != 1 || b0.YMin != 0 || b0.YMax != 1 {
		t.Fatalf("fragment 0 bounds = %+v, want {0,1,0,1}", b0)
	}
	b1 := table.Rows[1].Columns["geom"]
	if b1 == nil || b1.XMin != 5 || b1.XMax != 6 || b1.YMin != 5 || b1.YMax != 7 {
		t.Fatalf("fragment 1 bounds = %+v, want {5,6,5,7}", b1)
	}
}

func TestBuildIndexUsesAdvertisedStatistics(t *testing.T) {
	cols := []Column{{Name: "geom", Type: mustPointType(t)}}
	frags := []Fragment{
		statsFragment{bounds: Stats{XMin: 10, XMax: 20, YMin: -5, YMax: 5}},
	}

	table, err := BuildIndex(context.Background(), frags, cols)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	b := table.Rows[0].Columns["geom"]
	if b == nil || b.XMin != 10 || b.XMax != 20 {
		t.Fatalf("got %+v, want stats-derived bounds", b)
	}
}

func TestFilterFragmentsPrunesNonIntersecting(t *testing.T) {
	table := Table{Rows: []Row{
		{FragmentIndex: 0, Columns: map[string]*ColumnBounds{"geom": {XMin: 0, XMax: 1, YMin: 0, YMax: 1}}},
		{FragmentIndex: 1, Columns: map[string]*ColumnBounds{"geom": {XMin: 100, XMax: 101, YMin: 100, YMax: 101}}},
	}}
	query := box.Bounds{XMin: -1, XMax: 2, YMin: -1, YMax: 2}

	got := FilterFragments(table, query, []string{"geom"})
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("got %v, want [0]", got)
	}
}

func TestFilterFragmentsKeepsUnknownBounds(t *testing.T) {
	table := Table{Rows: []Row{
		{FragmentIndex: 0, Columns: map[string]*ColumnBounds{}},
	}}
	query := box.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	got := FilterFragments(table, query, []string{"geom"})
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("missing-stats fragment must not be pruned, got %v", got)
	}
}

func TestFilterFragmentsOrsAcrossColumns(t *testing.T) {
	table := Table{Rows: []Row{
		{FragmentIndex: 0, Columns: map[string]*ColumnBounds{
			"a": {XMin: 100, XMax: 101, YMin: 100, YMax: 101},
			"b": {XMin: 0, XMax: 1, YMin: 0, YMax: 1},
		}},
	}}
	query := box.Bounds{XMin: -1, XMax: 2, YMin: -1, YMax: 2}

	got := FilterFragments(table, query, []string{"a", "b"})
	if len(got) != 1 {
		t.Fatalf("column b's intersection should keep the fragment, got %v", got)
	}
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	table := Table{Rows: []Row{
		{FragmentIndex: 0, Columns: map[string]*ColumnBounds{"geom": {XMin: 0, XMax: 1, YMin: 0, YMax: 1}}},
		{FragmentIndex: 1, Columns: map[string]*ColumnBounds{"geom": nil}},
	}}

	blob, err := Snapshot(table)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	got, err := Load(blob)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(got.Rows))
	}
	b := got.Rows[0].Columns["geom"]
	if b == nil || b.XMin != 0 || b.XMax != 1 {
		t.Fatalf("round-tripped bounds = %+v, want {0,1,0,1}", b)
	}
	if got.Rows[1].Columns["geom"] != nil {
		t.Fatalf("nil column bounds did not round-trip as nil")
	}
}

func mustPointType(t *testing.T) geotype.GeometryDataType {
	t.Helper()
	dt, err := geotype.Make(geotype.Point, geotype.XY, geotype.Separate)
	if err != nil {
		t.Fatalf("geotype.Make: %v", err)
	}
	return dt
}
