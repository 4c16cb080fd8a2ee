package geobuilder

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/geoarrow-go/arrview"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/visitor"
)

func mustDataType(t *testing.T, gt geotype.GeometryType, dims geotype.Dimensions, ct geotype.CoordType) geotype.GeometryDataType {
	t.Helper()
	dt, err := geotype.Make(gt, dims, ct)
	if err != nil {
		t.Fatalf("geotype.Make: %v", err)
	}
	return dt
}

func TestBuildPoint(t *testing.T) {
	dt := mustDataType(t, geotype.Point, geotype.XY, geotype.Separate)
	b, err := New(memory.DefaultAllocator, dt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := b.FeatureBegin(1); err != nil {
		t.Fatal(err)
	}
	if err := b.GeometryBegin(geotype.Point, geotype.XY); err != nil {
		t.Fatal(err)
	}
	if err := b.Coords([]float64{30}, []float64{10}, nil, nil, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.GeometryEnd(); err != nil {
		t.Fatal(err)
	}
	if err := b.FeatureEnd(); err != nil {
		t.Fatal(err)
	}
	if err := b.FeatureBegin(1); err != nil {
		t.Fatal(err)
	}
	if err := b.NullFeature(); err != nil {
		t.Fatal(err)
	}
	if err := b.FeatureEnd(); err != nil {
		t.Fatal(err)
	}

	arr := b.NewArray()
	defer arr.Release()
	if arr.Len() != 2 {
		t.Fatalf("got len %d, want 2", arr.Len())
	}
	if arr.IsNull(0) || !arr.IsNull(1) {
		t.Fatalf("null mask mismatch: IsNull(0)=%v IsNull(1)=%v", arr.IsNull(0), arr.IsNull(1))
	}

	col, err := arrview.NewColumn(dt, arr)
	if err != nil {
		t.Fatalf("NewColumn: %v", err)
	}
	var got capturePoint
	if err := col.VisitAll(&got); err != nil {
		t.Fatalf("VisitAll: %v", err)
	}
	if got.x != 30 || got.y != 10 {
		t.Fatalf("got (%v, %v), want (30, 10)", got.x, got.y)
	}
}

func TestBuildPolygonRoundTrip(t *testing.T) {
	dt := mustDataType(t, geotype.Polygon, geotype.XY, geotype.Separate)
	b, err := New(memory.DefaultAllocator, dt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := b.FeatureBegin(1); err != nil {
		t.Fatal(err)
	}
	if err := b.GeometryBegin(geotype.Polygon, geotype.XY); err != nil {
		t.Fatal(err)
	}
	if err := b.RingBegin(4); err != nil {
		t.Fatal(err)
	}
	xs := []float64{0, 4, 0, 0}
	ys := []float64{0, 0, 4, 0}
	if err := b.Coords(xs, ys, nil, nil, 4); err != nil {
		t.Fatal(err)
	}
	if err := b.RingEnd(); err != nil {
		t.Fatal(err)
	}
	if err := b.GeometryEnd(); err != nil {
		t.Fatal(err)
	}
	if err := b.FeatureEnd(); err != nil {
		t.Fatal(err)
	}

	arr := b.NewArray()
	defer arr.Release()
	if arr.Len() != 1 {
		t.Fatalf("got len %d, want 1", arr.Len())
	}

	col, err := arrview.NewColumn(dt, arr)
	if err != nil {
		t.Fatalf("NewColumn: %v", err)
	}
	rec := &recordingRingVisitor{}
	if err := col.VisitAll(rec); err != nil {
		t.Fatalf("VisitAll: %v", err)
	}
	if len(rec.ringSizes) != 1 || rec.ringSizes[0] != 4 {
		t.Fatalf("got ring sizes %v, want [4]", rec.ringSizes)
	}
}

func TestBuildWKT(t *testing.T) {
	dt := geotype.WKT(false)
	b, err := New(memory.DefaultAllocator, dt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := b.FeatureBegin(1); err != nil {
		t.Fatal(err)
	}
	if err := b.GeometryBegin(geotype.Point, geotype.XY); err != nil {
		t.Fatal(err)
	}
	if err := b.Coords([]float64{30}, []float64{10}, nil, nil, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.GeometryEnd(); err != nil {
		t.Fatal(err)
	}
	if err := b.FeatureEnd(); err != nil {
		t.Fatal(err)
	}
	arr := b.NewArray()
	defer arr.Release()
	sarr, ok := arr.(*array.String)
	if !ok {
		t.Fatalf("got %T, want *array.String", arr)
	}
	if sarr.Value(0) != "POINT (30 10)" {
		t.Fatalf("got %q, want %q", sarr.Value(0), "POINT (30 10)")
	}
}

type capturePoint struct {
	visitor.NopVisitor
	x, y float64
}

func (c *capturePoint) Coords(xs, ys, zs, ms []float64, count int) error {
	c.x, c.y = xs[0], ys[0]
	return nil
}

type recordingRingVisitor struct {
	visitor.NopVisitor
	ringSizes []int
	pending   int
}

func (r *recordingRingVisitor) RingBegin(n int) error {
	r.pending = n
	return nil
}

func (r *recordingRingVisitor) RingEnd() error {
	r.ringSizes = append(r.ringSizes, r.pending)
	return nil
}
