package kernel

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/geoarrow-go/geobuilder"
	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
)

func buildPointArray(t *testing.T, pts [][2]float64) (geotype.GeometryDataType, *array.Struct) {
	t.Helper()
	dt, err := geotype.Make(geotype.Point, geotype.XY, geotype.Separate)
	if err != nil {
		t.Fatalf("geotype.Make: %v", err)
	}
	b, err := geobuilder.New(memory.DefaultAllocator, dt)
	if err != nil {
		t.Fatalf("geobuilder.New: %v", err)
	}
	for _, p := range pts {
		if err := b.FeatureBegin(1); err != nil {
			t.Fatal(err)
		}
		if err := b.GeometryBegin(geotype.Point, geotype.XY); err != nil {
			t.Fatal(err)
		}
		if err := b.Coords([]float64{p[0]}, []float64{p[1]}, nil, nil, 1); err != nil {
			t.Fatal(err)
		}
		if err := b.GeometryEnd(); err != nil {
			t.Fatal(err)
		}
		if err := b.FeatureEnd(); err != nil {
			t.Fatal(err)
		}
	}
	return dt, b.NewArray().(*array.Struct)
}

func TestUnknownKernelName(t *testing.T) {
	if _, err := New("nonexistent"); !geoerr.Is(err, geoerr.IllegalArgument) {
		t.Fatalf("got %v, want IllegalArgument", err)
	}
}

func TestVoidKernel(t *testing.T) {
	dt, arr := buildPointArray(t, [][2]float64{{0, 1}, {2, 3}})
	defer arr.Release()

	k, err := New("void")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Start(dt, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out, err := k.PushBatch(arr)
	if err != nil {
		t.Fatalf("PushBatch: %v", err)
	}
	if out.Len() != 2 || out.NullN() != 2 {
		t.Fatalf("got len=%d nulls=%d, want len=2 nulls=2", out.Len(), out.NullN())
	}
	if err := k.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if k.State() != Finished {
		t.Fatalf("got state %v, want Finished", k.State())
	}
}

func TestLifecycleRejectsPushBeforeStart(t *testing.T) {
	k, err := New("void")
	if err != nil {
		t.Fatal(err)
	}
	_, err = k.PushBatch(nil)
	if !geoerr.Is(err, geoerr.IllegalArgument) {
		t.Fatalf("got %v, want IllegalArgument", err)
	}
}

func TestVisitVoidAggCatchesParseError(t *testing.T) {
	dt := geotype.WKT(false)
	sb := array.NewStringBuilder(memory.DefaultAllocator)
	defer sb.Release()
	sb.Append("POINT (0 1)")
	sb.Append("NOT WKT")
	arr := sb.NewArray()
	defer arr.Release()

	k, err := New("visit_void_agg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Start(dt, nil); err != nil {
		t.Fatal(err)
	}
	_, err = k.PushBatch(arr)
	if !geoerr.Is(err, geoerr.Parse) {
		t.Fatalf("got %v, want Parse", err)
	}
}

func TestAsWKTRoundTrip(t *testing.T) {
	dt, arr := buildPointArray(t, [][2]float64{{30, 10}})
	defer arr.Release()

	k, err := New("as_wkt")
	if err != nil {
		t.Fatal(err)
	}
	outType, err := k.Start(dt, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !outType.IsWKT() {
		t.Fatalf("got output type %+v, want WKT", outType)
	}
	out, err := k.PushBatch(arr)
	if err != nil {
		t.Fatalf("PushBatch: %v", err)
	}
	sarr := out.(*array.String)
	if sarr.Value(0) != "POINT (30 10)" {
		t.Fatalf("got %q, want %q", sarr.Value(0), "POINT (30 10)")
	}
}

func TestAsGeoArrowPackedType(t *testing.T) {
	wktDt := geotype.WKT(false)
	sb := array.NewStringBuilder(memory.DefaultAllocator)
	defer sb.Release()
	sb.Append("LINESTRING (0 1, 2 3)")
	wktArr := sb.NewArray()
	defer wktArr.Release()

	k, err := New("as_geoarrow")
	if err != nil {
		t.Fatal(err)
	}
	lineDt, err := geotype.Make(geotype.LineString, geotype.XY, geotype.Separate)
	if err != nil {
		t.Fatal(err)
	}
	id, err := lineDt.PackedID()
	if err != nil {
		t.Fatal(err)
	}
	optBlob, err := EncodeTypeOption(id)
	if err != nil {
		t.Fatal(err)
	}
	outType, err := k.Start(wktDt, optBlob)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if outType.GeometryType() != geotype.LineString {
		t.Fatalf("got %v, want LineString", outType.GeometryType())
	}
	out, err := k.PushBatch(wktArr)
	if err != nil {
		t.Fatalf("PushBatch: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("got len %d, want 1", out.Len())
	}
}

func TestUniqueGeometryTypesAgg(t *testing.T) {
	dt := geotype.WKT(false)
	sb := array.NewStringBuilder(memory.DefaultAllocator)
	defer sb.Release()
	for _, s := range []string{
		"POINT ZM (0 1 2 3)",
		"LINESTRING M (0 0 0, 1 1 1)",
		"POLYGON Z ((0 0 0,1 0 0,0 1 0,0 0 0))",
		"MULTIPOINT (0 1)",
	} {
		sb.Append(s)
	}
	arr := sb.NewArray()
	defer arr.Release()

	k, err := New("unique_geometry_types_agg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Start(dt, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := k.PushBatch(arr); err != nil {
		t.Fatalf("PushBatch: %v", err)
	}
	out, err := k.FinishAgg()
	if err != nil {
		t.Fatalf("FinishAgg: %v", err)
	}
	ia := out.(*array.Int32)
	got := make(map[int32]bool)
	for i := 0; i < ia.Len(); i++ {
		got[ia.Value(i)] = true
	}
	want := []int32{3001, 2002, 1003, 4}
	for _, w := range want {
		if !got[w] {
			t.Fatalf("missing packed code %d in %v", w, got)
		}
	}
}

func TestBoxKernelElementWise(t *testing.T) {
	dt, arr := buildPointArray(t, [][2]float64{{0, 1}, {2, 3}})
	defer arr.Release()

	k, err := New("box")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Start(dt, nil); err != nil {
		t.Fatal(err)
	}
	out, err := k.PushBatch(arr)
	if err != nil {
		t.Fatalf("PushBatch: %v", err)
	}
	s := out.(*array.Struct)
	if s.Len() != 2 {
		t.Fatalf("got len %d, want 2", s.Len())
	}
}

func TestBoxAggKernel(t *testing.T) {
	dt, arr := buildPointArray(t, [][2]float64{{0, 1}, {2, 3}})
	defer arr.Release()

	k, err := New("box_agg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Start(dt, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := k.PushBatch(arr); err != nil {
		t.Fatalf("PushBatch: %v", err)
	}
	out, err := k.FinishAgg()
	if err != nil {
		t.Fatalf("FinishAgg: %v", err)
	}
	s := out.(*array.Struct)
	if s.Len() != 1 {
		t.Fatalf("got len %d, want 1", s.Len())
	}
	xmin := s.Field(0).(*array.Float64).Value(0)
	if xmin != 0 {
		t.Fatalf("got xmin=%v, want 0", xmin)
	}
}
