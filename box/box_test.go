package box

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/geoarrow-go/geobuilder"
	"github.com/hugr-lab/geoarrow-go/geotype"
)

func buildPoints(t *testing.T, pts [][2]float64, nulls []bool) (geotype.GeometryDataType, *array.Struct) {
	t.Helper()
	dt, err := geotype.Make(geotype.Point, geotype.XY, geotype.Separate)
	if err != nil {
		t.Fatalf("geotype.Make: %v", err)
	}
	b, err := geobuilder.New(memory.DefaultAllocator, dt)
	if err != nil {
		t.Fatalf("geobuilder.New: %v", err)
	}
	for i, p := range pts {
		if err := b.FeatureBegin(1); err != nil {
			t.Fatal(err)
		}
		if nulls != nil && nulls[i] {
			if err := b.NullFeature(); err != nil {
				t.Fatal(err)
			}
		} else {
			if err := b.GeometryBegin(geotype.Point, geotype.XY); err != nil {
				t.Fatal(err)
			}
			if err := b.Coords([]float64{p[0]}, []float64{p[1]}, nil, nil, 1); err != nil {
				t.Fatal(err)
			}
			if err := b.GeometryEnd(); err != nil {
				t.Fatal(err)
			}
		}
		if err := b.FeatureEnd(); err != nil {
			t.Fatal(err)
		}
	}
	arr := b.NewArray().(*array.Struct)
	return dt, arr
}

func TestElementWiseBox(t *testing.T) {
	dt, arr := buildPoints(t, [][2]float64{{0, 1}, {2, 3}}, nil)
	defer arr.Release()

	out, err := ElementWise(memory.DefaultAllocator, dt, arr)
	if err != nil {
		t.Fatalf("ElementWise: %v", err)
	}
	defer out.Release()
	s := out.(*array.Struct)
	if s.Len() != 2 {
		t.Fatalf("got len %d, want 2", s.Len())
	}
	xmin := s.Field(0).(*array.Float64)
	xmax := s.Field(1).(*array.Float64)
	ymin := s.Field(2).(*array.Float64)
	ymax := s.Field(3).(*array.Float64)
	if xmin.Value(0) != 0 || xmax.Value(0) != 0 || ymin.Value(0) != 1 || ymax.Value(0) != 1 {
		t.Fatalf("row 0 box wrong: %v %v %v %v", xmin.Value(0), xmax.Value(0), ymin.Value(0), ymax.Value(0))
	}
	if xmin.Value(1) != 2 || ymax.Value(1) != 3 {
		t.Fatalf("row 1 box wrong: %v %v", xmin.Value(1), ymax.Value(1))
	}
}

func TestElementWiseBoxNullFeature(t *testing.T) {
	dt, arr := buildPoints(t, [][2]float64{{0, 1}, {0, 0}}, []bool{false, true})
	defer arr.Release()

	out, err := ElementWise(memory.DefaultAllocator, dt, arr)
	if err != nil {
		t.Fatalf("ElementWise: %v", err)
	}
	defer out.Release()
	if !out.IsValid(0) || out.IsValid(1) {
		t.Fatalf("null mask wrong: IsValid(0)=%v IsValid(1)=%v", out.IsValid(0), out.IsValid(1))
	}
}

func TestBoxAggregateEquivalence(t *testing.T) {
	dt, arr := buildPoints(t, [][2]float64{{0, 1}, {2, 3}, {-1, 5}}, nil)
	defer arr.Release()

	whole := NewAggregator()
	if err := whole.Add(dt, arr); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, part1 := buildPoints(t, [][2]float64{{0, 1}}, nil)
	defer part1.Release()
	_, part2 := buildPoints(t, [][2]float64{{2, 3}, {-1, 5}}, nil)
	defer part2.Release()
	split := NewAggregator()
	if err := split.Add(dt, part1); err != nil {
		t.Fatal(err)
	}
	other := NewAggregator()
	if err := other.Add(dt, part2); err != nil {
		t.Fatal(err)
	}
	split.Combine(other)

	if whole.Bounds() != split.Bounds() {
		t.Fatalf("got %+v, want %+v", split.Bounds(), whole.Bounds())
	}
	if whole.Bounds().XMin != -1 || whole.Bounds().XMax != 2 || whole.Bounds().YMin != 1 || whole.Bounds().YMax != 5 {
		t.Fatalf("unexpected bounds %+v", whole.Bounds())
	}
}

func TestBoxAggregateFinishEmptyIsCanonical(t *testing.T) {
	a := NewAggregator()
	out := a.Finish(memory.DefaultAllocator)
	defer out.Release()
	s := out.(*array.Struct)
	xmin := s.Field(0).(*array.Float64).Value(0)
	ymax := s.Field(3).(*array.Float64).Value(0)
	if !math.IsInf(xmin, 1) || !math.IsInf(ymax, -1) {
		t.Fatalf("got xmin=%v ymax=%v, want +inf/-inf", xmin, ymax)
	}
}

func TestBoxRejectsNonPlanarEdges(t *testing.T) {
	dt, err := geotype.Make(geotype.Point, geotype.XY, geotype.Separate)
	if err != nil {
		t.Fatal(err)
	}
	dt = dt.WithEdgeType(geotype.Spherical)
	_, arr := buildPoints(t, [][2]float64{{0, 0}}, nil)
	defer arr.Release()
	_, err = ElementWise(memory.DefaultAllocator, dt, arr)
	if err == nil {
		t.Fatal("expected an error for spherical edges")
	}
}

func TestNaNCoordinatesAreSkipped(t *testing.T) {
	dt, err := geotype.Make(geotype.Point, geotype.XY, geotype.Separate)
	if err != nil {
		t.Fatal(err)
	}
	b, err := geobuilder.New(memory.DefaultAllocator, dt)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.FeatureBegin(1); err != nil {
		t.Fatal(err)
	}
	if err := b.GeometryBegin(geotype.Point, geotype.XY); err != nil {
		t.Fatal(err)
	}
	if err := b.Coords([]float64{math.NaN()}, []float64{math.NaN()}, nil, nil, 1); err != nil {
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

	out, err := ElementWise(memory.DefaultAllocator, dt, arr)
	if err != nil {
		t.Fatalf("ElementWise: %v", err)
	}
	defer out.Release()
	s := out.(*array.Struct)
	xmin := s.Field(0).(*array.Float64).Value(0)
	if !math.IsInf(xmin, 1) {
		t.Fatalf("got xmin=%v, want +inf (NaN point treated as empty)", xmin)
	}
}
