// Package box implements the box kernels (spec component C8):
// element-wise box, one {xmin,xmax,ymin,ymax} struct per feature, and
// its aggregate counterpart box_agg, a running min/max over every
// coordinate pushed across however many batches. Both refuse any input
// whose edge type is not planar, since a great-circle bounding box
// needs interpolation this module does not implement.
package box

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/geoarrow-go/arrview"
	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/visitor"
)

// StorageType is the Arrow type every box kernel emits: a planar
// struct<xmin,xmax,ymin,ymax:f64>, with no Z/M fields regardless of
// the input's dimensions.
var StorageType = arrow.StructOf(
	arrow.Field{Name: "xmin", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "xmax", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "ymin", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "ymax", Type: arrow.PrimitiveTypes.Float64},
)

// CheckEdgeType rejects any descriptor whose edges are not planar,
// per spec §4.8.
func CheckEdgeType(dt geotype.GeometryDataType) error {
	if dt.EdgeType() != geotype.Planar {
		return geoerr.New(geoerr.Type, "box: edge type %s is not supported, only planar geometries have a coordinate bounding box", dt.EdgeType())
	}
	return nil
}

// Bounds is one running {xmin,xmax,ymin,ymax} accumulation. Start from
// NewBounds, which gives the canonical empty box; the zero value is
// the box {0, 0, 0, 0}.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
	any        bool
}

// NewBounds returns a Bounds initialized to the canonical empty box
// (+inf, -inf, +inf, -inf), the identity element for Combine.
func NewBounds() Bounds {
	return Bounds{XMin: math.Inf(1), XMax: math.Inf(-1), YMin: math.Inf(1), YMax: math.Inf(-1)}
}

// addPoint folds one coordinate into the bounds; NaN ordinates are
// skipped (treated as absent), per spec §4.8 and §9.
func (b *Bounds) addPoint(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return
	}
	b.any = true
	if x < b.XMin {
		b.XMin = x
	}
	if x > b.XMax {
		b.XMax = x
	}
	if y < b.YMin {
		b.YMin = y
	}
	if y > b.YMax {
		b.YMax = y
	}
}

// Combine folds other's coordinates into b, realizing the
// aggregate-equivalence invariant: combining partitioned box_agg
// results equals running box_agg over the whole input.
func (b *Bounds) Combine(other Bounds) {
	if !other.any {
		return
	}
	b.any = true
	if other.XMin < b.XMin {
		b.XMin = other.XMin
	}
	if other.XMax > b.XMax {
		b.XMax = other.XMax
	}
	if other.YMin < b.YMin {
		b.YMin = other.YMin
	}
	if other.YMax > b.YMax {
		b.YMax = other.YMax
	}
}

// boundsVisitor folds every Coords call it sees into a running Bounds,
// ignoring which geometry/ring level they arrive at: a bounding box
// only cares about the coordinate values, not their nesting.
type boundsVisitor struct {
	visitor.NopVisitor
	cur Bounds
}

func (v *boundsVisitor) Coords(xs, ys, zs, ms []float64, count int) error {
	for i := 0; i < count; i++ {
		v.cur.addPoint(xs[i], ys[i])
	}
	return nil
}

// ElementWise computes one box per feature of arr (typed dt),
// producing a nullable struct array the same length as arr: a null
// input row produces a null output row; an empty geometry produces
// the canonical empty box.
func ElementWise(mem memory.Allocator, dt geotype.GeometryDataType, arr arrow.Array) (arrow.Array, error) {
	if err := CheckEdgeType(dt); err != nil {
		return nil, err
	}
	col, err := arrview.NewColumn(dt, arr)
	if err != nil {
		return nil, err
	}
	b := array.NewStructBuilder(mem, StorageType)
	defer b.Release()
	xminB := b.FieldBuilder(0).(*array.Float64Builder)
	xmaxB := b.FieldBuilder(1).(*array.Float64Builder)
	yminB := b.FieldBuilder(2).(*array.Float64Builder)
	ymaxB := b.FieldBuilder(3).(*array.Float64Builder)

	rec := &perFeatureBoundsVisitor{}
	rec.onFeature = func(bounds Bounds, null bool) error {
		if null {
			b.AppendNull()
			return nil
		}
		b.Append(true)
		xminB.Append(bounds.XMin)
		xmaxB.Append(bounds.XMax)
		yminB.Append(bounds.YMin)
		ymaxB.Append(bounds.YMax)
		return nil
	}
	if err := col.VisitAll(rec); err != nil {
		return nil, err
	}
	return b.NewArray(), nil
}

// perFeatureBoundsVisitor resets its running Bounds at every
// FeatureBegin and reports the finished Bounds (or null) at
// FeatureEnd, regardless of how many geometries/rings/coords calls
// occurred in between.
type perFeatureBoundsVisitor struct {
	visitor.NopVisitor
	cur       Bounds
	isNull    bool
	onFeature func(bounds Bounds, null bool) error
}

func (v *perFeatureBoundsVisitor) FeatureBegin(parts int) error {
	v.cur = NewBounds()
	v.isNull = false
	return nil
}

func (v *perFeatureBoundsVisitor) NullFeature() error {
	v.isNull = true
	return nil
}

func (v *perFeatureBoundsVisitor) Coords(xs, ys, zs, ms []float64, count int) error {
	for i := 0; i < count; i++ {
		v.cur.addPoint(xs[i], ys[i])
	}
	return nil
}

func (v *perFeatureBoundsVisitor) FeatureEnd() error {
	return v.onFeature(v.cur, v.isNull)
}

// Aggregator accumulates a running Bounds across any number of Add
// calls (batches), and across however many Aggregator instances a
// caller later Combines together (spec §8 invariant 5).
type Aggregator struct {
	bounds Bounds
	inited bool
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{bounds: NewBounds()}
}

// Add folds every coordinate of every non-null feature in arr (typed
// dt) into the running bounds.
func (a *Aggregator) Add(dt geotype.GeometryDataType, arr arrow.Array) error {
	if err := CheckEdgeType(dt); err != nil {
		return err
	}
	col, err := arrview.NewColumn(dt, arr)
	if err != nil {
		return err
	}
	v := &boundsVisitor{cur: a.bounds}
	if err := col.VisitAll(v); err != nil {
		return err
	}
	a.bounds = v.cur
	a.inited = true
	return nil
}

// Combine folds other's accumulated bounds into a.
func (a *Aggregator) Combine(other *Aggregator) {
	if other == nil {
		return
	}
	a.bounds.Combine(other.bounds)
	a.inited = a.inited || other.inited
}

// Bounds returns the aggregator's current running bounds.
func (a *Aggregator) Bounds() Bounds { return a.bounds }

// Finish emits the length-1 result struct array. An aggregator that
// never saw a non-NaN coordinate emits the canonical empty box.
func (a *Aggregator) Finish(mem memory.Allocator) arrow.Array {
	b := array.NewStructBuilder(mem, StorageType)
	defer b.Release()
	b.Append(true)
	b.FieldBuilder(0).(*array.Float64Builder).Append(a.bounds.XMin)
	b.FieldBuilder(1).(*array.Float64Builder).Append(a.bounds.XMax)
	b.FieldBuilder(2).(*array.Float64Builder).Append(a.bounds.YMin)
	b.FieldBuilder(3).(*array.Float64Builder).Append(a.bounds.YMax)
	return b.NewArray()
}
