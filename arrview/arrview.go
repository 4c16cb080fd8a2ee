// Package arrview implements the array view (spec component C2): a
// non-owning walk over an imported Arrow array paired with its
// geotype.GeometryDataType, exposing the array as a visitor.Reader
// without copying any buffer.
package arrview

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/visitor"
	"github.com/hugr-lab/geoarrow-go/wkb"
	"github.com/hugr-lab/geoarrow-go/wkt"
)

// Column is a non-owning view over one Arrow array of a declared
// geometry type. It holds no buffers of its own; every method reads
// directly from the wrapped arrow.Array.
type Column struct {
	dt  geotype.GeometryDataType
	arr arrow.Array
}

// NewColumn wraps arr, which must match the storage shape dt
// describes. The array is not retained beyond the reference arrow.Array
// already holds; callers remain responsible for its lifetime.
func NewColumn(dt geotype.GeometryDataType, arr arrow.Array) (*Column, error) {
	return &Column{dt: dt, arr: arr}, nil
}

// Type returns the column's geometry descriptor.
func (c *Column) Type() geotype.GeometryDataType { return c.dt }

// Len is the number of features (rows) in the column.
func (c *Column) Len() int { return c.arr.Len() }

// VisitAll implements visitor.Reader, walking every row of the
// wrapped array in order.
func (c *Column) VisitAll(v visitor.Visitor) error {
	if c.dt.IsWKB() {
		return wkb.NewReader(binaryValueSource{c.arr}).VisitAll(v)
	}
	if c.dt.IsWKT() {
		return wkt.NewReader(stringValueSource{c.arr}).VisitAll(v)
	}
	w := &walker{dims: c.dt.Dimensions(), coordType: c.dt.CoordType()}
	for i := 0; i < c.arr.Len(); i++ {
		if err := v.FeatureBegin(1); err != nil {
			return err
		}
		if c.arr.IsNull(i) {
			if err := v.NullFeature(); err != nil {
				return err
			}
		} else if err := w.visitGeometry(v, c.dt.GeometryType(), c.arr, i); err != nil {
			return err
		}
		if err := v.FeatureEnd(); err != nil {
			return err
		}
	}
	return nil
}

type binaryValueSource struct{ arr arrow.Array }

func (s binaryValueSource) Len() int { return s.arr.Len() }
func (s binaryValueSource) Value(i int) ([]byte, bool) {
	if s.arr.IsNull(i) {
		return nil, false
	}
	switch a := s.arr.(type) {
	case *array.Binary:
		return a.Value(i), true
	case *array.LargeBinary:
		return a.Value(i), true
	default:
		return nil, false
	}
}

type stringValueSource struct{ arr arrow.Array }

func (s stringValueSource) Len() int { return s.arr.Len() }
func (s stringValueSource) Value(i int) (string, bool) {
	if s.arr.IsNull(i) {
		return "", false
	}
	switch a := s.arr.(type) {
	case *array.String:
		return a.Value(i), true
	case *array.LargeString:
		return a.Value(i), true
	default:
		return "", false
	}
}

// walker recurses through the nested list structure a GeometryType
// implies, bottoming out at the point layout.
type walker struct {
	dims      geotype.Dimensions
	coordType geotype.CoordType
}

func (w *walker) visitGeometry(v visitor.Visitor, gt geotype.GeometryType, arr arrow.Array, i int) error {
	if gt == geotype.Box {
		return w.visitBox(v, arr, i)
	}
	if err := v.GeometryBegin(gt, w.dims); err != nil {
		return err
	}
	var err error
	switch gt {
	case geotype.Point:
		err = w.visitPoint(v, arr, i)
	case geotype.LineString:
		err = w.visitLinear(v, arr, i)
	case geotype.MultiPoint:
		err = w.visitLinear(v, arr, i)
	case geotype.Polygon:
		err = w.visitRings(v, arr, i)
	case geotype.MultiLineString:
		err = w.visitMultiLinear(v, arr, i)
	case geotype.MultiPolygon:
		err = w.visitMultiPolygon(v, arr, i)
	default:
		return geoerr.New(geoerr.IllegalArgument, "arrview: geometry type %s has no native storage", gt)
	}
	if err != nil {
		return err
	}
	return v.GeometryEnd()
}

// pointCoords returns the x, y, z and m ordinates of point idx of a
// struct-of-arrays or interleaved (FixedSizeList) point array.
func (w *walker) pointCoords(arr arrow.Array, idx int) (x, y, z, m float64, err error) {
	switch a := arr.(type) {
	case *array.Struct:
		xs := a.Field(0).(*array.Float64)
		ys := a.Field(1).(*array.Float64)
		x, y = xs.Value(idx), ys.Value(idx)
		field := 2
		if w.dims.HasZ() {
			z = a.Field(field).(*array.Float64).Value(idx)
			field++
		}
		if w.dims.HasM() {
			m = a.Field(field).(*array.Float64).Value(idx)
		}
		return x, y, z, m, nil
	case *array.FixedSizeList:
		values := a.ListValues().(*array.Float64)
		k := w.dims.Count()
		base := idx * k
		x, y = values.Value(base), values.Value(base+1)
		if w.dims.HasZ() {
			z = values.Value(base + 2)
		}
		if w.dims.HasM() {
			idxM := 2
			if w.dims.HasZ() {
				idxM = 3
			}
			m = values.Value(base + idxM)
		}
		return x, y, z, m, nil
	default:
		return 0, 0, 0, 0, geoerr.New(geoerr.Validation, "arrview: unrecognized point storage type %T", arr)
	}
}

func (w *walker) visitPoint(v visitor.Visitor, arr arrow.Array, i int) error {
	x, y, z, m, err := w.pointCoords(arr, i)
	if err != nil {
		return err
	}
	xs, ys := []float64{x}, []float64{y}
	var zs, ms []float64
	if w.dims.HasZ() {
		zs = []float64{z}
	}
	if w.dims.HasM() {
		ms = []float64{m}
	}
	return v.Coords(xs, ys, zs, ms, 1)
}

// listRange returns the [start,end) element range of the list
// value at row i, for both List (int32 offsets) and LargeList (int64
// offsets), plus the list's child array.
func listRange(arr arrow.Array, i int) (start, end int, values arrow.Array, err error) {
	switch a := arr.(type) {
	case *array.List:
		offs := a.Offsets()
		return int(offs[i]), int(offs[i+1]), a.ListValues(), nil
	case *array.LargeList:
		offs := a.Offsets()
		return int(offs[i]), int(offs[i+1]), a.ListValues(), nil
	default:
		return 0, 0, nil, geoerr.New(geoerr.Validation, "arrview: unrecognized list storage type %T", arr)
	}
}

// visitLinear handles a single flat list of points: LineString or
// MultiPoint, both list<point-layout>.
func (w *walker) visitLinear(v visitor.Visitor, arr arrow.Array, i int) error {
	start, end, points, err := listRange(arr, i)
	if err != nil {
		return err
	}
	n := end - start
	if n == 0 {
		return nil
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	var zs, ms []float64
	if w.dims.HasZ() {
		zs = make([]float64, n)
	}
	if w.dims.HasM() {
		ms = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		x, y, z, m, err := w.pointCoords(points, start+j)
		if err != nil {
			return err
		}
		xs[j], ys[j] = x, y
		if w.dims.HasZ() {
			zs[j] = z
		}
		if w.dims.HasM() {
			ms[j] = m
		}
	}
	return v.Coords(xs, ys, zs, ms, n)
}

// visitRings handles list<list<point-layout>>: a Polygon's rings.
func (w *walker) visitRings(v visitor.Visitor, arr arrow.Array, i int) error {
	start, end, rings, err := listRange(arr, i)
	if err != nil {
		return err
	}
	for r := start; r < end; r++ {
		if err := w.visitOneRing(v, rings, r); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) visitOneRing(v visitor.Visitor, ringsArr arrow.Array, r int) error {
	start, end, points, err := listRange(ringsArr, r)
	if err != nil {
		return err
	}
	n := end - start
	if err := v.RingBegin(n); err != nil {
		return err
	}
	if n > 0 {
		xs := make([]float64, n)
		ys := make([]float64, n)
		var zs, ms []float64
		if w.dims.HasZ() {
			zs = make([]float64, n)
		}
		if w.dims.HasM() {
			ms = make([]float64, n)
		}
		for j := 0; j < n; j++ {
			x, y, z, m, err := w.pointCoords(points, start+j)
			if err != nil {
				return err
			}
			xs[j], ys[j] = x, y
			if w.dims.HasZ() {
				zs[j] = z
			}
			if w.dims.HasM() {
				ms[j] = m
			}
		}
		if err := v.Coords(xs, ys, zs, ms, n); err != nil {
			return err
		}
	}
	return v.RingEnd()
}

// visitMultiLinear handles list<list<point-layout>> where the outer
// level is MultiLineString children, each its own LineString.
func (w *walker) visitMultiLinear(v visitor.Visitor, arr arrow.Array, i int) error {
	start, end, children, err := listRange(arr, i)
	if err != nil {
		return err
	}
	for c := start; c < end; c++ {
		if err := v.GeometryBegin(geotype.LineString, w.dims); err != nil {
			return err
		}
		if err := w.visitLinear(v, children, c); err != nil {
			return err
		}
		if err := v.GeometryEnd(); err != nil {
			return err
		}
	}
	return nil
}

// visitMultiPolygon handles list<list<list<point-layout>>>: each
// outer element is a Polygon.
func (w *walker) visitMultiPolygon(v visitor.Visitor, arr arrow.Array, i int) error {
	start, end, polygons, err := listRange(arr, i)
	if err != nil {
		return err
	}
	for p := start; p < end; p++ {
		if err := v.GeometryBegin(geotype.Polygon, w.dims); err != nil {
			return err
		}
		if err := w.visitRings(v, polygons, p); err != nil {
			return err
		}
		if err := v.GeometryEnd(); err != nil {
			return err
		}
	}
	return nil
}

// visitBox handles the dims-aware box struct: xmin,xmax,ymin,ymax,
// [zmin,zmax],[mmin,mmax].
func (w *walker) visitBox(v visitor.Visitor, arr arrow.Array, i int) error {
	s, ok := arr.(*array.Struct)
	if !ok {
		return geoerr.New(geoerr.Validation, "arrview: unrecognized box storage type %T", arr)
	}
	if err := v.GeometryBegin(geotype.Box, w.dims); err != nil {
		return err
	}
	field := 0
	next := func() float64 {
		val := s.Field(field).(*array.Float64).Value(i)
		field++
		return val
	}
	xmin, xmax := next(), next()
	ymin, ymax := next(), next()
	xs := []float64{xmin, xmax}
	ys := []float64{ymin, ymax}
	var zs, ms []float64
	if w.dims.HasZ() {
		zmin, zmax := next(), next()
		zs = []float64{zmin, zmax}
	}
	if w.dims.HasM() {
		mmin, mmax := next(), next()
		ms = []float64{mmin, mmax}
	}
	if err := v.Coords(xs, ys, zs, ms, 2); err != nil {
		return err
	}
	return v.GeometryEnd()
}
