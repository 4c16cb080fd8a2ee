// Package geobuilder implements the builder (spec component C3): a
// visitor.Visitor that assembles an Arrow array matching a
// geotype.GeometryDataType from a balanced stream of geometry events,
// growing its underlying buffers the way every Arrow builder does.
package geobuilder

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/visitor"
	"github.com/hugr-lab/geoarrow-go/wkb"
	"github.com/hugr-lab/geoarrow-go/wkt"
)

// listLevelBuilder is the shape shared by ListBuilder, LargeListBuilder
// and FixedSizeListBuilder: start a list value (or append a null one)
// and hand back the child builder that accumulates its elements.
type listLevelBuilder interface {
	array.Builder
	Append(bool)
	ValueBuilder() array.Builder
}

// Builder is a visitor.Visitor over one column's worth of features. Its
// NewArray method, like every Arrow builder's, may be called only once.
type Builder struct {
	dt    geotype.GeometryDataType
	dims  geotype.Dimensions
	depth int

	// Native storage path (one of these two families is populated).
	root  array.Builder
	chain []listLevelBuilder
	point *pointBuilder
	box   *boxBuilder

	// WKT/WKB path: delegate entirely to the codec writer, which is
	// itself a visitor.Visitor.
	delegate  visitor.Visitor
	strB      *array.StringBuilder
	largeStrB *array.LargeStringBuilder
	binB      *array.BinaryBuilder
	largeBinB *array.BinaryBuilder
}

// New builds an empty Builder for dt using mem for every underlying
// buffer allocation.
func New(mem memory.Allocator, dt geotype.GeometryDataType) (*Builder, error) {
	if dt.IsWKT() {
		return newWKTBuilder(mem, dt), nil
	}
	if dt.IsWKB() {
		return newWKBBuilder(mem, dt), nil
	}
	storage, err := dt.StorageType()
	if err != nil {
		return nil, err
	}
	b := &Builder{dt: dt, dims: dt.Dimensions()}
	b.root = array.NewBuilder(mem, storage)
	if dt.GeometryType() == geotype.Box {
		bb, ok := b.root.(*array.StructBuilder)
		if !ok {
			return nil, geoerr.New(geoerr.Validation, "geobuilder: expected a struct builder for box storage, got %T", b.root)
		}
		b.box = newBoxBuilder(dt.Dimensions(), bb)
		return b, nil
	}
	depth := dt.GeometryType().ListDepth()
	cur := b.root
	for i := 0; i < depth; i++ {
		ll, ok := cur.(listLevelBuilder)
		if !ok {
			return nil, geoerr.New(geoerr.Validation, "geobuilder: expected a list builder at nesting depth %d, got %T", i, cur)
		}
		b.chain = append(b.chain, ll)
		cur = ll.ValueBuilder()
	}
	pt, err := newPointBuilder(dt.Dimensions(), cur)
	if err != nil {
		return nil, err
	}
	b.point = pt
	return b, nil
}

func newWKTBuilder(mem memory.Allocator, dt geotype.GeometryDataType) *Builder {
	b := &Builder{dt: dt}
	if dt.Large() {
		b.largeStrB = array.NewLargeStringBuilder(mem)
		b.delegate = wkt.NewWriter(func(text string, valid bool) error {
			if !valid {
				b.largeStrB.AppendNull()
				return nil
			}
			b.largeStrB.Append(text)
			return nil
		})
		return b
	}
	b.strB = array.NewStringBuilder(mem)
	b.delegate = wkt.NewWriter(func(text string, valid bool) error {
		if !valid {
			b.strB.AppendNull()
			return nil
		}
		b.strB.Append(text)
		return nil
	})
	return b
}

func newWKBBuilder(mem memory.Allocator, dt geotype.GeometryDataType) *Builder {
	b := &Builder{dt: dt}
	if dt.Large() {
		b.largeBinB = array.NewBinaryBuilder(mem, arrow.BinaryTypes.LargeBinary)
		b.delegate = wkb.NewWriter(func(data []byte, valid bool) error {
			if !valid {
				b.largeBinB.AppendNull()
				return nil
			}
			b.largeBinB.Append(data)
			return nil
		})
		return b
	}
	b.binB = array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	b.delegate = wkb.NewWriter(func(data []byte, valid bool) error {
		if !valid {
			b.binB.AppendNull()
			return nil
		}
		b.binB.Append(data)
		return nil
	})
	return b
}

func (b *Builder) FeatureBegin(parts int) error {
	if b.delegate != nil {
		return b.delegate.FeatureBegin(parts)
	}
	if b.depth != 0 {
		return geoerr.New(geoerr.Validation, "geobuilder: FeatureBegin called with an open geometry")
	}
	return nil
}

func (b *Builder) NullFeature() error {
	if b.delegate != nil {
		return b.delegate.NullFeature()
	}
	if b.box != nil {
		b.box.AppendNull()
		return nil
	}
	if len(b.chain) == 0 {
		b.point.AppendNull()
		return nil
	}
	b.chain[0].AppendNull()
	return nil
}

func (b *Builder) FeatureEnd() error {
	if b.delegate != nil {
		return b.delegate.FeatureEnd()
	}
	if b.depth != 0 {
		return geoerr.New(geoerr.Validation, "geobuilder: FeatureEnd called with an open geometry")
	}
	return nil
}

func (b *Builder) GeometryBegin(t geotype.GeometryType, dims geotype.Dimensions) error {
	if b.delegate != nil {
		return b.delegate.GeometryBegin(t, dims)
	}
	if b.box != nil {
		return nil
	}
	if b.depth > len(b.chain) {
		return geoerr.New(geoerr.Validation, "geobuilder: geometry nesting deeper than column %s supports", b.dt.GeometryType())
	}
	if b.depth == len(b.chain) {
		// Leaf level: this GeometryBegin describes the point itself
		// (or a Point child of a Multi*/Collection), not another list
		// nesting level. Its coordinates arrive via Coords.
		b.depth++
		return nil
	}
	b.chain[b.depth].Append(true)
	b.depth++
	return nil
}

func (b *Builder) GeometryEnd() error {
	if b.delegate != nil {
		return b.delegate.GeometryEnd()
	}
	if b.box != nil {
		return nil
	}
	if b.depth == 0 {
		return geoerr.New(geoerr.Validation, "geobuilder: GeometryEnd with no open geometry")
	}
	b.depth--
	return nil
}

func (b *Builder) RingBegin(n int) error {
	if b.delegate != nil {
		return b.delegate.RingBegin(n)
	}
	if b.depth >= len(b.chain) {
		return geoerr.New(geoerr.Validation, "geobuilder: ring nesting deeper than column %s supports", b.dt.GeometryType())
	}
	b.chain[b.depth].Append(true)
	b.depth++
	return nil
}

func (b *Builder) RingEnd() error {
	if b.delegate != nil {
		return b.delegate.RingEnd()
	}
	if b.depth == 0 {
		return geoerr.New(geoerr.Validation, "geobuilder: RingEnd with no open ring")
	}
	b.depth--
	return nil
}

func (b *Builder) Coords(xs, ys, zs, ms []float64, count int) error {
	if b.delegate != nil {
		return b.delegate.Coords(xs, ys, zs, ms, count)
	}
	if b.box != nil {
		return b.box.Append(xs, ys, zs, ms, count)
	}
	for i := 0; i < count; i++ {
		z, m := math.NaN(), math.NaN()
		if zs != nil {
			z = zs[i]
		}
		if ms != nil {
			m = ms[i]
		}
		b.point.Append(xs[i], ys[i], z, m)
	}
	return nil
}

// NewArray finalizes the builder and returns the assembled array. Like
// every Arrow builder, it may be called only once.
func (b *Builder) NewArray() arrow.Array {
	switch {
	case b.strB != nil:
		return b.strB.NewArray()
	case b.largeStrB != nil:
		return b.largeStrB.NewArray()
	case b.binB != nil:
		return b.binB.NewArray()
	case b.largeBinB != nil:
		return b.largeBinB.NewArray()
	default:
		return b.root.NewArray()
	}
}

var _ visitor.Visitor = (*Builder)(nil)

// pointBuilder wraps either the struct-of-arrays or the interleaved
// fixed-size-list point layout behind one Append/AppendNull pair.
type pointBuilder struct {
	dims geotype.Dimensions

	structB *array.StructBuilder
	xs, ys  *array.Float64Builder
	zs, ms  *array.Float64Builder

	fixedB *array.FixedSizeListBuilder
	values *array.Float64Builder
}

func newPointBuilder(dims geotype.Dimensions, leaf array.Builder) (*pointBuilder, error) {
	switch bld := leaf.(type) {
	case *array.StructBuilder:
		p := &pointBuilder{dims: dims, structB: bld}
		p.xs = bld.FieldBuilder(0).(*array.Float64Builder)
		p.ys = bld.FieldBuilder(1).(*array.Float64Builder)
		field := 2
		if dims.HasZ() {
			p.zs = bld.FieldBuilder(field).(*array.Float64Builder)
			field++
		}
		if dims.HasM() {
			p.ms = bld.FieldBuilder(field).(*array.Float64Builder)
		}
		return p, nil
	case *array.FixedSizeListBuilder:
		p := &pointBuilder{dims: dims, fixedB: bld}
		p.values = bld.ValueBuilder().(*array.Float64Builder)
		return p, nil
	default:
		return nil, geoerr.New(geoerr.Validation, "geobuilder: unrecognized point layout builder %T", leaf)
	}
}

func (p *pointBuilder) AppendNull() {
	if p.structB != nil {
		p.structB.AppendNull()
		return
	}
	p.fixedB.AppendNull()
}

func (p *pointBuilder) Append(x, y, z, m float64) {
	if p.structB != nil {
		p.structB.Append(true)
		p.xs.Append(x)
		p.ys.Append(y)
		if p.dims.HasZ() {
			p.zs.Append(z)
		}
		if p.dims.HasM() {
			p.ms.Append(m)
		}
		return
	}
	p.fixedB.Append(true)
	p.values.Append(x)
	p.values.Append(y)
	if p.dims.HasZ() {
		p.values.Append(z)
	}
	if p.dims.HasM() {
		p.values.Append(m)
	}
}

// boxBuilder fills the dims-aware box struct directly from a Coords
// call carrying exactly 2 tuples: (xmin,ymin,[zmin],[mmin]) and
// (xmax,ymax,[zmax],[mmax]).
type boxBuilder struct {
	dims       geotype.Dimensions
	structB    *array.StructBuilder
	xmin, xmax *array.Float64Builder
	ymin, ymax *array.Float64Builder
	zmin, zmax *array.Float64Builder
	mmin, mmax *array.Float64Builder
}

func newBoxBuilder(dims geotype.Dimensions, bld *array.StructBuilder) *boxBuilder {
	b := &boxBuilder{dims: dims, structB: bld}
	b.xmin = bld.FieldBuilder(0).(*array.Float64Builder)
	b.xmax = bld.FieldBuilder(1).(*array.Float64Builder)
	b.ymin = bld.FieldBuilder(2).(*array.Float64Builder)
	b.ymax = bld.FieldBuilder(3).(*array.Float64Builder)
	field := 4
	if dims.HasZ() {
		b.zmin = bld.FieldBuilder(field).(*array.Float64Builder)
		b.zmax = bld.FieldBuilder(field + 1).(*array.Float64Builder)
		field += 2
	}
	if dims.HasM() {
		b.mmin = bld.FieldBuilder(field).(*array.Float64Builder)
		b.mmax = bld.FieldBuilder(field + 1).(*array.Float64Builder)
	}
	return b
}

func (b *boxBuilder) AppendNull() {
	b.structB.AppendNull()
}

func (b *boxBuilder) Append(xs, ys, zs, ms []float64, count int) error {
	if count != 2 {
		return geoerr.New(geoerr.Validation, "geobuilder: box Coords call must carry exactly 2 tuples (min, max), got %d", count)
	}
	b.structB.Append(true)
	b.xmin.Append(xs[0])
	b.xmax.Append(xs[1])
	b.ymin.Append(ys[0])
	b.ymax.Append(ys[1])
	if b.dims.HasZ() {
		b.zmin.Append(zs[0])
		b.zmax.Append(zs[1])
	}
	if b.dims.HasM() {
		b.mmin.Append(ms[0])
		b.mmax.Append(ms[1])
	}
	return nil
}
