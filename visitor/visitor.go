// Package visitor defines the callback protocol that decouples every
// on-disk geometry encoding (WKB, WKT, native GeoArrow) from every
// consumer (a builder, another encoding's writer, a box kernel). Spec
// §4.6: every conversion in this module is the composition of a
// Reader (drives a Visitor from a source) and a Visitor implementation
// acting as a Writer (drains events into a sink).
package visitor

import "github.com/hugr-lab/geoarrow-go/geotype"

// Visitor receives a balanced stream of geometry events for one
// batch. Implementations act as "writers": WKB/WKT encoders, and the
// GeoArrow builder adapter in package geobuilder.
//
// Guarantees enforced by every Reader in this module (spec §4.6):
//  1. GeometryBegin/GeometryEnd are balanced.
//  2. RingBegin/RingEnd are emitted only for polygonal geometries
//     (Polygon, MultiPolygon, and their components).
//  3. Coords may be called any number of times within one ring or
//     linear geometry; calls must in aggregate satisfy the count
//     declared by the enclosing RingBegin or, for non-polygonal
//     linear types, the geometry's own coordinate count.
//  4. The dimension of each Coords call matches the feature's
//     declared Dimensions; a promoting Visitor (e.g. writing XY input
//     into an XYZ output) fills absent ordinates with NaN rather than
//     rejecting the call.
type Visitor interface {
	// FeatureBegin starts a new feature (array row). parts is the
	// number of top-level geometries about to be visited for this
	// feature; the readers in this module (arrview, wkb, wkt) always
	// pass 1, a GeometryCollection counting as one top-level geometry
	// whose children arrive between its GeometryBegin/End. A Visitor that
	// allocates ahead of time (e.g. a builder sizing an offsets
	// buffer) may use parts as a size hint; it is not itself visited
	// as a ring or coordinate.
	FeatureBegin(parts int) error

	// NullFeature marks the current row as null. No GeometryBegin
	// call follows until the matching FeatureEnd.
	NullFeature() error

	// GeometryBegin starts one geometry (a whole feature, or a part
	// of a GeometryCollection/Multi* feature).
	GeometryBegin(t geotype.GeometryType, dims geotype.Dimensions) error

	// GeometryEnd closes the geometry most recently opened by
	// GeometryBegin.
	GeometryEnd() error

	// RingBegin starts a linear ring of n coordinates within a
	// Polygon or MultiPolygon component. n is the exact coordinate
	// count of the ring, known up front from the source encoding.
	RingBegin(n int) error

	// RingEnd closes the ring most recently opened by RingBegin.
	RingEnd() error

	// Coords delivers count coordinates belonging to the innermost
	// open ring (for polygonal types) or directly to the innermost
	// open geometry (for LineString/MultiPoint/Point). zs and/or ms
	// are nil when the feature's declared Dimensions lacks that
	// ordinate. Each slice, when non-nil, has length >= count.
	Coords(xs, ys, zs, ms []float64, count int) error

	// FeatureEnd closes the feature most recently opened by
	// FeatureBegin or NullFeature.
	FeatureEnd() error
}

// Reader drives a Visitor through every feature of a source in order.
// WKB/WKT codecs and the array-view walker all implement Reader.
type Reader interface {
	// VisitAll visits every feature in the source, in row order,
	// calling v's methods. Returns the first error encountered; per
	// spec §4.7, a caller that wants to continue past a bad feature
	// must re-invoke VisitAll on the remaining input itself (the core
	// does not skip-and-continue within one VisitAll call).
	VisitAll(v Visitor) error
}

// Copy drives r through w; a convenience for the common
// reader-composed-with-writer conversion pattern.
func Copy(r Reader, w Visitor) error {
	return r.VisitAll(w)
}

// NopVisitor embeds into a Visitor implementation to satisfy the
// interface for event kinds the embedder doesn't care about; used by
// visit_void_agg (validation-only) and tests that only assert on a
// subset of events.
type NopVisitor struct{}

func (NopVisitor) FeatureBegin(int) error { return nil }
func (NopVisitor) NullFeature() error     { return nil }
func (NopVisitor) GeometryBegin(geotype.GeometryType, geotype.Dimensions) error {
	return nil
}
func (NopVisitor) GeometryEnd() error                               { return nil }
func (NopVisitor) RingBegin(int) error                               { return nil }
func (NopVisitor) RingEnd() error                                    { return nil }
func (NopVisitor) Coords(xs, ys, zs, ms []float64, count int) error { return nil }
func (NopVisitor) FeatureEnd() error                                 { return nil }

var _ Visitor = NopVisitor{}
