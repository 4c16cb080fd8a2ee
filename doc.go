// Package geoarrow is the root of a GeoArrow columnar geometry
// encoding I/O core: a type algebra, encoding-agnostic readers and
// writers, a named kernel framework, and a fragment bounding-box
// index, built around Apache Arrow arrays.
//
// The module has no server or transport layer of its own; it is a
// library for processes that already hold Arrow data and need to
// read, write, transform, or index GeoArrow-encoded geometry columns.
//
// # Packages
//
//   - geotype: the GeometryType/Dimensions/CoordType/EdgeType/CrsType
//     algebra, and GeometryDataType, which maps a descriptor to its
//     Arrow storage type and back, and round-trips GeoArrow extension
//     metadata on an *arrow.Field.
//   - visitor: the Visitor/Reader protocol geometry producers and
//     consumers share, regardless of whether the underlying encoding
//     is native GeoArrow, WKB, or WKT.
//   - wkb, wkt: codecs implementing visitor.Reader (decode) and
//     visitor.Visitor (encode) over well-known binary/text geometry.
//   - arrview: a read-only visitor.Reader over any Arrow array with a
//     GeometryDataType, dispatching to the native list-nesting walker
//     or to wkb/wkt depending on the descriptor.
//   - geobuilder: the inverse of arrview — a visitor.Visitor that
//     assembles an Arrow array from a balanced stream of geometry
//     events, for any GeometryDataType including WKB/WKT.
//   - kernel: the named stream-operator framework (void, as_wkt,
//     as_wkb, as_geoarrow, format_wkt, unique_geometry_types_agg, box,
//     box_agg, ...), each kernel validated once via Start and then
//     driven batch by batch.
//   - box: the XY bounding-box computation the box/box_agg kernels
//     wrap, exposed directly for callers that need it outside the
//     kernel framework (e.g. fragment indexing).
//   - fragment: builds and queries a per-fragment bounding-box index
//     over one or more geometry columns, for pruning fragments a
//     spatial query cannot intersect.
//   - arrowc: the Arrow C Data Interface bridge, importing and
//     exporting GeoArrow-described arrays and fields across an FFI
//     boundary.
//
// # Quick start
//
// Build a WKT column and compute a bounding box per feature:
//
//	package main
//
//	import (
//	    "github.com/apache/arrow-go/v18/arrow/array"
//	    "github.com/apache/arrow-go/v18/arrow/memory"
//
//	    "github.com/hugr-lab/geoarrow-go/box"
//	    "github.com/hugr-lab/geoarrow-go/geotype"
//	)
//
//	func main() {
//	    sb := array.NewStringBuilder(memory.DefaultAllocator)
//	    sb.Append("POINT (30 10)")
//	    wkt := sb.NewArray()
//	    defer wkt.Release()
//
//	    bounds, _ := box.ElementWise(memory.DefaultAllocator, geotype.WKT(false), wkt)
//	    defer bounds.Release()
//	}
//
// # Errors
//
// Every exported function in this module returns an error that is or
// wraps a *geoerr.Error on failure, tagged with one of a small set of Kinds (Parse, Validation,
// IllegalArgument, Type, Overflow, IO). Callers that need to branch on
// failure category should use geoerr.Is or geoerr.AsKind rather than
// string-matching error text.
//
// # Memory management
//
// Arrow uses manual reference counting. Callers MUST call Release()
// on every arrow.Array this module returns once it is no longer
// needed, and on every array.RecordReader obtained from a
// fragment.Fragment.
//
// # Logging
//
// Packages that need a logger (internal/recovery's panic containment)
// use log/slog.Default(); set it with slog.SetDefault to change where
// those messages go.
//
// # Concurrency
//
// fragment.BuildIndex fans work out across fragments concurrently
// using golang.org/x/sync/errgroup; a panic inside an embedder-
// supplied Fragment.Scan is caught and converted to a *geoerr.Error
// rather than crashing the caller.
package geoarrow
