package geotype

import "github.com/hugr-lab/geoarrow-go/geoerr"

// GeometryType is the closed enumeration of geometry kinds. Values 0-8
// match the WKB geometry type codes (base, before any dimension offset
// is added); GEOMETRY is the unparameterized WKB/WKT storage marker.
type GeometryType int8

const (
	Geometry GeometryType = iota
	Point
	LineString
	Polygon
	MultiPoint
	MultiLineString
	MultiPolygon
	GeometryCollection
	Box
)

func (t GeometryType) String() string {
	switch t {
	case Geometry:
		return "geometry"
	case Point:
		return "point"
	case LineString:
		return "linestring"
	case Polygon:
		return "polygon"
	case MultiPoint:
		return "multipoint"
	case MultiLineString:
		return "multilinestring"
	case MultiPolygon:
		return "multipolygon"
	case GeometryCollection:
		return "geometrycollection"
	case Box:
		return "box"
	default:
		return "unknown"
	}
}

// ListDepth is the number of list<> nesting levels between the
// storage type and its point layout leaf, per the GeometryType.
func (t GeometryType) ListDepth() int { return t.listDepth() }

// listDepth is the number of list<> nesting levels between the storage
// type and its point layout leaf, per the GeometryType.
func (t GeometryType) listDepth() int {
	switch t {
	case LineString, MultiPoint:
		return 1
	case Polygon, MultiLineString:
		return 2
	case MultiPolygon:
		return 3
	default:
		return 0
	}
}

// Dimensions encodes which of Z and M are present in a coordinate.
type Dimensions int8

const (
	DimUnknown Dimensions = iota
	XY
	XYZ
	XYM
	XYZM
)

// HasZ reports whether the dimension set carries a Z ordinate.
func (d Dimensions) HasZ() bool { return d == XYZ || d == XYZM }

// HasM reports whether the dimension set carries an M ordinate.
func (d Dimensions) HasM() bool { return d == XYM || d == XYZM }

// Count is the number of ordinates per coordinate (2, 3, 3, or 4).
func (d Dimensions) Count() int {
	switch d {
	case XY:
		return 2
	case XYZ, XYM:
		return 3
	case XYZM:
		return 4
	default:
		return 0
	}
}

// Suffix is the WKT dimensionality modifier ("", "Z",
// "M", "ZM") for this dimension set.
func (d Dimensions) Suffix() string {
	switch d {
	case XYZ:
		return "Z"
	case XYM:
		return "M"
	case XYZM:
		return "ZM"
	default:
		return ""
	}
}

// ISOGroup returns the WKB/WKT ISO dimension offset added to the base
// geometry type code: +0 for XY, +1000/+2000/+3000 for XYZ/XYM/XYZM.
func (d Dimensions) ISOGroup() int32 { return d.packedGroup() }

// packedGroup is the WKB-style decimal dimension offset: +0/1000/2000/3000.
func (d Dimensions) packedGroup() int32 {
	switch d {
	case XYZ:
		return 1000
	case XYM:
		return 2000
	case XYZM:
		return 3000
	default:
		return 0
	}
}

// DimensionsFromFlags derives a Dimensions value from independent Z/M flags.
func DimensionsFromFlags(z, m bool) Dimensions {
	switch {
	case z && m:
		return XYZM
	case z:
		return XYZ
	case m:
		return XYM
	default:
		return XY
	}
}

// CoordType describes how a point's ordinates are laid out in Arrow
// storage: as sibling struct fields, or as one fixed-size list.
type CoordType int8

const (
	CoordUnknown CoordType = iota
	Separate
	Interleaved
)

func (c CoordType) String() string {
	switch c {
	case Separate:
		return "separate"
	case Interleaved:
		return "interleaved"
	default:
		return "unknown"
	}
}

// EdgeType describes how edges between consecutive coordinates are
// interpreted. Only Planar is interpreted by this module; the rest
// round-trip through extension metadata.
type EdgeType int8

const (
	Planar EdgeType = iota
	Spherical
	Vincenty
	Thomas
	Andoyer
	Karney
)

func (e EdgeType) String() string {
	switch e {
	case Planar:
		return "planar"
	case Spherical:
		return "spherical"
	case Vincenty:
		return "vincenty"
	case Thomas:
		return "thomas"
	case Andoyer:
		return "andoyer"
	case Karney:
		return "karney"
	default:
		return "unknown"
	}
}

// ParseEdgeType parses the "edges" metadata value. Empty string means
// the default, Planar.
func ParseEdgeType(s string) (EdgeType, error) {
	switch s {
	case "", "planar":
		return Planar, nil
	case "spherical":
		return Spherical, nil
	case "vincenty":
		return Vincenty, nil
	case "thomas":
		return Thomas, nil
	case "andoyer":
		return Andoyer, nil
	case "karney":
		return Karney, nil
	default:
		return Planar, geoerr.New(geoerr.IllegalArgument, "unrecognized edge type %q", s)
	}
}

// CrsType identifies the encoding of an opaque CRS payload.
type CrsType int8

const (
	CrsNone CrsType = iota
	CrsUnknown
	CrsProjJSON
	CrsWKT2_2019
	CrsAuthorityCode
	CrsSRID
)

func (c CrsType) String() string {
	switch c {
	case CrsNone:
		return ""
	case CrsUnknown:
		return "unknown"
	case CrsProjJSON:
		return "projjson"
	case CrsWKT2_2019:
		return "wkt2:2019"
	case CrsAuthorityCode:
		return "authority_code"
	case CrsSRID:
		return "srid"
	default:
		return "unknown"
	}
}

// ParseCrsType parses the "crs_type" metadata value.
func ParseCrsType(s string) (CrsType, error) {
	switch s {
	case "", "unknown":
		return CrsUnknown, nil
	case "projjson":
		return CrsProjJSON, nil
	case "wkt2:2019":
		return CrsWKT2_2019, nil
	case "authority_code":
		return CrsAuthorityCode, nil
	case "srid":
		return CrsSRID, nil
	default:
		return CrsUnknown, geoerr.New(geoerr.IllegalArgument, "unrecognized crs_type %q", s)
	}
}
