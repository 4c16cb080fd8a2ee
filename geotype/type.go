// Package geotype implements the GeoArrow type algebra: canonical
// encode/decode between a GeometryDataType descriptor and an Arrow
// field plus its extension metadata.
package geotype

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/geoarrow-go/geoerr"
)

// dimensionHintKey is a plain (non-extension) Arrow field metadata key
// used to disambiguate an interleaved fixed-size-list of width 3
// between XYZ and XYM, which are otherwise indistinguishable from
// storage shape alone. Modeled on the teacher's own habit of stashing
// a redundant "dimension" field metadata entry alongside the
// extension metadata blob.
const dimensionHintKey = "ARROW:extension:geoarrow-go:dims"

type extKind int8

const (
	extNone extKind = iota
	extWKT
	extWKB
)

// GeometryDataType is the immutable descriptor (geometry_type,
// dimensions, coord_type, edge_type, crs_type, crs_bytes) tuple from
// spec §3. Zero value is not a valid descriptor; build one with Make,
// WKT, or WKB.
type GeometryDataType struct {
	ext          extKind
	large        bool
	geometryType GeometryType
	dims         Dimensions
	coordType    CoordType
	edgeType     EdgeType
	crsType      CrsType
	crs          []byte
	extras       map[string]json.RawMessage
}

// Make builds a native GeoArrow descriptor with default edge type
// (Planar) and CRS (None). geometryType must not be Geometry (use WKT
// or WKB for the unparameterized storage types).
func Make(geometryType GeometryType, dims Dimensions, coordType CoordType) (GeometryDataType, error) {
	t := GeometryDataType{geometryType: geometryType, dims: dims, coordType: coordType}
	if err := t.validate(); err != nil {
		return GeometryDataType{}, err
	}
	return t, nil
}

// WKT builds the geoarrow.wkt descriptor. large selects large-utf8 storage.
func WKT(large bool) GeometryDataType {
	return GeometryDataType{ext: extWKT, large: large}
}

// WKB builds the geoarrow.wkb descriptor. large selects large-binary storage.
func WKB(large bool) GeometryDataType {
	return GeometryDataType{ext: extWKB, large: large}
}

func (t GeometryDataType) validate() error {
	if t.ext != extNone {
		if t.geometryType != Geometry || t.dims != DimUnknown || t.coordType != CoordUnknown {
			return geoerr.New(geoerr.Validation, "wkb/wkt descriptors must have geometry_type=GEOMETRY, dimensions=UNKNOWN, coord_type=UNKNOWN")
		}
		return nil
	}
	if t.geometryType == Geometry {
		return geoerr.New(geoerr.IllegalArgument, "geometry_type GEOMETRY requires the WKT or WKB constructor")
	}
	if t.dims == DimUnknown {
		return geoerr.New(geoerr.IllegalArgument, "geometry_type %s requires dimensions != UNKNOWN", t.geometryType)
	}
	if t.coordType == CoordUnknown {
		return geoerr.New(geoerr.IllegalArgument, "geometry_type %s requires coord_type != UNKNOWN", t.geometryType)
	}
	if (t.crsType == CrsNone) != (len(t.crs) == 0) {
		return geoerr.New(geoerr.Validation, "crs bytes must be empty iff crs_type is NONE")
	}
	return nil
}

// GeometryType returns the descriptor's geometry type.
func (t GeometryDataType) GeometryType() GeometryType { return t.geometryType }

// Dimensions returns the descriptor's dimension set.
func (t GeometryDataType) Dimensions() Dimensions { return t.dims }

// CoordType returns the descriptor's coordinate layout.
func (t GeometryDataType) CoordType() CoordType { return t.coordType }

// EdgeType returns the descriptor's edge interpretation.
func (t GeometryDataType) EdgeType() EdgeType { return t.edgeType }

// CrsType returns the descriptor's CRS encoding.
func (t GeometryDataType) CrsType() CrsType { return t.crsType }

// CRS returns the raw (opaque) CRS payload bytes.
func (t GeometryDataType) CRS() []byte { return t.crs }

// IsWKT reports whether this descriptor is the geoarrow.wkt storage type.
func (t GeometryDataType) IsWKT() bool { return t.ext == extWKT }

// IsWKB reports whether this descriptor is the geoarrow.wkb storage type.
func (t GeometryDataType) IsWKB() bool { return t.ext == extWKB }

// Large reports whether a WKT/WKB descriptor uses 64-bit offsets.
func (t GeometryDataType) Large() bool { return t.large }

// WithGeometryType returns a new descriptor with geometryType changed.
// geometryType must not be Geometry; use WKT/WKB for that family.
func (t GeometryDataType) WithGeometryType(geometryType GeometryType) (GeometryDataType, error) {
	if geometryType == Geometry {
		return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "use WKT/WKB to build a GEOMETRY descriptor")
	}
	next := t
	next.ext = extNone
	next.large = false
	next.geometryType = geometryType
	if err := next.validate(); err != nil {
		return GeometryDataType{}, err
	}
	return next, nil
}

// WithDimensions returns a new descriptor with dims changed.
func (t GeometryDataType) WithDimensions(dims Dimensions) (GeometryDataType, error) {
	next := t
	next.dims = dims
	if err := next.validate(); err != nil {
		return GeometryDataType{}, err
	}
	return next, nil
}

// WithCoordType returns a new descriptor with coordType changed.
func (t GeometryDataType) WithCoordType(coordType CoordType) (GeometryDataType, error) {
	next := t
	next.coordType = coordType
	if err := next.validate(); err != nil {
		return GeometryDataType{}, err
	}
	return next, nil
}

// WithEdgeType returns a new descriptor with edgeType changed. Every
// geometry/edge combination is structurally valid, so this cannot fail.
func (t GeometryDataType) WithEdgeType(edgeType EdgeType) GeometryDataType {
	next := t
	next.edgeType = edgeType
	return next
}

// WithCRS returns a new descriptor with the CRS changed. crsType ==
// CrsNone requires an empty crs payload; any other crsType requires a
// non-empty, validated-UTF8 JSON value.
func (t GeometryDataType) WithCRS(crsType CrsType, crs []byte) (GeometryDataType, error) {
	next := t
	next.crsType = crsType
	next.crs = crs
	if crsType != CrsNone {
		if len(crs) == 0 {
			return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "crs payload required for crs_type %s", crsType)
		}
		if !json.Valid(crs) {
			return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "crs payload must be valid JSON")
		}
	} else if len(crs) != 0 {
		return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "crs payload must be empty for crs_type NONE")
	}
	return next, nil
}

// Equal reports whether two descriptors are identical, including CRS
// payload and any preserved unknown metadata keys.
func (t GeometryDataType) Equal(o GeometryDataType) bool {
	if t.ext != o.ext || t.large != o.large || t.geometryType != o.geometryType ||
		t.dims != o.dims || t.coordType != o.coordType || t.edgeType != o.edgeType ||
		t.crsType != o.crsType || !bytes.Equal(t.crs, o.crs) {
		return false
	}
	if len(t.extras) != len(o.extras) {
		return false
	}
	for k, v := range t.extras {
		ov, ok := o.extras[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}

// ExtensionName returns the exact extension name string (§6) for this
// descriptor. Fails for GeometryCollection, which has no native
// extension name in this module's GeoArrow dialect.
func (t GeometryDataType) ExtensionName() (string, error) {
	switch t.ext {
	case extWKT:
		return "geoarrow.wkt", nil
	case extWKB:
		return "geoarrow.wkb", nil
	}
	switch t.geometryType {
	case Point:
		return "geoarrow.point", nil
	case LineString:
		return "geoarrow.linestring", nil
	case Polygon:
		return "geoarrow.polygon", nil
	case MultiPoint:
		return "geoarrow.multipoint", nil
	case MultiLineString:
		return "geoarrow.multilinestring", nil
	case MultiPolygon:
		return "geoarrow.multipolygon", nil
	case Box:
		return "geoarrow.box", nil
	default:
		return "", geoerr.New(geoerr.IllegalArgument, "geometry type %s has no GeoArrow extension name", t.geometryType)
	}
}

// PackedID returns the packed ISO type code used by
// unique_geometry_types_agg: the base code (1-7, or 8 for Box) plus the
// dimension decimal group (+1000/+2000/+3000).
func (t GeometryDataType) PackedID() (int32, error) {
	if t.ext != extNone {
		return 0, geoerr.New(geoerr.IllegalArgument, "wkt/wkb descriptors have no packed geometry code")
	}
	if t.geometryType == Geometry {
		return 0, geoerr.New(geoerr.IllegalArgument, "unparameterized GEOMETRY has no packed geometry code")
	}
	return int32(t.geometryType) + t.dims.packedGroup(), nil
}

// MakeFromPackedID is the inverse of PackedID: it splits a packed ISO
// type code back into its base geometry type and dimension group and
// builds a descriptor for it with the given coordType, as used by the
// as_geoarrow kernel's "type" option.
func MakeFromPackedID(id int32, coordType CoordType) (GeometryDataType, error) {
	group := (id / 1000) * 1000
	base := id - group
	var dims Dimensions
	switch group {
	case 0:
		dims = XY
	case 1000:
		dims = XYZ
	case 2000:
		dims = XYM
	case 3000:
		dims = XYZM
	default:
		return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "packed geometry code %d has an unrecognized dimension group", id)
	}
	if base < int32(Point) || base > int32(Box) {
		return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "packed geometry code %d has an unrecognized base type", id)
	}
	return Make(GeometryType(base), dims, coordType)
}

func pointLayout(dims Dimensions, ct CoordType) arrow.DataType {
	if ct == Interleaved {
		return &arrow.FixedSizeListType{ListSize: int32(dims.Count()), Elem: arrow.PrimitiveTypes.Float64}
	}
	fields := []arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Float64},
		{Name: "y", Type: arrow.PrimitiveTypes.Float64},
	}
	if dims.HasZ() {
		fields = append(fields, arrow.Field{Name: "z", Type: arrow.PrimitiveTypes.Float64})
	}
	if dims.HasM() {
		fields = append(fields, arrow.Field{Name: "m", Type: arrow.PrimitiveTypes.Float64})
	}
	return arrow.StructOf(fields...)
}

func boxStorageType(dims Dimensions) arrow.DataType {
	fields := []arrow.Field{
		{Name: "xmin", Type: arrow.PrimitiveTypes.Float64},
		{Name: "xmax", Type: arrow.PrimitiveTypes.Float64},
		{Name: "ymin", Type: arrow.PrimitiveTypes.Float64},
		{Name: "ymax", Type: arrow.PrimitiveTypes.Float64},
	}
	if dims.HasZ() {
		fields = append(fields,
			arrow.Field{Name: "zmin", Type: arrow.PrimitiveTypes.Float64},
			arrow.Field{Name: "zmax", Type: arrow.PrimitiveTypes.Float64})
	}
	if dims.HasM() {
		fields = append(fields,
			arrow.Field{Name: "mmin", Type: arrow.PrimitiveTypes.Float64},
			arrow.Field{Name: "mmax", Type: arrow.PrimitiveTypes.Float64})
	}
	return arrow.StructOf(fields...)
}

// StorageType returns the bare Arrow storage type derived from the
// descriptor (§3), with no extension metadata attached.
func (t GeometryDataType) StorageType() (arrow.DataType, error) {
	switch t.ext {
	case extWKT:
		if t.large {
			return arrow.BinaryTypes.LargeString, nil
		}
		return arrow.BinaryTypes.String, nil
	case extWKB:
		if t.large {
			return arrow.BinaryTypes.LargeBinary, nil
		}
		return arrow.BinaryTypes.Binary, nil
	}
	switch t.geometryType {
	case GeometryCollection:
		return nil, geoerr.New(geoerr.IllegalArgument, "GEOMETRYCOLLECTION has no native GeoArrow storage type")
	case Box:
		return boxStorageType(t.dims), nil
	}
	leaf := pointLayout(t.dims, t.coordType)
	dt := leaf
	for i := 0; i < t.geometryType.listDepth(); i++ {
		dt = arrow.ListOf(dt)
	}
	return dt, nil
}

// ToStorageSchema returns a single-field Arrow schema for the bare
// storage type, with no extension metadata (spec §4.1 to_storage_schema).
func (t GeometryDataType) ToStorageSchema(name string) (*arrow.Schema, error) {
	st, err := t.StorageType()
	if err != nil {
		return nil, err
	}
	return arrow.NewSchema([]arrow.Field{{Name: name, Type: st, Nullable: true}}, nil), nil
}

// ToSchema returns the Arrow field for the descriptor: the storage
// type plus ARROW:extension:name/metadata entries (spec §4.1 to_schema).
func (t GeometryDataType) ToSchema(name string, nullable bool) (arrow.Field, error) {
	st, err := t.StorageType()
	if err != nil {
		return arrow.Field{}, err
	}
	extName, err := t.ExtensionName()
	if err != nil {
		return arrow.Field{}, err
	}
	metaJSON, err := t.metadataJSON()
	if err != nil {
		return arrow.Field{}, err
	}
	keys := []string{"ARROW:extension:name", "ARROW:extension:metadata"}
	values := []string{extName, string(metaJSON)}
	if t.coordType == Interleaved {
		keys = append(keys, dimensionHintKey)
		values = append(values, dimsHint(t.dims))
	}
	return arrow.Field{
		Name:     name,
		Type:     st,
		Nullable: nullable,
		Metadata: arrow.NewMetadata(keys, values),
	}, nil
}

func dimsHint(d Dimensions) string {
	switch d {
	case XY:
		return "xy"
	case XYZ:
		return "xyz"
	case XYM:
		return "xym"
	case XYZM:
		return "xyzm"
	default:
		return ""
	}
}

func (t GeometryDataType) metadataJSON() ([]byte, error) {
	type pair struct {
		key string
		val []byte
	}
	var kvs []pair
	if t.crsType != CrsNone {
		kvs = append(kvs, pair{"crs", t.crs})
		ctb, err := json.Marshal(t.crsType.String())
		if err != nil {
			return nil, geoerr.Wrap(geoerr.IllegalArgument, err, "marshaling crs_type")
		}
		kvs = append(kvs, pair{"crs_type", ctb})
	}
	if t.edgeType != Planar {
		eb, err := json.Marshal(t.edgeType.String())
		if err != nil {
			return nil, geoerr.Wrap(geoerr.IllegalArgument, err, "marshaling edges")
		}
		kvs = append(kvs, pair{"edges", eb})
	}
	extraKeys := make([]string, 0, len(t.extras))
	for k := range t.extras {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		kvs = append(kvs, pair{k, t.extras[k]})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range kvs {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(p.key)
		if err != nil {
			return nil, geoerr.Wrap(geoerr.IllegalArgument, err, "marshaling metadata key %q", p.key)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(p.val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func parseMetadata(data []byte) (crsType CrsType, crs []byte, edgeType EdgeType, extras map[string]json.RawMessage, err error) {
	edgeType = Planar
	if len(data) == 0 {
		return CrsNone, nil, edgeType, nil, nil
	}
	var raw map[string]json.RawMessage
	if uerr := json.Unmarshal(data, &raw); uerr != nil {
		return 0, nil, 0, nil, geoerr.Wrap(geoerr.Parse, uerr, "invalid extension metadata JSON")
	}
	if v, ok := raw["crs"]; ok {
		crs = []byte(v)
		delete(raw, "crs")
	}
	if v, ok := raw["edges"]; ok {
		var s string
		if uerr := json.Unmarshal(v, &s); uerr != nil {
			return 0, nil, 0, nil, geoerr.Wrap(geoerr.Parse, uerr, "invalid edges metadata value")
		}
		if edgeType, err = ParseEdgeType(s); err != nil {
			return 0, nil, 0, nil, err
		}
		delete(raw, "edges")
	}
	if v, ok := raw["crs_type"]; ok {
		var s string
		if uerr := json.Unmarshal(v, &s); uerr != nil {
			return 0, nil, 0, nil, geoerr.Wrap(geoerr.Parse, uerr, "invalid crs_type metadata value")
		}
		if crsType, err = ParseCrsType(s); err != nil {
			return 0, nil, 0, nil, err
		}
		delete(raw, "crs_type")
	} else if len(crs) > 0 {
		crsType = CrsUnknown
	}
	if crsType != CrsNone && len(crs) == 0 {
		return 0, nil, 0, nil, geoerr.New(geoerr.Parse, "crs_type given without a crs payload")
	}
	if len(raw) > 0 {
		extras = raw
	}
	return crsType, crs, edgeType, extras, nil
}

func peelList(dt arrow.DataType, depth int) (arrow.DataType, error) {
	for i := 0; i < depth; i++ {
		lt, ok := dt.(*arrow.ListType)
		if !ok {
			return nil, geoerr.New(geoerr.IllegalArgument, "storage shape has fewer list nesting levels than the extension name requires")
		}
		dt = lt.Elem()
	}
	if _, ok := dt.(*arrow.ListType); ok {
		return nil, geoerr.New(geoerr.IllegalArgument, "storage shape has more list nesting levels than the extension name allows")
	}
	return dt, nil
}

func parsePointLayout(dt arrow.DataType, dimsHintValue string) (Dimensions, CoordType, error) {
	switch v := dt.(type) {
	case *arrow.StructType:
		names := make(map[string]bool, v.NumFields())
		for i := 0; i < v.NumFields(); i++ {
			names[v.Field(i).Name] = true
		}
		if !names["x"] || !names["y"] {
			return 0, 0, geoerr.New(geoerr.IllegalArgument, "point struct storage must have x and y children")
		}
		return DimensionsFromFlags(names["z"], names["m"]), Separate, nil
	case *arrow.FixedSizeListType:
		switch v.Len() {
		case 2:
			return XY, Interleaved, nil
		case 4:
			return XYZM, Interleaved, nil
		case 3:
			switch dimsHintValue {
			case "xyz":
				return XYZ, Interleaved, nil
			case "xym":
				return XYM, Interleaved, nil
			default:
				return 0, 0, geoerr.New(geoerr.IllegalArgument, "interleaved width-3 coordinates require the %s metadata hint to disambiguate XYZ from XYM", dimensionHintKey)
			}
		default:
			return 0, 0, geoerr.New(geoerr.IllegalArgument, "fixed-size-list coordinate width %d is not a valid point layout", v.Len())
		}
	default:
		return 0, 0, geoerr.New(geoerr.IllegalArgument, "point layout must be a struct or fixed-size-list of float64, got %s", dt)
	}
}

func parseBoxLayout(dt arrow.DataType) (Dimensions, error) {
	st, ok := dt.(*arrow.StructType)
	if !ok {
		return 0, geoerr.New(geoerr.IllegalArgument, "box storage must be a struct, got %s", dt)
	}
	names := make(map[string]bool, st.NumFields())
	for i := 0; i < st.NumFields(); i++ {
		names[st.Field(i).Name] = true
	}
	if !names["xmin"] || !names["xmax"] || !names["ymin"] || !names["ymax"] {
		return 0, geoerr.New(geoerr.IllegalArgument, "box storage must have xmin, xmax, ymin, ymax children")
	}
	return DimensionsFromFlags(names["zmin"] && names["zmax"], names["mmin"] && names["mmax"]), nil
}

// FromStorage derives a descriptor from a storage type, an extension
// name, and the raw extension metadata bytes (spec §4.1 FromStorage).
func FromStorage(storageType arrow.DataType, extensionName string, metadataBytes []byte, dimsHint string) (GeometryDataType, error) {
	crsType, crs, edgeType, extras, err := parseMetadata(metadataBytes)
	if err != nil {
		return GeometryDataType{}, err
	}
	base := GeometryDataType{crsType: crsType, crs: crs, edgeType: edgeType, extras: extras}

	switch extensionName {
	case "geoarrow.wkt":
		switch storageType.ID() {
		case arrow.STRING:
			base.ext, base.large = extWKT, false
		case arrow.LARGE_STRING:
			base.ext, base.large = extWKT, true
		default:
			return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "geoarrow.wkt requires utf8 or large-utf8 storage, got %s", storageType)
		}
		return base, nil
	case "geoarrow.wkb":
		switch storageType.ID() {
		case arrow.BINARY:
			base.ext, base.large = extWKB, false
		case arrow.LARGE_BINARY:
			base.ext, base.large = extWKB, true
		default:
			return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "geoarrow.wkb requires binary or large-binary storage, got %s", storageType)
		}
		return base, nil
	case "geoarrow.box":
		dims, err := parseBoxLayout(storageType)
		if err != nil {
			return GeometryDataType{}, err
		}
		base.geometryType, base.dims, base.coordType = Box, dims, Separate
		return base, nil
	}

	depths := map[string]struct {
		gt    GeometryType
		depth int
	}{
		"geoarrow.point":           {Point, 0},
		"geoarrow.linestring":      {LineString, 1},
		"geoarrow.multipoint":      {MultiPoint, 1},
		"geoarrow.polygon":         {Polygon, 2},
		"geoarrow.multilinestring": {MultiLineString, 2},
		"geoarrow.multipolygon":    {MultiPolygon, 3},
	}
	d, ok := depths[extensionName]
	if !ok {
		return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "unrecognized GeoArrow extension name %q", extensionName)
	}
	leaf, err := peelList(storageType, d.depth)
	if err != nil {
		return GeometryDataType{}, err
	}
	dims, ct, err := parsePointLayout(leaf, dimsHint)
	if err != nil {
		return GeometryDataType{}, err
	}
	base.geometryType, base.dims, base.coordType = d.gt, dims, ct
	return base, nil
}

// FromExtension derives a descriptor from an Arrow field carrying
// ARROW:extension:name/metadata entries (spec §4.1 FromExtension).
func FromExtension(field arrow.Field) (GeometryDataType, error) {
	md := field.Metadata
	nameIdx := md.FindKey("ARROW:extension:name")
	if nameIdx < 0 {
		return GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "field %q has no ARROW:extension:name metadata", field.Name)
	}
	name := md.Values()[nameIdx]
	var metaBytes []byte
	if metaIdx := md.FindKey("ARROW:extension:metadata"); metaIdx >= 0 {
		metaBytes = []byte(md.Values()[metaIdx])
	}
	dimsHintValue := ""
	if hintIdx := md.FindKey(dimensionHintKey); hintIdx >= 0 {
		dimsHintValue = md.Values()[hintIdx]
	}
	return FromStorage(field.Type, name, metaBytes, dimsHintValue)
}
