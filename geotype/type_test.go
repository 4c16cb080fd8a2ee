package geotype

import "testing"

func roundTrip(t *testing.T, dt GeometryDataType) {
	t.Helper()
	field, err := dt.ToSchema("geom", true)
	if err != nil {
		t.Fatalf("ToSchema: %v", err)
	}
	got, err := FromExtension(field)
	if err != nil {
		t.Fatalf("FromExtension: %v", err)
	}
	if !dt.Equal(got) {
		t.Fatalf("round trip mismatch: want %+v, got %+v", dt, got)
	}
}

func TestRoundTripNativeTypes(t *testing.T) {
	cases := []struct {
		name string
		gt   GeometryType
		dims Dimensions
		ct   CoordType
	}{
		{"point/xy/separate", Point, XY, Separate},
		{"point/xyzm/interleaved", Point, XYZM, Interleaved},
		{"point/xyz/interleaved", Point, XYZ, Interleaved},
		{"point/xym/interleaved", Point, XYM, Interleaved},
		{"linestring/xy/separate", LineString, XY, Separate},
		{"polygon/xyz/separate", Polygon, XYZ, Separate},
		{"multipoint/xy/interleaved", MultiPoint, XY, Interleaved},
		{"multilinestring/xym/separate", MultiLineString, XYM, Separate},
		{"multipolygon/xyzm/separate", MultiPolygon, XYZM, Separate},
		{"box/xy", Box, XY, Separate},
		{"box/xyz", Box, XYZ, Separate},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dt, err := Make(c.gt, c.dims, c.ct)
			if err != nil {
				t.Fatalf("Make: %v", err)
			}
			roundTrip(t, dt)
		})
	}
}

func TestRoundTripWKTWKB(t *testing.T) {
	roundTrip(t, WKT(false))
	roundTrip(t, WKT(true))
	roundTrip(t, WKB(false))
	roundTrip(t, WKB(true))
}

func TestRoundTripWithCRSAndEdges(t *testing.T) {
	dt, err := Make(Point, XY, Separate)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	dt = dt.WithEdgeType(Spherical)
	dt, err = dt.WithCRS(CrsAuthorityCode, []byte(`"EPSG:4326"`))
	if err != nil {
		t.Fatalf("WithCRS: %v", err)
	}
	roundTrip(t, dt)
}

func TestFromStorageMetadataRoundTripIsDeterministic(t *testing.T) {
	dt, err := Make(Point, XY, Separate)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	dt, err = dt.WithCRS(CrsProjJSON, []byte(`{"type":"GeographicCRS"}`))
	if err != nil {
		t.Fatalf("WithCRS: %v", err)
	}
	f1, err := dt.ToSchema("geom", true)
	if err != nil {
		t.Fatalf("ToSchema: %v", err)
	}
	f2, err := dt.ToSchema("geom", true)
	if err != nil {
		t.Fatalf("ToSchema: %v", err)
	}
	m1 := f1.Metadata.Values()[f1.Metadata.FindKey("ARROW:extension:metadata")]
	m2 := f2.Metadata.Values()[f2.Metadata.FindKey("ARROW:extension:metadata")]
	if m1 != m2 {
		t.Fatalf("metadata serialization is not deterministic: %q vs %q", m1, m2)
	}
}

func TestInvalidDescriptors(t *testing.T) {
	if _, err := Make(Geometry, XY, Separate); err == nil {
		t.Fatal("expected error for geometry_type GEOMETRY")
	}
	if _, err := Make(Point, DimUnknown, Separate); err == nil {
		t.Fatal("expected error for missing dimensions")
	}
	if _, err := Make(Point, XY, CoordUnknown); err == nil {
		t.Fatal("expected error for missing coord type")
	}
}

func TestPackedID(t *testing.T) {
	cases := []struct {
		gt   GeometryType
		dims Dimensions
		want int32
	}{
		{Point, XYZM, 3001},
		{LineString, XYM, 2002},
		{Polygon, XYZ, 1003},
		{MultiPoint, XY, 4},
	}
	for _, c := range cases {
		dt, err := Make(c.gt, c.dims, Separate)
		if err != nil {
			t.Fatalf("Make: %v", err)
		}
		got, err := dt.PackedID()
		if err != nil {
			t.Fatalf("PackedID: %v", err)
		}
		if got != c.want {
			t.Errorf("PackedID(%s/%s) = %d, want %d", c.gt, c.dims, got, c.want)
		}
	}
}

func TestUnrecognizedExtensionName(t *testing.T) {
	schema, _ := Make(Point, XY, Separate)
	field, _ := schema.ToSchema("geom", true)
	field.Metadata = field.Metadata // keep type
	_, err := FromStorage(field.Type, "geoarrow.nonsense", nil, "")
	if err == nil {
		t.Fatal("expected error for unrecognized extension name")
	}
}
