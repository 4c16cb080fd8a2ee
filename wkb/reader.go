// Package wkb implements the Well-Known Binary codec (spec §4.4): a
// Reader that parses ISO WKB (tolerating common EWKB extensions) and
// drives a visitor.Visitor, and a Writer that is itself a
// visitor.Visitor and emits pure little-endian ISO WKB.
//
// Values accepted on read that widen ISO WKB are never produced on
// write: an EWKB SRID is read and discarded, never re-emitted (the
// SRID belongs in the GeoArrow field's CRS metadata, not the wire
// bytes); a big-endian input round-trips logically but is always
// re-emitted little-endian.
package wkb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/visitor"
)

const defaultMaxNestingDepth = 32

// ValueSource yields the WKB bytes and validity of row i of a column
// of length Len. Arrow binary arrays do not satisfy it directly;
// arrview wraps them in a small adapter.
type ValueSource interface {
	Len() int
	Value(i int) (data []byte, valid bool)
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// MaxNestingDepth overrides the default limit of 32 nested
// GeometryCollection/Multi* levels. Exceeding it is a ParseError.
func MaxNestingDepth(n int) ReaderOption {
	return func(r *Reader) { r.maxDepth = n }
}

// Reader implements visitor.Reader over a column of WKB-encoded
// values.
type Reader struct {
	src      ValueSource
	maxDepth int
}

// NewReader builds a Reader over src.
func NewReader(src ValueSource, opts ...ReaderOption) *Reader {
	r := &Reader{src: src, maxDepth: defaultMaxNestingDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// VisitAll implements visitor.Reader.
func (r *Reader) VisitAll(v visitor.Visitor) error {
	for i := 0; i < r.src.Len(); i++ {
		data, valid := r.src.Value(i)
		if err := v.FeatureBegin(1); err != nil {
			return err
		}
		if !valid {
			if err := v.NullFeature(); err != nil {
				return err
			}
		} else {
			dec := &decoder{data: data, maxDepth: r.maxDepth}
			if err := dec.decodeGeometry(v, 0, geotype.Geometry); err != nil {
				return fmt.Errorf("wkb: feature %d: %w", i, err)
			}
			if dec.pos != len(dec.data) {
				return geoerr.New(geoerr.Parse, "wkb: feature %d has %d trailing bytes", i, len(dec.data)-dec.pos)
			}
		}
		if err := v.FeatureEnd(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeOne parses a single WKB geometry and drives v, without a
// feature/null wrapper around it.
func DecodeOne(data []byte, v visitor.Visitor, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = defaultMaxNestingDepth
	}
	dec := &decoder{data: data, maxDepth: maxDepth}
	if err := dec.decodeGeometry(v, 0, geotype.Geometry); err != nil {
		return err
	}
	if dec.pos != len(dec.data) {
		return geoerr.New(geoerr.Parse, "wkb: %d trailing bytes", len(dec.data)-dec.pos)
	}
	return nil
}

const (
	ewkbZFlag    = uint32(0x80000000)
	ewkbMFlag    = uint32(0x40000000)
	ewkbSRIDFlag = uint32(0x20000000)
	ewkbFlagMask = ewkbZFlag | ewkbMFlag | ewkbSRIDFlag
)

type decoder struct {
	data     []byte
	pos      int
	maxDepth int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, geoerr.New(geoerr.Parse, "wkb: truncated input at byte %d", d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readUint32(order binary.ByteOrder) (uint32, error) {
	if d.pos+4 > len(d.data) {
		return 0, geoerr.New(geoerr.Parse, "wkb: truncated input at byte %d", d.pos)
	}
	v := order.Uint32(d.data[d.pos : d.pos+4])
	d.pos += 4
	return v, nil
}

func (d *decoder) readFloat64(order binary.ByteOrder) (float64, error) {
	if d.pos+8 > len(d.data) {
		return 0, geoerr.New(geoerr.Parse, "wkb: truncated input at byte %d", d.pos)
	}
	bits := order.Uint64(d.data[d.pos : d.pos+8])
	d.pos += 8
	return math.Float64frombits(bits), nil
}

// header reads one geometry's byte-order marker and type word,
// tolerating EWKB's high-bit Z/M/SRID flags alongside ISO's decimal
// dimension offset, and discarding an EWKB SRID if present.
func (d *decoder) header() (order binary.ByteOrder, code int32, dims geotype.Dimensions, err error) {
	bo, err := d.readByte()
	if err != nil {
		return nil, 0, 0, err
	}
	switch bo {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return nil, 0, 0, geoerr.New(geoerr.Parse, "wkb: invalid byte order marker %d", bo)
	}
	raw, err := d.readUint32(order)
	if err != nil {
		return nil, 0, 0, err
	}
	hasZ := raw&ewkbZFlag != 0
	hasM := raw&ewkbMFlag != 0
	hasSRID := raw&ewkbSRIDFlag != 0
	base := raw &^ ewkbFlagMask
	if hasSRID {
		if _, err := d.readUint32(order); err != nil {
			return nil, 0, 0, err
		}
	}
	dimGroup := (base / 1000) * 1000
	code = int32(base % 1000)
	switch dimGroup {
	case 0:
	case 1000:
		hasZ = true
	case 2000:
		hasM = true
	case 3000:
		hasZ, hasM = true, true
	default:
		return nil, 0, 0, geoerr.New(geoerr.Parse, "wkb: invalid geometry type word %d", raw)
	}
	if code < 1 || code > 7 {
		return nil, 0, 0, geoerr.New(geoerr.Parse, "wkb: unknown geometry type code %d", code)
	}
	return order, code, geotype.DimensionsFromFlags(hasZ, hasM), nil
}

// readCoords reads n coordinate tuples, de-interleaving them into
// per-ordinate slices.
func (d *decoder) readCoords(order binary.ByteOrder, dims geotype.Dimensions, n int) (xs, ys, zs, ms []float64, err error) {
	k := dims.Count()
	xs = make([]float64, n)
	ys = make([]float64, n)
	if dims.HasZ() {
		zs = make([]float64, n)
	}
	if dims.HasM() {
		ms = make([]float64, n)
	}
	vals := make([]float64, k)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			vals[j], err = d.readFloat64(order)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		xs[i], ys[i] = vals[0], vals[1]
		idx := 2
		if dims.HasZ() {
			zs[i] = vals[idx]
			idx++
		}
		if dims.HasM() {
			ms[i] = vals[idx]
			idx++
		}
	}
	return xs, ys, zs, ms, nil
}

// decodeGeometry reads one geometry's own header and body and drives
// v. Called recursively for every child of a Multi*/GeometryCollection
// geometry, since each child carries its own independent header in the
// wire format; expect constrains the child's type (0/geotype.Geometry
// means "any type", used at the top level and for GeometryCollection
// children).
func (d *decoder) decodeGeometry(v visitor.Visitor, depth int, expect geotype.GeometryType) error {
	if depth > d.maxDepth {
		return geoerr.New(geoerr.Parse, "wkb: nesting exceeds max depth %d", d.maxDepth)
	}
	order, code, dims, err := d.header()
	if err != nil {
		return err
	}
	gt := geotype.GeometryType(code)
	if expect != geotype.Geometry && gt != expect {
		return geoerr.New(geoerr.Parse, "wkb: expected %s child geometry, got %s", expect, gt)
	}
	if err := v.GeometryBegin(gt, dims); err != nil {
		return err
	}
	switch gt {
	case geotype.Point:
		xs, ys, zs, ms, err := d.readCoords(order, dims, 1)
		if err != nil {
			return err
		}
		if err := v.Coords(xs, ys, zs, ms, 1); err != nil {
			return err
		}
	case geotype.LineString:
		n, err := d.readUint32(order)
		if err != nil {
			return err
		}
		if n > 0 {
			xs, ys, zs, ms, err := d.readCoords(order, dims, int(n))
			if err != nil {
				return err
			}
			if err := v.Coords(xs, ys, zs, ms, int(n)); err != nil {
				return err
			}
		}
	case geotype.Polygon:
		numRings, err := d.readUint32(order)
		if err != nil {
			return err
		}
		for i := uint32(0); i < numRings; i++ {
			numPts, err := d.readUint32(order)
			if err != nil {
				return err
			}
			if err := v.RingBegin(int(numPts)); err != nil {
				return err
			}
			if numPts > 0 {
				xs, ys, zs, ms, err := d.readCoords(order, dims, int(numPts))
				if err != nil {
					return err
				}
				if err := v.Coords(xs, ys, zs, ms, int(numPts)); err != nil {
					return err
				}
			}
			if err := v.RingEnd(); err != nil {
				return err
			}
		}
	case geotype.MultiPoint:
		if err := d.decodeChildren(v, depth, order, geotype.Point); err != nil {
			return err
		}
	case geotype.MultiLineString:
		if err := d.decodeChildren(v, depth, order, geotype.LineString); err != nil {
			return err
		}
	case geotype.MultiPolygon:
		if err := d.decodeChildren(v, depth, order, geotype.Polygon); err != nil {
			return err
		}
	case geotype.GeometryCollection:
		if err := d.decodeChildren(v, depth, order, geotype.Geometry); err != nil {
			return err
		}
	}
	return v.GeometryEnd()
}

func (d *decoder) decodeChildren(v visitor.Visitor, depth int, order binary.ByteOrder, expect geotype.GeometryType) error {
	n, err := d.readUint32(order)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		if err := d.decodeGeometry(v, depth+1, expect); err != nil {
			return err
		}
	}
	return nil
}
