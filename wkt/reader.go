package wkt

import (
	"fmt"

	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/visitor"
)

const defaultMaxNestingDepth = 32

// ValueSource yields the WKT text and validity of row i of a column of
// length Len.
type ValueSource interface {
	Len() int
	Value(i int) (text string, valid bool)
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// MaxNestingDepth overrides the default limit of 32 nested
// GeometryCollection/Multi* levels.
func MaxNestingDepth(n int) ReaderOption {
	return func(r *Reader) { r.maxDepth = n }
}

// Reader implements visitor.Reader over a column of WKT-encoded
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

func (r *Reader) VisitAll(v visitor.Visitor) error {
	for i := 0; i < r.src.Len(); i++ {
		text, valid := r.src.Value(i)
		if err := v.FeatureBegin(1); err != nil {
			return err
		}
		if !valid {
			if err := v.NullFeature(); err != nil {
				return err
			}
		} else {
			if err := parseOne(text, v, r.maxDepth); err != nil {
				return fmt.Errorf("wkt: feature %d: %w", i, err)
			}
		}
		if err := v.FeatureEnd(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeOne parses a single WKT geometry string and drives v.
func DecodeOne(text string, v visitor.Visitor, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = defaultMaxNestingDepth
	}
	return parseOne(text, v, maxDepth)
}

func parseOne(text string, v visitor.Visitor, maxDepth int) error {
	p := &parser{lex: newLexer(text), maxDepth: maxDepth}
	if err := p.advance(); err != nil {
		return err
	}
	if err := p.taggedGeometry(v, 0); err != nil {
		return err
	}
	if p.tok.kind != tokEOF {
		return geoerr.New(geoerr.Parse, "wkt: unexpected trailing input %q", p.tok)
	}
	return nil
}

type parser struct {
	lex      *lexer
	tok      token
	maxDepth int
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.tok.kind != kind {
		return geoerr.New(geoerr.Parse, "wkt: expected %s, got %q", what, p.tok)
	}
	return nil
}

var wordToType = map[string]geotype.GeometryType{
	"POINT":              geotype.Point,
	"LINESTRING":         geotype.LineString,
	"POLYGON":            geotype.Polygon,
	"MULTIPOINT":         geotype.MultiPoint,
	"MULTILINESTRING":    geotype.MultiLineString,
	"MULTIPOLYGON":       geotype.MultiPolygon,
	"GEOMETRYCOLLECTION": geotype.GeometryCollection,
}

func dimsFromModifier(word string) (geotype.Dimensions, bool) {
	switch word {
	case "Z":
		return geotype.XYZ, true
	case "M":
		return geotype.XYM, true
	case "ZM":
		return geotype.XYZM, true
	default:
		return geotype.XY, false
	}
}

// taggedGeometry parses one full "TAG [Z|M|ZM] (body)" or "TAG
// [Z|M|ZM] EMPTY" production and drives v.
func (p *parser) taggedGeometry(v visitor.Visitor, depth int) error {
	if depth > p.maxDepth {
		return geoerr.New(geoerr.Parse, "wkt: nesting exceeds max depth %d", p.maxDepth)
	}
	if err := p.expect(tokWord, "a geometry tag"); err != nil {
		return err
	}
	gt, ok := wordToType[p.tok.text]
	if !ok {
		return geoerr.New(geoerr.Parse, "wkt: unknown geometry tag %q", p.tok.text)
	}
	if err := p.advance(); err != nil {
		return err
	}
	dims := geotype.XY
	if p.tok.kind == tokWord {
		if d, ok := dimsFromModifier(p.tok.text); ok {
			dims = d
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	if p.tok.kind == tokWord && p.tok.text == "EMPTY" {
		if err := p.advance(); err != nil {
			return err
		}
		if err := v.GeometryBegin(gt, dims); err != nil {
			return err
		}
		return v.GeometryEnd()
	}
	if err := p.expect(tokLParen, "("); err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	if err := v.GeometryBegin(gt, dims); err != nil {
		return err
	}
	var bodyErr error
	switch gt {
	case geotype.Point:
		bodyErr = p.pointBody(v, dims)
	case geotype.LineString:
		bodyErr = p.lineStringBody(v, dims)
	case geotype.Polygon:
		bodyErr = p.polygonBody(v, dims)
	case geotype.MultiPoint:
		bodyErr = p.multiPointBody(v, dims)
	case geotype.MultiLineString:
		bodyErr = p.multiLineStringBody(v, dims, depth)
	case geotype.MultiPolygon:
		bodyErr = p.multiPolygonBody(v, dims, depth)
	case geotype.GeometryCollection:
		bodyErr = p.collectionBody(v, depth)
	}
	if bodyErr != nil {
		return bodyErr
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	return v.GeometryEnd()
}

func (p *parser) coordTuple(dims geotype.Dimensions) (x, y, z, m float64, err error) {
	if err = p.expect(tokNumber, "a coordinate ordinate"); err != nil {
		return
	}
	x = p.tok.num
	if err = p.advance(); err != nil {
		return
	}
	if err = p.expect(tokNumber, "a coordinate ordinate"); err != nil {
		return
	}
	y = p.tok.num
	if err = p.advance(); err != nil {
		return
	}
	if dims.HasZ() {
		if err = p.expect(tokNumber, "a Z ordinate"); err != nil {
			return
		}
		z = p.tok.num
		if err = p.advance(); err != nil {
			return
		}
	}
	if dims.HasM() {
		if err = p.expect(tokNumber, "an M ordinate"); err != nil {
			return
		}
		m = p.tok.num
		if err = p.advance(); err != nil {
			return
		}
	}
	return
}

// pointList parses a comma-separated list of coordinate tuples,
// assuming the opening '(' has already been consumed by the caller.
func (p *parser) pointList(dims geotype.Dimensions) (xs, ys, zs, ms []float64, err error) {
	for {
		x, y, z, m, err2 := p.coordTuple(dims)
		if err2 != nil {
			return nil, nil, nil, nil, err2
		}
		xs = append(xs, x)
		ys = append(ys, y)
		if dims.HasZ() {
			zs = append(zs, z)
		}
		if dims.HasM() {
			ms = append(ms, m)
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return xs, ys, zs, ms, nil
}

func (p *parser) pointBody(v visitor.Visitor, dims geotype.Dimensions) error {
	x, y, z, m, err := p.coordTuple(dims)
	if err != nil {
		return err
	}
	xs, ys := []float64{x}, []float64{y}
	var zs, ms []float64
	if dims.HasZ() {
		zs = []float64{z}
	}
	if dims.HasM() {
		ms = []float64{m}
	}
	return v.Coords(xs, ys, zs, ms, 1)
}

func (p *parser) lineStringBody(v visitor.Visitor, dims geotype.Dimensions) error {
	xs, ys, zs, ms, err := p.pointList(dims)
	if err != nil {
		return err
	}
	if len(xs) == 0 {
		return nil
	}
	return v.Coords(xs, ys, zs, ms, len(xs))
}

// ring parses one "(" pointlist ")" ring, assuming the opening '(' has
// already been consumed, and emits the balanced RingBegin/Coords/RingEnd
// sequence.
func (p *parser) ring(v visitor.Visitor, dims geotype.Dimensions) error {
	xs, ys, zs, ms, err := p.pointList(dims)
	if err != nil {
		return err
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	if err := v.RingBegin(len(xs)); err != nil {
		return err
	}
	if len(xs) > 0 {
		if err := v.Coords(xs, ys, zs, ms, len(xs)); err != nil {
			return err
		}
	}
	return v.RingEnd()
}

func (p *parser) polygonBody(v visitor.Visitor, dims geotype.Dimensions) error {
	for {
		if err := p.expect(tokLParen, "("); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.ring(v, dims); err != nil {
			return err
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) multiPointBody(v visitor.Visitor, dims geotype.Dimensions) error {
	for {
		parenWrapped := p.tok.kind == tokLParen
		if parenWrapped {
			if err := p.advance(); err != nil {
				return err
			}
		}
		if err := v.GeometryBegin(geotype.Point, dims); err != nil {
			return err
		}
		if err := p.pointBody(v, dims); err != nil {
			return err
		}
		if parenWrapped {
			if err := p.expect(tokRParen, ")"); err != nil {
				return err
			}
			if err := p.advance(); err != nil {
				return err
			}
		}
		if err := v.GeometryEnd(); err != nil {
			return err
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) multiLineStringBody(v visitor.Visitor, dims geotype.Dimensions, depth int) error {
	if depth+1 > p.maxDepth {
		return geoerr.New(geoerr.Parse, "wkt: nesting exceeds max depth %d", p.maxDepth)
	}
	for {
		if err := v.GeometryBegin(geotype.LineString, dims); err != nil {
			return err
		}
		if err := p.expect(tokLParen, "("); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.lineStringBody(v, dims); err != nil {
			return err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		if err := v.GeometryEnd(); err != nil {
			return err
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) multiPolygonBody(v visitor.Visitor, dims geotype.Dimensions, depth int) error {
	if depth+1 > p.maxDepth {
		return geoerr.New(geoerr.Parse, "wkt: nesting exceeds max depth %d", p.maxDepth)
	}
	for {
		if err := v.GeometryBegin(geotype.Polygon, dims); err != nil {
			return err
		}
		if err := p.expect(tokLParen, "("); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.polygonBody(v, dims); err != nil {
			return err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		if err := v.GeometryEnd(); err != nil {
			return err
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) collectionBody(v visitor.Visitor, depth int) error {
	for {
		if err := p.taggedGeometry(v, depth+1); err != nil {
			return err
		}
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}
