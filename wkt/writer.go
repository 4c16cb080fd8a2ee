package wkt

import (
	"math"
	"strconv"
	"strings"

	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
)

// Sink receives one feature's worth of WKT text; text is "" and valid
// is false for a null feature.
type Sink func(text string, valid bool) error

// WriterOption configures a Writer's number formatting and output
// size limit.
type WriterOption func(*Writer)

// SignificantDigits sets the number of significant digits used to
// format each ordinate. The default, 0, emits the shortest decimal
// representation that round-trips to the same float64.
func SignificantDigits(n int) WriterOption {
	return func(w *Writer) { w.sigDigits = n }
}

// MaxElementSizeBytes caps the length of one feature's emitted text;
// exceeding it is an Overflow error. 0 means unlimited.
func MaxElementSizeBytes(n int) WriterOption {
	return func(w *Writer) { w.maxElementSize = n }
}

// Writer is a visitor.Visitor that emits ISO WKT text, one value per
// feature, to a Sink.
type Writer struct {
	sink           Sink
	sigDigits      int
	maxElementSize int
	stack          []*frame
}

// NewWriter builds a Writer delivering each finished feature to sink.
func NewWriter(sink Sink, opts ...WriterOption) *Writer {
	w := &Writer{sink: sink}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type frame struct {
	gt     geotype.GeometryType
	dims   geotype.Dimensions
	isRing bool
	parts  []string
	hasAny bool
}

func (f *frame) body() string {
	return "(" + strings.Join(f.parts, ", ") + ")"
}

var typeWord = map[geotype.GeometryType]string{
	geotype.Point:              "POINT",
	geotype.LineString:         "LINESTRING",
	geotype.Polygon:            "POLYGON",
	geotype.MultiPoint:         "MULTIPOINT",
	geotype.MultiLineString:    "MULTILINESTRING",
	geotype.MultiPolygon:       "MULTIPOLYGON",
	geotype.GeometryCollection: "GEOMETRYCOLLECTION",
}

func (f *frame) finalize(tagged bool) string {
	var prefix string
	if tagged {
		prefix = typeWord[f.gt]
		if suffix := f.dims.Suffix(); suffix != "" {
			prefix += " " + suffix
		}
		prefix += " "
	}
	if !f.hasAny {
		return prefix + "EMPTY"
	}
	return prefix + f.body()
}

func (w *Writer) FeatureBegin(parts int) error {
	if len(w.stack) != 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkt writer: FeatureBegin called with an open geometry")
	}
	return nil
}

func (w *Writer) NullFeature() error { return w.sink("", false) }

func (w *Writer) FeatureEnd() error {
	if len(w.stack) != 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkt writer: FeatureEnd called with an open geometry")
	}
	return nil
}

func (w *Writer) GeometryBegin(t geotype.GeometryType, dims geotype.Dimensions) error {
	w.stack = append(w.stack, &frame{gt: t, dims: dims})
	return nil
}

func (w *Writer) GeometryEnd() error {
	if len(w.stack) == 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkt writer: GeometryEnd with no open geometry")
	}
	n := len(w.stack)
	f := w.stack[n-1]
	w.stack = w.stack[:n-1]

	tagged := true
	if len(w.stack) > 0 {
		p := w.stack[len(w.stack)-1]
		tagged = !(p.gt == geotype.MultiPoint || p.gt == geotype.MultiLineString || p.gt == geotype.MultiPolygon)
	}
	text := f.finalize(tagged)

	if len(w.stack) == 0 {
		if w.maxElementSize > 0 && len(text) > w.maxElementSize {
			return geoerr.New(geoerr.Overflow, "wkt: feature text of %d bytes exceeds max_element_size_bytes=%d", len(text), w.maxElementSize)
		}
		return w.sink(text, true)
	}
	parent := w.stack[len(w.stack)-1]
	parent.parts = append(parent.parts, text)
	parent.hasAny = true
	return nil
}

func (w *Writer) RingBegin(n int) error {
	var dims geotype.Dimensions
	if len(w.stack) > 0 {
		dims = w.stack[len(w.stack)-1].dims
	}
	w.stack = append(w.stack, &frame{isRing: true, dims: dims})
	return nil
}

func (w *Writer) RingEnd() error {
	if len(w.stack) == 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkt writer: RingEnd with no open ring")
	}
	n := len(w.stack)
	f := w.stack[n-1]
	w.stack = w.stack[:n-1]
	if len(w.stack) == 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkt writer: ring closed with no enclosing polygon")
	}
	parent := w.stack[len(w.stack)-1]
	parent.parts = append(parent.parts, f.body())
	parent.hasAny = true
	return nil
}

func (w *Writer) Coords(xs, ys, zs, ms []float64, count int) error {
	if len(w.stack) == 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkt writer: Coords with no open geometry")
	}
	top := w.stack[len(w.stack)-1]
	dims := top.dims
	for i := 0; i < count; i++ {
		var b strings.Builder
		b.WriteString(w.formatFloat(xs[i]))
		b.WriteByte(' ')
		b.WriteString(w.formatFloat(ys[i]))
		if dims.HasZ() {
			b.WriteByte(' ')
			b.WriteString(w.formatFloat(zs[i]))
		}
		if dims.HasM() {
			b.WriteByte(' ')
			b.WriteString(w.formatFloat(ms[i]))
		}
		top.parts = append(top.parts, b.String())
	}
	top.hasAny = true
	return nil
}

func (w *Writer) formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if w.sigDigits > 0 {
		return strconv.FormatFloat(v, 'g', w.sigDigits, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
