package wkb

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
)

// Sink receives one feature's worth of encoded bytes: data is nil and
// valid is false for a null feature.
type Sink func(data []byte, valid bool) error

// Writer is a visitor.Visitor that emits pure little-endian ISO WKB,
// one value per feature, to a Sink. Values accepted only on read (a
// big-endian source, an EWKB SRID) never reappear here: every frame
// is serialized little-endian and a geometry's CRS never travels in
// the WKB bytes.
type Writer struct {
	sink  Sink
	stack []*frame
}

// NewWriter builds a Writer delivering each finished feature to sink.
func NewWriter(sink Sink) *Writer { return &Writer{sink: sink} }

type frame struct {
	gt     geotype.GeometryType
	dims   geotype.Dimensions
	isRing bool
	buf    bytes.Buffer
	count  int
}

func (w *Writer) FeatureBegin(parts int) error {
	if len(w.stack) != 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkb writer: FeatureBegin called with an open geometry")
	}
	return nil
}

func (w *Writer) NullFeature() error { return w.sink(nil, false) }

func (w *Writer) FeatureEnd() error {
	if len(w.stack) != 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkb writer: FeatureEnd called with an open geometry")
	}
	return nil
}

func (w *Writer) GeometryBegin(t geotype.GeometryType, dims geotype.Dimensions) error {
	w.stack = append(w.stack, &frame{gt: t, dims: dims})
	return nil
}

func (w *Writer) GeometryEnd() error {
	if len(w.stack) == 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkb writer: GeometryEnd with no open geometry")
	}
	n := len(w.stack)
	f := w.stack[n-1]
	w.stack = w.stack[:n-1]
	data := f.finalize()
	if len(w.stack) == 0 {
		return w.sink(data, true)
	}
	parent := w.stack[len(w.stack)-1]
	parent.buf.Write(data)
	parent.count++
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
		return geoerr.New(geoerr.IllegalArgument, "wkb writer: RingEnd with no open ring")
	}
	n := len(w.stack)
	f := w.stack[n-1]
	w.stack = w.stack[:n-1]
	if len(w.stack) == 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkb writer: ring closed with no enclosing polygon")
	}
	parent := w.stack[len(w.stack)-1]
	writeUint32LE(&parent.buf, uint32(f.count))
	parent.buf.Write(f.buf.Bytes())
	parent.count++
	return nil
}

func (w *Writer) Coords(xs, ys, zs, ms []float64, count int) error {
	if len(w.stack) == 0 {
		return geoerr.New(geoerr.IllegalArgument, "wkb writer: Coords with no open geometry")
	}
	top := w.stack[len(w.stack)-1]
	dims := top.dims
	for i := 0; i < count; i++ {
		writeFloat64LE(&top.buf, xs[i])
		writeFloat64LE(&top.buf, ys[i])
		if dims.HasZ() {
			writeFloat64LE(&top.buf, zs[i])
		}
		if dims.HasM() {
			writeFloat64LE(&top.buf, ms[i])
		}
	}
	top.count += count
	return nil
}

// finalize serializes a non-ring frame as byte-order marker + type
// word + (count, for every type but Point) + body, promoting an
// untouched Point frame (no Coords call at all) to the WKB empty-point
// convention: NaN-valued ordinates.
func (f *frame) finalize() []byte {
	var out bytes.Buffer
	out.WriteByte(1)
	writeUint32LE(&out, uint32(int32(f.gt)+f.dims.ISOGroup()))
	if f.gt == geotype.Point {
		if f.count == 0 {
			for i := 0; i < f.dims.Count(); i++ {
				writeFloat64LE(&out, math.NaN())
			}
		}
	} else {
		writeUint32LE(&out, uint32(f.count))
	}
	out.Write(f.buf.Bytes())
	return out.Bytes()
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeFloat64LE(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}
