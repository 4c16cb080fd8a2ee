package kernel

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/geoarrow-go/visitor"
	"github.com/hugr-lab/geoarrow-go/wkb"
	"github.com/hugr-lab/geoarrow-go/wkt"
)

// wktEncode drives col through a wkt.Writer, producing a string (or
// large-string) array.
func wktEncode(col visitor.Reader, large bool) (arrow.Array, error) {
	if large {
		lb := array.NewLargeStringBuilder(memory.DefaultAllocator)
		defer lb.Release()
		w := wkt.NewWriter(func(text string, valid bool) error {
			if !valid {
				lb.AppendNull()
				return nil
			}
			lb.Append(text)
			return nil
		})
		if err := col.VisitAll(w); err != nil {
			return nil, err
		}
		return lb.NewArray(), nil
	}
	sb := array.NewStringBuilder(memory.DefaultAllocator)
	defer sb.Release()
	w := wkt.NewWriter(func(text string, valid bool) error {
		if !valid {
			sb.AppendNull()
			return nil
		}
		sb.Append(text)
		return nil
	})
	if err := col.VisitAll(w); err != nil {
		return nil, err
	}
	return sb.NewArray(), nil
}

// wkbEncode drives col through a wkb.Writer, producing a binary (or
// large-binary) array.
func wkbEncode(col visitor.Reader, large bool) (arrow.Array, error) {
	var dt arrow.BinaryDataType = arrow.BinaryTypes.Binary
	if large {
		dt = arrow.BinaryTypes.LargeBinary
	}
	bb := array.NewBinaryBuilder(memory.DefaultAllocator, dt)
	defer bb.Release()
	w := wkb.NewWriter(func(data []byte, valid bool) error {
		if !valid {
			bb.AppendNull()
			return nil
		}
		bb.Append(data)
		return nil
	})
	if err := col.VisitAll(w); err != nil {
		return nil, err
	}
	return bb.NewArray(), nil
}

// wktWriter builds a wkt.Writer sinking text into sb, honoring
// format_wkt's significant_digits/max_element_size_bytes options
// (0 means "use the writer's default" for both).
func wktWriter(sb *array.StringBuilder, sigDigits, maxElementSize int) visitor.Visitor {
	var opts []wkt.WriterOption
	if sigDigits > 0 {
		opts = append(opts, wkt.SignificantDigits(sigDigits))
	}
	if maxElementSize > 0 {
		opts = append(opts, wkt.MaxElementSizeBytes(maxElementSize))
	}
	return wkt.NewWriter(func(text string, valid bool) error {
		if !valid {
			sb.AppendNull()
			return nil
		}
		sb.Append(text)
		return nil
	}, opts...)
}
