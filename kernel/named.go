package kernel

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/geoarrow-go/arrview"
	"github.com/hugr-lab/geoarrow-go/box"
	"github.com/hugr-lab/geoarrow-go/geobuilder"
	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/visitor"
)

// --- void: elementwise, output is a null array the same length as input ---

type voidKernel struct{ base }

func newVoidKernel() *voidKernel { return &voidKernel{base{name: "void"}} }

func (k *voidKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if _, err := decodeOptions(optionsBlob, nil); err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.afterStart()
	return inputType, nil
}

func (k *voidKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	k.afterPush()
	nb := array.NewNullBuilder(memory.DefaultAllocator)
	defer nb.Release()
	for i := 0; i < arr.Len(); i++ {
		nb.AppendNull()
	}
	return nb.NewArray(), nil
}

func (k *voidKernel) FinishAgg() (arrow.Array, error) {
	return nil, geoerr.New(geoerr.IllegalArgument, "kernel void: not an aggregate kernel")
}

// --- void_agg: aggregate, no-op accumulation, length-1 null result ---

type voidAggKernel struct{ base }

func newVoidAggKernel() *voidAggKernel { return &voidAggKernel{base{name: "void_agg", agg: true}} }

func (k *voidAggKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if _, err := decodeOptions(optionsBlob, nil); err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.afterStart()
	return inputType, nil
}

func (k *voidAggKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	k.afterPush()
	return nil, nil
}

func (k *voidAggKernel) FinishAgg() (arrow.Array, error) {
	nb := array.NewNullBuilder(memory.DefaultAllocator)
	defer nb.Release()
	nb.AppendNull()
	return nb.NewArray(), nil
}

// --- visit_void_agg: validator. Walks every feature, emits nothing,
// fails on the first parse error. ---

type visitVoidAggKernel struct {
	base
	dt geotype.GeometryDataType
}

func newVisitVoidAggKernel() *visitVoidAggKernel {
	return &visitVoidAggKernel{base: base{name: "visit_void_agg", agg: true}}
}

func (k *visitVoidAggKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if _, err := decodeOptions(optionsBlob, nil); err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.dt = inputType
	k.afterStart()
	return inputType, nil
}

func (k *visitVoidAggKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	col, err := arrview.NewColumn(k.dt, arr)
	if err != nil {
		k.fail()
		return nil, err
	}
	if err := col.VisitAll(visitor.NopVisitor{}); err != nil {
		k.fail()
		return nil, err
	}
	k.afterPush()
	return nil, nil
}

func (k *visitVoidAggKernel) FinishAgg() (arrow.Array, error) {
	nb := array.NewNullBuilder(memory.DefaultAllocator)
	defer nb.Release()
	nb.AppendNull()
	return nb.NewArray(), nil
}

// --- as_wkt / as_wkb: elementwise re-encode through the visitor
// protocol, keeping the input's edge/crs by carrying them on the
// output descriptor returned from Start. ---

type asWKTKernel struct {
	base
	in geotype.GeometryDataType
}

func newAsWKTKernel() *asWKTKernel { return &asWKTKernel{base: base{name: "as_wkt"}} }

func (k *asWKTKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if _, err := decodeOptions(optionsBlob, nil); err != nil {
		return geotype.GeometryDataType{}, err
	}
	out, err := geotype.WKT(inputType.Large()).WithEdgeType(inputType.EdgeType()).WithCRS(inputType.CrsType(), inputType.CRS())
	if err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.in = inputType
	k.afterStart()
	return out, nil
}

func (k *asWKTKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	if k.in.IsWKT() {
		k.afterPush()
		return arr, nil
	}
	k.afterPush()
	out, err := reencode(k.in, arr, geotype.WKT(k.in.Large()))
	if err != nil {
		k.fail()
		return nil, err
	}
	return out, nil
}

func (k *asWKTKernel) FinishAgg() (arrow.Array, error) {
	return nil, geoerr.New(geoerr.IllegalArgument, "kernel as_wkt: not an aggregate kernel")
}

type asWKBKernel struct {
	base
	in geotype.GeometryDataType
}

func newAsWKBKernel() *asWKBKernel { return &asWKBKernel{base: base{name: "as_wkb"}} }

func (k *asWKBKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if _, err := decodeOptions(optionsBlob, nil); err != nil {
		return geotype.GeometryDataType{}, err
	}
	out, err := geotype.WKB(inputType.Large()).WithEdgeType(inputType.EdgeType()).WithCRS(inputType.CrsType(), inputType.CRS())
	if err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.in = inputType
	k.afterStart()
	return out, nil
}

func (k *asWKBKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	if k.in.IsWKB() {
		k.afterPush()
		return arr, nil
	}
	k.afterPush()
	out, err := reencode(k.in, arr, geotype.WKB(k.in.Large()))
	if err != nil {
		k.fail()
		return nil, err
	}
	return out, nil
}

func (k *asWKBKernel) FinishAgg() (arrow.Array, error) {
	return nil, geoerr.New(geoerr.IllegalArgument, "kernel as_wkb: not an aggregate kernel")
}

// --- as_geoarrow: elementwise re-encode into the native descriptor
// named by the "type" option (a packed geometry id). ---

type asGeoArrowKernel struct {
	base
	in  geotype.GeometryDataType
	out geotype.GeometryDataType
}

func newAsGeoArrowKernel() *asGeoArrowKernel { return &asGeoArrowKernel{base: base{name: "as_geoarrow"}} }

func (k *asGeoArrowKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	opts, err := decodeOptions(optionsBlob, map[string]bool{"type": true})
	if err != nil {
		return geotype.GeometryDataType{}, err
	}
	typeVal, ok := opts.Get("type")
	if !ok {
		return geotype.GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "kernel as_geoarrow: missing required option %q", "type")
	}
	id, err := strconv.ParseInt(typeVal, 10, 32)
	if err != nil {
		return geotype.GeometryDataType{}, geoerr.Wrap(geoerr.IllegalArgument, err, "kernel as_geoarrow: option %q is not an integer", "type")
	}
	ct := inputType.CoordType()
	if ct == geotype.CoordUnknown {
		ct = geotype.Separate
	}
	out, err := geotype.MakeFromPackedID(int32(id), ct)
	if err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.in = inputType
	k.out = out
	k.afterStart()
	return out, nil
}

func (k *asGeoArrowKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	if k.in.Equal(k.out) {
		k.afterPush()
		return arr, nil
	}
	k.afterPush()
	out, err := reencodeNative(k.in, arr, k.out)
	if err != nil {
		k.fail()
		return nil, err
	}
	return out, nil
}

func (k *asGeoArrowKernel) FinishAgg() (arrow.Array, error) {
	return nil, geoerr.New(geoerr.IllegalArgument, "kernel as_geoarrow: not an aggregate kernel")
}

// --- format_wkt: elementwise, plain utf8 (not geoarrow.wkt), honoring
// significant_digits/max_element_size_bytes options. ---

type formatWKTKernel struct {
	base
	in             geotype.GeometryDataType
	sigDigits      int
	maxElementSize int
}

func newFormatWKTKernel() *formatWKTKernel { return &formatWKTKernel{base: base{name: "format_wkt"}} }

func (k *formatWKTKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	opts, err := decodeOptions(optionsBlob, map[string]bool{"significant_digits": true, "max_element_size_bytes": true})
	if err != nil {
		return geotype.GeometryDataType{}, err
	}
	if v, ok := opts.Get("significant_digits"); ok {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 0 || n > 17 {
			return geotype.GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "kernel format_wkt: significant_digits must be an integer in [0,17]")
		}
		k.sigDigits = n
	}
	if v, ok := opts.Get("max_element_size_bytes"); ok {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 0 {
			return geotype.GeometryDataType{}, geoerr.New(geoerr.IllegalArgument, "kernel format_wkt: max_element_size_bytes must be a non-negative integer")
		}
		k.maxElementSize = n
	}
	k.in = inputType
	k.afterStart()
	return geotype.GeometryDataType{}, nil
}

// PushBatch renders WKT text into a plain string array; Start returns
// a zero GeometryDataType because plain string storage has no
// geoarrow descriptor of its own.
func (k *formatWKTKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	k.afterPush()
	col, err := arrview.NewColumn(k.in, arr)
	if err != nil {
		k.fail()
		return nil, err
	}
	sb := array.NewStringBuilder(memory.DefaultAllocator)
	defer sb.Release()
	w := wktWriter(sb, k.sigDigits, k.maxElementSize)
	if err := col.VisitAll(w); err != nil {
		k.fail()
		return nil, err
	}
	return sb.NewArray(), nil
}

func (k *formatWKTKernel) FinishAgg() (arrow.Array, error) {
	return nil, geoerr.New(geoerr.IllegalArgument, "kernel format_wkt: not an aggregate kernel")
}

// --- unique_geometry_types_agg: aggregate, int32 array of packed ISO
// type codes seen, one per distinct code, in first-seen order. ---

type uniqueTypesAggKernel struct {
	base
	in    geotype.GeometryDataType
	seen  map[int32]bool
	order []int32
}

func newUniqueTypesAggKernel() *uniqueTypesAggKernel {
	return &uniqueTypesAggKernel{base: base{name: "unique_geometry_types_agg", agg: true}, seen: map[int32]bool{}}
}

func (k *uniqueTypesAggKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if _, err := decodeOptions(optionsBlob, nil); err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.in = inputType
	k.afterStart()
	return geotype.GeometryDataType{}, nil
}

func (k *uniqueTypesAggKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	col, err := arrview.NewColumn(k.in, arr)
	if err != nil {
		k.fail()
		return nil, err
	}
	rec := &packedTypeVisitor{k: k}
	if err := col.VisitAll(rec); err != nil {
		k.fail()
		return nil, err
	}
	k.afterPush()
	return nil, nil
}

func (k *uniqueTypesAggKernel) record(gt geotype.GeometryType, dims geotype.Dimensions) {
	id := int32(gt) + dims.ISOGroup()
	if !k.seen[id] {
		k.seen[id] = true
		k.order = append(k.order, id)
	}
}

func (k *uniqueTypesAggKernel) FinishAgg() (arrow.Array, error) {
	ib := array.NewInt32Builder(memory.DefaultAllocator)
	defer ib.Release()
	for _, id := range k.order {
		ib.Append(id)
	}
	return ib.NewArray(), nil
}

type packedTypeVisitor struct {
	visitor.NopVisitor
	k     *uniqueTypesAggKernel
	depth int
}

func (v *packedTypeVisitor) GeometryBegin(t geotype.GeometryType, dims geotype.Dimensions) error {
	if v.depth == 0 {
		v.k.record(t, dims)
	}
	v.depth++
	return nil
}

func (v *packedTypeVisitor) GeometryEnd() error {
	v.depth--
	return nil
}

// --- box / box_agg: thin wrappers over package box's element-wise and
// aggregate implementations. ---

type boxKernel struct {
	base
	in geotype.GeometryDataType
}

func newBoxKernel() *boxKernel { return &boxKernel{base: base{name: "box"}} }

func (k *boxKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if _, err := decodeOptions(optionsBlob, nil); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if err := box.CheckEdgeType(inputType); err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.in = inputType
	k.afterStart()
	return geotype.GeometryDataType{}, nil
}

func (k *boxKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	out, err := box.ElementWise(memory.DefaultAllocator, k.in, arr)
	if err != nil {
		k.fail()
		return nil, err
	}
	k.afterPush()
	return out, nil
}

func (k *boxKernel) FinishAgg() (arrow.Array, error) {
	return nil, geoerr.New(geoerr.IllegalArgument, "kernel box: not an aggregate kernel")
}

type boxAggKernel struct {
	base
	in    geotype.GeometryDataType
	accum *box.Aggregator
}

func newBoxAggKernel() *boxAggKernel {
	return &boxAggKernel{base: base{name: "box_agg", agg: true}, accum: box.NewAggregator()}
}

func (k *boxAggKernel) Start(inputType geotype.GeometryDataType, optionsBlob []byte) (geotype.GeometryDataType, error) {
	if err := k.enterStart(); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if _, err := decodeOptions(optionsBlob, nil); err != nil {
		return geotype.GeometryDataType{}, err
	}
	if err := box.CheckEdgeType(inputType); err != nil {
		return geotype.GeometryDataType{}, err
	}
	k.in = inputType
	k.afterStart()
	return geotype.GeometryDataType{}, nil
}

func (k *boxAggKernel) PushBatch(arr arrow.Array) (arrow.Array, error) {
	if err := k.enterPush(); err != nil {
		return nil, err
	}
	if err := k.accum.Add(k.in, arr); err != nil {
		k.fail()
		return nil, err
	}
	k.afterPush()
	return nil, nil
}

func (k *boxAggKernel) FinishAgg() (arrow.Array, error) {
	return k.accum.Finish(memory.DefaultAllocator), nil
}

// Aggregator exposes the kernel's accumulator for callers that need to
// Combine partial results themselves instead of driving PushBatch.
func (k *boxAggKernel) Aggregator() *box.Aggregator { return k.accum }

// --- shared re-encode helpers ---

// reencode drives arr (typed in) through its arrview.Reader into a
// wkb.Writer or wkt.Writer (selected by out's extension kind),
// producing the re-encoded array.
func reencode(in geotype.GeometryDataType, arr arrow.Array, out geotype.GeometryDataType) (arrow.Array, error) {
	col, err := arrview.NewColumn(in, arr)
	if err != nil {
		return nil, err
	}
	if out.IsWKT() {
		return wktEncode(col, out.Large())
	}
	return wkbEncode(col, out.Large())
}

// reencodeNative drives arr through its Reader into a geobuilder.Builder
// constructing out's native storage.
func reencodeNative(in geotype.GeometryDataType, arr arrow.Array, out geotype.GeometryDataType) (arrow.Array, error) {
	col, err := arrview.NewColumn(in, arr)
	if err != nil {
		return nil, err
	}
	b, err := geobuilder.New(memory.DefaultAllocator, out)
	if err != nil {
		return nil, err
	}
	if err := col.VisitAll(b); err != nil {
		return nil, err
	}
	return b.NewArray(), nil
}
