// Package kernel implements the named stream-operator framework (spec
// component C7): a kernel is started once against an input type and
// an options blob, then driven through a sequence of batches, element-
// wise kernels returning a transformed array per batch and aggregate kernels
// accumulating until finish_agg is called.
package kernel

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/internal/options"
)

// State is a kernel instance's lifecycle position.
type State int

const (
	Unstarted State = iota
	Ready
	Pushing
	Finished
	errored
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Ready:
		return "ready"
	case Pushing:
		return "pushing"
	case Finished:
		return "finished"
	case errored:
		return "errored"
	default:
		return "unknown"
	}
}

// InputKind distinguishes a geometry-typed input from the plain
// storage types a handful of kernels (format_wkt) emit.
type InputKind int8

const (
	// GeometryInput carries a geotype.GeometryDataType alongside its
	// Arrow storage array.
	GeometryInput InputKind = iota
)

// Kernel is one named stream operator. Every kernel in the registry
// implements this; element-wise kernels leave FinishAgg unimplemented
// (returning an IllegalArgument error) and aggregate kernels leave
// PushBatch as the sole accumulation entry point. Finish produces no
// output; it only moves the kernel to the Finished state.
type Kernel interface {
	// Name is the registry name this instance was constructed for.
	Name() string

	// Start validates inputType/optionsBlob, computes the output
	// type, and allocates any internal state. Must be called exactly
	// once, before any PushBatch.
	Start(inputType geotype.GeometryDataType, optionsBlob []byte) (outputType geotype.GeometryDataType, err error)

	// IsAggregate reports whether this kernel accumulates across
	// batches (true) or transforms each batch independently (false).
	IsAggregate() bool

	// PushBatch processes one batch. Element-wise kernels return the
	// transformed array directly; aggregate kernels return (nil, nil)
	// and accumulate internally, surfacing their result from
	// FinishAgg.
	PushBatch(arr arrow.Array) (arrow.Array, error)

	// FinishAgg emits the length-1 aggregate result. Only valid for
	// aggregate kernels, after at least Start has run.
	FinishAgg() (arrow.Array, error)

	// Finish is the lifecycle terminator; for every kernel in the
	// registry it produces no output and moves State to Finished.
	Finish() error

	// State reports the kernel's current lifecycle position.
	State() State
}

// base centralizes the lifecycle bookkeeping (state transitions,
// terminal-error rejection) shared by every named kernel so each
// concrete kernel only implements its own transform.
type base struct {
	name  string
	state State
	agg   bool
}

func (b *base) Name() string       { return b.name }
func (b *base) IsAggregate() bool  { return b.agg }
func (b *base) State() State       { return b.state }

func (b *base) enterStart() error {
	if b.state != Unstarted {
		return geoerr.New(geoerr.IllegalArgument, "kernel %s: Start called twice", b.name)
	}
	return nil
}

func (b *base) afterStart() { b.state = Ready }

func (b *base) enterPush() error {
	switch b.state {
	case Ready, Pushing:
		return nil
	case Unstarted:
		return geoerr.New(geoerr.IllegalArgument, "kernel %s: PushBatch called before Start", b.name)
	case Finished:
		return geoerr.New(geoerr.IllegalArgument, "kernel %s: PushBatch called after Finish", b.name)
	default:
		return geoerr.New(geoerr.IllegalArgument, "kernel %s: PushBatch called in terminal-error state", b.name)
	}
}

func (b *base) afterPush() {
	if b.state == Ready {
		b.state = Pushing
	}
}

func (b *base) fail() { b.state = errored }

func (b *base) Finish() error {
	if b.state == errored {
		return geoerr.New(geoerr.IllegalArgument, "kernel %s: already in terminal-error state", b.name)
	}
	b.state = Finished
	return nil
}

// New constructs a fresh, Unstarted instance of the named kernel. Use
// Start to bind it to an input type.
func New(name string) (Kernel, error) {
	switch name {
	case "void":
		return newVoidKernel(), nil
	case "void_agg":
		return newVoidAggKernel(), nil
	case "visit_void_agg":
		return newVisitVoidAggKernel(), nil
	case "as_wkt":
		return newAsWKTKernel(), nil
	case "as_wkb":
		return newAsWKBKernel(), nil
	case "as_geoarrow":
		return newAsGeoArrowKernel(), nil
	case "format_wkt":
		return newFormatWKTKernel(), nil
	case "unique_geometry_types_agg":
		return newUniqueTypesAggKernel(), nil
	case "box":
		return newBoxKernel(), nil
	case "box_agg":
		return newBoxAggKernel(), nil
	default:
		return nil, geoerr.New(geoerr.IllegalArgument, "unrecognized kernel name %q", name)
	}
}

// decodeOptions is the shared Start-time options-blob parse, applied
// by every kernel that accepts options.
func decodeOptions(blob []byte, allowed map[string]bool) (*options.Blob, error) {
	b, err := options.Decode(blob)
	if err != nil {
		return nil, err
	}
	if err := b.RejectUnknown(allowed); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodeTypeOption builds the options blob for as_geoarrow's "type"
// option from a packed geometry id, as returned by
// geotype.GeometryDataType.PackedID.
func EncodeTypeOption(id int32) ([]byte, error) {
	return options.Encode([]string{"type"}, []string{strconv.FormatInt(int64(id), 10)})
}
