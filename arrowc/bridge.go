// Package arrowc is the single Arrow C Data Interface boundary (spec
// §6, component C10): every batch a kernel consumes arrives as an
// ArrowArray+ArrowSchema pair, and every batch it produces leaves the
// same way. This package owns the import/export lifetime so the rest
// of the module never touches a raw C pointer.
package arrowc

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"

	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/internal/recovery"
)

// ImportField imports a bare ArrowSchema into an arrow.Field, without
// importing any array data. Used when only the type is needed (e.g.
// a kernel's Start()).
func ImportField(schema *cdata.CArrowSchema) (arrow.Field, error) {
	field, err := cdata.ImportCArrowField(schema)
	if err != nil {
		return arrow.Field{}, geoerr.Wrap(geoerr.IO, err, "importing ArrowSchema")
	}
	return field, nil
}

// ImportArray imports an ArrowArray given its paired ArrowSchema,
// returning a live arrow.Array. The release callback embedded in the
// ArrowArray is invoked exactly once, when the returned array's
// Release() method runs its reference count down to zero.
func ImportArray(arr *cdata.CArrowArray, schema *cdata.CArrowSchema) (arrow.Array, error) {
	field, err := ImportField(schema)
	if err != nil {
		return nil, err
	}
	var out arrow.Array
	rerr := recovery.RecoverToError("arrowc.ImportArray", func() error {
		var ierr error
		out, ierr = cdata.ImportCArrayWithType(arr, field.Type)
		return ierr
	})
	if rerr != nil {
		return nil, geoerr.Wrap(geoerr.IO, rerr, "importing ArrowArray")
	}
	return out, nil
}

// ImportGeometryArray imports an ArrowArray+ArrowSchema pair and
// decodes the paired GeometryDataType from the schema's extension
// metadata in one step.
func ImportGeometryArray(arr *cdata.CArrowArray, schema *cdata.CArrowSchema) (arrow.Array, geotype.GeometryDataType, error) {
	field, err := ImportField(schema)
	if err != nil {
		return nil, geotype.GeometryDataType{}, err
	}
	dt, err := geotype.FromExtension(field)
	if err != nil {
		return nil, geotype.GeometryDataType{}, err
	}
	var out arrow.Array
	rerr := recovery.RecoverToError("arrowc.ImportGeometryArray", func() error {
		var ierr error
		out, ierr = cdata.ImportCArrayWithType(arr, field.Type)
		return ierr
	})
	if rerr != nil {
		return nil, geotype.GeometryDataType{}, geoerr.Wrap(geoerr.IO, rerr, "importing ArrowArray")
	}
	return out, dt, nil
}

// ExportArray exports an owned arrow.Array into caller-provided
// ArrowArray/ArrowSchema handles. Ownership of arr's buffers transfers
// to the exported ArrowArray: the caller must not call arr.Release()
// after a successful export, since the exported release callback now
// owns that responsibility.
func ExportArray(arr arrow.Array, outArr *cdata.CArrowArray, outSchema *cdata.CArrowSchema) error {
	return recovery.RecoverToError("arrowc.ExportArray", func() error {
		cdata.ExportArrowArray(arr, outArr, outSchema)
		return nil
	})
}

// ExportField exports an arrow.Field (storage type plus extension
// metadata) into a caller-provided ArrowSchema handle, with no
// associated array.
func ExportField(field arrow.Field, outSchema *cdata.CArrowSchema) error {
	return recovery.RecoverToError("arrowc.ExportField", func() error {
		cdata.ExportField(field, outSchema)
		return nil
	})
}

// ExportGeometryField exports a GeometryDataType's extension field
// (name + metadata) for the named column into a caller-provided
// ArrowSchema handle.
func ExportGeometryField(dt geotype.GeometryDataType, name string, nullable bool, outSchema *cdata.CArrowSchema) error {
	field, err := dt.ToSchema(name, nullable)
	if err != nil {
		return err
	}
	return ExportField(field, outSchema)
}
