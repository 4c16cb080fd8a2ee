// Package fragment implements the fragment bbox index (spec component
// C9): given a dataset exposing an ordered list of fragments, each an
// opaque reader yielding batches over one or more named geometry
// columns, build_index produces a per-fragment bounding box summary
// that filter_fragments later uses to prune fragments a spatial query
// cannot intersect.
package fragment

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"golang.org/x/sync/errgroup"

	"github.com/hugr-lab/geoarrow-go/box"
	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/geotype"
	"github.com/hugr-lab/geoarrow-go/internal/recovery"
)

// Stats is the per-column bounding box a fragment can advertise ahead
// of a scan, e.g. from Parquet row-group statistics on a SEPARATE
// POINT column's x/y children.
type Stats struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Fragment is one readable partition of a dataset (a file, a row
// group). Scan's signature is lifted from the teacher's
// catalog.ScanFunc: a context in, a record reader out.
type Fragment interface {
	// Statistics returns the advertised bounding box for column, and
	// whether one was available, without scanning the fragment.
	Statistics(column string) (Stats, bool)

	// Scan opens a batch reader over the fragment's full contents.
	// The caller owns the returned RecordReader and must Release it.
	Scan(ctx context.Context) (array.RecordReader, error)
}

// Column names one geometry column to index, by its field name and
// descriptor.
type Column struct {
	Name string
	Type geotype.GeometryDataType
}

// ColumnBounds is one column's running bounds for one fragment. A nil
// *ColumnBounds (no entry in Row.Columns) means "unknown" and must be
// treated as a match by filter_fragments, per spec §4.9.
type ColumnBounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

func fromBounds(b box.Bounds) *ColumnBounds {
	return &ColumnBounds{XMin: b.XMin, XMax: b.XMax, YMin: b.YMin, YMax: b.YMax}
}

func fromStats(s Stats) *ColumnBounds {
	return &ColumnBounds{XMin: s.XMin, XMax: s.XMax, YMin: s.YMin, YMax: s.YMax}
}

// Row is one fragment's entry in the index table, in fragment
// enumeration order.
type Row struct {
	FragmentIndex int
	Columns       map[string]*ColumnBounds
}

// Table is the fragment-index table built by BuildIndex: one Row per
// fragment, in the same order the fragments were enumerated.
type Table struct {
	Rows []Row
}

// BuildIndex computes the index table for fragments over columns.
// For each (fragment, column) pair it prefers Fragment.Statistics
// when the column is a SEPARATE POINT column and stats are
// advertised; otherwise it falls back to scanning the fragment with a
// box.Aggregator. Per-fragment work runs concurrently via errgroup,
// mirroring the teacher's DoExchange fan-out pattern.
func BuildIndex(ctx context.Context, fragments []Fragment, columns []Column) (Table, error) {
	rows := make([]Row, len(fragments))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range fragments {
		i, f := i, f
		eg.Go(func() error {
			row, err := buildRow(egCtx, i, f, columns)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Table{}, err
	}
	return Table{Rows: rows}, nil
}

func buildRow(ctx context.Context, idx int, f Fragment, columns []Column) (Row, error) {
	row := Row{FragmentIndex: idx, Columns: make(map[string]*ColumnBounds, len(columns))}

	var toScan []Column
	for _, c := range columns {
		if c.Type.GeometryType() == geotype.Point && c.Type.CoordType() == geotype.Separate {
			if stats, ok := f.Statistics(c.Name); ok {
				row.Columns[c.Name] = fromStats(stats)
				continue
			}
		}
		toScan = append(toScan, c)
	}
	if len(toScan) == 0 {
		return row, nil
	}

	aggs := make(map[string]*box.Aggregator, len(toScan))
	for _, c := range toScan {
		if err := box.CheckEdgeType(c.Type); err != nil {
			return Row{}, err
		}
		aggs[c.Name] = box.NewAggregator()
	}

	reader, err := recovery.RecoverToValue("fragment.Scan", func() (array.RecordReader, error) {
		return f.Scan(ctx)
	})
	if err != nil {
		return Row{}, err
	}
	defer reader.Release()

	for reader.Next() {
		rec := reader.Record()
		schema := rec.Schema()
		for _, c := range toScan {
			col := columnByName(schema, rec, c.Name)
			if col == nil {
				return Row{}, geoerr.New(geoerr.IllegalArgument, "fragment: column %q not found in scanned schema", c.Name)
			}
			if err := aggs[c.Name].Add(c.Type, col); err != nil {
				return Row{}, err
			}
		}
	}
	if err := reader.Err(); err != nil {
		return Row{}, geoerr.Wrap(geoerr.IO, err, "fragment: scanning fragment %d", idx)
	}

	for _, c := range toScan {
		row.Columns[c.Name] = fromBounds(aggs[c.Name].Bounds())
	}
	return row, nil
}

// columnByName returns the array for the named field in rec, or nil
// if schema has no field by that name.
func columnByName(schema *arrow.Schema, rec arrow.RecordBatch, name string) arrow.Array {
	for i, f := range schema.Fields() {
		if f.Name == name {
			return rec.Column(i)
		}
	}
	return nil
}

// intersects reports whether b and q overlap per spec §4.9's formula.
func (b ColumnBounds) intersects(q box.Bounds) bool {
	return b.XMin <= q.XMax && b.XMax >= q.XMin && b.YMin <= q.YMax && b.YMax >= q.YMin
}

// FilterFragments returns, in ascending order, the FragmentIndex of
// every row in table that might intersect query: rows with a missing
// (nil) column entry are always kept (cannot prune), and a row with
// multiple indexed columns is kept if ANY column's bounds intersect.
func FilterFragments(table Table, query box.Bounds, columns []string) []int {
	var out []int
	for _, row := range table.Rows {
		if matches(row, query, columns) {
			out = append(out, row.FragmentIndex)
		}
	}
	return out
}

func matches(row Row, query box.Bounds, columns []string) bool {
	for _, name := range columns {
		b, ok := row.Columns[name]
		if !ok || b == nil {
			return true
		}
		if b.intersects(query) {
			return true
		}
	}
	return false
}
