package fragment

import (
	"github.com/hugr-lab/geoarrow-go/geoerr"
	"github.com/hugr-lab/geoarrow-go/internal/msgpack"
	"github.com/hugr-lab/geoarrow-go/internal/serialize"
)

// wireRow and wireTable are the MessagePack-friendly mirrors of Row
// and Table: map[string]*ColumnBounds round-trips through msgpack
// fine, but is kept separate from Row so the public type stays free
// to evolve independently of the wire format.
type wireRow struct {
	FragmentIndex int                      `msgpack:"fragment_index"`
	Columns       map[string]*ColumnBounds `msgpack:"columns"`
}

type wireTable struct {
	Rows []wireRow `msgpack:"rows"`
}

func toWire(t Table) wireTable {
	rows := make([]wireRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = wireRow{FragmentIndex: r.FragmentIndex, Columns: r.Columns}
	}
	return wireTable{Rows: rows}
}

func fromWire(w wireTable) Table {
	rows := make([]Row, len(w.Rows))
	for i, r := range w.Rows {
		rows[i] = Row{FragmentIndex: r.FragmentIndex, Columns: r.Columns}
	}
	return Table{Rows: rows}
}

// Snapshot serializes table to a zstd-compressed MessagePack blob,
// suitable for caching alongside the dataset it indexes.
func Snapshot(t Table) ([]byte, error) {
	raw, err := msgpack.Encode(toWire(t))
	if err != nil {
		return nil, geoerr.Wrap(geoerr.IO, err, "fragment: encoding index snapshot")
	}

	c, err := serialize.NewCompressor()
	if err != nil {
		return nil, geoerr.Wrap(geoerr.IO, err, "fragment: creating snapshot compressor")
	}
	defer c.Close()

	compressed, err := c.Compress(raw)
	if err != nil {
		return nil, geoerr.Wrap(geoerr.IO, err, "fragment: compressing index snapshot")
	}
	return compressed, nil
}

// Load reverses Snapshot, reconstructing a Table from a compressed
// blob previously produced by it.
func Load(blob []byte) (Table, error) {
	d, err := serialize.NewDecompressor()
	if err != nil {
		return Table{}, geoerr.Wrap(geoerr.IO, err, "fragment: creating snapshot decompressor")
	}
	defer d.Close()

	raw, err := d.Decompress(blob)
	if err != nil {
		return Table{}, geoerr.Wrap(geoerr.IO, err, "fragment: decompressing index snapshot")
	}

	var w wireTable
	if err := msgpack.Decode(raw, &w); err != nil {
		return Table{}, geoerr.Wrap(geoerr.IO, err, "fragment: decoding index snapshot")
	}
	return fromWire(w), nil
}
