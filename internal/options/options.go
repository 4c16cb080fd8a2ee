// Package options implements the kernel options blob wire format
// (spec §6): an int32le count followed by repeated (int32le key_len,
// key utf-8, int32le val_len, val utf-8) pairs. An empty blob means
// "no options". Adapted from the teacher's internal/serialize
// package, which defined the catalog's own length-prefixed encodings
// for the Flight wire protocol; this is the same shape of codec
// retargeted at kernel configuration instead of catalog metadata.
package options

import (
	"encoding/binary"

	"github.com/hugr-lab/geoarrow-go/geoerr"
)

// Blob is a decoded options blob: an ordered set of key/value pairs.
type Blob struct {
	pairs []pair
}

type pair struct{ key, val string }

// Encode serializes keys/values, in the given order, to the wire
// format. Returns a nil (empty) blob if there are no options.
func Encode(keys, values []string) ([]byte, error) {
	if len(keys) != len(values) {
		return nil, geoerr.New(geoerr.IllegalArgument, "options: keys/values length mismatch")
	}
	if len(keys) == 0 {
		return nil, nil
	}
	buf := make([]byte, 0, 16*len(keys))
	buf = appendU32(buf, uint32(len(keys)))
	for i, k := range keys {
		buf = appendString(buf, k)
		buf = appendString(buf, values[i])
	}
	return buf, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], v)
	return append(buf, hdr[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}

// Decode parses an options blob. An empty/nil blob decodes to a Blob
// with no options.
func Decode(data []byte) (*Blob, error) {
	if len(data) == 0 {
		return &Blob{}, nil
	}
	if len(data) < 4 {
		return nil, geoerr.New(geoerr.Parse, "options blob truncated: missing count header")
	}
	count := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	b := &Blob{pairs: make([]pair, 0, count)}
	for i := uint32(0); i < count; i++ {
		k, rest, err := readString(data)
		if err != nil {
			return nil, err
		}
		v, rest2, err := readString(rest)
		if err != nil {
			return nil, err
		}
		b.pairs = append(b.pairs, pair{k, v})
		data = rest2
	}
	return b, nil
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", nil, geoerr.New(geoerr.Parse, "options blob truncated: missing string length")
	}
	n := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return "", nil, geoerr.New(geoerr.Parse, "options blob truncated: string shorter than declared length")
	}
	return string(data[:n]), data[n:], nil
}

// Get returns the value of key and whether it was present.
func (b *Blob) Get(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	for _, p := range b.pairs {
		if p.key == key {
			return p.val, true
		}
	}
	return "", false
}

// Keys returns every key present in the blob, in wire order.
func (b *Blob) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, len(b.pairs))
	for i, p := range b.pairs {
		keys[i] = p.key
	}
	return keys
}

// RejectUnknown returns an IllegalArgument error naming the first key
// not present in allowed, or nil if every key is recognised.
func (b *Blob) RejectUnknown(allowed map[string]bool) error {
	if b == nil {
		return nil
	}
	for _, p := range b.pairs {
		if !allowed[p.key] {
			return geoerr.New(geoerr.IllegalArgument, "unrecognized kernel option %q", p.key)
		}
	}
	return nil
}
