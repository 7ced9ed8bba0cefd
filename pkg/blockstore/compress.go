package blockstore

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// CompressingBackend wraps another Backend and gzips values on Put,
// gunzipping on Get — useful for a FileBackend directory holding many
// large ORM shape payloads or snapshot blocks. Grounded on the
// teacher's `core/partitioning_and_compression.go` CompressData/
// DecompressData pair, generalised from a ledger-block-specific
// helper to a transparent Backend decorator any caller can layer over
// an existing store without touching Store's own code.
type CompressingBackend struct {
	inner Backend
}

func NewCompressingBackend(inner Backend) *CompressingBackend {
	return &CompressingBackend{inner: inner}
}

func (c *CompressingBackend) Put(key string, data []byte) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return ngerr.Wrap(err, "blockstore: compress")
	}
	if err := zw.Close(); err != nil {
		return ngerr.Wrap(err, "blockstore: compress")
	}
	return c.inner.Put(key, buf.Bytes())
}

func (c *CompressingBackend) Get(key string) ([]byte, bool, error) {
	raw, ok, err := c.inner.Get(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false, ngerr.Wrap(err, "blockstore: decompress")
	}
	defer zr.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, false, ngerr.Wrap(err, "blockstore: decompress")
	}
	return out.Bytes(), true, nil
}

func (c *CompressingBackend) Has(key string) (bool, error) {
	return c.inner.Has(key)
}

func (c *CompressingBackend) Delete(key string) error {
	return c.inner.Delete(key)
}
