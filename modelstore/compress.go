package modelstore

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
)

// Compression encodes stored model documents. The suffix makes stored
// objects self-describing, so a store can be reopened with the codec chosen
// by name.
type Compression interface {
	Name() string
	Suffix() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// CompressionByName returns a built-in compression codec by its stable name.
func CompressionByName(name string) (Compression, bool) {
	switch name {
	case "none":
		return None{}, true
	case "gzip":
		return Gzip{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// None stores documents uncompressed.
type None struct{}

// Name returns "none".
func (None) Name() string { return "none" }

// Suffix returns the empty suffix.
func (None) Suffix() string { return "" }

// Compress returns the data unchanged.
func (None) Compress(data []byte) ([]byte, error) { return data, nil }

// Decompress returns the data unchanged.
func (None) Decompress(data []byte) ([]byte, error) { return data, nil }

// Gzip compresses documents with gzip.
type Gzip struct{}

// Name returns "gzip".
func (Gzip) Name() string { return "gzip" }

// Suffix returns ".gz".
func (Gzip) Suffix() string { return ".gz" }

// Compress gzip-compresses the data.
func (Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress gunzips the data.
func (Gzip) Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// LZ4 compresses documents in the lz4 frame format.
type LZ4 struct{}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }

// Suffix returns ".lz4".
func (LZ4) Suffix() string { return ".lz4" }

// Compress lz4-compresses the data.
func (LZ4) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reads an lz4 frame.
func (LZ4) Decompress(data []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(zr)
}
