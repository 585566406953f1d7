package utils

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
)

// gzip magic header, used to tell compressed mirror values from raw ones
var gzipMagic = []byte{0x1f, 0x8b}

// CompressBytes gzips data with BestCompression. The output is stored as-is
// in the bolt mirror, so no text encoding is applied.
func CompressBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressBytes reverses CompressBytes.
func DecompressBytes(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return nil, errors.New("not gzip data")
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// IsCompressed reports whether data starts with the gzip header.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}
