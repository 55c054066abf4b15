package cas

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressionFormat is persisted alongside a blob in the BlobIndex so a
// later GET knows how to decompress it without re-sniffing.
type CompressionFormat string

const (
	FormatNone CompressionFormat = ""
	FormatZstd CompressionFormat = "zstd"
)

// magicSignature is a known file-format magic-byte prefix that indicates
// content is already compressed (or otherwise incompressible), so
// CompressBlob skips wasting CPU on it.
type magicSignature struct {
	name  string
	bytes []byte
}

var incompressibleSignatures = []magicSignature{
	{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}},
	{"jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"gif", []byte{'G', 'I', 'F', '8'}},
	{"gzip", []byte{0x1F, 0x8B}},
	{"zstd", []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{"bzip2", []byte{'B', 'Z', 'h'}},
	{"xz", []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}},
	{"zip", []byte{'P', 'K', 0x03, 0x04}},
	{"mp4", []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}},
	{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3}},
}

// LooksAlreadyCompressed inspects the first bytes of content and reports
// whether it matches a known already-compressed media signature, in
// which case running it through Zstd again would spend CPU for little or
// negative size benefit.
func LooksAlreadyCompressed(head []byte) bool {
	for _, sig := range incompressibleSignatures {
		if bytes.HasPrefix(head, sig.bytes) {
			return true
		}
	}
	return false
}

// Level picks the Zstd level for a given destination tier. Cheap
// compression locally (the common, latency-sensitive path) vs. a better
// ratio for data that's about to cross the network to a remote tier.
const (
	LocalLevel  = zstd.SpeedFastest
	RemoteLevel = zstd.SpeedDefault
)

// CompressBlob compresses b with Zstd at level, unless its content
// already looks compressed, in which case it's returned unchanged with
// FormatNone.
func CompressBlob(b []byte, level zstd.EncoderLevel) ([]byte, CompressionFormat, error) {
	head := b
	if len(head) > 16 {
		head = head[:16]
	}
	if LooksAlreadyCompressed(head) {
		return b, FormatNone, nil
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, FormatNone, err
	}
	defer enc.Close()

	return enc.EncodeAll(b, nil), FormatZstd, nil
}

// DecompressBlob reverses CompressBlob given the format it was stored
// under.
func DecompressBlob(b []byte, format CompressionFormat) ([]byte, error) {
	if format != FormatZstd {
		return b, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(b, nil)
}

// DecompressReader wraps r in a streaming Zstd reader when format calls
// for it, for restoring large outputs without buffering the whole blob.
func DecompressReader(r io.Reader, format CompressionFormat) (io.ReadCloser, error) {
	if format != FormatZstd {
		return io.NopCloser(r), nil
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}
