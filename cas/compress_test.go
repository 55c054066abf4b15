package cas_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/cas"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	original := []byte(strings.Repeat("compressible text content ", 200))

	compressed, format, err := cas.CompressBlob(original, zstd.SpeedFastest)
	require.NoError(t, err)
	assert.Equal(t, cas.FormatZstd, format)
	assert.Less(t, len(compressed), len(original))

	restored, err := cas.DecompressBlob(compressed, format)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestCompressSkipsAlreadyCompressedFormats(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0}

	out, format, err := cas.CompressBlob(pngHeader, zstd.SpeedFastest)
	require.NoError(t, err)
	assert.Equal(t, cas.FormatNone, format)
	assert.Equal(t, pngHeader, out)
}

func TestDecompressReaderStreams(t *testing.T) {
	original := []byte(strings.Repeat("x", 4096))
	compressed, format, err := cas.CompressBlob(original, zstd.SpeedFastest)
	require.NoError(t, err)

	r, err := cas.DecompressReader(bytes.NewReader(compressed), format)
	require.NoError(t, err)
	defer r.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, original, buf.Bytes())
}
