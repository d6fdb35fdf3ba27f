package source

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression is the outer compression applied to a source file.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGZ
	CompressionBZ2
	CompressionXZ
	CompressionZSTD
)

var compressionExts = []struct {
	ext  string
	kind Compression
}{
	{".gz", CompressionGZ},
	{".bz2", CompressionBZ2},
	{".xz", CompressionXZ},
	{".zst", CompressionZSTD},
}

// splitCompression strips a known compression suffix from a lowercase base
// name and reports which one it was.
func splitCompression(base string) (Compression, string) {
	for _, ce := range compressionExts {
		if strings.HasSuffix(base, ce.ext) {
			return ce.kind, strings.TrimSuffix(base, ce.ext)
		}
	}
	return CompressionNone, base
}

// decompress wraps r in a decoder for c. The returned close function releases
// decoder resources; it does not close r.
func decompress(r io.Reader, c Compression) (io.Reader, func() error, error) {
	switch c {
	case CompressionNone:
		return r, func() error { return nil }, nil

	case CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, gz.Close, nil

	case CompressionBZ2:
		return bzip2.NewReader(r), func() error { return nil }, nil

	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return xr, func() error { return nil }, nil

	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec, func() error {
			dec.Close()
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression %d", c)
	}
}
