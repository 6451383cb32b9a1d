package compressors

import "io"

// NoneCompressor is a no-op compressor that returns data unchanged
type NoneCompressor struct{}

// NewNoneCompressor creates a new no-op compressor
func NewNoneCompressor() *NoneCompressor {
	return &NoneCompressor{}
}

// Extension returns an empty string (no compression extension)
func (c *NoneCompressor) Extension() string {
	return ""
}

// NewWriter creates a no-op writer (passes through without compression)
func (c *NoneCompressor) NewWriter(w io.Writer, _ int) (io.WriteCloser, error) {
	return &nopWriteCloser{w}, nil
}

// DefaultLevel returns 0 (no compression level needed)
func (c *NoneCompressor) DefaultLevel() int {
	return 0
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
