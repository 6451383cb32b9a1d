package compressors

import (
	"compress/gzip"
	"fmt"
	"io"
)

// GzipCompressor handles Gzip compression
type GzipCompressor struct{}

// NewGzipCompressor creates a new Gzip compressor
func NewGzipCompressor() *GzipCompressor {
	return &GzipCompressor{}
}

// Extension returns the file extension for Gzip compression
func (c *GzipCompressor) Extension() string {
	return ".gz"
}

// NewWriter creates a streaming gzip compression writer
func (c *GzipCompressor) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	if level < 1 || level > 9 {
		level = gzip.DefaultCompression
	}
	writer, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return writer, nil
}

// DefaultLevel returns the default compression level for Gzip
func (c *GzipCompressor) DefaultLevel() int {
	return 6 // gzip.DefaultCompression
}
