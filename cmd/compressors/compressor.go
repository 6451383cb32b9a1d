package compressors

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnsupportedCompression is returned when an unsupported compression type is requested
var ErrUnsupportedCompression = errors.New("unsupported compression type")

// Compressor defines the interface for compression handlers
type Compressor interface {
	// Extension returns the file extension for this compression (e.g., ".zst", ".lz4", ".gz")
	Extension() string

	// DefaultLevel returns the default compression level
	DefaultLevel() int
}

// StreamingCompressor compresses through an io.Writer without buffering
// the whole input
type StreamingCompressor interface {
	Compressor

	// NewWriter wraps w; closing the returned writer flushes the trailer
	NewWriter(w io.Writer, level int) (io.WriteCloser, error)
}

// GetCompressor returns the appropriate compressor based on the compression string
func GetCompressor(compression string) (StreamingCompressor, error) {
	switch compression {
	case "zstd":
		return NewZstdCompressor(), nil
	case "lz4":
		return NewLZ4Compressor(), nil
	case "gzip":
		return NewGzipCompressor(), nil
	case "none":
		return NewNoneCompressor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, compression)
	}
}

// CompressFile streams path into path+Extension() and removes the
// original. The compressed path is returned; with the none compressor the
// file is left untouched.
func CompressFile(c StreamingCompressor, path string, level int) (string, error) {
	if c.Extension() == "" {
		return path, nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	target := path + c.Extension()
	dst, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}

	writer, err := c.NewWriter(dst, level)
	if err != nil {
		dst.Close()
		os.Remove(target)
		return "", err
	}

	if _, err := io.Copy(writer, src); err != nil {
		writer.Close()
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to compress %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to finish %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}

	src.Close()
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return target, nil
}
