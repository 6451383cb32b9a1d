package compressors

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Levels maps the 1-9 scale shared by all compressors onto lz4's
// high-compression levels.
var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// LZ4Compressor handles LZ4 compression
type LZ4Compressor struct{}

// NewLZ4Compressor creates a new LZ4 compressor
func NewLZ4Compressor() *LZ4Compressor {
	return &LZ4Compressor{}
}

// Extension returns the file extension for LZ4 compression
func (c *LZ4Compressor) Extension() string {
	return ".lz4"
}

// NewWriter creates a streaming lz4 compression writer. Level 0 or anything
// outside 1-9 uses lz4.Fast.
func (c *LZ4Compressor) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	writer := lz4.NewWriter(w)
	if err := writer.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
		return nil, fmt.Errorf("failed to apply compression level: %w", err)
	}
	return writer, nil
}

// DefaultLevel returns the default compression level for LZ4
func (c *LZ4Compressor) DefaultLevel() int {
	return 1
}

func lz4Level(level int) lz4.CompressionLevel {
	if level < 1 || level > len(lz4Levels) {
		return lz4.Fast
	}
	return lz4Levels[level-1]
}
