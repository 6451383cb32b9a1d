package comparator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/airframesio/databricks-mcp/cmd/formatters"
)

// DefaultSampleSizes are the prefix lengths tried by SampledDiff, smallest first.
var DefaultSampleSizes = []int{5, 25, 100, 500}

// IdenticalWithinSample is the diff text reported when no sample differed.
const IdenticalWithinSample = "Files are identical (verified through progressive sampling)"

// SampledDiff diffs growing line prefixes of both files and stops at the
// first prefix that differs. Differences past the largest prefix are not seen.
type SampledDiff struct {
	Engine DiffEngine
	Sizes  []int
}

// NewSampledDiff wraps engine with the default sample sizes
func NewSampledDiff(engine DiffEngine) *SampledDiff {
	return &SampledDiff{Engine: engine, Sizes: DefaultSampleSizes}
}

func (d *SampledDiff) Diff(ctx context.Context, fileA, fileB string, contextLines int) (*Diff, error) {
	sizes := d.Sizes
	if len(sizes) == 0 {
		sizes = DefaultSampleSizes
	}

	for _, size := range sizes {
		sampleA, err := writeSample(fileA, size, "1")
		if err != nil {
			return nil, err
		}
		sampleB, err := writeSample(fileB, size, "2")
		if err != nil {
			os.Remove(sampleA)
			return nil, err
		}

		diff, err := d.Engine.Diff(ctx, sampleA, sampleB, contextLines)
		os.Remove(sampleA)
		os.Remove(sampleB)
		if err != nil {
			return nil, err
		}

		if !diff.Identical {
			diff.Command = fmt.Sprintf("diff (sample %d lines) %s %s", size, fileA, fileB)
			diff.SampleSize = size
			return diff, nil
		}
	}

	largest := sizes[len(sizes)-1]
	return &Diff{
		Text:       IdenticalWithinSample,
		Identical:  true,
		Command:    fmt.Sprintf("diff (smart sampling up to %d lines)", largest),
		SampleSize: largest,
	}, nil
}

// writeSample copies the first n lines of path next to it.
func writeSample(path string, n int, suffix string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", &formatters.IOError{Op: "read", Path: path, Err: err}
	}
	defer src.Close()

	target := filepath.Join(filepath.Dir(path), fmt.Sprintf("sample_%d_%s_%s", n, suffix, filepath.Base(path)))

	dst, err := os.Create(target)
	if err != nil {
		return "", &formatters.IOError{Op: "create", Path: target, Err: err}
	}

	reader := bufio.NewReader(src)
	writer := bufio.NewWriter(dst)
	for i := 0; i < n; i++ {
		line, err := reader.ReadString('\n')
		if _, werr := writer.WriteString(line); werr != nil {
			dst.Close()
			os.Remove(target)
			return "", &formatters.IOError{Op: "write", Path: target, Err: werr}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			dst.Close()
			os.Remove(target)
			return "", &formatters.IOError{Op: "read", Path: path, Err: err}
		}
	}

	if err := writer.Flush(); err != nil {
		dst.Close()
		os.Remove(target)
		return "", &formatters.IOError{Op: "write", Path: target, Err: err}
	}
	if err := dst.Close(); err != nil {
		os.Remove(target)
		return "", &formatters.IOError{Op: "close", Path: target, Err: err}
	}
	return target, nil
}
