package compressors

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func decompress(t *testing.T, compression string, data []byte) []byte {
	t.Helper()

	var reader io.Reader
	switch compression {
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		reader = r
	case "zstd":
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("zstd reader: %v", err)
		}
		defer r.Close()
		reader = r
	case "lz4":
		reader = lz4.NewReader(bytes.NewReader(data))
	default:
		return data
	}

	out, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("decompress %s: %v", compression, err)
	}
	return out
}

func TestCompressorsRoundTrip(t *testing.T) {
	input := []byte(strings.Repeat("id,name\n1,alpha\n2,beta\n", 200))

	for _, name := range []string{"gzip", "zstd", "lz4", "none"} {
		t.Run(name, func(t *testing.T) {
			c, err := GetCompressor(name)
			if err != nil {
				t.Fatalf("GetCompressor(%q): %v", name, err)
			}

			var buf bytes.Buffer
			w, err := c.NewWriter(&buf, c.DefaultLevel())
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			if _, err := w.Write(input); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if got := decompress(t, name, buf.Bytes()); !bytes.Equal(got, input) {
				t.Error("streaming compression did not round trip")
			}
		})
	}
}

func TestLZ4Levels(t *testing.T) {
	input := []byte(strings.Repeat("1,alpha\n", 500))
	c := NewLZ4Compressor()

	for level := 0; level <= 10; level++ {
		var buf bytes.Buffer
		w, err := c.NewWriter(&buf, level)
		if err != nil {
			t.Fatalf("NewWriter(level %d): %v", level, err)
		}
		if _, err := w.Write(input); err != nil {
			t.Fatalf("Write(level %d): %v", level, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close(level %d): %v", level, err)
		}
		if got := decompress(t, "lz4", buf.Bytes()); !bytes.Equal(got, input) {
			t.Errorf("level %d did not round trip", level)
		}
	}
}

func TestCompressFileLZ4DefaultLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "left_main.default.t1.csv")
	content := []byte("id,name\n1,a\n2,b\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewLZ4Compressor()
	target, err := CompressFile(c, path, c.DefaultLevel())
	if err != nil {
		t.Fatalf("CompressFile: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if got := decompress(t, "lz4", data); !bytes.Equal(got, content) {
		t.Errorf("compressed file content mismatch: %q", got)
	}
}

func TestGetCompressorUnsupported(t *testing.T) {
	if _, err := GetCompressor("brotli"); !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("expected ErrUnsupportedCompression, got %v", err)
	}
}

func TestCompressFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "left_main.default.orders.csv")
	content := []byte("id\n1\n2\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	target, err := CompressFile(NewZstdCompressor(), path, 3)
	if err != nil {
		t.Fatalf("CompressFile: %v", err)
	}
	if target != path+".zst" {
		t.Errorf("unexpected target %s", target)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file should be removed")
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if got := decompress(t, "zstd", data); !bytes.Equal(got, content) {
		t.Errorf("compressed file content mismatch: %q", got)
	}
}

func TestCompressFileNone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	target, err := CompressFile(NewNoneCompressor(), path, 0)
	if err != nil {
		t.Fatalf("CompressFile: %v", err)
	}
	if target != path {
		t.Errorf("none compressor should keep the original path, got %s", target)
	}
}
