package comparator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

const (
	SideLeft  = "left"
	SideRight = "right"
)

// SnapshotPath returns the scratch file for one side of a comparison:
// <dir>/<side>_<catalog>.<schema>.<table>_<hash8>.csv. The hash covers the
// unsanitized full name so distinct tables never share a file.
func SnapshotPath(dir, side string, id warehouse.TableIdentity) string {
	full := id.FullName()
	sum := sha256.Sum256([]byte(full))
	name := fmt.Sprintf("%s_%s_%s.csv", side, sanitizeFileName(full), hex.EncodeToString(sum[:])[:8])
	return filepath.Join(dir, name)
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
