package warehouse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	limitKeyword = regexp.MustCompile(`(?i)\blimit\b`)
	selectPrefix = regexp.MustCompile(`(?i)^\s*(select|with)\b`)
)

// ApplyLimit appends a LIMIT clause to SELECT/WITH statements that do not
// already carry one. Any other statement is returned unchanged and relies on
// client-side truncation.
func ApplyLimit(query string, limit int) string {
	if limit <= 0 || !selectPrefix.MatchString(query) || limitKeyword.MatchString(query) {
		return query
	}

	trimmed := strings.TrimRight(strings.TrimSpace(query), "; \t\r\n")

	// A trailing line comment would swallow a same-line LIMIT
	separator := " "
	if lastNL := strings.LastIndex(trimmed, "\n"); strings.Contains(trimmed[lastNL+1:], "--") {
		separator = "\n"
	}

	return fmt.Sprintf("%s%sLIMIT %d", trimmed, separator, limit)
}
