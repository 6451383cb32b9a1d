package cmd

import (
	"path"
	"strings"
	"time"
)

// PathTemplate provides functionality to generate S3 key prefixes from templates
type PathTemplate struct {
	template string
}

// NewPathTemplate creates a new PathTemplate instance
func NewPathTemplate(template string) *PathTemplate {
	return &PathTemplate{template: template}
}

// Generate replaces placeholders in the template with actual values
// Supports: {run_id}, {table1}, {table2}, {YYYY}, {MM}, {DD}, {HH}
func (pt *PathTemplate) Generate(runID, table1, table2 string, timestamp time.Time) string {
	result := pt.template

	result = strings.ReplaceAll(result, "{run_id}", runID)
	result = strings.ReplaceAll(result, "{table1}", sanitizeKeySegment(table1))
	result = strings.ReplaceAll(result, "{table2}", sanitizeKeySegment(table2))

	timestamp = timestamp.UTC()
	result = strings.ReplaceAll(result, "{YYYY}", timestamp.Format("2006"))
	result = strings.ReplaceAll(result, "{MM}", timestamp.Format("01"))
	result = strings.ReplaceAll(result, "{DD}", timestamp.Format("02"))
	result = strings.ReplaceAll(result, "{HH}", timestamp.Format("15"))

	return strings.Trim(path.Clean("/"+result), "/")
}

// sanitizeKeySegment keeps a table name from introducing extra path levels
func sanitizeKeySegment(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(name)
}
