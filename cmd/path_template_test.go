package cmd

import (
	"testing"
	"time"
)

func TestPathTemplateGenerate(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "default template",
			template: defaultPathTemplate,
			want:     "databricks-mcp/2024/03/05/run-1",
		},
		{
			name:     "table placeholders",
			template: "compare/{table1}-vs-{table2}/{run_id}",
			want:     "compare/main.default.a-vs-dev.sales.b/run-1",
		},
		{
			name:     "hour placeholder and stray slashes",
			template: "/exports//{YYYY}{MM}{DD}{HH}/{run_id}/",
			want:     "exports/2024030514/run-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPathTemplate(tt.template).Generate("run-1", "main.default.a", "dev.sales.b", ts)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPathTemplateUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	ts := time.Date(2024, 3, 5, 20, 0, 0, 0, loc) // 2024-03-06 04:00 UTC

	got := NewPathTemplate("{YYYY}-{MM}-{DD}/{run_id}").Generate("r", "a", "b", ts)
	if got != "2024-03-06/r" {
		t.Errorf("expected UTC date, got %q", got)
	}
}

func TestSanitizeKeySegment(t *testing.T) {
	if got := sanitizeKeySegment("weird/table name"); got != "weird_table_name" {
		t.Errorf("unexpected segment %q", got)
	}
}
