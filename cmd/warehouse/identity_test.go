package warehouse

import (
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		id       TableIdentity
		defaults Defaults
		want     TableIdentity
	}{
		{
			name:     "unset defaults fall back to main.default",
			id:       TableIdentity{Name: "ghost_table"},
			defaults: Defaults{},
			want:     TableIdentity{Catalog: "main", Schema: "default", Name: "ghost_table"},
		},
		{
			name:     "configured defaults fill missing parts",
			id:       TableIdentity{Name: "orders"},
			defaults: Defaults{Catalog: "prod", Schema: "sales"},
			want:     TableIdentity{Catalog: "prod", Schema: "sales", Name: "orders"},
		},
		{
			name:     "explicit catalog and schema win",
			id:       TableIdentity{Catalog: "dev", Schema: "staging", Name: "orders"},
			defaults: Defaults{Catalog: "prod", Schema: "sales"},
			want:     TableIdentity{Catalog: "dev", Schema: "staging", Name: "orders"},
		},
		{
			name:     "only schema given",
			id:       TableIdentity{Schema: "staging", Name: "orders"},
			defaults: Defaults{Catalog: "prod"},
			want:     TableIdentity{Catalog: "prod", Schema: "staging", Name: "orders"},
		},
		{
			name:     "whitespace is trimmed",
			id:       TableIdentity{Catalog: "  ", Schema: " s ", Name: " t "},
			defaults: Defaults{},
			want:     TableIdentity{Catalog: "main", Schema: "s", Name: "t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.id, tt.defaults)
			if got != tt.want {
				t.Fatalf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTableIdentityFullName(t *testing.T) {
	id := Resolve(TableIdentity{Name: "ghost_table"}, Defaults{})
	if got := id.FullName(); got != "main.default.ghost_table" {
		t.Fatalf("FullName() = %q, want main.default.ghost_table", got)
	}

	if got := (TableIdentity{Name: "bare"}).FullName(); got != "bare" {
		t.Fatalf("FullName() of unresolved identity = %q, want bare", got)
	}
}

func TestTableIdentityEqual(t *testing.T) {
	defaults := Defaults{Catalog: "main", Schema: "default"}

	a := TableIdentity{Name: "orders"}
	b := TableIdentity{Catalog: "main", Schema: "default", Name: "orders"}
	c := TableIdentity{Catalog: "dev", Name: "orders"}

	if !a.Equal(b, defaults) {
		t.Error("identities resolving to the same table should be equal")
	}
	if a.Equal(c, defaults) {
		t.Error("identities in different catalogs should not be equal")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("MissingAllMandatory", func(t *testing.T) {
		err := Config{}.Validate()
		cfgErr, ok := err.(*ConfigurationError)
		if !ok {
			t.Fatalf("expected *ConfigurationError, got %T", err)
		}
		if len(cfgErr.Missing) != 3 {
			t.Fatalf("expected 3 missing settings, got %v", cfgErr.Missing)
		}
		want := "Missing Databricks configuration: DATABRICKS_SERVER_HOSTNAME, DATABRICKS_HTTP_PATH, DATABRICKS_ACCESS_TOKEN"
		if err.Error() != want {
			t.Fatalf("unexpected message: %s", err.Error())
		}
	})

	t.Run("HTTPPathMustBeAbsolute", func(t *testing.T) {
		err := Config{ServerHostname: "h", HTTPPath: "sql/1.0/warehouses/abc", AccessToken: "tok"}.Validate()
		if err == nil {
			t.Fatal("expected error for relative http path")
		}
	})

	t.Run("Valid", func(t *testing.T) {
		err := Config{ServerHostname: "h", HTTPPath: "/sql/1.0/warehouses/abc", AccessToken: "tok"}.Validate()
		if err != nil {
			t.Fatalf("valid config should not return error: %v", err)
		}
	})
}

func TestApplyLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		limit int
		want  string
	}{
		{"select gets limit", "SELECT * FROM t", 10, "SELECT * FROM t LIMIT 10"},
		{"trailing semicolons stripped", "select * from t;;  ", 5, "select * from t LIMIT 5"},
		{"cte gets limit", "WITH x AS (SELECT 1) SELECT * FROM x", 3, "WITH x AS (SELECT 1) SELECT * FROM x LIMIT 3"},
		{"existing limit kept", "SELECT * FROM t LIMIT 2", 10, "SELECT * FROM t LIMIT 2"},
		{"non select untouched", "SHOW TABLES", 10, "SHOW TABLES"},
		{"zero limit untouched", "SELECT 1", 0, "SELECT 1"},
		{"column named limited is not a limit", "SELECT limited FROM t", 4, "SELECT limited FROM t LIMIT 4"},
		{"trailing comment moves limit to new line", "SELECT * FROM t -- note", 7, "SELECT * FROM t -- note\nLIMIT 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApplyLimit(tt.query, tt.limit); got != tt.want {
				t.Fatalf("ApplyLimit(%q, %d) = %q, want %q", tt.query, tt.limit, got, tt.want)
			}
		})
	}
}
