package config

import (
	"strings"
	"testing"
)

func TestMysqlDSN(t *testing.T) {
	t.Setenv("DB_USER", "gp")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "villagestats")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3306")

	dsn := mysqlDSN()
	if !strings.HasPrefix(dsn, "gp:pw@tcp(db.internal:3306)/villagestats?") {
		t.Fatalf("unexpected tcp dsn %q", dsn)
	}
	for _, want := range []string{"parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %s", dsn, want)
		}
	}

	t.Setenv("DB_HOST", "/cloudsql/proj:region:inst")
	if dsn := mysqlDSN(); !strings.HasPrefix(dsn, "gp:pw@unix(/cloudsql/proj:region:inst)/villagestats?") {
		t.Fatalf("unexpected socket dsn %q", dsn)
	}
}
