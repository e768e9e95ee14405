package db

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/teamhub/teamhub/internal/models"
	"gorm.io/gorm"
)

func TestMigrateSQLiteCreatesAuthTables(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{"teams", "users", "biometric_credentials", "settings"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	for _, column := range []string{"pin_hash", "two_fa_method", "two_fa_setup_required", "last_login_at"} {
		if !conn.Migrator().HasColumn(&models.User{}, column) {
			t.Fatalf("users missing column %s", column)
		}
	}
	if !conn.Migrator().HasIndex(&models.User{}, "idx_users_team_username") {
		t.Fatalf("users missing team/username unique index")
	}
}

func TestMigrateRejectsNilConnection(t *testing.T) {
	if errMigrate := Migrate(nil); errMigrate == nil {
		t.Fatalf("expected error for nil connection")
	}
}

func TestOpenSQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "teamhub.db")
	conn, errOpen := Open("sqlite://" + path)
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	if got := DialectName(conn); got != DialectSQLite {
		t.Fatalf("dialect = %q, want %q", got, DialectSQLite)
	}
	sqlDB, _ := conn.DB()
	_ = sqlDB.Close()
}

func TestDetectDialectFromDSN(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"postgres://u:p@localhost:5432/teamhub": DialectPostgres,
		"host=localhost user=u dbname=teamhub":  DialectPostgres,
		"file:teamhub.db?cache=shared":          DialectSQLite,
		"teamhub.db":                            DialectSQLite,
	}
	for dsn, want := range cases {
		got, errDetect := detectDialectFromDSN(dsn)
		if errDetect != nil {
			t.Fatalf("detect %q: %v", dsn, errDetect)
		}
		if got != want {
			t.Fatalf("detect %q = %q, want %q", dsn, got, want)
		}
	}
	if _, errDetect := detectDialectFromDSN("mysql://localhost/teamhub"); errDetect == nil {
		t.Fatalf("expected mysql dsn to be rejected")
	}
}
