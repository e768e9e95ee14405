package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/teamhub/teamhub/internal/models"
	"gorm.io/gorm"
)

func openSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:settings_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func TestSnapshotParsesWrappedAndBareValues(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{
		WebAuthnRPIDKey:    json.RawMessage(`{"value":" app.example.com "}`),
		WebAuthnOriginsKey: json.RawMessage(`["https://a.example.com", " ", "https://b.example.com"]`),
		AutoCreateTeamKey:  json.RawMessage(`"yes"`),
	})
	t.Cleanup(func() { Store(time.Time{}, nil) })

	if got := String(WebAuthnRPIDKey); got != "app.example.com" {
		t.Fatalf("rp id = %q", got)
	}
	origins := Strings(WebAuthnOriginsKey)
	if len(origins) != 2 || origins[1] != "https://b.example.com" {
		t.Fatalf("origins = %v", origins)
	}
	if enabled, ok := Bool(AutoCreateTeamKey); !ok || !enabled {
		t.Fatalf("auto create = %v/%v, want true/true", enabled, ok)
	}
	if _, ok := Bool("MISSING"); ok {
		t.Fatalf("expected missing key to be unset")
	}
}

func TestPutPersistsAndRefreshes(t *testing.T) {
	db := openSettingsTestDB(t)
	t.Cleanup(func() { Store(time.Time{}, nil) })
	ctx := context.Background()

	if errPut := Put(ctx, db, WebAuthnRPNameKey, "Teamhub Staging"); errPut != nil {
		t.Fatalf("put: %v", errPut)
	}
	if errPut := Put(ctx, db, WebAuthnRPNameKey, "Teamhub"); errPut != nil {
		t.Fatalf("put again: %v", errPut)
	}
	if got := String(WebAuthnRPNameKey); got != "Teamhub" {
		t.Fatalf("rp name = %q, want Teamhub", got)
	}

	var count int64
	db.Model(&models.Setting{}).Count(&count)
	if count != 1 {
		t.Fatalf("settings rows = %d, want 1", count)
	}
}
