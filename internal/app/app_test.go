package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/teamhub/teamhub/internal/config"
	"github.com/teamhub/teamhub/internal/db"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	conf := config.Default()
	conf.Database.URL = fmt.Sprintf("file:app_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conf.Security.PasswordSecret = "pw-secret"
	conf.Security.JWT.Secret = "jwt-secret"
	conf.WebAuthn.Origins = []string{"http://localhost:8080"}
	conf.Signup.AutoCreateTeam = true
	return conf
}

func TestNewEngineServesActionsWithRedisCeremonies(t *testing.T) {
	redisServer := miniredis.RunT(t)
	conf := testConfig(t)
	conf.Redis.URL = "redis://" + redisServer.Addr()

	conn, errOpen := db.Open(conf.Database.URL)
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	t.Cleanup(func() { closeDB(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	engine, cleanup, errEngine := NewEngine(context.Background(), conn, conf)
	if errEngine != nil {
		t.Fatalf("engine: %v", errEngine)
	}
	t.Cleanup(cleanup)

	body := `{"action":"signup","team_slug":"ops","username":"root","email":"root@ops.test","password":"pw","role":"admin"}`
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestNewEngineFailsOnUnreachableRedis(t *testing.T) {
	conf := testConfig(t)
	conf.Redis.URL = "redis://127.0.0.1:1"
	conn, errOpen := db.Open(conf.Database.URL)
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	t.Cleanup(func() { closeDB(conn) })

	if _, _, errEngine := NewEngine(context.Background(), conn, conf); errEngine == nil {
		t.Fatalf("expected redis connection error")
	}
}
