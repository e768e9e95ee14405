package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/config"
)

func TestSetupWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamhub.log")
	Setup(config.LoggingConfig{Level: "debug", File: path, MaxSizeMB: 1})
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.WithField("user_id", 7).Info("login ok")

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		t.Fatalf("read log file: %v", errRead)
	}
	if len(data) == 0 {
		t.Fatalf("expected log output in %s", path)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("level = %s, want debug", log.GetLevel())
	}
}

func TestSetupFallsBackToInfoOnBadLevel(t *testing.T) {
	Setup(config.LoggingConfig{Level: "chatty"})
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("level = %s, want info", log.GetLevel())
	}
}

func TestGinLoggerPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinLogger())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
