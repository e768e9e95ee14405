package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/auth"
	"github.com/teamhub/teamhub/internal/ceremony"
	"github.com/teamhub/teamhub/internal/config"
	"github.com/teamhub/teamhub/internal/db"
	"github.com/teamhub/teamhub/internal/http/api"
	"github.com/teamhub/teamhub/internal/logging"
	"github.com/teamhub/teamhub/internal/security"
	"github.com/teamhub/teamhub/internal/settings"
	"github.com/teamhub/teamhub/internal/util"
	"gorm.io/gorm"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	logging.Setup(conf.Logging)
	conn, err := db.Open(conf.Database.URL)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("migrations applied")
	return nil
}

// RunServer serves the API until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(conf.Logging)

	conn, err := db.Open(conf.Database.URL)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	engine, cleanup, err := NewEngine(ctx, conn, conf)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              conf.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errServe := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": server.Addr, "config": configPath, "dialect": db.DialectName(conn)}).Info("starting teamhub server")
		errServe <- server.ListenAndServe()
	}()

	select {
	case errListen := <-errServe:
		if errors.Is(errListen, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: listen: %w", errListen)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

// NewEngine builds the gin engine with every service wired. cleanup releases
// the ceremony store.
func NewEngine(ctx context.Context, conn *gorm.DB, conf config.Config) (*gin.Engine, func(), error) {
	hasher, err := security.NewPasswordHasher(conf.Security.PasswordSecret)
	if err != nil {
		return nil, nil, err
	}
	accounts := auth.NewService(conn, hasher, auth.Options{AutoCreateTeam: conf.Signup.AutoCreateTeam})

	cleanup := func() {}
	var passkeys *auth.PasskeyService
	webAuthn, errWebAuthn := security.NewWebAuthn(conf.WebAuthn)
	if errWebAuthn != nil {
		log.WithError(errWebAuthn).Warn("webauthn disabled: invalid relying party configuration")
	} else {
		var store ceremony.Store = ceremony.NewMemoryStore()
		if conf.Redis.URL != "" {
			redisStore, errRedis := ceremony.OpenRedisStore(ctx, conf.Redis.URL)
			if errRedis != nil {
				return nil, nil, errRedis
			}
			store = redisStore
			log.WithField("redis", util.MaskURL(conf.Redis.URL)).Info("webauthn ceremonies stored in redis")
			cleanup = func() { _ = redisStore.Close() }
		}
		passkeys = auth.NewPasskeyService(conn, webAuthn, store, conf.WebAuthn.SessionTTL)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinLogger())
	api.RegisterRoutes(engine, api.Dependencies{
		Accounts: accounts,
		Passkeys: passkeys,
		JWT:      conf.Security.JWT,
	})
	return engine, cleanup, nil
}

func closeDB(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.WithError(errClose).Warn("close database")
	}
}
