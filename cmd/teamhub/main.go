package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/app"
	"github.com/teamhub/teamhub/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $TEAMHUB_CONFIG or ./config.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := config.AppConfig{ConfigPath: *configPath}
	var err error
	switch flag.Arg(0) {
	case "migrate":
		err = app.Migrate(ctx, appCfg)
	case "", "serve":
		err = app.RunServer(ctx, appCfg)
	default:
		log.Fatalf("unknown command %q (want serve or migrate)", flag.Arg(0))
	}
	if err != nil {
		log.WithError(err).Fatal("teamhub exited")
	}
}
