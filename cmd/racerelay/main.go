package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirrezam75/racerelay/gameserver"
	"github.com/amirrezam75/racerelay/pkg/logx"
	"go.uber.org/zap"
)

func main() {
	if !run() {
		os.Exit(1)
	}
}

func run() bool {
	config, err := gameserver.Load()
	if err != nil {
		log.Fatalf(`level=error msg="%s" desc="%s"`, err.Error(), "could not load config")
	}

	logx.NewLogger(config.Debug)
	defer logx.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := gameserver.NewGameServer(ctx, config)
	if err != nil {
		logx.Logger.Error(err.Error(), zap.String("desc", "could not create game server"))
		return false
	}

	if err := server.Run(); err != nil {
		logx.Logger.Error(err.Error(), zap.String("desc", "game server stopped"))
		return false
	}

	logx.Logger.Info("game server stopped")

	return true
}
