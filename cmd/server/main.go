// Package main runs the wallet funds transfer engine API.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	_ "github.com/lib/pq"

	"github.com/kefaspay/wallet/cmd/httpserver"
	"github.com/kefaspay/wallet/internal/ledgerrepo"
	"github.com/kefaspay/wallet/internal/middleware"
	"github.com/kefaspay/wallet/internal/notification"
	"github.com/kefaspay/wallet/internal/reconciler"
	"github.com/kefaspay/wallet/pkg/configpkg"
	"github.com/kefaspay/wallet/pkg/dbpkg"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddress})
	publisher := notification.NewRedisPublisher(rdb)

	server, err := httpserver.New(db, publisher, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := reconciler.New(ledgerrepo.NewRepoPGS(db), config.PendingTimeout, config.ReconcileInterval)
	go rec.Run(logger.WithContext(ctx))

	logger.Info().Msg("WALLET API SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
