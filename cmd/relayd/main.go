// relayd is a self-hostable relay daemon for typing races. It speaks the
// same publish/subscribe contract as a public NATS server, over
// WebSocket, for players who cannot or do not want to use a public
// broker.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/config"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/relayserver"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *addr != "" {
		cfg.Relayd.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := relayserver.NewServer(relayserver.NewHub(), relayserver.DefaultServerConfig())
	if err := relayserver.ListenAndServe(ctx, cfg.Relayd.Addr, srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("relayd failed")
	}
	log.Info().Msg("relayd stopped")
}
