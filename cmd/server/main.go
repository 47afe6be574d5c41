package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/app"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/database"
	"storefront_back_end/internal/logging"
	"storefront_back_end/internal/store"
)

func main() {
	config.Load()
	cfg := config.FromEnv()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Configuration invalide")
	}
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := database.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Redis indisponible")
	}
	defer rdb.Close()

	opts := app.Options{Config: cfg, Redis: rdb}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := store.NewMemory()
		opts.Products, opts.Users = mem, mem
		log.Warn().Msg("⚠️ Store en mémoire : les données seront perdues à l'arrêt")
	default:
		scylla, err := database.NewScyllaManager(cfg.Scylla)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ ScyllaDB indisponible")
		}
		defer scylla.Close()
		s := store.NewScylla(scylla)
		opts.Products, opts.Users = s, s
		opts.Health = scylla.Ping
	}

	if opts.Elastic, err = database.ConnectElastic(cfg.Elastic); err != nil {
		log.Warn().Err(err).Msg("⚠️ Elasticsearch ignoré")
		opts.Elastic = nil
	}
	if opts.MinIO, err = database.ConnectMinIO(ctx, cfg.MinIO); err != nil {
		log.Warn().Err(err).Msg("⚠️ MinIO ignoré")
		opts.MinIO = nil
	}

	a, err := app.New(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Initialisation impossible")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.Run(ctx); err != nil {
			log.Error().Err(err).Msg("❌ Diffusion du panier interrompue")
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("🚀 Serveur Storefront lancé")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("❌ Serveur HTTP arrêté")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("🛑 Arrêt en cours...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ Arrêt HTTP forcé")
	}
	<-done
	log.Info().Msg("👋 Serveur arrêté")
}
