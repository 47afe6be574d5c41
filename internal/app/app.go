// Package app assemble les composants du serveur autour d'un client Redis et des stores.
package app

import (
	"context"
	"errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/broadcast"
	"storefront_back_end/internal/cache"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/handlers/product"
	"storefront_back_end/internal/handlers/user"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/routes"
	"storefront_back_end/internal/services"
	"storefront_back_end/internal/store"
	"storefront_back_end/internal/utils"
)

type Options struct {
	Config   *config.Config
	Redis    redis.UniversalClient
	Products store.ProductStore
	Users    store.UserStore
	Elastic  *elasticsearch.Client // optionnel
	MinIO    *minio.Client         // optionnel
	// Health s'ajoute au ping Redis pour /healthz
	Health func(ctx context.Context) error
}

type App struct {
	Router *gin.Engine
	Hub    *broadcast.Hub
	Relay  *broadcast.RedisRelay
}

func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil || opts.Redis == nil || opts.Products == nil || opts.Users == nil {
		return nil, errors.New("app: config, redis et stores sont requis")
	}

	hub := broadcast.NewHub()
	relay := broadcast.NewRedisRelay(opts.Redis, hub)
	counters := cache.NewClient(opts.Redis)

	catalog := cache.NewProductCache(opts.Products, opts.Redis)
	owners := cart.OwnerStores(opts.Redis)
	sessionStore := config.NewSessionStore(cfg)
	config.InitOAuthProviders(cfg, sessionStore)

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)

	users := user.NewHandler(user.Deps{
		Users:          opts.Users,
		Carts:          cart.NewService(catalog, relay),
		Reconciler:     cart.NewReconciler(owners, catalog, relay),
		Owners:         owners,
		SessionCarts:   cart.SessionStores(opts.Redis),
		Tokens:         tokens,
		Revoker:        counters,
		Hub:            hub,
		Photos:         services.NewPhotoStorage(opts.MinIO, cfg.MinIO.Bucket),
		Mailer:         services.NewMailer(cfg.SMTP),
		Production:     cfg.Production,
		AllowedOrigins: cfg.CORSOrigins,
	})
	products := product.NewHandler(catalog, services.NewProductSearch(opts.Elastic, catalog))

	router := routes.NewRouter(routes.Deps{
		Users:       users,
		Products:    products,
		Auth:        middleware.NewAuthenticator(tokens, counters),
		Limiter:     middleware.NewRateLimiter(counters),
		Sessions:    sessionStore,
		CORSOrigins: cfg.CORSOrigins,
		Health: func(ctx context.Context) error {
			if err := counters.Ping(ctx); err != nil {
				return err
			}
			if opts.Health != nil {
				return opts.Health(ctx)
			}
			return nil
		},
	})

	return &App{Router: router, Hub: hub, Relay: relay}, nil
}

// Run fait tourner le hub et le relais Redis jusqu'à l'annulation du contexte
func (a *App) Run(ctx context.Context) error {
	errc := make(chan error, 2)
	go func() { errc <- a.Hub.RunWithContext(ctx) }()
	go func() {
		err := a.Relay.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("❌ Relais Redis du panier arrêté")
		}
		errc <- err
	}()

	var first error
	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil && !errors.Is(err, context.Canceled) && first == nil {
			first = err
		}
	}
	return first
}
