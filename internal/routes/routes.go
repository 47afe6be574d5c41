package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/handlers/product"
	"storefront_back_end/internal/handlers/user"
	"storefront_back_end/internal/logging"
	"storefront_back_end/internal/middleware"
)

type Deps struct {
	Users       *user.Handler
	Products    *product.Handler
	Auth        *middleware.Authenticator
	Limiter     *middleware.RateLimiter
	Sessions    sessions.Store
	CORSOrigins []string
	// Health vérifie les dépendances pour /healthz
	Health func(ctx context.Context) error
}

// NewRouter construit le moteur gin complet
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger())
	r.Use(cors.New(corsConfig(deps.CORSOrigins)))
	RegisterRoutes(r, deps)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/healthz", func(c *gin.Context) {
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Health(ctx); err != nil {
				log.Warn().Err(err).Msg("🩺 Healthcheck en échec")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	optional := deps.Auth.OptionalAuth()
	required := deps.Auth.AuthRequired()

	r.GET("/api/check-auth", optional, deps.Users.CheckAuth)

	api := r.Group("/api/v1")
	api.Use(middleware.Sessions(deps.Sessions))

	// 🛒 Panier (visiteur ou connecté)
	cartGroup := api.Group("/cart")
	cartGroup.GET("", optional, deps.Users.GetCart)
	cartGroup.GET("/ws", required, deps.Users.CartWebSocket)
	mutations := cartGroup.Group("", optional, deps.Limiter.CartRateLimit())
	mutations.POST("/add", deps.Users.AddToCart)
	mutations.POST("/remove", deps.Users.RemoveFromCart)
	mutations.POST("/update", deps.Users.UpdateCart)

	// 👤 Comptes
	users := api.Group("/users")
	users.POST("/signup", deps.Users.Signup)
	users.POST("/login", deps.Limiter.LoginRateLimit(), deps.Users.Login)
	users.POST("/logout", optional, deps.Users.Logout)
	users.GET("/me", required, deps.Users.Me)
	users.POST("/me/photo", required, deps.Users.UploadPhoto)
	users.GET("/auth/:provider", deps.Users.BeginAuth)
	users.GET("/auth/:provider/callback", deps.Users.CallbackAuth)

	// 📦 Catalogue
	products := api.Group("/products")
	products.GET("", deps.Products.GetAllProducts)
	products.POST("", required, deps.Products.CreateProduct)
	products.GET("/search", deps.Products.SearchProducts)
	products.POST("/calculate-price", optional, deps.Products.CalculatePrice)
	products.GET("/:productId", deps.Products.GetProductByID)
}
