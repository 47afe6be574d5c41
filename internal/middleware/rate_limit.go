package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/metrics"
)

const (
	LoginMaxAttempts = 5
	LoginCooldown    = 15 * time.Minute

	CartMaxRequests = 60 // par minute
	CartWindow      = 1 * time.Minute
)

// Counters est le stockage des compteurs (cache.Client)
type Counters interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
	GetRateLimit(ctx context.Context, key string) (int64, error)
	Cooldown(ctx context.Context, key string, d time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Reset(ctx context.Context, keys ...string) error
}

type RateLimiter struct {
	counters Counters
	cartMax  int64
	loginMax int64
}

func NewRateLimiter(counters Counters) *RateLimiter {
	return &RateLimiter{counters: counters, cartMax: CartMaxRequests, loginMax: LoginMaxAttempts}
}

func tooMany(c *gin.Context, limiter, msg string, retry time.Duration) {
	metrics.RateLimited.WithLabelValues(limiter).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"status":      "fail",
		"error":       msg,
		"retry_after": int(retry.Seconds()),
	})
}

// CartRateLimit limite les mutations du panier par utilisateur (ou IP pour un visiteur)
func (rl *RateLimiter) CartRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString(ContextUserID)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := "cart_mut:" + subject

		n, err := rl.counters.IncrementRateLimit(c.Request.Context(), key, CartWindow)
		if err != nil {
			// Redis indisponible : on laisse passer
			log.Warn().Err(err).Msg("⚠️ Rate limit panier indisponible")
			c.Next()
			return
		}
		if n > rl.cartMax {
			tooMany(c, "cart", "Trop de modifications du panier. Ralentissez un peu", CartWindow)
			return
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rl.cartMax))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", rl.cartMax-n))
		c.Next()
	}
}

// LoginRateLimit bloque un email après trop d'échecs de connexion
func (rl *RateLimiter) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Lire le body sans le consommer
		body, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		var input struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(body, &input); err != nil || input.Email == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		email := strings.ToLower(strings.TrimSpace(input.Email))
		key := "login_attempts:" + email
		cooldownKey := "login_cooldown:" + email

		if ttl, err := rl.counters.TTL(ctx, cooldownKey); err == nil && ttl > 0 {
			tooMany(c, "login", fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(ttl.Minutes())+1), ttl)
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			attempts, err := rl.counters.IncrementRateLimit(ctx, key, LoginCooldown)
			if err != nil {
				log.Warn().Err(err).Msg("⚠️ Compteur de connexion indisponible")
				return
			}
			if attempts >= rl.loginMax {
				_ = rl.counters.Cooldown(ctx, cooldownKey, LoginCooldown)
				_ = rl.counters.Reset(ctx, key)
				log.Warn().Str("email", email).Msg("🔒 Connexion bloquée temporairement")
			}
		case http.StatusOK:
			_ = rl.counters.Reset(ctx, key, cooldownKey)
		}
	}
}
