// Package user expose les routes compte utilisateur et panier.
package user

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"storefront_back_end/internal/broadcast"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/services"
	"storefront_back_end/internal/store"
	"storefront_back_end/internal/utils"
)

// TokenRevoker met un token en liste noire jusqu'à son expiration
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

type Deps struct {
	Users      store.UserStore
	Carts      *cart.Service
	Reconciler *cart.Reconciler
	Owners     func(userID string) cart.Store
	// SessionCarts construit le panier anonyme lié à la session de la requête
	SessionCarts func(*sessions.Session, *http.Request, http.ResponseWriter) *cart.SessionStore
	Tokens       *utils.TokenManager
	Revoker      TokenRevoker
	Hub          *broadcast.Hub
	Photos       *services.PhotoStorage
	Mailer       *services.Mailer
	// Production active le flag Secure des cookies
	Production bool
	// AllowedOrigins limite les websockets ; vide = toutes origines
	AllowedOrigins []string
}

type Handler struct {
	Deps
}

func NewHandler(deps Deps) *Handler {
	return &Handler{Deps: deps}
}

// setTokenCookie pose le JWT en cookie HttpOnly
func (h *Handler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, int(h.Tokens.TTL().Seconds()), "/", "", h.Production, true)
}

func (h *Handler) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.Production, true)
}
