package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/cart"
)

const ContextSession = "session"

// Sessions charge la session gorilla (panier anonyme) pour chaque requête.
// Un cookie illisible donne une session neuve.
func Sessions(store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, cart.SessionName)
		if err != nil {
			log.Debug().Err(err).Msg("🍪 Cookie de session ignoré")
		}
		c.Set(ContextSession, session)
		c.Next()
	}
}

// SessionFrom retourne la session posée par Sessions, nil si absente
func SessionFrom(c *gin.Context) *sessions.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	session, _ := v.(*sessions.Session)
	return session
}
