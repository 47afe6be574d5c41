package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/broadcast"
	"storefront_back_end/internal/middleware"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	allowed := h.AllowedOrigins
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowed) == 0 || origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// CartWebSocket ouvre le canal temps réel du panier ; le hub ne livre que les événements de cet utilisateur
func (h *Handler) CartWebSocket(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "error": "Non authentifié"})
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("❌ Erreur upgrade WebSocket")
		return
	}

	broadcast.NewClient(h.Hub, conn, userID).Serve()
}
