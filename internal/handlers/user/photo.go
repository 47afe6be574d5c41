package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/services"
)

const maxPhotoSize = 5 << 20

func (h *Handler) UploadPhoto(c *gin.Context) {
	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Photo manquante"})
		return
	}
	if file.Size > maxPhotoSize {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Photo trop lourde (5 Mo max)"})
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	ctx := c.Request.Context()

	key, err := h.Photos.UploadUserPhoto(ctx, userID, file)
	switch {
	case errors.Is(err, services.ErrStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "Upload indisponible"})
		return
	case errors.Is(err, services.ErrNotAnImage):
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Str("user_id", userID).Msg("❌ Upload photo impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur upload"})
		return
	}

	if err := h.Users.UpdatePhoto(ctx, userID, key); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("❌ Mise à jour photo impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur serveur"})
		return
	}
	log.Info().Str("user_id", userID).Msg("📸 Photo de profil mise à jour")
	c.JSON(http.StatusOK, gin.H{"photo": h.photoURL(ctx, key)})
}

// photoURL signe les clés MinIO ; les URLs externes (avatar OAuth) passent telles quelles
func (h *Handler) photoURL(ctx context.Context, photo string) string {
	if photo == "" || strings.HasPrefix(photo, "http://") || strings.HasPrefix(photo, "https://") {
		return photo
	}
	url, err := h.Photos.SignedURL(ctx, photo)
	if err != nil {
		log.Debug().Err(err).Msg("🔗 URL signée indisponible")
		return ""
	}
	return url
}
