package user

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
	"storefront_back_end/internal/utils"
)

const (
	nameMinLen = 4
	nameMaxLen = 15
)

// ================== AUTH LOCALE ==================

func (h *Handler) Signup(c *gin.Context) {
	var input struct {
		Name            string `json:"name" binding:"required,min=4,max=15"`
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password" binding:"required,min=8"`
		PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Données invalides"})
		return
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		log.Error().Err(err).Msg("❌ Hash du mot de passe impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur création utilisateur"})
		return
	}

	u := &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		PasswordHash: hash,
		Provider:     models.ProviderLocal,
	}
	ctx := c.Request.Context()
	if err := h.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"status": "fail", "error": "Un compte avec cet email ou ce nom existe déjà"})
			return
		}
		log.Error().Err(err).Msg("❌ Création utilisateur impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur création utilisateur"})
		return
	}
	log.Info().Str("user_id", u.ID).Msg("👤 Nouvel utilisateur")

	go func(email, name string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.Mailer.SendWelcome(ctx, email, name); err != nil {
			log.Warn().Err(err).Str("to", email).Msg("⚠️ Email de bienvenue non envoyé")
		}
	}(u.Email, u.Name)

	token, ok := h.signIn(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "userId": u.ID})
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Email et mot de passe requis"})
		return
	}

	u, err := h.Users.GetUserByEmail(c.Request.Context(), input.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Msg("❌ Lecture utilisateur impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur serveur"})
		return
	}
	if u == nil || u.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "error": "Email ou mot de passe incorrect"})
		return
	}
	if ok, err := utils.VerifyPassword(input.Password, u.PasswordHash); err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "error": "Email ou mot de passe incorrect"})
		return
	}

	token, ok := h.signIn(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "userId": u.ID})
}

// signIn émet le JWT, pose le cookie et fusionne le panier de session
func (h *Handler) signIn(c *gin.Context, u *models.User) (string, bool) {
	token, err := h.Tokens.Generate(u)
	if err != nil {
		log.Error().Err(err).Msg("❌ Génération JWT impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur serveur"})
		return "", false
	}
	h.setTokenCookie(c, token)
	h.reconcile(c, u.ID)
	return token, true
}

// reconcile ne bloque jamais la connexion ; l'échec est rejoué au prochain GET /cart
func (h *Handler) reconcile(c *gin.Context, userID string) {
	session := middleware.SessionFrom(c)
	if session == nil || h.Reconciler == nil || h.SessionCarts == nil {
		return
	}
	st := h.SessionCarts(session, c.Request, c.Writer)
	if err := h.Reconciler.Reconcile(c.Request.Context(), userID, st); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("⚠️ Fusion du panier reportée")
	}
}

func (h *Handler) Logout(c *gin.Context) {
	if claims := middleware.ClaimsFrom(c); claims != nil && claims.ID != "" && h.Revoker != nil {
		if ttl := claims.TTL(); ttl > 0 {
			if err := h.Revoker.BlacklistToken(c.Request.Context(), claims.ID, ttl); err != nil {
				log.Warn().Err(err).Msg("⚠️ Blacklist du token impossible")
			}
		}
	}
	h.clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.Users.GetUser(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "error": "Utilisateur introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": u.ID,
		"name":   u.Name,
		"email":  u.Email,
		"photo":  h.photoURL(c.Request.Context(), u.Photo),
	})
}

func (h *Handler) CheckAuth(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusOK, gin.H{"isAuthenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isAuthenticated": true, "userId": userID})
}

// ================== AUTH SOCIALE ==================

func (h *Handler) BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if _, err := goth.GetProvider(provider); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Provider non supporté"})
		return
	}

	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func (h *Handler) CallbackAuth(c *gin.Context) {
	provider := c.Param("provider")
	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Msg("❌ Échec OAuth")
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "error": "Authentification refusée"})
		return
	}

	u, err := h.oauthUser(c.Request.Context(), gothUser)
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("❌ Compte OAuth inutilisable")
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "error": "Authentification refusée"})
		return
	}

	if _, ok := h.signIn(c, u); !ok {
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// oauthUser retrouve le compte lié au provider, sinon par email, sinon le crée
func (h *Handler) oauthUser(ctx context.Context, gu goth.User) (*models.User, error) {
	u, err := h.Users.GetUserByProvider(ctx, gu.Provider, gu.UserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if gu.Email != "" {
		u, err = h.Users.GetUserByEmail(ctx, gu.Email)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if gu.Email == "" {
		return nil, errors.New("le provider n'a pas fourni d'email")
	}

	u = &models.User{
		Name:       displayName(gu),
		Email:      gu.Email,
		Provider:   gu.Provider,
		ProviderID: gu.UserID,
		Photo:      gu.AvatarURL,
	}
	err = h.Users.CreateUser(ctx, u)
	if errors.Is(err, store.ErrConflict) {
		// nom déjà pris : suffixe aléatoire
		u.Name = withSuffix(u.Name)
		u.Slug = ""
		err = h.Users.CreateUser(ctx, u)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", u.ID).Str("provider", gu.Provider).Msg("👤 Nouvel utilisateur OAuth")
	return u, nil
}

func displayName(gu goth.User) string {
	name := gu.NickName
	if name == "" {
		name = gu.FirstName
	}
	if name == "" {
		name = gu.Name
	}
	if name == "" {
		name, _, _ = strings.Cut(gu.Email, "@")
	}
	name = strings.Join(strings.Fields(name), "")
	if len([]rune(name)) > nameMaxLen {
		name = string([]rune(name)[:nameMaxLen])
	}
	for len([]rune(name)) < nameMinLen {
		name += "0"
	}
	return name
}

func withSuffix(name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	r := []rune(name)
	if len(r) > nameMaxLen-len(suffix) {
		r = r[:nameMaxLen-len(suffix)]
	}
	return string(r) + suffix
}
