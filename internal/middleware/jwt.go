package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/utils"
)

const (
	// TokenCookie porte le JWT pour les clients navigateur
	TokenCookie = "jwt"

	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextClaims = "claims"
)

// Blacklist vérifie si un token a été révoqué (logout)
type Blacklist interface {
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

type Authenticator struct {
	tokens    *utils.TokenManager
	blacklist Blacklist
}

func NewAuthenticator(tokens *utils.TokenManager, blacklist Blacklist) *Authenticator {
	return &Authenticator{tokens: tokens, blacklist: blacklist}
}

// TokenFromRequest : header Authorization, puis cookie jwt, puis ?token= (websocket)
func TokenFromRequest(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}

// authenticate retourne les claims d'un token valide et non révoqué, nil sinon
func (a *Authenticator) authenticate(c *gin.Context) *utils.Claims {
	raw := TokenFromRequest(c)
	if raw == "" {
		return nil
	}

	claims, err := a.tokens.Parse(raw)
	if err != nil {
		log.Debug().Err(err).Msg("🎫 Token rejeté")
		return nil
	}

	if a.blacklist != nil && claims.ID != "" {
		revoked, err := a.blacklist.IsTokenBlacklisted(c.Request.Context(), claims.ID)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Erreur vérification blacklist")
		}
		if revoked {
			return nil
		}
	}
	return claims
}

func setIdentity(c *gin.Context, claims *utils.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextClaims, claims)
}

// OptionalAuth identifie l'utilisateur si possible ; un token invalide vaut visiteur anonyme
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := a.authenticate(c); claims != nil {
			setIdentity(c, claims)
		}
		c.Next()
	}
}

func (a *Authenticator) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := a.authenticate(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "fail", "error": "Non authentifié"})
			return
		}
		setIdentity(c, claims)
		c.Next()
	}
}

// ClaimsFrom retourne les claims posées par le middleware
func ClaimsFrom(c *gin.Context) *utils.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}
