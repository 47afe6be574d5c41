package config

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog/log"
)

const SessionMaxAge = 86400 * 30

// NewSessionStore crée le store de sessions partagé par le panier anonyme et gothic
func NewSessionStore(cfg *Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(SessionMaxAge)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.Production,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// InitOAuthProviders enregistre Google / Facebook auprès de goth
func InitOAuthProviders(cfg *Config, store sessions.Store) int {
	gothic.Store = store

	// Le provider vient du paramètre de route, recopié dans la query par le handler
	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if provider := req.URL.Query().Get("provider"); provider != "" {
			return provider, nil
		}
		if provider := req.FormValue("provider"); provider != "" {
			return provider, nil
		}
		return "", errors.New("provider not found")
	}

	googleCallback := cfg.BaseURL + "/api/v1/users/auth/google/callback"
	facebookCallback := cfg.BaseURL + "/api/v1/users/auth/facebook/callback"

	var providers []goth.Provider

	if cfg.OAuth.GoogleClientID != "" && cfg.OAuth.GoogleClientSecret != "" {
		providers = append(providers, google.New(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			googleCallback,
			"email", "profile",
		))
		log.Info().Msg("✅ Google OAuth activé")
	}

	if cfg.OAuth.FacebookClientID != "" && cfg.OAuth.FacebookClientSecret != "" {
		providers = append(providers, facebook.New(
			cfg.OAuth.FacebookClientID,
			cfg.OAuth.FacebookClientSecret,
			facebookCallback,
			"email",
		))
		log.Info().Msg("✅ Facebook OAuth activé")
	}

	if len(providers) == 0 {
		log.Warn().Msg("⚠️ Aucun provider OAuth configuré")
		return 0
	}

	goth.UseProviders(providers...)
	log.Info().Int("providers", len(providers)).Msg("✅ OAuth provider(s) initialisé(s)")
	return len(providers)
}
