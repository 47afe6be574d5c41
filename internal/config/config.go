package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Load charge le fichier .env s'il existe
func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Warn().Msg("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	} else {
		log.Info().Msg("✅ Fichier .env chargé avec succès")
	}
}

type ScyllaConfig struct {
	Hosts            []string
	ProductsKeyspace string
	ProductsRole     string
	ProductsPassword string
	UsersKeyspace    string
	UsersRole        string
	UsersPassword    string
	SSLEnabled       bool
	CACertPath       string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type ElasticConfig struct {
	URL      string
	User     string
	Password string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type OAuthConfig struct {
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
}

// Config regroupe toute la configuration lue depuis l'environnement
type Config struct {
	Port          string
	BaseURL       string
	Production    bool
	JWTSecret     string
	JWTExpiresIn  time.Duration
	SessionSecret string
	StoreBackend  string
	CORSOrigins   []string
	LogLevel      string
	LogFormat     string

	Scylla  ScyllaConfig
	Redis   RedisConfig
	Elastic ElasticConfig
	MinIO   MinIOConfig
	SMTP    SMTPConfig
	OAuth   OAuthConfig
}

const (
	BackendScylla = "scylla"
	BackendMemory = "memory"
)

// FromEnv construit la configuration avec les valeurs par défaut
func FromEnv() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		BaseURL:       strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		Production:    getEnv("NODE_ENV", getEnv("APP_ENV", "development")) == "production",
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTExpiresIn:  getDuration("JWT_EXPIRES_IN", 24*time.Hour),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendScylla)),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		Scylla: ScyllaConfig{
			Hosts:            splitList(os.Getenv("SCYLLA_HOSTS")),
			ProductsKeyspace: os.Getenv("SCYLLA_KS_PRODUCTS_KEYSPACE"),
			ProductsRole:     os.Getenv("SCYLLA_KS_PRODUCTS_ROLE"),
			ProductsPassword: os.Getenv("SCYLLA_KS_PRODUCTS_PASSWORD"),
			UsersKeyspace:    os.Getenv("SCYLLA_KS_USERS_KEYSPACE"),
			UsersRole:        os.Getenv("SCYLLA_KS_USERS_ROLE"),
			UsersPassword:    os.Getenv("SCYLLA_KS_USERS_PASSWORD"),
			SSLEnabled:       strings.ToLower(os.Getenv("SCYLLA_SSL_ENABLED")) == "true",
			CACertPath:       os.Getenv("SCYLLA_SSL_CA_PATH"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Elastic: ElasticConfig{
			URL:      os.Getenv("ELASTIC_URL"),
			User:     os.Getenv("ELASTIC_USER"),
			Password: os.Getenv("ELASTIC_PASSWORD"),
		},
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "storefront"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "noreply@storefront.local"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
			FacebookClientID:     os.Getenv("FACEBOOK_CLIENT_ID"),
			FacebookClientSecret: os.Getenv("FACEBOOK_CLIENT_SECRET"),
		},
	}
	return cfg
}

// Validate vérifie les secrets obligatoires et le backend choisi
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET manquant"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET manquant"))
	}
	switch c.StoreBackend {
	case BackendScylla:
		if len(c.Scylla.Hosts) == 0 {
			errs = append(errs, errors.New("SCYLLA_HOSTS manquant pour STORE_BACKEND=scylla"))
		}
	case BackendMemory:
	default:
		errs = append(errs, errors.New("STORE_BACKEND inconnu: "+c.StoreBackend))
	}
	return errors.Join(errs...)
}
