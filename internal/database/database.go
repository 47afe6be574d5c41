package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/config"
)

// --- Configuration ScyllaDB ---
type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

// ScyllaManager garde une session par keyspace
type ScyllaManager struct {
	sessions map[string]*gocql.Session // keyspace → session
	configs  map[string]ScyllaKeyspaceConfig
	products string
	users    string
	mu       sync.Mutex
}

// =============================================
// SCYLLA DB (keyspaces produits / utilisateurs)
// =============================================

// NewScyllaManager ouvre une session pour chaque keyspace configuré
func NewScyllaManager(cfg config.ScyllaConfig) (*ScyllaManager, error) {
	sm := &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  keyspaceConfigs(cfg),
		products: cfg.ProductsKeyspace,
		users:    cfg.UsersKeyspace,
	}

	// Les tables sont créées via scripts/scylladb_init.cql
	for keyspace := range sm.configs {
		if _, err := sm.GetSession(keyspace); err != nil {
			sm.Close()
			return nil, fmt.Errorf("échec initialisation keyspace %s: %w", keyspace, err)
		}
	}
	return sm, nil
}

func keyspaceConfigs(cfg config.ScyllaConfig) map[string]ScyllaKeyspaceConfig {
	configs := make(map[string]ScyllaKeyspaceConfig)

	base := ScyllaKeyspaceConfig{
		Hosts:       cfg.Hosts,
		SSLEnabled:  cfg.SSLEnabled,
		CACertPath:  cfg.CACertPath,
		Timeout:     5 * time.Second,
		NumConns:    20,
		Consistency: gocql.Quorum,
	}

	if ks := cfg.ProductsKeyspace; ks != "" {
		c := base
		c.Keyspace, c.Username, c.Password = ks, cfg.ProductsRole, cfg.ProductsPassword
		configs[ks] = c
	}
	if ks := cfg.UsersKeyspace; ks != "" {
		c := base
		c.Keyspace, c.Username, c.Password = ks, cfg.UsersRole, cfg.UsersPassword
		configs[ks] = c
	}
	return configs
}

func createScyllaCluster(config ScyllaKeyspaceConfig) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second

	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	if config.SSLEnabled {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if config.CACertPath != "" {
			caCert, err := os.ReadFile(config.CACertPath)
			if err != nil {
				return nil, fmt.Errorf("impossible de lire le certificat CA: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caCert) {
				return nil, fmt.Errorf("impossible de parser le certificat CA")
			}
			tlsConfig.RootCAs = pool
		}
		cluster.SslOpts = &gocql.SslOptions{Config: tlsConfig, EnableHostVerification: true}
	}

	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster, nil
}

// GetSession retourne (ou recrée) la session d'un keyspace
func (sm *ScyllaManager) GetSession(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	config, exists := sm.configs[keyspace]
	if !exists {
		return nil, fmt.Errorf("keyspace '%s' non configuré", keyspace)
	}

	if session, exists := sm.sessions[keyspace]; exists {
		if !session.Closed() {
			return session, nil
		}
		delete(sm.sessions, keyspace)
	}

	cluster, err := createScyllaCluster(config)
	if err != nil {
		return nil, fmt.Errorf("erreur configuration cluster pour %s: %w", keyspace, err)
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", keyspace, err)
	}

	sm.sessions[keyspace] = session
	log.Info().Str("keyspace", keyspace).Str("role", config.Username).Msg("✅ Nouvelle session ScyllaDB")
	return session, nil
}

func (sm *ScyllaManager) ProductsSession() (*gocql.Session, error) {
	if sm.products == "" {
		return nil, fmt.Errorf("SCYLLA_KS_PRODUCTS_KEYSPACE non configuré")
	}
	return sm.GetSession(sm.products)
}

func (sm *ScyllaManager) UsersSession() (*gocql.Session, error) {
	if sm.users == "" {
		return nil, fmt.Errorf("SCYLLA_KS_USERS_KEYSPACE non configuré")
	}
	return sm.GetSession(sm.users)
}

// Ping vérifie la session produits (healthcheck)
func (sm *ScyllaManager) Ping(ctx context.Context) error {
	session, err := sm.ProductsSession()
	if err != nil {
		return err
	}
	return session.Query("SELECT now() FROM system.local").WithContext(ctx).Exec()
}

// Close ferme toutes les sessions
func (sm *ScyllaManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for keyspace, session := range sm.sessions {
		session.Close()
		log.Info().Str("keyspace", keyspace).Msg("🔌 Session ScyllaDB fermée")
	}
	sm.sessions = make(map[string]*gocql.Session)
}

// =============================================
// REDIS
// =============================================

func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("impossible de se connecter à Redis: %w", err)
	}
	log.Info().Str("addr", cfg.Addr).Msg("✅ Connecté à Redis")
	return client, nil
}

// =============================================
// ELASTICSEARCH (optionnel)
// =============================================

// ConnectElastic retourne nil, nil quand ELASTIC_URL est vide : la recherche passe alors par le store
func ConnectElastic(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	if cfg.URL == "" {
		log.Warn().Msg("⚠️ ELASTIC_URL non configuré, recherche sans Elasticsearch")
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("erreur création client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("erreur connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("erreur connexion Elasticsearch: %s", res.Status())
	}

	log.Info().Msg("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO (optionnel)
// =============================================

// ConnectMinIO retourne nil, nil quand MINIO_ENDPOINT est vide : l'upload de photo est désactivé
func ConnectMinIO(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		log.Warn().Msg("⚠️ MINIO_ENDPOINT non configuré, upload de photo désactivé")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("erreur connexion MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("erreur vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("erreur création bucket MinIO: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("🪣 Bucket créé")
	}

	log.Info().Str("endpoint", cfg.Endpoint).Msg("✅ Connecté à MinIO")
	return client, nil
}
