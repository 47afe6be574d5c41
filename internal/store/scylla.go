package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"storefront_back_end/internal/models"
)

// Requêtes CQL ; tables créées par scripts/scylladb_init.cql
const (
	qGetProduct = `SELECT product_id, name, size, price, slug, quantity, image_url, created_at
		FROM products WHERE product_id = ?`
	qListProducts = `SELECT product_id, name, size, price, slug, quantity, image_url, created_at
		FROM products LIMIT ?`
	qInsertProduct = `INSERT INTO products (product_id, name, size, price, slug, quantity, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`

	qGetUser = `SELECT user_id, email, password, name, slug, provider, provider_id, photo, created_at
		FROM users WHERE user_id = ?`
	qUserByEmail    = `SELECT user_id FROM users_by_email WHERE email = ?`
	qUserByProvider = `SELECT user_id FROM users_by_provider WHERE provider = ? AND provider_id = ?`
	qClaimEmail     = `INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`
	qReleaseEmail   = `DELETE FROM users_by_email WHERE email = ?`
	qClaimName      = `INSERT INTO users_by_name (name, user_id) VALUES (?, ?) IF NOT EXISTS`
	qInsertUser     = `INSERT INTO users (user_id, email, password, name, slug, provider, provider_id, photo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	qInsertUserByProvider = `INSERT INTO users_by_provider (provider, provider_id, user_id) VALUES (?, ?, ?)`
	qUpdatePhoto          = `UPDATE users SET photo = ? WHERE user_id = ?`
)

// SessionSource fournit les sessions gocql par keyspace (database.ScyllaManager)
type SessionSource interface {
	ProductsSession() (*gocql.Session, error)
	UsersSession() (*gocql.Session, error)
}

// Scylla implémente ProductStore et UserStore sur ScyllaDB
type Scylla struct {
	sessions SessionSource
	// nombre de lignes parcourues pour la recherche sans Elasticsearch
	scanLimit int
}

func NewScylla(sessions SessionSource) *Scylla {
	return &Scylla{sessions: sessions, scanLimit: 1000}
}

func (s *Scylla) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	session, err := s.sessions.ProductsSession()
	if err != nil {
		return nil, err
	}

	p, err := scanProduct(session.Query(qGetProduct, uid).WithContext(ctx).Scan)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *Scylla) ListProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	session, err := s.sessions.ProductsSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(qListProducts, limit).WithContext(ctx).Iter()
	var out []models.Product
	for {
		p, err := scanProduct(func(dest ...interface{}) error {
			if !iter.Scan(dest...) {
				return gocql.ErrNotFound
			}
			return nil
		})
		if err != nil {
			break
		}
		out = append(out, *p)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	sortProducts(out)
	return out, nil
}

func (s *Scylla) CreateProduct(ctx context.Context, p *models.Product) error {
	prepareProduct(p)
	uid, err := gocql.ParseUUID(p.ID)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	session, err := s.sessions.ProductsSession()
	if err != nil {
		return err
	}

	applied, err := session.Query(qInsertProduct,
		uid, p.Name, p.Size, p.Price, p.Slug, p.Quantity, p.ImageURL, *p.CreatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	if !applied {
		return ErrConflict
	}
	return nil
}

func (s *Scylla) SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error) {
	all, err := s.ListProducts(ctx, s.scanLimit)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []models.Product
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return truncate(out, limit), nil
}

func (s *Scylla) GetUser(ctx context.Context, id string) (*models.User, error) {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	session, err := s.sessions.UsersSession()
	if err != nil {
		return nil, err
	}

	var (
		u         models.User
		userID    gocql.UUID
		createdAt time.Time
	)
	err = session.Query(qGetUser, uid).WithContext(ctx).Scan(
		&userID, &u.Email, &u.PasswordHash, &u.Name, &u.Slug, &u.Provider, &u.ProviderID, &u.Photo, &createdAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	u.ID = userID.String()
	if !createdAt.IsZero() {
		u.CreatedAt = &createdAt
	}
	return &u, nil
}

func (s *Scylla) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	session, err := s.sessions.UsersSession()
	if err != nil {
		return nil, err
	}
	var userID gocql.UUID
	err = session.Query(qUserByEmail, NormalizeEmail(email)).WithContext(ctx).Scan(&userID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return s.GetUser(ctx, userID.String())
}

func (s *Scylla) GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	session, err := s.sessions.UsersSession()
	if err != nil {
		return nil, err
	}
	var userID gocql.UUID
	err = session.Query(qUserByProvider, provider, providerID).WithContext(ctx).Scan(&userID)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by provider: %w", err)
	}
	return s.GetUser(ctx, userID.String())
}

// CreateUser réserve l'email puis le nom par LWT avant d'écrire l'utilisateur
func (s *Scylla) CreateUser(ctx context.Context, u *models.User) error {
	prepareUser(u)
	uid, err := gocql.ParseUUID(u.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	session, err := s.sessions.UsersSession()
	if err != nil {
		return err
	}

	applied, err := session.Query(qClaimEmail, u.Email, uid).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("claim email: %w", err)
	}
	if !applied {
		return ErrConflict
	}

	if u.Name != "" {
		applied, err = session.Query(qClaimName, strings.ToLower(u.Name), uid).WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil || !applied {
			_ = session.Query(qReleaseEmail, u.Email).WithContext(ctx).Exec()
			if err != nil {
				return fmt.Errorf("claim name: %w", err)
			}
			return ErrConflict
		}
	}

	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(qInsertUser, uid, u.Email, u.PasswordHash, u.Name, u.Slug, u.Provider, u.ProviderID, u.Photo, *u.CreatedAt)
	if u.Provider != models.ProviderLocal && u.ProviderID != "" {
		batch.Query(qInsertUserByProvider, u.Provider, u.ProviderID, uid)
	}
	if err := session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Scylla) UpdatePhoto(ctx context.Context, id, photo string) error {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return ErrNotFound
	}
	session, err := s.sessions.UsersSession()
	if err != nil {
		return err
	}
	return session.Query(qUpdatePhoto, photo, uid).WithContext(ctx).Exec()
}

func scanProduct(scan func(dest ...interface{}) error) (*models.Product, error) {
	var (
		p         models.Product
		id        gocql.UUID
		imageURL  *string
		createdAt time.Time
	)
	if err := scan(&id, &p.Name, &p.Size, &p.Price, &p.Slug, &p.Quantity, &imageURL, &createdAt); err != nil {
		return nil, err
	}
	p.ID = id.String()
	if imageURL != nil {
		p.ImageURL = *imageURL
	}
	if !createdAt.IsZero() {
		p.CreatedAt = &createdAt
	}
	return &p, nil
}
