// Package store persiste le catalogue produits et les comptes utilisateurs.
package store

import (
	"context"
	"errors"

	"storefront_back_end/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type ProductStore interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, limit int) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	// SearchProducts filtre par nom ; utilisé quand Elasticsearch n'est pas disponible
	SearchProducts(ctx context.Context, query string, limit int) ([]models.Product, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error)
	// CreateUser retourne ErrConflict si l'email ou le nom est déjà pris
	CreateUser(ctx context.Context, u *models.User) error
	UpdatePhoto(ctx context.Context, id, photo string) error
}
