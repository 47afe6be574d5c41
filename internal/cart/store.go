// Package cart implémente le panier : stores (session / utilisateur), mutations et fusion au login.
package cart

import (
	"context"
	"errors"

	"storefront_back_end/internal/models"
)

// Store est un panier persistant, côté session ou côté utilisateur.
// Le service choisit la variante une seule fois, à la frontière de la requête.
type Store interface {
	// Owner retourne l'id utilisateur, "" pour un panier de session
	Owner() string
	// Load retourne nil, nil si le panier n'existe pas
	Load(ctx context.Context) (*models.Cart, error)
	// Mutate charge le panier (créé vide si create), applique fn et persiste.
	// Retourne ErrCartNotFound si le panier est absent et create vaut false.
	// Le booléen indique si quelque chose a été écrit.
	Mutate(ctx context.Context, create bool, fn func(*models.Cart) error) (*models.Cart, bool, error)
}

// Publisher diffuse le panier à jour vers les connexions live de l'utilisateur
type Publisher interface {
	Publish(ctx context.Context, userID string, cart *models.Cart) error
}

// errUnchanged : fn le retourne pour signaler qu'il n'y a rien à écrire
var errUnchanged = errors.New("cart unchanged")

func variant(s Store) string {
	if s.Owner() == "" {
		return "session"
	}
	return "owner"
}
