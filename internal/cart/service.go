package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/metrics"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
)

// Catalog fournit les données produit ; store.ErrNotFound si le produit n'existe pas
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// Service applique les mutations du panier, quelle que soit la variante du store
type Service struct {
	products  Catalog
	publisher Publisher
}

func NewService(products Catalog, publisher Publisher) *Service {
	return &Service{products: products, publisher: publisher}
}

// GetCart retourne le panier enrichi. Côté utilisateur, un panier vide est créé au premier accès.
func (s *Service) GetCart(ctx context.Context, st Store) (*models.Cart, error) {
	if st.Owner() == "" {
		cart, err := st.Load(ctx)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			cart = models.NewCart("")
		}
		return s.enrich(ctx, cart), nil
	}

	cart, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart, _, err = st.Mutate(ctx, true, func(c *models.Cart) error {
			if c.Version > 0 {
				return errUnchanged
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return s.enrich(ctx, cart), nil
}

// AddOrSetLine fixe la quantité du produit (ajout si absent)
func (s *Service) AddOrSetLine(ctx context.Context, st Store, productID string, quantity int) (*models.Cart, error) {
	const op = "cart.AddOrSetLine"

	if err := validateProductID(productID); err != nil {
		return nil, s.fail(op, st, E(op, InvalidArgument, err))
	}
	if quantity < 1 {
		return nil, s.fail(op, st, E(op, InvalidArgument, ErrInvalidQuantity))
	}

	product, err := s.lookup(ctx, op, productID)
	if err != nil {
		return nil, s.fail(op, st, err)
	}

	line := models.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Size:      product.Size,
		Price:     product.Price,
		Quantity:  quantity,
	}
	cart, changed, err := st.Mutate(ctx, true, func(c *models.Cart) error {
		c.SetLine(line)
		return nil
	})
	if err != nil {
		return nil, s.fail(op, st, err)
	}
	return s.done(ctx, op, st, cart, changed), nil
}

// RemoveLine retire le produit ; une ligne absente n'est pas une erreur
func (s *Service) RemoveLine(ctx context.Context, st Store, productID string) (*models.Cart, error) {
	const op = "cart.RemoveLine"

	if strings.TrimSpace(productID) == "" {
		return nil, s.fail(op, st, E(op, InvalidArgument, ErrInvalidProduct))
	}

	cart, changed, err := st.Mutate(ctx, false, func(c *models.Cart) error {
		if !c.RemoveLine(productID) {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, st, err)
	}
	return s.done(ctx, op, st, cart, changed), nil
}

// UpdateLine change la quantité d'une ligne existante
func (s *Service) UpdateLine(ctx context.Context, st Store, productID string, quantity int) (*models.Cart, error) {
	const op = "cart.UpdateLine"

	if strings.TrimSpace(productID) == "" {
		return nil, s.fail(op, st, E(op, InvalidArgument, ErrInvalidProduct))
	}
	if quantity < 1 {
		return nil, s.fail(op, st, E(op, InvalidArgument, ErrInvalidQuantity))
	}

	cart, changed, err := st.Mutate(ctx, false, func(c *models.Cart) error {
		i := c.IndexOf(productID)
		if i < 0 {
			return E(op, NotFound, ErrLineNotFound)
		}
		if c.Lines[i].Quantity == quantity {
			return errUnchanged
		}
		c.Lines[i].Quantity = quantity
		return nil
	})
	if err != nil {
		return nil, s.fail(op, st, err)
	}
	return s.done(ctx, op, st, cart, changed), nil
}

func (s *Service) lookup(ctx context.Context, op, productID string) (*models.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, E(op, NotFound, ErrProductNotFound)
	case err != nil:
		return nil, E(op, StorageFailure, err)
	}
	return product, nil
}

// done enrichit le résultat et diffuse si un panier utilisateur a changé
func (s *Service) done(ctx context.Context, op string, st Store, cart *models.Cart, changed bool) *models.Cart {
	view := s.enrich(ctx, cart)
	if !changed {
		metrics.RecordCartMutation(op, variant(st), "noop")
		return view
	}
	metrics.RecordCartMutation(op, variant(st), "ok")

	if userID := st.Owner(); userID != "" && s.publisher != nil {
		if err := s.publisher.Publish(ctx, userID, view); err != nil {
			metrics.Broadcasts.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("user_id", userID).Msg("⚠️ Diffusion du panier échouée")
		}
	}
	return view
}

func (s *Service) fail(op string, st Store, err error) error {
	metrics.RecordCartMutation(op, variant(st), KindOf(err).String())
	if KindOf(err) == StorageFailure || KindOf(err) == Unknown {
		log.Error().Err(err).Str("op", op).Str("variant", variant(st)).Msg("❌ Erreur panier")
	}
	return err
}

// enrich recopie le panier avec les données produit courantes.
// Un produit disparu reste affiché avec available=false.
func (s *Service) enrich(ctx context.Context, cart *models.Cart) *models.Cart {
	view := cart.Clone()
	for i := range view.Lines {
		line := &view.Lines[i]
		product, err := s.products.GetProduct(ctx, line.ProductID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			unavailable := false
			line.Available = &unavailable
		case err != nil:
			log.Warn().Err(err).Str("product_id", line.ProductID).Msg("⚠️ Produit non résolu pour le panier")
		default:
			line.Name = product.Name
			line.Size = product.Size
			line.Price = product.Price
		}
	}
	return view
}

func validateProductID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidProduct
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidProduct
	}
	return nil
}
