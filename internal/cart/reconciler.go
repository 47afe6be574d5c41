package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/metrics"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
)

// SessionSource est le panier anonyme à fusionner.
// Claim retire les lignes de façon atomique ; Restore les remet et marque la fusion en attente.
type SessionSource interface {
	Claim(ctx context.Context) ([]models.SessionLine, error)
	Restore(ctx context.Context, lines []models.SessionLine) error
}

// Reconciler fusionne le panier de session dans le panier utilisateur au login.
// Les lignes sont réclamées avant la fusion : un second appel, concurrent ou rejoué, ne les revoit pas.
// Les quantités s'additionnent ; en cas d'échec les lignes sont remises pour un nouvel essai.
type Reconciler struct {
	owners    func(userID string) Store
	products  Catalog
	publisher Publisher
}

func NewReconciler(owners func(userID string) Store, products Catalog, publisher Publisher) *Reconciler {
	return &Reconciler{owners: owners, products: products, publisher: publisher}
}

// Reconcile ne doit jamais faire échouer le login : l'appelant journalise et continue
func (r *Reconciler) Reconcile(ctx context.Context, userID string, session SessionSource) error {
	lines, err := session.Claim(ctx)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("user_id", userID).Msg("❌ Lecture du panier de session impossible")
		return fmt.Errorf("read session cart: %w", err)
	}
	if len(lines) == 0 {
		metrics.Reconciliations.WithLabelValues("empty").Inc()
		return nil
	}

	incoming, err := r.resolve(ctx, lines)
	if err != nil {
		return r.failed(ctx, userID, session, lines, err)
	}

	merged, _, err := r.owners(userID).Mutate(ctx, true, func(c *models.Cart) error {
		for _, line := range incoming {
			c.AddLine(line)
		}
		return nil
	})
	if err != nil {
		return r.failed(ctx, userID, session, lines, err)
	}

	metrics.Reconciliations.WithLabelValues("merged").Inc()
	log.Info().Str("user_id", userID).Int("lines", len(incoming)).Msg("🛒 Panier de session fusionné")

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, userID, merged); err != nil {
			metrics.Broadcasts.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("user_id", userID).Msg("⚠️ Diffusion du panier fusionné échouée")
		}
	}
	return nil
}

// resolve complète les lignes avec les données produit ; les produits supprimés sont ignorés
func (r *Reconciler) resolve(ctx context.Context, lines []models.SessionLine) ([]models.CartLine, error) {
	out := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		product, err := r.products.GetProduct(ctx, l.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			log.Warn().Str("product_id", l.ProductID).Msg("⚠️ Produit supprimé ignoré lors de la fusion")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Size:      product.Size,
			Price:     product.Price,
			Quantity:  l.Quantity,
		})
	}
	return out, nil
}

func (r *Reconciler) failed(ctx context.Context, userID string, session SessionSource, lines []models.SessionLine, err error) error {
	metrics.Reconciliations.WithLabelValues("failed").Inc()
	if restoreErr := session.Restore(ctx, lines); restoreErr != nil {
		log.Error().Err(restoreErr).Str("user_id", userID).Int("lines", len(lines)).Msg("❌ Panier de session non restauré après l'échec")
	}
	log.Error().Err(err).Str("user_id", userID).Msg("❌ Fusion du panier échouée, panier de session conservé")
	return E("cart.Reconcile", StorageFailure, err)
}
