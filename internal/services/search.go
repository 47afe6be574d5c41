package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
)

const ProductIndex = "products"

// ProductSearch interroge Elasticsearch et retombe sur le store si l'index est indisponible
type ProductSearch struct {
	es       *elasticsearch.Client
	fallback store.ProductStore
	index    string
}

func NewProductSearch(es *elasticsearch.Client, fallback store.ProductStore) *ProductSearch {
	return &ProductSearch{es: es, fallback: fallback, index: ProductIndex}
}

// IndexProduct indexe un produit ; un échec est journalisé, jamais bloquant
func (s *ProductSearch) IndexProduct(ctx context.Context, p *models.Product) {
	if s.es == nil {
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Str("product_id", p.ID).Msg("⚠️ Encodage produit impossible")
		return
	}
	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, s.es)
	if err != nil {
		log.Warn().Err(err).Str("product_id", p.ID).Msg("❌ Erreur envoi Elastic")
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Warn().Str("product_id", p.ID).Str("status", res.Status()).Msg("⚠️ Elastic a refusé l'indexation")
		return
	}
	log.Debug().Str("product_id", p.ID).Msg("✅ Produit indexé dans Elasticsearch")
}

// Search cherche par nom
func (s *ProductSearch) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	if s.es != nil {
		products, err := s.searchElastic(ctx, query, limit)
		if err == nil {
			return products, nil
		}
		log.Warn().Err(err).Msg("⚠️ Recherche Elastic indisponible, repli sur le store")
	}
	return s.fallback.SearchProducts(ctx, query, limit)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ProductSearch) searchElastic(ctx context.Context, query string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	var buf bytes.Buffer
	q := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "slug"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.New("elastic: " + res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	out := make([]models.Product, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}
