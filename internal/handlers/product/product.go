// Package product expose le catalogue : liste, création, fiche, recherche et calcul de prix.
package product

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/models"
	"storefront_back_end/internal/services"
	"storefront_back_end/internal/store"
)

const (
	defaultListLimit = 100
	maxSearchLimit   = 50
)

type Handler struct {
	products store.ProductStore
	search   *services.ProductSearch
}

func NewHandler(products store.ProductStore, search *services.ProductSearch) *Handler {
	return &Handler{products: products, search: search}
}

func (h *Handler) GetAllProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context(), defaultListLimit)
	if err != nil {
		log.Error().Err(err).Msg("❌ Lecture du catalogue impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur récupération produits"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(products),
		"data":    gin.H{"products": products},
	})
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": err.Error()})
		return
	}
	p.ID = ""
	p.Slug = ""
	p.CreatedAt = nil

	ctx := c.Request.Context()
	if err := h.products.CreateProduct(ctx, &p); err != nil {
		log.Error().Err(err).Msg("❌ Création produit impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur création produit"})
		return
	}
	h.search.IndexProduct(ctx, &p)

	log.Info().Str("product_id", p.ID).Str("slug", p.Slug).Msg("🆕 Produit créé")
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": gin.H{"product": p}})
}

func (h *Handler) GetProductByID(c *gin.Context) {
	p, err := h.products.GetProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "fail", "error": "Produit introuvable"})
			return
		}
		log.Error().Err(err).Msg("❌ Lecture produit impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur serveur"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"product": p}})
}

func (h *Handler) SearchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Paramètre 'q' requis"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > maxSearchLimit {
		limit = 20
	}

	products, err := h.search.Search(c.Request.Context(), q, limit)
	if err != nil {
		log.Error().Err(err).Msg("❌ Recherche impossible")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur recherche"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": len(products), "data": gin.H{"products": products}})
}

// CalculatePrice : prix unitaire × quantité, deux décimales
func (h *Handler) CalculatePrice(c *gin.Context) {
	var input struct {
		ProductID string `json:"productId" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Données invalides"})
		return
	}

	p, err := h.products.GetProduct(c.Request.Context(), input.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "fail", "error": "Produit introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Erreur calcul du prix"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updatedPrice": fmt.Sprintf("%.2f", p.Price*float64(input.Quantity))})
}
