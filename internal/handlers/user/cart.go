package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/middleware"
)

type cartLineInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// cartStore choisit le panier une seule fois par requête : utilisateur connecté ou session
func (h *Handler) cartStore(c *gin.Context) (cart.Store, *cart.SessionStore, bool) {
	session := middleware.SessionFrom(c)
	var sessionCart *cart.SessionStore
	if session != nil && h.SessionCarts != nil {
		sessionCart = h.SessionCarts(session, c.Request, c.Writer)
	}

	if userID := c.GetString(middleware.ContextUserID); userID != "" {
		return h.Owners(userID), sessionCart, true
	}
	if sessionCart == nil {
		log.Error().Msg("❌ Session absente pour un panier anonyme")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "internal error"})
		return nil, nil, false
	}
	return sessionCart, sessionCart, true
}

func respondCartError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"status": "error", "error": cart.PublicMessage(err)}
	switch cart.KindOf(err) {
	case cart.NotFound:
		status = http.StatusNotFound
		body["status"] = "fail"
	case cart.InvalidArgument:
		status = http.StatusBadRequest
		body["status"] = "fail"
	case cart.Unauthorized:
		status = http.StatusUnauthorized
		body["status"] = "fail"
	}
	c.JSON(status, body)
}

// GetCart rejoue la fusion en attente quand la session contient encore des lignes ;
// les lignes sont réclamées atomiquement, un cookie rejoué ne refusionne rien
func (h *Handler) GetCart(c *gin.Context) {
	st, sessionCart, ok := h.cartStore(c)
	if !ok {
		return
	}

	if st.Owner() != "" && sessionCart != nil && h.Reconciler != nil {
		if lines, err := sessionCart.Lines(c.Request.Context()); err == nil && len(lines) > 0 {
			if err := h.Reconciler.Reconcile(c.Request.Context(), st.Owner(), sessionCart); err != nil {
				log.Warn().Err(err).Str("user_id", st.Owner()).Msg("⚠️ Nouvelle tentative de fusion échouée")
			}
		}
	}

	result, err := h.Carts.GetCart(c.Request.Context(), st)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) AddToCart(c *gin.Context) {
	var input cartLineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Données invalides"})
		return
	}
	st, _, ok := h.cartStore(c)
	if !ok {
		return
	}

	result, err := h.Carts.AddOrSetLine(c.Request.Context(), st, input.ProductID, input.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	var input struct {
		ProductID string `json:"productId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Données invalides"})
		return
	}
	st, _, ok := h.cartStore(c)
	if !ok {
		return
	}

	result, err := h.Carts.RemoveLine(c.Request.Context(), st, input.ProductID)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) UpdateCart(c *gin.Context) {
	var input cartLineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "error": "Données invalides"})
		return
	}
	st, _, ok := h.cartStore(c)
	if !ok {
		return
	}

	result, err := h.Carts.UpdateLine(c.Request.Context(), st, input.ProductID, input.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
