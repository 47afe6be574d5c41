package cartclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/broadcast"
	"storefront_back_end/internal/models"
)

// Line est une ligne affichée avec son prix total
type Line struct {
	models.LocalLine
	LinePrice float64 `json:"linePrice"`
}

// Synchronizer projette le panier faisant autorité pour la session courante.
// Les mises à jour locales sont optimistes et ne sont pas annulées si le réseau échoue.
type Synchronizer struct {
	api      *API
	snapshot SnapshotStore

	mu            sync.Mutex
	lines         []models.LocalLine
	prices        map[string]float64
	subtotal      float64
	authenticated bool
	userID        string

	refresh  *Debouncer
	onChange func([]Line, float64)
}

type Option func(*Synchronizer)

func WithDebounce(d time.Duration) Option {
	return func(s *Synchronizer) { s.refresh = NewDebouncer(d, s.refreshSubtotal) }
}

// WithOnChange est appelé après chaque rafraîchissement du sous-total
func WithOnChange(fn func(lines []Line, subtotal float64)) Option {
	return func(s *Synchronizer) { s.onChange = fn }
}

func NewSynchronizer(api *API, snapshot SnapshotStore, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		api:      api,
		snapshot: snapshot,
		prices:   make(map[string]float64),
	}
	s.refresh = NewDebouncer(DefaultDebounce, s.refreshSubtotal)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize choisit la source : serveur si connecté (après transfert du snapshot), snapshot sinon
func (s *Synchronizer) Initialize(ctx context.Context) error {
	if products, err := s.api.Products(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ Catalogue indisponible, prix du panier conservés")
	} else {
		s.mu.Lock()
		for _, p := range products {
			s.prices[p.ID] = p.Price
		}
		s.mu.Unlock()
	}

	authenticated, err := s.api.CheckAuth(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ Vérification de l'authentification impossible")
		return err
	}

	if !authenticated {
		lines, err := s.snapshot.Load()
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.authenticated, s.userID = false, ""
		s.lines = lines
		s.mu.Unlock()
		s.refresh.Stop()
		s.refreshSubtotal()
		return nil
	}

	userID, err := s.api.Me(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.authenticated, s.userID = true, userID
	s.mu.Unlock()

	c, err := s.api.Cart(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ Chargement du panier serveur impossible")
		return err
	}
	if s.transferSnapshot(ctx, c) {
		if c, err = s.api.Cart(ctx); err != nil {
			log.Error().Err(err).Msg("❌ Chargement du panier serveur impossible")
			return err
		}
	}
	s.replace(c)
	s.refresh.Stop()
	s.refreshSubtotal()
	return nil
}

// transferSnapshot pousse vers le serveur les lignes locales qu'il ne connaît pas encore.
// Le panier de session suit le snapshot et a déjà été additionné au login : une ligne
// présente côté serveur n'est pas renvoyée, /cart/add écraserait la somme.
// Les lignes refusées restent en local.
func (s *Synchronizer) transferSnapshot(ctx context.Context, server *models.Cart) bool {
	lines, err := s.snapshot.Load()
	if err != nil || len(lines) == 0 {
		return false
	}

	var kept []models.LocalLine
	transferred := false
	for _, l := range lines {
		if server != nil && server.IndexOf(l.ProductID) >= 0 {
			continue
		}
		if _, err := s.api.SetLine(ctx, l.ProductID, l.Quantity); err != nil {
			log.Warn().Err(err).Str("product_id", l.ProductID).Msg("⚠️ Transfert de ligne échoué")
			kept = append(kept, l)
			continue
		}
		transferred = true
	}
	if err := s.snapshot.Save(kept); err != nil {
		log.Warn().Err(err).Msg("⚠️ Mise à jour du snapshot impossible")
	}
	return transferred
}

// AddProduct ajoute une unité du produit
func (s *Synchronizer) AddProduct(ctx context.Context, p models.Product) error {
	s.mu.Lock()
	s.prices[p.ID] = p.Price
	qty := 1
	if i := s.indexOf(p.ID); i >= 0 {
		s.lines[i].Quantity++
		qty = s.lines[i].Quantity
	} else {
		s.lines = append(s.lines, models.LocalLine{
			ProductID: p.ID, Quantity: 1, Name: p.Name, Price: p.Price, Size: p.Size,
		})
	}
	s.mu.Unlock()

	s.refresh.Trigger()
	return s.persist(ctx, p.ID, qty)
}

func (s *Synchronizer) Increment(ctx context.Context, productID string) error {
	return s.changeQuantity(ctx, productID, +1)
}

// Decrement ne descend jamais sous 1 ; utiliser Remove pour retirer la ligne
func (s *Synchronizer) Decrement(ctx context.Context, productID string) error {
	return s.changeQuantity(ctx, productID, -1)
}

func (s *Synchronizer) changeQuantity(ctx context.Context, productID string, delta int) error {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownLine
	}
	qty := s.lines[i].Quantity + delta
	if qty < 1 {
		qty = 1
	}
	s.lines[i].Quantity = qty
	s.mu.Unlock()

	s.refresh.Trigger()
	return s.persist(ctx, productID, qty)
}

func (s *Synchronizer) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownLine
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	authenticated := s.authenticated
	lines := append([]models.LocalLine(nil), s.lines...)
	s.mu.Unlock()

	s.refresh.Trigger()

	if !authenticated {
		if err := s.snapshot.Save(lines); err != nil {
			return err
		}
	}
	if _, err := s.api.RemoveLine(ctx, productID); err != nil {
		var apiErr *APIError
		if !authenticated && errors.As(err, &apiErr) && apiErr.Status == 404 {
			// pas encore de panier de session côté serveur
			return nil
		}
		log.Warn().Err(err).Str("product_id", productID).Msg("⚠️ Suppression non synchronisée")
		return err
	}
	return nil
}

var ErrUnknownLine = errors.New("ligne absente du panier")

// persist : snapshot + panier de session pour un visiteur, panier serveur sinon (quantité fixée)
func (s *Synchronizer) persist(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	authenticated := s.authenticated
	lines := append([]models.LocalLine(nil), s.lines...)
	s.mu.Unlock()

	if !authenticated {
		if err := s.snapshot.Save(lines); err != nil {
			return err
		}
	}
	if _, err := s.api.SetLine(ctx, productID, quantity); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("⚠️ Mise à jour du panier non synchronisée")
		return err
	}
	return nil
}

// HandleEvent remplace toute la vue quand l'événement concerne cet utilisateur
func (s *Synchronizer) HandleEvent(evt models.CartEvent) bool {
	s.mu.Lock()
	mine := s.authenticated && evt.User != "" && evt.User == s.userID
	s.mu.Unlock()
	if !mine || evt.Cart == nil {
		return false
	}
	s.replace(evt.Cart)
	s.refresh.Trigger()
	return true
}

func (s *Synchronizer) replace(c *models.Cart) {
	lines := make([]models.LocalLine, 0, len(c.Lines))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range c.Lines {
		lines = append(lines, models.LocalLine{
			ProductID: l.ProductID, Quantity: l.Quantity, Name: l.Name, Price: l.Price, Size: l.Size,
		})
		if l.Available == nil || *l.Available {
			s.prices[l.ProductID] = l.Price
		}
	}
	s.lines = lines
}

// Listen applique les événements live jusqu'à la fin du contexte
func (s *Synchronizer) Listen(ctx context.Context) error {
	conn, err := s.api.DialEvents(ctx)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if msg.Type != broadcast.MessageTypeCartUpdated {
			continue
		}
		var evt models.CartEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Warn().Err(err).Msg("⚠️ Événement panier illisible")
			continue
		}
		s.HandleEvent(evt)
	}
}

// Lines retourne une copie de la vue courante
func (s *Synchronizer) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Subtotal retourne le dernier sous-total affiché
func (s *Synchronizer) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subtotal
}

func (s *Synchronizer) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Close annule le rafraîchissement en attente
func (s *Synchronizer) Close() {
	s.refresh.Stop()
}

func (s *Synchronizer) refreshSubtotal() {
	s.mu.Lock()
	view := s.viewLocked()
	total := 0.0
	for _, l := range view {
		total += l.LinePrice
	}
	s.subtotal = total
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(view, total)
	}
}

func (s *Synchronizer) viewLocked() []Line {
	out := make([]Line, 0, len(s.lines))
	for _, l := range s.lines {
		price, ok := s.prices[l.ProductID]
		if !ok {
			price = l.Price
		}
		out = append(out, Line{LocalLine: l, LinePrice: float64(l.Quantity) * price})
	}
	return out
}

func (s *Synchronizer) indexOf(productID string) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
