// Package broadcast diffuse les mises à jour du panier vers les connexions live d'un utilisateur.
package broadcast

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/metrics"
	"storefront_back_end/internal/models"
)

const (
	MessageTypeCartUpdated = "cartUpdated"
	MessageTypeConnected   = "connected"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// Message est l'enveloppe envoyée sur le websocket
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// CartUpdated construit l'événement live d'un panier
func CartUpdated(userID string, cart *models.Cart) Message {
	return Message{
		Type: MessageTypeCartUpdated,
		Data: models.CartEvent{User: userID, Cart: cart},
	}
}

type delivery struct {
	userID  string
	message Message
}

// Hub garde les connexions par utilisateur ; une livraison ne touche que les connexions de cet utilisateur
type Hub struct {
	clients    map[string]map[*Client]struct{}
	deliveries chan delivery
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	done     chan struct{}
	stopOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		deliveries: make(chan delivery, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Done est fermé quand le hub a cessé de tourner
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// RunWithContext traite les inscriptions avant les livraisons, jusqu'à l'annulation du contexte
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAllClients()
			log.Info().Str("component", "cart-hub").Int("clients_closed", n).Msg("🔌 Hub panier arrêté")
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			continue
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case d := <-h.deliveries:
			h.deliver(d)
		}
	}
}

// SendToUser met le message en file sans jamais bloquer l'appelant
func (h *Hub) SendToUser(userID string, message Message) {
	select {
	case h.deliveries <- delivery{userID: userID, message: message}:
	default:
		metrics.Broadcasts.WithLabelValues("dropped").Inc()
		log.Warn().Str("user_id", userID).Msg("⚠️ File de diffusion pleine, message abandonné")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) UserClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}
	h.mu.Unlock()

	metrics.WebSocketClients.Inc()
	log.Debug().Str("user_id", client.userID).Int("user_clients", len(set)).Msg("🔗 Client panier connecté")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

// dropLocked ferme le canal d'envoi ; le writePump termine alors la connexion
func (h *Hub) dropLocked(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	metrics.WebSocketClients.Dec()
}

func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for client := range h.clients[d.userID] {
		select {
		case client.send <- d.message:
			metrics.Broadcasts.WithLabelValues("delivered").Inc()
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		metrics.Broadcasts.WithLabelValues("dropped").Inc()
		log.Warn().Str("user_id", d.userID).Uint64("client", client.id).Msg("⚠️ Client trop lent, déconnecté")
		h.dropLocked(client)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			h.dropLocked(client)
		}
	}
}
