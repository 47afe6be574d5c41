package broadcast

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/metrics"
	"storefront_back_end/internal/models"
)

const channelPrefix = "cart:"

// Channel est le canal pub/sub Redis d'un utilisateur
func Channel(userID string) string {
	return channelPrefix + userID
}

// LocalPublisher livre directement au hub du processus (une seule instance)
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, userID string, cart *models.Cart) error {
	p.hub.SendToUser(userID, CartUpdated(userID, cart))
	metrics.Broadcasts.WithLabelValues("published").Inc()
	return nil
}

// RedisRelay publie sur Redis ; chaque instance relaie ensuite vers son hub local
type RedisRelay struct {
	rdb redis.UniversalClient
	hub *Hub
}

func NewRedisRelay(rdb redis.UniversalClient, hub *Hub) *RedisRelay {
	return &RedisRelay{rdb: rdb, hub: hub}
}

func (r *RedisRelay) Publish(ctx context.Context, userID string, cart *models.Cart) error {
	payload, err := json.Marshal(models.CartEvent{User: userID, Cart: cart})
	if err != nil {
		return fmt.Errorf("encode cart event: %w", err)
	}
	if err := r.rdb.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish cart event: %w", err)
	}
	metrics.Broadcasts.WithLabelValues("published").Inc()
	return nil
}

// Run écoute cart:* jusqu'à l'annulation du contexte
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// attend la confirmation pour ne rien perdre entre Run et le premier Publish
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe cart events: %w", err)
	}
	log.Info().Msg("📡 Relais Redis du panier démarré")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.relay(msg)
		}
	}
}

func (r *RedisRelay) relay(msg *redis.Message) {
	var evt models.CartEvent
	if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
		log.Warn().Err(err).Str("channel", msg.Channel).Msg("⚠️ Événement panier illisible")
		return
	}
	userID := strings.TrimPrefix(msg.Channel, channelPrefix)
	if evt.User != userID {
		log.Warn().Str("channel", msg.Channel).Str("user", evt.User).Msg("⚠️ Événement panier sur le mauvais canal")
		return
	}
	r.hub.SendToUser(userID, CartUpdated(userID, evt.Cart))
}
