package cart

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/models"
)

const (
	SessionName          = "storefront_session"
	sessionCartIDKey     = "cart_id"
	sessionCartPrefix    = "session_cart:"
	sessionPendingSuffix = ":pending"
	SessionCartTTL       = 30 * 24 * time.Hour
)

// SessionCartKey est la clé Redis du panier anonyme ; le cookie ne porte que son identifiant
func SessionCartKey(cartID string) string {
	return sessionCartPrefix + cartID
}

func sessionPendingKey(cartID string) string {
	return SessionCartKey(cartID) + sessionPendingSuffix
}

// SessionStore garde le panier d'un visiteur anonyme dans Redis, indexé par l'identifiant
// stocké dans sa session gorilla. Seuls productId et quantity sont conservés.
// Un cookie rejoué après la fusion pointe vers une clé déjà supprimée.
type SessionStore struct {
	rdb     redis.UniversalClient
	session *sessions.Session
	r       *http.Request
	w       http.ResponseWriter
}

func NewSessionStore(rdb redis.UniversalClient, session *sessions.Session, r *http.Request, w http.ResponseWriter) *SessionStore {
	return &SessionStore{rdb: rdb, session: session, r: r, w: w}
}

// SessionStores retourne une fabrique de paniers de session sur le même client
func SessionStores(rdb redis.UniversalClient) func(*sessions.Session, *http.Request, http.ResponseWriter) *SessionStore {
	return func(session *sessions.Session, r *http.Request, w http.ResponseWriter) *SessionStore {
		return NewSessionStore(rdb, session, r, w)
	}
}

func (s *SessionStore) Owner() string { return "" }

func (s *SessionStore) Load(ctx context.Context) (*models.Cart, error) {
	lines, ok, err := s.read(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return models.CartFromSession(lines), nil
}

func (s *SessionStore) Mutate(ctx context.Context, create bool, fn func(*models.Cart) error) (*models.Cart, bool, error) {
	cartID := s.cartID()
	if cartID == "" {
		if !create {
			return nil, false, E("cart.Mutate", NotFound, ErrCartNotFound)
		}
		var err error
		if cartID, err = s.newCartID(); err != nil {
			return nil, false, err
		}
	}
	key := SessionCartKey(cartID)

	for attempt := 0; attempt < DefaultMaxAttempts; attempt++ {
		var (
			result  *models.Cart
			changed bool
		)

		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			var lines []models.SessionLine
			switch {
			case errors.Is(err, redis.Nil):
				if !create {
					return E("cart.Mutate", NotFound, ErrCartNotFound)
				}
			case err != nil:
				return err
			default:
				if lines, err = decodeSessionLines(data); err != nil {
					return err
				}
			}

			cart := models.CartFromSession(lines)
			if err := fn(cart); err != nil {
				if errors.Is(err, errUnchanged) {
					result = cart
					return nil
				}
				return err
			}

			payload, err := json.Marshal(cart.SessionLines())
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, SessionCartTTL)
				return nil
			})
			if err != nil {
				return err
			}
			result, changed = cart, true
			return nil
		}, key)

		switch {
		case err == nil:
			return result, changed, nil
		case errors.Is(err, redis.TxFailedErr):
			if err := backoff(ctx, 5*time.Millisecond, attempt); err != nil {
				return nil, false, E("cart.session", StorageFailure, err)
			}
			continue
		case KindOf(err) != Unknown:
			return nil, false, err
		default:
			return nil, false, E("cart.session", StorageFailure, err)
		}
	}
	return nil, false, E("cart.session", StorageFailure, ErrTooManyRetries)
}

// Lines retourne les lignes de session, vide si aucun panier
func (s *SessionStore) Lines(ctx context.Context) ([]models.SessionLine, error) {
	lines, _, err := s.read(ctx)
	return lines, err
}

// Pending indique qu'une fusion précédente a échoué
func (s *SessionStore) Pending(ctx context.Context) bool {
	cartID := s.cartID()
	if cartID == "" {
		return false
	}
	n, err := s.rdb.Exists(ctx, sessionPendingKey(cartID)).Result()
	return err == nil && n > 0
}

// Claim retire atomiquement les lignes de session : une seule fusion peut les obtenir
func (s *SessionStore) Claim(ctx context.Context) ([]models.SessionLine, error) {
	cartID := s.cartID()
	if cartID == "" {
		return nil, nil
	}

	var get *redis.StringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.GetDel(ctx, SessionCartKey(cartID))
		pipe.Del(ctx, sessionPendingKey(cartID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, E("cart.session", StorageFailure, err)
	}
	data, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, E("cart.session", StorageFailure, err)
	}
	return decodeSessionLines(data)
}

// Restore remet des lignes réclamées après un échec de fusion et marque la fusion en attente.
// Une ligne réécrite entre-temps garde sa quantité la plus récente.
func (s *SessionStore) Restore(ctx context.Context, lines []models.SessionLine) error {
	_, _, err := s.Mutate(ctx, true, func(c *models.Cart) error {
		for _, l := range lines {
			if c.IndexOf(l.ProductID) < 0 {
				c.Lines = append(c.Lines, models.CartLine{ProductID: l.ProductID, Quantity: l.Quantity})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionPendingKey(s.cartID()), 1, SessionCartTTL).Err(); err != nil {
		return E("cart.session", StorageFailure, err)
	}
	return nil
}

func (s *SessionStore) read(ctx context.Context) ([]models.SessionLine, bool, error) {
	cartID := s.cartID()
	if cartID == "" {
		return nil, false, nil
	}
	data, err := s.rdb.Get(ctx, SessionCartKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, E("cart.session", StorageFailure, err)
	}
	lines, err := decodeSessionLines(data)
	if err != nil {
		return nil, false, err
	}
	return lines, true, nil
}

func (s *SessionStore) cartID() string {
	id, _ := s.session.Values[sessionCartIDKey].(string)
	return id
}

// newCartID attribue un identifiant de panier à la session et renvoie le cookie
func (s *SessionStore) newCartID() (string, error) {
	id := uuid.NewString()
	s.session.Values[sessionCartIDKey] = id
	if err := s.session.Save(s.r, s.w); err != nil {
		return "", E("cart.session", StorageFailure, err)
	}
	return id, nil
}

func decodeSessionLines(data []byte) ([]models.SessionLine, error) {
	var lines []models.SessionLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, E("cart.session", StorageFailure, err)
	}
	return lines, nil
}
