package cart

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func seedProducts(t *testing.T, mem *store.Memory, names ...string) []*models.Product {
	t.Helper()
	out := make([]*models.Product, 0, len(names))
	for i, name := range names {
		p := &models.Product{Name: name, Size: "M", Price: float64(10 * (i + 1))}
		require.NoError(t, mem.CreateProduct(context.Background(), p))
		out = append(out, p)
	}
	return out
}

func newTestSession(t *testing.T, rdb redis.UniversalClient) *SessionStore {
	t.Helper()
	cs := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	r := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	sess, err := cs.Get(r, SessionName)
	require.NoError(t, err)
	return NewSessionStore(rdb, sess, r, w)
}

// failingSession réclame ses lignes puis refuse de les remettre
type failingSession struct {
	lines    []models.SessionLine
	restored int
}

func (f *failingSession) Claim(context.Context) ([]models.SessionLine, error) {
	lines := f.lines
	f.lines = nil
	return lines, nil
}

func (f *failingSession) Restore(context.Context, []models.SessionLine) error {
	f.restored++
	return errors.New("redis down")
}

type published struct {
	userID string
	cart   *models.Cart
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, userID string, cart *models.Cart) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{userID: userID, cart: cart.Clone()})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *recordingPublisher) last() published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

// failingStore simule une panne de stockage du panier utilisateur
type failingStore struct {
	userID string
}

func (f failingStore) Owner() string { return f.userID }

func (f failingStore) Load(context.Context) (*models.Cart, error) {
	return nil, E("cart.Load", StorageFailure, errors.New("redis down"))
}

func (f failingStore) Mutate(context.Context, bool, func(*models.Cart) error) (*models.Cart, bool, error) {
	return nil, false, E("cart.Mutate", StorageFailure, errors.New("redis down"))
}
