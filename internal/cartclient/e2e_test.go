package cartclient

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/app"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/logging"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type env struct {
	url string
	mem *store.Memory
}

func startServer(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mem := store.NewMemory()
	cfg := &config.Config{
		BaseURL:       "http://localhost",
		JWTSecret:     "e2e-secret",
		JWTExpiresIn:  time.Hour,
		SessionSecret: "0123456789abcdef0123456789abcdef",
		StoreBackend:  config.BackendMemory,
	}
	a, err := app.New(app.Options{Config: cfg, Redis: rdb, Products: mem, Users: mem})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumPat(context.Background()).Result()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	srv := httptest.NewServer(a.Router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &env{url: srv.URL, mem: mem}
}

func (e *env) product(t *testing.T, name string, price float64) models.Product {
	t.Helper()
	p := &models.Product{Name: name, Size: "M", Price: price, Quantity: 10}
	require.NoError(t, e.mem.CreateProduct(context.Background(), p))
	return *p
}

func (e *env) api(t *testing.T) *API {
	t.Helper()
	a, err := NewAPI(e.url, nil)
	require.NoError(t, err)
	return a
}

func quantities(lines []Line) map[string]int {
	out := make(map[string]int, len(lines))
	for _, l := range lines {
		out[l.ProductID] = l.Quantity
	}
	return out
}

func cartQuantities(c *models.Cart) map[string]int {
	out := make(map[string]int, len(c.Lines))
	for _, l := range c.Lines {
		out[l.ProductID] = l.Quantity
	}
	return out
}

func TestAnonymousCartFollowsUserThroughLogin(t *testing.T) {
	e := startServer(t)
	ctx := context.Background()
	p1 := e.product(t, "Hoodie", 40)
	p2 := e.product(t, "Cap", 15)

	// compte existant avec {P2, 1} sur le serveur
	owner := e.api(t)
	_, err := owner.Signup(ctx, "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	_, err = owner.SetLine(ctx, p2.ID, 1)
	require.NoError(t, err)

	// visiteur anonyme
	snapshot, err := OpenBadgerSnapshot("")
	require.NoError(t, err)
	defer snapshot.Close()

	browser := e.api(t)
	sync := NewSynchronizer(browser, snapshot)
	defer sync.Close()
	require.NoError(t, sync.Initialize(ctx))
	assert.Empty(t, sync.Lines())

	require.NoError(t, sync.AddProduct(ctx, p1))
	local, err := snapshot.Load()
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, 1, local[0].Quantity)

	require.NoError(t, sync.Increment(ctx, p1.ID))
	local, err = snapshot.Load()
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, 2, local[0].Quantity, "set, pas somme")

	// le panier de session côté serveur suit le snapshot
	sessionCart, err := browser.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{p1.ID: 2}, cartQuantities(sessionCart))

	_, err = browser.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, sync.Initialize(ctx))

	assert.Equal(t, map[string]int{p1.ID: 2, p2.ID: 1}, quantities(sync.Lines()))
	local, err = snapshot.Load()
	require.NoError(t, err)
	assert.Empty(t, local, "snapshot vidé après transfert")

	serverCart, err := owner.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{p1.ID: 2, p2.ID: 1}, cartQuantities(serverCart))
}

func TestLoginKeepsSumForProductAlreadyInServerCart(t *testing.T) {
	e := startServer(t)
	ctx := context.Background()
	p1 := e.product(t, "Hoodie", 40)

	owner := e.api(t)
	_, err := owner.Signup(ctx, "dylan", "dylan@example.com", "password123")
	require.NoError(t, err)
	_, err = owner.SetLine(ctx, p1.ID, 3)
	require.NoError(t, err)

	snapshot := &MemorySnapshotStore{}
	browser := e.api(t)
	sync := NewSynchronizer(browser, snapshot)
	defer sync.Close()
	require.NoError(t, sync.Initialize(ctx))
	require.NoError(t, sync.AddProduct(ctx, p1))
	require.NoError(t, sync.Increment(ctx, p1.ID))

	_, err = browser.Login(ctx, "dylan@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, sync.Initialize(ctx))

	assert.Equal(t, map[string]int{p1.ID: 5}, quantities(sync.Lines()))
	serverCart, err := owner.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{p1.ID: 5}, cartQuantities(serverCart))

	local, err := snapshot.Load()
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestLiveUpdatesReachOnlyTheSameUser(t *testing.T) {
	e := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p1 := e.product(t, "Hoodie", 40)

	newSync := func(name string) *Synchronizer {
		api := e.api(t)
		_, err := api.Signup(ctx, name, name+"@example.com", "password123")
		require.NoError(t, err)
		s := NewSynchronizer(api, &MemorySnapshotStore{}, WithDebounce(10*time.Millisecond))
		t.Cleanup(s.Close)
		require.NoError(t, s.Initialize(ctx))
		return s
	}

	tab1 := newSync("bobby")
	tab2api := e.api(t)
	_, err := tab2api.Login(ctx, "bobby@example.com", "password123")
	require.NoError(t, err)
	tab2 := NewSynchronizer(tab2api, &MemorySnapshotStore{})
	t.Cleanup(tab2.Close)
	require.NoError(t, tab2.Initialize(ctx))
	other := newSync("carol")

	for _, s := range []*Synchronizer{tab2, other} {
		go func(s *Synchronizer) { _ = s.Listen(ctx) }(s)
	}
	// laisse le temps aux websockets de s'inscrire au hub
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, tab1.AddProduct(ctx, p1))
	require.NoError(t, tab1.Increment(ctx, p1.ID))
	require.NoError(t, tab1.Increment(ctx, p1.ID))
	require.NoError(t, tab1.Decrement(ctx, p1.ID))

	assert.Eventually(t, func() bool {
		return quantities(tab2.Lines())[p1.ID] == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, other.Lines())

	require.NoError(t, tab1.Decrement(ctx, p1.ID))
	require.NoError(t, tab1.Decrement(ctx, p1.ID))
	assert.Equal(t, 1, quantities(tab1.Lines())[p1.ID], "plancher à 1")

	require.NoError(t, tab1.Remove(ctx, p1.ID))
	assert.Eventually(t, func() bool { return len(tab2.Lines()) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, other.Lines())
}
