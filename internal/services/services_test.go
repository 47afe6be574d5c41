package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/config"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
)

func fakeElastic(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es
}

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.CreateProduct(context.Background(), &models.Product{
		ID: "3f0e2f0c-1d1a-4c55-9a53-0c4f3d1f5a01", Name: "Blue Hoodie", Size: "M", Price: 49.9, Quantity: 3,
	}))
	return mem
}

func TestSearchUsesElastic(t *testing.T) {
	var searched atomic.Bool
	es := fakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/_search") {
			searched.Store(true)
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"multi_match"`)
			_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{"_id":"p1","name":"Red Shirt","price":10}}]}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	s := NewProductSearch(es, seededStore(t))
	got, err := s.Search(context.Background(), "shirt", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Red Shirt", got[0].Name)
	assert.True(t, searched.Load())
}

func TestSearchFallsBackToStore(t *testing.T) {
	es := fakeElastic(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"down"}`))
	})

	got, err := NewProductSearch(es, seededStore(t)).Search(context.Background(), "hoodie", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Blue Hoodie", got[0].Name)

	got, err = NewProductSearch(nil, seededStore(t)).Search(context.Background(), "hoodie", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestIndexProduct(t *testing.T) {
	var indexed atomic.Value
	es := fakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		indexed.Store(r.Method + " " + r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	NewProductSearch(es, store.NewMemory()).IndexProduct(context.Background(), &models.Product{ID: "p1", Name: "Cap"})
	assert.Equal(t, "PUT /products/_doc/p1", indexed.Load())

	// sans client : aucun appel, aucun panic
	NewProductSearch(nil, store.NewMemory()).IndexProduct(context.Background(), &models.Product{ID: "p2"})
}

func TestPhotoKey(t *testing.T) {
	key := PhotoKey("u1", "Me.PNG")
	assert.True(t, strings.HasPrefix(key, "users/u1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, PhotoKey("u1", "Me.PNG"))
	assert.True(t, strings.HasSuffix(PhotoKey("u1", "noext"), ".jpg"))
}

func TestPhotoStorageDisabled(t *testing.T) {
	s := NewPhotoStorage(nil, "photos")
	assert.False(t, s.Enabled())
	_, err := s.UploadUserPhoto(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = s.SignedURL(context.Background(), "users/u1/x.png")
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestWelcomeMessage(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "shop@example.com"})
	require.True(t, m.Enabled())

	msg, err := m.welcomeMessage("alice@example.com", "<Alice>")
	require.NoError(t, err)

	var buf strings.Builder
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "alice@example.com")
	assert.Contains(t, raw, "shop@example.com")
	assert.NotContains(t, raw, "<Alice>", "le nom doit être échappé")
}

func TestSendWelcomeDisabled(t *testing.T) {
	m := NewMailer(config.SMTPConfig{})
	assert.False(t, m.Enabled())
	assert.NoError(t, m.SendWelcome(context.Background(), "a@b.c", "A"))
}
