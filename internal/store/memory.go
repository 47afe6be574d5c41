package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront_back_end/internal/models"
)

// Memory est le backend STORE_BACKEND=memory (développement et tests)
type Memory struct {
	mu       sync.RWMutex
	products map[string]models.Product
	users    map[string]models.User
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[string]models.Product),
		users:    make(map[string]models.User),
	}
}

func (m *Memory) GetProduct(_ context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListProducts(_ context.Context, limit int) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sortProducts(out)
	return truncate(out, limit), nil
}

func (m *Memory) CreateProduct(_ context.Context, p *models.Product) error {
	prepareProduct(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; ok {
		return ErrConflict
	}
	m.products[p.ID] = *p
	return nil
}

// DeleteProduct n'est pas exposé en HTTP ; sert à simuler un produit retiré du catalogue
func (m *Memory) DeleteProduct(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

func (m *Memory) SearchProducts(_ context.Context, query string, limit int) ([]models.Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Product
	for _, p := range m.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return truncate(out, limit), nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetUserByProvider(_ context.Context, provider, providerID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	prepareUser(u)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email || (u.Name != "" && strings.EqualFold(existing.Name, u.Name)) {
			return ErrConflict
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UpdatePhoto(_ context.Context, id, photo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Photo = photo
	m.users[id] = u
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// prepareProduct complète id, slug et date de création
func prepareProduct(p *models.Product) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Name)
	}
	if p.CreatedAt == nil {
		now := time.Now().UTC()
		p.CreatedAt = &now
	}
}

func prepareUser(u *models.User) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Slug == "" {
		u.Slug = models.Slugify(u.Name)
	}
	if u.Provider == "" {
		u.Provider = models.ProviderLocal
	}
	if u.CreatedAt == nil {
		now := time.Now().UTC()
		u.CreatedAt = &now
	}
}

func sortProducts(ps []models.Product) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}

func truncate(ps []models.Product, limit int) []models.Product {
	if limit > 0 && len(ps) > limit {
		return ps[:limit]
	}
	return ps
}
