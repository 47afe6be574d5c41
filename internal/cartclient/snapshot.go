package cartclient

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"storefront_back_end/internal/models"
)

// SnapshotKey est l'unique clé durable du panier local
const SnapshotKey = "cart"

// SnapshotStore garde le panier d'un visiteur entre deux lancements
type SnapshotStore interface {
	Load() ([]models.LocalLine, error)
	Save(lines []models.LocalLine) error
	Clear() error
}

type BadgerSnapshotStore struct {
	db *badger.DB
}

// OpenBadgerSnapshot ouvre le snapshot sur disque ; dir vide = mode mémoire
func OpenBadgerSnapshot(dir string) (*BadgerSnapshotStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return &BadgerSnapshotStore{db: db}, nil
}

func (s *BadgerSnapshotStore) Load() ([]models.LocalLine, error) {
	var lines []models.LocalLine
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(SnapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &lines)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return lines, nil
}

func (s *BadgerSnapshotStore) Save(lines []models.LocalLine) error {
	if len(lines) == 0 {
		return s.Clear()
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(SnapshotKey), data)
	})
}

func (s *BadgerSnapshotStore) Clear() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(SnapshotKey))
	})
}

func (s *BadgerSnapshotStore) Close() error {
	return s.db.Close()
}

// MemorySnapshotStore ne survit pas au processus
type MemorySnapshotStore struct {
	mu    sync.Mutex
	lines []models.LocalLine
}

func (s *MemorySnapshotStore) Load() ([]models.LocalLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LocalLine(nil), s.lines...), nil
}

func (s *MemorySnapshotStore) Save(lines []models.LocalLine) error {
	s.mu.Lock()
	s.lines = append([]models.LocalLine(nil), lines...)
	s.mu.Unlock()
	return nil
}

func (s *MemorySnapshotStore) Clear() error {
	return s.Save(nil)
}
