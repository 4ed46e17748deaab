package document

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory document store for local usage and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[string]*Asset
	shapes map[string]*Shape
}

// NewMemoryStore creates an empty in-memory document.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets: map[string]*Asset{},
		shapes: map[string]*Shape{},
	}
}

func (s *MemoryStore) GetAsset(_ context.Context, id string) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[QualifyAssetID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *asset
	return &clone, nil
}

func (s *MemoryStore) GetShape(_ context.Context, id string) (*Shape, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shape, ok := s.shapes[QualifyShapeID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *shape
	return &clone, nil
}

// Run stages mutations and applies them under one lock acquisition, so a
// failing block leaves the document untouched.
func (s *MemoryStore) Run(_ context.Context, fn func(tx Tx) error) error {
	staged := &memoryTx{store: s}
	if err := fn(staged); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, asset := range staged.assets {
		a := asset
		s.assets[a.ID] = &a
	}
	for _, shape := range staged.shapes {
		sh := shape
		s.shapes[sh.ID] = &sh
	}
	for _, id := range staged.deleted {
		delete(s.shapes, id)
	}
	return nil
}

type memoryTx struct {
	store   *MemoryStore
	assets  []Asset
	shapes  []Shape
	deleted []string
}

func (tx *memoryTx) HasAsset(id string) (bool, error) {
	id = QualifyAssetID(id)
	for _, a := range tx.assets {
		if a.ID == id {
			return true, nil
		}
	}
	tx.store.mu.RLock()
	_, exists := tx.store.assets[id]
	tx.store.mu.RUnlock()
	return exists, nil
}

func (tx *memoryTx) CreateAssets(assets []Asset) error {
	for _, asset := range assets {
		if asset.ID == "" {
			return ErrInvalidID
		}
		a := asset
		a.ID = QualifyAssetID(a.ID)
		tx.store.mu.RLock()
		_, exists := tx.store.assets[a.ID]
		tx.store.mu.RUnlock()
		if exists {
			return ErrAlreadyExists
		}
		tx.assets = append(tx.assets, a)
	}
	return nil
}

func (tx *memoryTx) CreateShape(shape Shape) error {
	if shape.ID == "" {
		return ErrInvalidID
	}
	shape.ID = QualifyShapeID(shape.ID)
	tx.store.mu.RLock()
	_, exists := tx.store.shapes[shape.ID]
	tx.store.mu.RUnlock()
	if exists {
		return ErrAlreadyExists
	}
	tx.shapes = append(tx.shapes, shape)
	return nil
}

func (tx *memoryTx) DeleteShape(id string) error {
	id = QualifyShapeID(id)
	tx.store.mu.RLock()
	_, exists := tx.store.shapes[id]
	tx.store.mu.RUnlock()
	if !exists {
		return ErrNotFound
	}
	tx.deleted = append(tx.deleted, id)
	return nil
}
