package features

import (
	"context"
	"sync"
)

// Repository persists the catalog as a whole document.
type Repository interface {
	// Load returns the stored catalog, or an empty one when nothing is stored.
	Load(ctx context.Context) (*Catalog, error)
	Save(ctx context.Context, catalog *Catalog) error
}

// MemoryRepository keeps the catalog in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	catalog *Catalog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{catalog: NewCatalog()}
}

func (r *MemoryRepository) Load(_ context.Context) (*Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.catalog.Clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, catalog *Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = catalog.Clone()
	return nil
}
