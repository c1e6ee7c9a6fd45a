package portfolio

import (
	"sort"
	"sync"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Item
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]*Item),
	}
}

func (r *MemoryRepository) Create(item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

func (r *MemoryRepository) GetByID(id string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, exists := r.items[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *MemoryRepository) GetBySlug(slug string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.Slug == slug {
			copied := *item
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) List() ([]*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Item, 0, len(r.items))
	for _, item := range r.items {
		copied := *item
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})
	return result, nil
}

func (r *MemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[id]; !exists {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
