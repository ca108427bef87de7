package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/cwesi-djin/storefront-go/internal/catalog"
)

type ProductStore struct {
	db *DB
}

var _ catalog.Repository = (*ProductStore)(nil)

func (s *ProductStore) Get(_ context.Context, id string) (catalog.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (s *ProductStore) List(_ context.Context) ([]catalog.Product, error) {
	return s.filter(func(catalog.Product) bool { return true }), nil
}

func (s *ProductStore) ListByCategory(_ context.Context, category string) ([]catalog.Product, error) {
	return s.filter(func(p catalog.Product) bool {
		return strings.EqualFold(string(p.Category), category)
	}), nil
}

func (s *ProductStore) Create(_ context.Context, p *catalog.Product) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.db.now()
	}
	s.db.products[p.ID] = *p
	return nil
}

func (s *ProductStore) Update(_ context.Context, p *catalog.Product) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.products[p.ID]; !ok {
		return catalog.ErrProductNotFound
	}
	s.db.products[p.ID] = *p
	return nil
}

func (s *ProductStore) filter(keep func(catalog.Product) bool) []catalog.Product {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := make([]catalog.Product, 0, len(s.db.products))
	for _, p := range s.db.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
