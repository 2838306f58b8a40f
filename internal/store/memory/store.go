// Package memory is an in-process sale store used for development, tests and
// the seed-file backend.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"bountytracker/internal/core"
)

type Store struct {
	mu    sync.RWMutex
	sales []core.Sale
}

func New(seed ...core.Sale) *Store {
	s := &Store{}
	for _, sale := range seed {
		s.sales = append(s.sales, sale.Clone())
	}
	return s
}

// NewFromFile seeds the store from a JSON array of sales. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var sales []core.Sale
	if err := json.Unmarshal(b, &sales); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(sales...), nil
}

func (s *Store) ListSales(_ context.Context) ([]core.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		out = append(out, sale.Clone())
	}
	return out, nil
}

func (s *Store) GetSale(_ context.Context, id string) (core.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Sale{}, core.ErrSaleNotFound
	}
	return s.sales[i].Clone(), nil
}

func (s *Store) CreateSale(_ context.Context, sale core.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(sale.ID) >= 0 {
		return fmt.Errorf("%w: id %s", core.ErrDuplicateIdentifier, sale.ID)
	}
	if s.imeiTaken(sale.IMEI, "") {
		return fmt.Errorf("%w: imei %s", core.ErrDuplicateIdentifier, sale.IMEI)
	}
	s.sales = append(s.sales, sale.Clone())
	return nil
}

func (s *Store) UpdateSale(_ context.Context, sale core.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(sale.ID)
	if i < 0 {
		return core.ErrSaleNotFound
	}
	if s.imeiTaken(sale.IMEI, sale.ID) {
		return fmt.Errorf("%w: imei %s", core.ErrDuplicateIdentifier, sale.IMEI)
	}
	s.sales[i] = sale.Clone()
	return nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.ErrSaleNotFound
	}
	s.sales = append(s.sales[:i], s.sales[i+1:]...)
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, sale := range s.sales {
		if sale.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) imeiTaken(imei, exceptID string) bool {
	for _, sale := range s.sales {
		if sale.ID != exceptID && strings.EqualFold(sale.IMEI, imei) {
			return true
		}
	}
	return false
}
