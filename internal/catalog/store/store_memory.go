package store

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"lineacaptura/internal/catalog/models"
	"lineacaptura/pkg/domain"
)

// InMemoryStore serves the catalog from memory. It backs development setups
// without Postgres, seeded from a YAML file.
type InMemoryStore struct {
	mu          sync.RWMutex
	authorities map[domain.AuthorityID]models.Authority
	services    map[domain.ServiceID]models.Service
}

// Seed is the YAML layout accepted by LoadSeedFile.
type Seed struct {
	Authorities []models.Authority `yaml:"authorities"`
	Services    []models.Service   `yaml:"services"`
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		authorities: make(map[domain.AuthorityID]models.Authority),
		services:    make(map[domain.ServiceID]models.Service),
	}
}

// LoadSeedFile reads a YAML seed file into a new in-memory store.
func LoadSeedFile(path string) (*InMemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	s := NewInMemory()
	s.Add(seed)
	return s, nil
}

// Add inserts or replaces the seed rows.
func (s *InMemoryStore) Add(seed Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range seed.Authorities {
		s.authorities[a.ID] = a
	}
	for _, svc := range seed.Services {
		s.services[svc.ID] = svc
	}
}

func (s *InMemoryStore) FindAuthority(_ context.Context, id domain.AuthorityID) (*models.Authority, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authorities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *InMemoryStore) ListAuthorities(_ context.Context) ([]models.Authority, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Authority, 0, len(s.authorities))
	for _, a := range s.authorities {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Authority) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *InMemoryStore) FindServices(_ context.Context, ids []domain.ServiceID) ([]models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Service
	for _, id := range ids {
		if svc, ok := s.services[id]; ok {
			out = append(out, svc)
		}
	}
	slices.SortFunc(out, func(a, b models.Service) int { return cmp.Compare(a.ID, b.ID) })
	return slices.CompactFunc(out, func(a, b models.Service) bool { return a.ID == b.ID }), nil
}

func (s *InMemoryStore) ListPrimaryServices(_ context.Context, code string) ([]models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Service
	for _, svc := range s.services {
		if svc.IsPrimary() && strings.Contains(svc.Homoclave, code) {
			out = append(out, svc)
		}
	}
	slices.SortFunc(out, func(a, b models.Service) int {
		return cmp.Or(cmp.Compare(a.Homoclave, b.Homoclave), cmp.Compare(a.Variant, b.Variant))
	})
	return out, nil
}
