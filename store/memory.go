package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rentnest/rentnest-backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryPropertyStore is an in-memory PropertyStore used by tests. It keeps
// the same atomicity guarantees as the Mongo implementation: ReserveUnit is
// a single compare-and-decrement under the store lock.
type MemoryPropertyStore struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Property
}

func NewMemoryPropertyStore() *MemoryPropertyStore {
	return &MemoryPropertyStore{byID: make(map[primitive.ObjectID]*models.Property)}
}

func (s *MemoryPropertyStore) Insert(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *MemoryPropertyStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Find ignores the filter; memory-backed tests assert on the full set.
func (s *MemoryPropertyStore) Find(_ context.Context, _ bson.M, limit int64) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Property, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryPropertyStore) Update(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	applyPropertyFields(p, fields)
	return nil
}

func (s *MemoryPropertyStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryPropertyStore) ReserveUnit(_ context.Context, id primitive.ObjectID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok || p.AvailableUnits <= 0 {
		return nil, models.ErrCapacityExceeded
	}
	p.AvailableUnits--
	cp := *p
	return &cp, nil
}

func (s *MemoryPropertyStore) ReleaseUnit(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil
	}
	if p.AvailableUnits < p.TotalUnits {
		p.AvailableUnits++
	}
	return nil
}

func (s *MemoryPropertyStore) ApplyAvailability(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	applyPropertyFields(p, fields)
	cp := *p
	return &cp, nil
}

func applyPropertyFields(p *models.Property, fields bson.M) {
	for key, value := range fields {
		switch key {
		case "totalUnits":
			p.TotalUnits = toInt(value)
		case "availableUnits":
			p.AvailableUnits = toInt(value)
		case "availabilityStatus":
			if s, ok := value.(string); ok {
				p.AvailabilityStatus = s
			}
		case "title":
			if s, ok := value.(string); ok {
				p.Title = s
			}
		case "price":
			p.Price = toInt(value)
		}
	}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// MemoryApplicationStore is an in-memory ApplicationStore used by tests.
// When linked to a MemoryPropertyStore it joins property summaries the way
// the Mongo $lookup does.
type MemoryApplicationStore struct {
	mu         sync.Mutex
	byID       map[primitive.ObjectID]*models.Application
	properties *MemoryPropertyStore
}

func NewMemoryApplicationStore(properties *MemoryPropertyStore) *MemoryApplicationStore {
	return &MemoryApplicationStore{
		byID:       make(map[primitive.ObjectID]*models.Application),
		properties: properties,
	}
}

func (s *MemoryApplicationStore) Insert(_ context.Context, a *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Mirrors the partial unique index on (tenantID, propertyID, Pending).
	for _, existing := range s.byID {
		if existing.TenantID == a.TenantID && existing.PropertyID == a.PropertyID &&
			existing.Status == models.ApplicationPending {
			return models.ErrConflict
		}
	}
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *MemoryApplicationStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryApplicationStore) HasPending(_ context.Context, tenantID string, propertyID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.TenantID == tenantID && a.PropertyID == propertyID && a.Status == models.ApplicationPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryApplicationStore) Finalize(_ context.Context, id primitive.ObjectID, status string, actedAt time.Time) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok || a.Status != models.ApplicationPending {
		return nil, models.ErrAlreadyFinalized
	}
	a.Status = status
	at := actedAt
	a.ActedAt = &at
	cp := *a
	return &cp, nil
}

func (s *MemoryApplicationStore) ListByTenant(ctx context.Context, tenantID string) ([]models.ApplicationSummary, error) {
	s.mu.Lock()
	applications := make([]models.Application, 0)
	for _, a := range s.byID {
		if a.TenantID == tenantID {
			applications = append(applications, *a)
		}
	}
	s.mu.Unlock()

	sort.Slice(applications, func(i, j int) bool {
		return applications[i].CreatedAt.Before(applications[j].CreatedAt)
	})

	out := make([]models.ApplicationSummary, 0, len(applications))
	for _, a := range applications {
		summary := models.ApplicationSummary{Application: a}
		if s.properties != nil {
			if p, err := s.properties.GetByID(ctx, a.PropertyID); err == nil {
				summary.Property = &models.PropertySummary{
					Title:      p.Title,
					City:       p.City,
					State:      p.State,
					Price:      p.Price,
					LandlordID: p.LandlordID,
				}
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *MemoryApplicationStore) ListByProperty(_ context.Context, propertyID primitive.ObjectID) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Application, 0)
	for _, a := range s.byID {
		if a.PropertyID == propertyID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
