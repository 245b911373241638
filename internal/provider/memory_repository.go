package provider

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	providers map[string]ServiceProvider
}

// NewMemoryRepository constructs an in-memory repository for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{providers: make(map[string]ServiceProvider)}
}

func (r *memoryRepository) Create(_ context.Context, p ServiceProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.providers {
		if existing.UserID == p.UserID {
			return ErrProviderExists
		}
	}
	r.providers[p.ID] = p
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (ServiceProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return ServiceProvider{}, ErrNotFound
	}
	return clone(p), nil
}

func (r *memoryRepository) GetByUser(_ context.Context, userID string) (ServiceProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if p.UserID == userID {
			return clone(p), nil
		}
	}
	return ServiceProvider{}, ErrNotFound
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]ServiceProvider, error) {
	r.mu.RLock()
	out := make([]ServiceProvider, 0, len(r.providers))
	for _, p := range r.providers {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Verified != nil && p.Verified != *filter.Verified {
			continue
		}
		out = append(out, clone(p))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating == out[j].Rating {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Rating > out[j].Rating
	})
	if filter.Offset >= len(out) {
		return []ServiceProvider{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, id string, u ProfileUpdate) error {
	return r.mutate(id, func(p *ServiceProvider) error {
		if u.CompanyName != nil {
			p.CompanyName = *u.CompanyName
		}
		if u.PhoneNumber != nil {
			p.PhoneNumber = *u.PhoneNumber
		}
		if u.Website != nil {
			p.Website = *u.Website
		}
		return nil
	})
}

func (r *memoryRepository) SetSocialMedia(_ context.Context, id string, s SocialMedia) error {
	return r.mutate(id, func(p *ServiceProvider) error {
		p.SocialMedia = s
		return nil
	})
}

func (r *memoryRepository) AddInterest(_ context.Context, providerID string, i Interest) error {
	return r.mutate(providerID, func(p *ServiceProvider) error {
		p.Interests = append(p.Interests, i)
		return nil
	})
}

func (r *memoryRepository) AddCertification(_ context.Context, providerID string, c Certification) error {
	return r.mutate(providerID, func(p *ServiceProvider) error {
		p.Certifications = append(p.Certifications, c)
		return nil
	})
}

func (r *memoryRepository) AddLanguage(_ context.Context, providerID string, l ProviderLanguage) error {
	return r.mutate(providerID, func(p *ServiceProvider) error {
		for _, existing := range p.Languages {
			if existing.Language.ID == l.Language.ID {
				return ErrLanguageExists
			}
		}
		p.Languages = append(p.Languages, l)
		return nil
	})
}

func (r *memoryRepository) RemoveLanguage(_ context.Context, providerID, id string) error {
	return r.mutate(providerID, func(p *ServiceProvider) error {
		for i, l := range p.Languages {
			if l.ID == id {
				p.Languages = append(p.Languages[:i:i], p.Languages[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (r *memoryRepository) SetStatus(_ context.Context, id string, status Status, verified bool) error {
	return r.mutate(id, func(p *ServiceProvider) error {
		p.Status = status
		p.Verified = verified
		return nil
	})
}

func (r *memoryRepository) UpdateRating(_ context.Context, id string, rating float64, total int) error {
	return r.mutate(id, func(p *ServiceProvider) error {
		p.Rating = rating
		p.TotalReviews = total
		return nil
	})
}

func (r *memoryRepository) mutate(id string, fn func(*ServiceProvider) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return ErrNotFound
	}
	p = clone(p)
	if err := fn(&p); err != nil {
		return err
	}
	r.providers[id] = p
	return nil
}

func clone(p ServiceProvider) ServiceProvider {
	p.Interests = append([]Interest(nil), p.Interests...)
	p.Certifications = append([]Certification(nil), p.Certifications...)
	p.Languages = append([]ProviderLanguage(nil), p.Languages...)
	return p
}
