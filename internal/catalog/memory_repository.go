package catalog

import (
	"context"
	"math/rand"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu         sync.RWMutex
	categories map[string]Category
	services   map[string]Service
	reviews    map[string]Review
	countries  []Country
	regions    []Region
	subRegions []SubRegion
	languages  []Language
}

// NewMemoryRepository constructs an in-memory repository for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		categories: make(map[string]Category),
		services:   make(map[string]Service),
		reviews:    make(map[string]Review),
	}
}

func (r *memoryRepository) CreateCategory(_ context.Context, c Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.categories {
		if existing.Slug == c.Slug {
			return ErrCategoryExists
		}
	}
	r.categories[c.ID] = c
	return nil
}

func (r *memoryRepository) GetCategory(_ context.Context, id string) (Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	return c, nil
}

func (r *memoryRepository) ListCategories(_ context.Context, activeOnly bool, limit int) ([]Category, error) {
	r.mu.RLock()
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) CreateService(_ context.Context, s Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.ID] = s
	return nil
}

// summarize must be called with the lock held.
func (r *memoryRepository) summarize(s Service) ServiceSummary {
	sum := ServiceSummary{Service: s}
	total := 0
	for _, rv := range r.reviews {
		if rv.ServiceID == s.ID && rv.IsActive {
			total += rv.Rating
			sum.ReviewsCount++
		}
	}
	if sum.ReviewsCount > 0 {
		avg := float64(total) / float64(sum.ReviewsCount)
		sum.AverageRating = &avg
	}
	return sum
}

func (r *memoryRepository) GetService(_ context.Context, id string) (ServiceSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[id]
	if !ok {
		return ServiceSummary{}, ErrServiceNotFound
	}
	return r.summarize(s), nil
}

func (r *memoryRepository) ListServices(_ context.Context, filter ServiceFilter) ([]Service, error) {
	r.mu.RLock()
	out := make([]Service, 0, len(r.services))
	for _, s := range r.services {
		if filter.ActiveOnly && !s.IsActive {
			continue
		}
		if filter.CategoryID != "" && s.CategoryID != filter.CategoryID {
			continue
		}
		if filter.ProviderID != "" && s.ProviderID != filter.ProviderID {
			continue
		}
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset >= len(out) {
		return []Service{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepository) RandomServices(ctx context.Context, limit int) ([]Service, error) {
	out, err := r.ListServices(ctx, ServiceFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) PopularServices(_ context.Context, limit int) ([]ServiceSummary, error) {
	r.mu.RLock()
	out := make([]ServiceSummary, 0, len(r.services))
	for _, s := range r.services {
		if s.IsActive {
			out = append(out, r.summarize(s))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].AverageRating, out[j].AverageRating
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) CreateReview(_ context.Context, rv Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.ServiceID == rv.ServiceID && existing.UserID == rv.UserID {
			return ErrReviewExists
		}
	}
	r.reviews[rv.ID] = rv
	return nil
}

func (r *memoryRepository) ListReviews(_ context.Context, serviceID string) ([]Review, error) {
	r.mu.RLock()
	out := []Review{}
	for _, rv := range r.reviews {
		if rv.ServiceID == serviceID && rv.IsActive {
			out = append(out, rv)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) ProviderRating(_ context.Context, providerID string) (float64, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum, count := 0, 0
	for _, rv := range r.reviews {
		s, ok := r.services[rv.ServiceID]
		if !ok || s.ProviderID != providerID || !rv.IsActive {
			continue
		}
		sum += rv.Rating
		count++
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

func (r *memoryRepository) CreateCountry(_ context.Context, c *Country) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = int64(len(r.countries) + 1)
	r.countries = append(r.countries, *c)
	return nil
}

func (r *memoryRepository) GetCountry(_ context.Context, id int64) (Country, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.countries {
		if c.ID == id {
			return c, nil
		}
	}
	return Country{}, ErrCountryNotFound
}

func (r *memoryRepository) ListCountries(_ context.Context) ([]Country, error) {
	r.mu.RLock()
	out := append([]Country{}, r.countries...)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) CreateRegion(_ context.Context, rg *Region) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rg.ID = int64(len(r.regions) + 1)
	r.regions = append(r.regions, *rg)
	return nil
}

func (r *memoryRepository) GetRegion(_ context.Context, id int64) (Region, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rg := range r.regions {
		if rg.ID == id {
			return rg, nil
		}
	}
	return Region{}, ErrRegionNotFound
}

func (r *memoryRepository) ListRegions(_ context.Context) ([]Region, error) {
	r.mu.RLock()
	out := append([]Region{}, r.regions...)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) CreateSubRegion(_ context.Context, s *SubRegion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = int64(len(r.subRegions) + 1)
	r.subRegions = append(r.subRegions, *s)
	return nil
}

func (r *memoryRepository) ListSubRegions(_ context.Context) ([]SubRegion, error) {
	r.mu.RLock()
	out := append([]SubRegion{}, r.subRegions...)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) CreateLanguage(_ context.Context, l *Language) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.languages {
		if existing.Code == l.Code {
			return ErrLanguageExists
		}
	}
	l.ID = int64(len(r.languages) + 1)
	r.languages = append(r.languages, *l)
	return nil
}

func (r *memoryRepository) GetLanguage(_ context.Context, id int64) (Language, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.languages {
		if l.ID == id {
			return l, nil
		}
	}
	return Language{}, ErrLanguageNotFound
}

func (r *memoryRepository) ListLanguages(_ context.Context) ([]Language, error) {
	r.mu.RLock()
	out := append([]Language{}, r.languages...)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
