package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	topCategoriesLimit   = 10
	popularServicesLimit = 5
	interestLimit        = 10

	helpersCacheKey = "catalog:helpers:category-region-province"
)

var (
	// ErrCategoryNotFound is returned when the category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryInactive is returned when publishing into a disabled category.
	ErrCategoryInactive = errors.New("category is not active")
	// ErrCategoryExists is returned for duplicate category slugs.
	ErrCategoryExists = errors.New("category already exists")
	// ErrServiceNotFound is returned when the service does not exist.
	ErrServiceNotFound = errors.New("service not found")
	// ErrInvalidPrice is returned for negative service prices.
	ErrInvalidPrice = errors.New("price must not be negative")
	// ErrNotProvider is returned when the caller cannot publish services.
	ErrNotProvider = errors.New("only active service providers can publish services")
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrReviewExists is returned when the user already reviewed the service.
	ErrReviewExists = errors.New("service already reviewed")
	// ErrCountryNotFound is returned when the country does not exist.
	ErrCountryNotFound = errors.New("country not found")
	// ErrRegionNotFound is returned when the region does not exist.
	ErrRegionNotFound = errors.New("region not found")
	// ErrLanguageNotFound is returned when the language does not exist.
	ErrLanguageNotFound = errors.New("language not found")
	// ErrLanguageExists is returned for duplicate language codes.
	ErrLanguageExists = errors.New("language already exists")
)

// ProviderResolver maps a user to the provider profile allowed to publish
// services. It returns ErrNotProvider when the user has no usable profile.
type ProviderResolver interface {
	IDForUser(ctx context.Context, userID string) (string, error)
}

// RatingSink receives refreshed provider rating aggregates.
type RatingSink interface {
	RefreshRating(ctx context.Context, providerID string, average float64, total int) error
}

// Catalog serves the browsing surface of the marketplace.
type Catalog struct {
	repo      Repository
	providers ProviderResolver
	ratings   RatingSink
	helpers   *ViewCache[Helpers]
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a catalog. providers, ratings and helpers may be nil.
func New(repo Repository, providers ProviderResolver, ratings RatingSink, helpers *ViewCache[Helpers], logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		repo:      repo,
		providers: providers,
		ratings:   ratings,
		helpers:   helpers,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Home assembles the landing feed.
func (c *Catalog) Home(ctx context.Context) (Home, error) {
	categories, err := c.repo.ListCategories(ctx, true, topCategoriesLimit)
	if err != nil {
		return Home{}, err
	}
	popular, err := c.repo.PopularServices(ctx, popularServicesLimit)
	if err != nil {
		return Home{}, err
	}
	interest, err := c.repo.RandomServices(ctx, interestLimit)
	if err != nil {
		return Home{}, err
	}
	return Home{
		TopCategories:   categories,
		MyInterest:      interest,
		PopularServices: popular,
		ForYou:          interest,
		NearYou:         interest,
	}, nil
}

// Helpers returns the category, sub-region and province lookups, served from
// the cache when possible.
func (c *Catalog) Helpers(ctx context.Context) (Helpers, error) {
	if cached, ok := c.helpers.Get(ctx, helpersCacheKey); ok {
		return *cached, nil
	}
	categories, err := c.repo.ListCategories(ctx, false, 0)
	if err != nil {
		return Helpers{}, err
	}
	subRegions, err := c.repo.ListSubRegions(ctx)
	if err != nil {
		return Helpers{}, err
	}
	regions, err := c.repo.ListRegions(ctx)
	if err != nil {
		return Helpers{}, err
	}
	h := Helpers{Category: categories, SubRegion: subRegions, Province: regions}
	c.helpers.Set(ctx, helpersCacheKey, &h)
	return h, nil
}

func (c *Catalog) invalidateHelpers(ctx context.Context) {
	c.helpers.Delete(ctx, helpersCacheKey)
}

// Categories lists active categories.
func (c *Catalog) Categories(ctx context.Context) ([]Category, error) {
	return c.repo.ListCategories(ctx, true, 0)
}

// CategoryInput carries the fields of a new category.
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	Icon        string
}

// CreateCategory adds an active category. An empty slug is derived from the name.
func (c *Catalog) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	cat := Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        strings.TrimSpace(in.Slug),
		Description: in.Description,
		Icon:        strings.TrimSpace(in.Icon),
		IsActive:    true,
		CreatedAt:   c.now(),
	}
	if cat.Slug == "" {
		cat.Slug = Slugify(cat.Name)
	}
	if err := c.repo.CreateCategory(ctx, cat); err != nil {
		return Category{}, err
	}
	c.invalidateHelpers(ctx)
	return cat, nil
}

// Services pages through active services, newest first.
func (c *Catalog) Services(ctx context.Context, filter ServiceFilter) ([]Service, error) {
	filter.ActiveOnly = true
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return c.repo.ListServices(ctx, filter)
}

// Service returns a service with its rating summary.
func (c *Catalog) Service(ctx context.Context, id string) (ServiceSummary, error) {
	return c.repo.GetService(ctx, id)
}

// ServiceInput carries the fields of a new service.
type ServiceInput struct {
	CategoryID  string
	Title       string
	Description string
	Price       decimal.Decimal
}

// CreateService publishes a service owned by the caller's provider profile.
func (c *Catalog) CreateService(ctx context.Context, userID string, in ServiceInput) (Service, error) {
	if c.providers == nil {
		return Service{}, ErrNotProvider
	}
	providerID, err := c.providers.IDForUser(ctx, userID)
	if err != nil {
		return Service{}, err
	}
	if in.Price.IsNegative() {
		return Service{}, ErrInvalidPrice
	}
	cat, err := c.repo.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return Service{}, err
	}
	if !cat.IsActive {
		return Service{}, ErrCategoryInactive
	}
	svc := Service{
		ID:          uuid.NewString(),
		ProviderID:  providerID,
		CategoryID:  cat.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price.Round(2),
		IsActive:    true,
		CreatedAt:   c.now(),
	}
	if err := c.repo.CreateService(ctx, svc); err != nil {
		return Service{}, err
	}
	return svc, nil
}

// Reviews lists the active reviews of a service.
func (c *Catalog) Reviews(ctx context.Context, serviceID string) ([]Review, error) {
	if _, err := c.repo.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	return c.repo.ListReviews(ctx, serviceID)
}

// PostReview records userID's rating of a service and refreshes the owning
// provider's aggregate rating.
func (c *Catalog) PostReview(ctx context.Context, userID, serviceID string, rating int, comment string) (Review, error) {
	if rating < 1 || rating > 5 {
		return Review{}, ErrInvalidRating
	}
	svc, err := c.repo.GetService(ctx, serviceID)
	if err != nil {
		return Review{}, err
	}
	rv := Review{
		ID:        uuid.NewString(),
		ServiceID: svc.ID,
		UserID:    userID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		IsActive:  true,
		CreatedAt: c.now(),
	}
	if err := c.repo.CreateReview(ctx, rv); err != nil {
		return Review{}, err
	}
	c.refreshProviderRating(ctx, svc.ProviderID)
	return rv, nil
}

// refreshProviderRating failures are logged; the review itself is stored.
func (c *Catalog) refreshProviderRating(ctx context.Context, providerID string) {
	if c.ratings == nil {
		return
	}
	avg, total, err := c.repo.ProviderRating(ctx, providerID)
	if err == nil {
		err = c.ratings.RefreshRating(ctx, providerID, avg, total)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "refresh provider rating", "provider_id", providerID, "error", err)
	}
}

// Countries lists countries.
func (c *Catalog) Countries(ctx context.Context) ([]Country, error) {
	return c.repo.ListCountries(ctx)
}

// CreateCountry adds a country.
func (c *Catalog) CreateCountry(ctx context.Context, name, code2 string) (Country, error) {
	country := Country{Name: strings.TrimSpace(name), Code2: strings.ToUpper(strings.TrimSpace(code2))}
	if err := c.repo.CreateCountry(ctx, &country); err != nil {
		return Country{}, err
	}
	return country, nil
}

// CreateRegion adds a province to an existing country.
func (c *Catalog) CreateRegion(ctx context.Context, countryID int64, name string) (Region, error) {
	if _, err := c.repo.GetCountry(ctx, countryID); err != nil {
		return Region{}, err
	}
	region := Region{CountryID: countryID, Name: strings.TrimSpace(name)}
	if err := c.repo.CreateRegion(ctx, &region); err != nil {
		return Region{}, err
	}
	c.invalidateHelpers(ctx)
	return region, nil
}

// CreateSubRegion adds a subdivision to an existing region.
func (c *Catalog) CreateSubRegion(ctx context.Context, regionID int64, name string) (SubRegion, error) {
	if _, err := c.repo.GetRegion(ctx, regionID); err != nil {
		return SubRegion{}, err
	}
	sub := SubRegion{RegionID: regionID, Name: strings.TrimSpace(name)}
	if err := c.repo.CreateSubRegion(ctx, &sub); err != nil {
		return SubRegion{}, err
	}
	c.invalidateHelpers(ctx)
	return sub, nil
}

// Languages lists languages.
func (c *Catalog) Languages(ctx context.Context) ([]Language, error) {
	return c.repo.ListLanguages(ctx)
}

// Language returns a language by id.
func (c *Catalog) Language(ctx context.Context, id int64) (Language, error) {
	return c.repo.GetLanguage(ctx, id)
}

// CreateLanguage adds a language. Codes are stored lowercase.
func (c *Catalog) CreateLanguage(ctx context.Context, name, code string) (Language, error) {
	l := Language{Name: strings.TrimSpace(name), Code: strings.ToLower(strings.TrimSpace(code))}
	if err := c.repo.CreateLanguage(ctx, &l); err != nil {
		return Language{}, err
	}
	return l, nil
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
