package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups services on the marketplace.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service is an offering published by a provider. Description holds rich
// text HTML and is stored as given.
type Service struct {
	ID          string          `json:"id"`
	ProviderID  string          `json:"provider"`
	CategoryID  string          `json:"category"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ServiceSummary is a service with its aggregated active review rating.
// AverageRating is nil for services without active reviews.
type ServiceSummary struct {
	Service
	AverageRating *float64 `json:"average_rating"`
	ReviewsCount  int      `json:"reviews_count"`
}

// Review is a user's rating of a service.
type Review struct {
	ID        string    `json:"id"`
	ServiceID string    `json:"service"`
	UserID    string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Country is a top-level geographic entry.
type Country struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Code2 string `json:"code2"`
}

// Region is a province of a country.
type Region struct {
	ID        int64  `json:"id"`
	CountryID int64  `json:"country"`
	Name      string `json:"name"`
}

// SubRegion is a subdivision of a region.
type SubRegion struct {
	ID       int64  `json:"id"`
	RegionID int64  `json:"region"`
	Name     string `json:"name"`
}

// Language is a spoken language providers can list.
type Language struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Home is the landing page feed.
type Home struct {
	TopCategories   []Category       `json:"top_categories"`
	MyInterest      []Service        `json:"my_interest"`
	PopularServices []ServiceSummary `json:"popular_services"`
	ForYou          []Service        `json:"for_you"`
	NearYou         []Service        `json:"near_you"`
}

// Helpers lists the lookup data used by search forms.
type Helpers struct {
	Category  []Category  `json:"category"`
	SubRegion []SubRegion `json:"sub_region"`
	Province  []Region    `json:"province"`
}

// ServiceFilter narrows ListServices results.
type ServiceFilter struct {
	CategoryID string
	ProviderID string
	ActiveOnly bool
	Limit      int
	Offset     int
}
