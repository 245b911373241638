package provider

import "time"

// Status is the moderation state of a provider.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusActive || s == StatusSuspended
}

// Fluency levels accepted for provider languages.
var Fluencies = []string{"basic", "conversational", "fluent", "native"}

// ServiceProvider is a user offering services on the marketplace.
type ServiceProvider struct {
	ID             string
	UserID         string
	CompanyName    string
	PhoneNumber    string
	Website        string
	Rating         float64
	TotalReviews   int
	Verified       bool
	Status         Status
	SocialMedia    SocialMedia
	Interests      []Interest
	Certifications []Certification
	Languages      []ProviderLanguage
	CreatedAt      time.Time
}

// SocialMedia holds the provider's public profile links.
type SocialMedia struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
}

// Interest is a free-form topic the provider works on.
type Interest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Certification is an uploaded certificate file reference.
type Certification struct {
	ID              string `json:"id"`
	CertificateFile string `json:"certificate_file"`
}

// Language is a spoken language known to the catalog.
type Language struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// ProviderLanguage is a language the provider speaks with a fluency level.
type ProviderLanguage struct {
	ID       string   `json:"id"`
	Language Language `json:"language"`
	Fluency  string   `json:"fluency"`
}

// ProfileUpdate carries the writable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	CompanyName *string
	PhoneNumber *string
	Website     *string
}

// Filter narrows List results.
type Filter struct {
	Status   Status
	Verified *bool
	Limit    int
	Offset   int
}
