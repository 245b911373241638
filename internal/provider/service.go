package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/marketplace/internal/identity"
	"github.com/taskhub/marketplace/internal/notification"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

var (
	// ErrNotFound is returned when the provider or one of its attachments does not exist.
	ErrNotFound = errors.New("service provider not found")
	// ErrProviderExists is returned when the user already has a provider profile.
	ErrProviderExists = errors.New("user is already a service provider")
	// ErrLanguageExists is returned when the language is already listed.
	ErrLanguageExists = errors.New("language already added")
	// ErrInvalidFluency is returned for unknown fluency levels.
	ErrInvalidFluency = fmt.Errorf("fluency must be one of %s", strings.Join(Fluencies, ", "))
	// ErrInvalidStatus is returned for unknown provider statuses.
	ErrInvalidStatus = errors.New("invalid provider status")
	// ErrUnknownLanguage is returned when the language id does not exist.
	ErrUnknownLanguage = errors.New("language not found")
	// ErrSuspended is returned when a suspended provider tries to publish services.
	ErrSuspended = errors.New("service provider is suspended")
)

// LanguageCatalog resolves languages by id, returning ErrUnknownLanguage for
// ids it does not know.
type LanguageCatalog interface {
	Language(ctx context.Context, id int64) (Language, error)
}

// Users resolves the account behind a provider.
type Users interface {
	Get(ctx context.Context, id string) (identity.User, error)
	Address(ctx context.Context, userID string) (identity.Address, error)
}

// Detail is a provider with its user account and address.
type Detail struct {
	Provider ServiceProvider
	User     identity.User
	Address  *identity.Address
}

// Service manages service provider profiles.
type Service struct {
	repo      Repository
	languages LanguageCatalog
	users     Users
	notifier  notification.Notifier
	now       func() time.Time
}

// NewService builds a provider service. notifier may be nil.
func NewService(repo Repository, languages LanguageCatalog, users Users, notifier notification.Notifier) *Service {
	return &Service{
		repo:      repo,
		languages: languages,
		users:     users,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput carries the fields of a new provider profile.
type CreateInput struct {
	CompanyName string
	PhoneNumber string
	Website     string
}

// Create registers userID as a pending provider.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (ServiceProvider, error) {
	p := ServiceProvider{
		ID:          uuid.NewString(),
		UserID:      userID,
		CompanyName: strings.TrimSpace(in.CompanyName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Website:     strings.TrimSpace(in.Website),
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return ServiceProvider{}, err
	}
	return p, nil
}

// Get returns a provider by id.
func (s *Service) Get(ctx context.Context, id string) (ServiceProvider, error) {
	return s.repo.Get(ctx, id)
}

// GetByUser returns the provider profile of userID.
func (s *Service) GetByUser(ctx context.Context, userID string) (ServiceProvider, error) {
	return s.repo.GetByUser(ctx, userID)
}

// Detail returns a provider together with its user and address.
func (s *Service) Detail(ctx context.Context, id string) (Detail, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Provider: p}
	if s.users == nil {
		return detail, nil
	}
	if detail.User, err = s.users.Get(ctx, p.UserID); err != nil {
		return Detail{}, err
	}
	addr, err := s.users.Address(ctx, p.UserID)
	switch {
	case err == nil:
		detail.Address = &addr
	case !errors.Is(err, identity.ErrNotFound):
		return Detail{}, err
	}
	return detail, nil
}

// List pages through providers, best rated first.
func (s *Service) List(ctx context.Context, filter Filter) ([]ServiceProvider, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// Update changes the caller's company name, phone number and website.
func (s *Service) Update(ctx context.Context, userID string, u ProfileUpdate) (ServiceProvider, error) {
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return ServiceProvider{}, err
	}
	if err := s.repo.Update(ctx, p.ID, u); err != nil {
		return ServiceProvider{}, err
	}
	return s.repo.Get(ctx, p.ID)
}

// SetSocialMedia replaces the caller's social links.
func (s *Service) SetSocialMedia(ctx context.Context, userID string, social SocialMedia) (ServiceProvider, error) {
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return ServiceProvider{}, err
	}
	if err := s.repo.SetSocialMedia(ctx, p.ID, social); err != nil {
		return ServiceProvider{}, err
	}
	return s.repo.Get(ctx, p.ID)
}

// AddInterest adds an interest to the caller's profile.
func (s *Service) AddInterest(ctx context.Context, userID, name string) (Interest, error) {
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return Interest{}, err
	}
	interest := Interest{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if err := s.repo.AddInterest(ctx, p.ID, interest); err != nil {
		return Interest{}, err
	}
	return interest, nil
}

// AddCertification attaches a certificate file to the caller's profile.
func (s *Service) AddCertification(ctx context.Context, userID, file string) (Certification, error) {
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return Certification{}, err
	}
	cert := Certification{ID: uuid.NewString(), CertificateFile: strings.TrimSpace(file)}
	if err := s.repo.AddCertification(ctx, p.ID, cert); err != nil {
		return Certification{}, err
	}
	return cert, nil
}

// AddLanguage adds a spoken language to the caller's profile.
func (s *Service) AddLanguage(ctx context.Context, userID string, languageID int64, fluency string) (ProviderLanguage, error) {
	fluency = strings.ToLower(strings.TrimSpace(fluency))
	if !slices.Contains(Fluencies, fluency) {
		return ProviderLanguage{}, ErrInvalidFluency
	}
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return ProviderLanguage{}, err
	}
	lang, err := s.languages.Language(ctx, languageID)
	if err != nil {
		return ProviderLanguage{}, err
	}
	pl := ProviderLanguage{ID: uuid.NewString(), Language: lang, Fluency: fluency}
	if err := s.repo.AddLanguage(ctx, p.ID, pl); err != nil {
		return ProviderLanguage{}, err
	}
	return pl, nil
}

// RemoveLanguage removes a spoken language from the caller's profile.
func (s *Service) RemoveLanguage(ctx context.Context, userID, id string) error {
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.RemoveLanguage(ctx, p.ID, id)
}

// SetStatus changes the moderation state. Active providers are verified.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (ServiceProvider, error) {
	if !status.Valid() {
		return ServiceProvider{}, ErrInvalidStatus
	}
	if err := s.repo.SetStatus(ctx, id, status, status == StatusActive); err != nil {
		return ServiceProvider{}, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return ServiceProvider{}, err
	}
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindProviderStatus,
			Destination: p.UserID,
			Body:        fmt.Sprintf("Your provider profile is now %s", status),
		})
	}
	return p, nil
}

// IDForUser returns the id of the provider profile owned by userID. Suspended
// providers are rejected.
func (s *Service) IDForUser(ctx context.Context, userID string) (string, error) {
	p, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if p.Status == StatusSuspended {
		return "", ErrSuspended
	}
	return p.ID, nil
}

// UserIDFor returns the user owning provider id.
func (s *Service) UserIDFor(ctx context.Context, id string) (string, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}

// RefreshRating stores the average of the provider's active review ratings.
func (s *Service) RefreshRating(ctx context.Context, id string, average float64, total int) error {
	return s.repo.UpdateRating(ctx, id, math.Round(average*100)/100, total)
}
