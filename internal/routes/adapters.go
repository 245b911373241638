package routes

import (
	"context"
	"errors"

	"github.com/taskhub/marketplace/internal/catalog"
	"github.com/taskhub/marketplace/internal/provider"
)

// providerResolver lets the catalog publish services for active provider
// profiles without importing the provider package.
type providerResolver struct {
	providers *provider.Service
}

func (r providerResolver) IDForUser(ctx context.Context, userID string) (string, error) {
	id, err := r.providers.IDForUser(ctx, userID)
	if errors.Is(err, provider.ErrNotFound) || errors.Is(err, provider.ErrSuspended) {
		return "", catalog.ErrNotProvider
	}
	return id, err
}

// languageCatalog serves provider language lookups from the catalog store.
type languageCatalog struct {
	repo catalog.Repository
}

func (l languageCatalog) Language(ctx context.Context, id int64) (provider.Language, error) {
	lang, err := l.repo.GetLanguage(ctx, id)
	if errors.Is(err, catalog.ErrLanguageNotFound) {
		return provider.Language{}, provider.ErrUnknownLanguage
	}
	if err != nil {
		return provider.Language{}, err
	}
	return provider.Language{ID: lang.ID, Name: lang.Name, Code: lang.Code}, nil
}
