package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists providers and their attachments.
type Repository interface {
	Create(ctx context.Context, p ServiceProvider) error
	Get(ctx context.Context, id string) (ServiceProvider, error)
	GetByUser(ctx context.Context, userID string) (ServiceProvider, error)
	List(ctx context.Context, filter Filter) ([]ServiceProvider, error)
	Update(ctx context.Context, id string, update ProfileUpdate) error
	SetSocialMedia(ctx context.Context, id string, social SocialMedia) error
	AddInterest(ctx context.Context, providerID string, interest Interest) error
	AddCertification(ctx context.Context, providerID string, cert Certification) error
	AddLanguage(ctx context.Context, providerID string, lang ProviderLanguage) error
	RemoveLanguage(ctx context.Context, providerID, id string) error
	SetStatus(ctx context.Context, id string, status Status, verified bool) error
	UpdateRating(ctx context.Context, id string, rating float64, total int) error
}

// PostgresRepository stores providers in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const providerColumns = `id, user_id, company_name, phone_number, website, rating, total_reviews,
        verified, status, facebook, instagram, twitter, linkedin, created_at`

// Create inserts a provider.
func (r *PostgresRepository) Create(ctx context.Context, p ServiceProvider) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO service_providers (id, user_id, company_name, phone_number, website, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, userID, p.CompanyName, p.PhoneNumber, p.Website, string(p.Status), p.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrProviderExists
	}
	return err
}

func scanProvider(row pgx.Row) (ServiceProvider, error) {
	var (
		p          ServiceProvider
		id, userID uuid.UUID
		status     string
	)
	err := row.Scan(&id, &userID, &p.CompanyName, &p.PhoneNumber, &p.Website, &p.Rating, &p.TotalReviews,
		&p.Verified, &status, &p.SocialMedia.Facebook, &p.SocialMedia.Instagram, &p.SocialMedia.Twitter,
		&p.SocialMedia.LinkedIn, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ServiceProvider{}, ErrNotFound
	}
	if err != nil {
		return ServiceProvider{}, err
	}
	p.ID = id.String()
	p.UserID = userID.String()
	p.Status = Status(status)
	return p, nil
}

// Get fetches a provider with its interests, certifications and languages.
func (r *PostgresRepository) Get(ctx context.Context, id string) (ServiceProvider, error) {
	providerID, err := uuid.Parse(id)
	if err != nil {
		return ServiceProvider{}, ErrNotFound
	}
	p, err := scanProvider(r.db.QueryRow(ctx, `SELECT `+providerColumns+` FROM service_providers WHERE id = $1`, providerID))
	if err != nil {
		return ServiceProvider{}, err
	}
	return p, r.loadAttachments(ctx, &p)
}

// GetByUser fetches the provider profile of a user.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (ServiceProvider, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ServiceProvider{}, ErrNotFound
	}
	p, err := scanProvider(r.db.QueryRow(ctx, `SELECT `+providerColumns+` FROM service_providers WHERE user_id = $1`, uid))
	if err != nil {
		return ServiceProvider{}, err
	}
	return p, r.loadAttachments(ctx, &p)
}

func (r *PostgresRepository) loadAttachments(ctx context.Context, p *ServiceProvider) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("parse provider id: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT id, name FROM provider_interests WHERE provider_id = $1 ORDER BY name`, id)
	if err != nil {
		return err
	}
	p.Interests, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Interest, error) {
		var (
			i   Interest
			iid uuid.UUID
		)
		err := row.Scan(&iid, &i.Name)
		i.ID = iid.String()
		return i, err
	})
	if err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `SELECT id, certificate_file FROM provider_certifications WHERE provider_id = $1`, id)
	if err != nil {
		return err
	}
	p.Certifications, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Certification, error) {
		var (
			c   Certification
			cid uuid.UUID
		)
		err := row.Scan(&cid, &c.CertificateFile)
		c.ID = cid.String()
		return c, err
	})
	if err != nil {
		return err
	}

	rows, err = r.db.Query(ctx, `SELECT pl.id, l.id, l.name, l.code, pl.fluency
        FROM provider_languages pl JOIN languages l ON l.id = pl.language_id
        WHERE pl.provider_id = $1 ORDER BY l.name`, id)
	if err != nil {
		return err
	}
	p.Languages, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProviderLanguage, error) {
		var (
			l   ProviderLanguage
			lid uuid.UUID
		)
		err := row.Scan(&lid, &l.Language.ID, &l.Language.Name, &l.Language.Code, &l.Fluency)
		l.ID = lid.String()
		return l, err
	})
	return err
}

// List returns providers, best rated first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]ServiceProvider, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		where = append(where, fmt.Sprintf("verified = $%d", len(args)))
	}
	query := `SELECT ` + providerColumns + ` FROM service_providers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY rating DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ServiceProvider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update changes the writable profile fields.
func (r *PostgresRepository) Update(ctx context.Context, id string, u ProfileUpdate) error {
	return r.execOne(ctx, `UPDATE service_providers SET
            company_name = COALESCE($2, company_name),
            phone_number = COALESCE($3, phone_number),
            website = COALESCE($4, website)
        WHERE id = $1`, id, u.CompanyName, u.PhoneNumber, u.Website)
}

// SetSocialMedia replaces the social media links.
func (r *PostgresRepository) SetSocialMedia(ctx context.Context, id string, s SocialMedia) error {
	return r.execOne(ctx, `UPDATE service_providers SET facebook = $2, instagram = $3, twitter = $4, linkedin = $5
        WHERE id = $1`, id, s.Facebook, s.Instagram, s.Twitter, s.LinkedIn)
}

// AddInterest attaches an interest.
func (r *PostgresRepository) AddInterest(ctx context.Context, providerID string, i Interest) error {
	id, err := uuid.Parse(i.ID)
	if err != nil {
		return fmt.Errorf("parse interest id: %w", err)
	}
	return r.execOne(ctx, `INSERT INTO provider_interests (provider_id, id, name) VALUES ($1, $2, $3)`,
		providerID, id, i.Name)
}

// AddCertification attaches a certificate.
func (r *PostgresRepository) AddCertification(ctx context.Context, providerID string, c Certification) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("parse certification id: %w", err)
	}
	return r.execOne(ctx, `INSERT INTO provider_certifications (provider_id, id, certificate_file) VALUES ($1, $2, $3)`,
		providerID, id, c.CertificateFile)
}

// AddLanguage attaches a spoken language.
func (r *PostgresRepository) AddLanguage(ctx context.Context, providerID string, l ProviderLanguage) error {
	id, err := uuid.Parse(l.ID)
	if err != nil {
		return fmt.Errorf("parse provider language id: %w", err)
	}
	err = r.execOne(ctx, `INSERT INTO provider_languages (provider_id, id, language_id, fluency) VALUES ($1, $2, $3, $4)`,
		providerID, id, l.Language.ID, l.Fluency)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrLanguageExists
	}
	return err
}

// RemoveLanguage detaches a spoken language.
func (r *PostgresRepository) RemoveLanguage(ctx context.Context, providerID, id string) error {
	langID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	return r.execOne(ctx, `DELETE FROM provider_languages WHERE provider_id = $1 AND id = $2`, providerID, langID)
}

// SetStatus stores the moderation status and verified flag.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status Status, verified bool) error {
	return r.execOne(ctx, `UPDATE service_providers SET status = $2, verified = $3 WHERE id = $1`, id, string(status), verified)
}

// UpdateRating stores the aggregated review rating.
func (r *PostgresRepository) UpdateRating(ctx context.Context, id string, rating float64, total int) error {
	return r.execOne(ctx, `UPDATE service_providers SET rating = $2, total_reviews = $3 WHERE id = $1`, id, rating, total)
}

// execOne runs a statement keyed by a provider id and maps zero affected rows to ErrNotFound.
func (r *PostgresRepository) execOne(ctx context.Context, query, id string, args ...any) error {
	providerID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, query, append([]any{providerID}, args...)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
