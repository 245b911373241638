package catalog

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

// Repository persists categories, services, reviews and the geographic and
// language lookup tables.
type Repository interface {
	CreateCategory(ctx context.Context, c Category) error
	GetCategory(ctx context.Context, id string) (Category, error)
	ListCategories(ctx context.Context, activeOnly bool, limit int) ([]Category, error)

	CreateService(ctx context.Context, s Service) error
	GetService(ctx context.Context, id string) (ServiceSummary, error)
	ListServices(ctx context.Context, filter ServiceFilter) ([]Service, error)
	RandomServices(ctx context.Context, limit int) ([]Service, error)
	PopularServices(ctx context.Context, limit int) ([]ServiceSummary, error)

	CreateReview(ctx context.Context, r Review) error
	ListReviews(ctx context.Context, serviceID string) ([]Review, error)
	ProviderRating(ctx context.Context, providerID string) (float64, int, error)

	CreateCountry(ctx context.Context, c *Country) error
	GetCountry(ctx context.Context, id int64) (Country, error)
	ListCountries(ctx context.Context) ([]Country, error)
	CreateRegion(ctx context.Context, r *Region) error
	GetRegion(ctx context.Context, id int64) (Region, error)
	ListRegions(ctx context.Context) ([]Region, error)
	CreateSubRegion(ctx context.Context, s *SubRegion) error
	ListSubRegions(ctx context.Context) ([]SubRegion, error)

	CreateLanguage(ctx context.Context, l *Language) error
	GetLanguage(ctx context.Context, id int64) (Language, error)
	ListLanguages(ctx context.Context) ([]Language, error)
}

// PostgresRepository stores the catalog in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const categoryColumns = `id, name, slug, description, icon, is_active, created_at`

func scanCategory(row pgx.Row) (Category, error) {
	var (
		c  Category
		id uuid.UUID
	)
	err := row.Scan(&id, &c.Name, &c.Slug, &c.Description, &c.Icon, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	}
	c.ID = id.String()
	return c, err
}

// CreateCategory inserts a category. Slugs are unique.
func (r *PostgresRepository) CreateCategory(ctx context.Context, c Category) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("parse category id: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO service_categories (`+categoryColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, c.Name, c.Slug, c.Description, c.Icon, c.IsActive, c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrCategoryExists
	}
	return err
}

// GetCategory fetches a category by id.
func (r *PostgresRepository) GetCategory(ctx context.Context, id string) (Category, error) {
	cid, err := uuid.Parse(id)
	if err != nil {
		return Category{}, ErrCategoryNotFound
	}
	return scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM service_categories WHERE id = $1`, cid))
}

// ListCategories returns categories in name order. A non-positive limit returns all.
func (r *PostgresRepository) ListCategories(ctx context.Context, activeOnly bool, limit int) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM service_categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		return scanCategory(row)
	})
}

const serviceColumns = `s.id, s.provider_id, s.category_id, s.title, s.description, s.price, s.is_active, s.created_at`

func scanService(row pgx.Row) (Service, error) {
	var (
		s                          Service
		id, providerID, categoryID uuid.UUID
	)
	err := row.Scan(&id, &providerID, &categoryID, &s.Title, &s.Description, &s.Price, &s.IsActive, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Service{}, ErrServiceNotFound
	}
	s.ID, s.ProviderID, s.CategoryID = id.String(), providerID.String(), categoryID.String()
	return s, err
}

func scanSummary(row pgx.Row) (ServiceSummary, error) {
	var (
		sum                        ServiceSummary
		id, providerID, categoryID uuid.UUID
	)
	err := row.Scan(&id, &providerID, &categoryID, &sum.Title, &sum.Description, &sum.Price, &sum.IsActive,
		&sum.CreatedAt, &sum.AverageRating, &sum.ReviewsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return ServiceSummary{}, ErrServiceNotFound
	}
	sum.ID, sum.ProviderID, sum.CategoryID = id.String(), providerID.String(), categoryID.String()
	return sum, err
}

// CreateService inserts a service.
func (r *PostgresRepository) CreateService(ctx context.Context, s Service) error {
	ids, err := parseUUIDs(s.ID, s.ProviderID, s.CategoryID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO services (id, provider_id, category_id, title, description, price, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ids[0], ids[1], ids[2],
		s.Title, s.Description, s.Price, s.IsActive, s.CreatedAt)
	return err
}

const summarySelect = `SELECT ` + serviceColumns + `,
        AVG(r.rating) FILTER (WHERE r.is_active)::float8,
        COUNT(r.id) FILTER (WHERE r.is_active)
    FROM services s LEFT JOIN service_reviews r ON r.service_id = s.id`

// GetService fetches a service with its rating summary.
func (r *PostgresRepository) GetService(ctx context.Context, id string) (ServiceSummary, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return ServiceSummary{}, ErrServiceNotFound
	}
	return scanSummary(r.db.QueryRow(ctx, summarySelect+` WHERE s.id = $1 GROUP BY s.id`, sid))
}

// ListServices returns services newest first.
func (r *PostgresRepository) ListServices(ctx context.Context, filter ServiceFilter) ([]Service, error) {
	var (
		where []string
		args  []any
	)
	if filter.ActiveOnly {
		where = append(where, "s.is_active")
	}
	if filter.CategoryID != "" {
		cid, err := uuid.Parse(filter.CategoryID)
		if err != nil {
			return []Service{}, nil
		}
		args = append(args, cid)
		where = append(where, fmt.Sprintf("s.category_id = $%d", len(args)))
	}
	if filter.ProviderID != "" {
		pid, err := uuid.Parse(filter.ProviderID)
		if err != nil {
			return []Service{}, nil
		}
		args = append(args, pid)
		where = append(where, fmt.Sprintf("s.provider_id = $%d", len(args)))
	}
	query := `SELECT ` + serviceColumns + ` FROM services s`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Service, error) {
		return scanService(row)
	})
}

// RandomServices samples active services.
func (r *PostgresRepository) RandomServices(ctx context.Context, limit int) ([]Service, error) {
	rows, err := r.db.Query(ctx, `SELECT `+serviceColumns+` FROM services s WHERE s.is_active ORDER BY random() LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Service, error) {
		return scanService(row)
	})
}

// PopularServices returns active services by average active rating, unrated last.
func (r *PostgresRepository) PopularServices(ctx context.Context, limit int) ([]ServiceSummary, error) {
	rows, err := r.db.Query(ctx, summarySelect+` WHERE s.is_active GROUP BY s.id
        ORDER BY 9 DESC NULLS LAST, s.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ServiceSummary, error) {
		return scanSummary(row)
	})
}

// CreateReview inserts a review. A user reviews a service once.
func (r *PostgresRepository) CreateReview(ctx context.Context, rv Review) error {
	ids, err := parseUUIDs(rv.ID, rv.ServiceID, rv.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO service_reviews (id, service_id, user_id, rating, comment, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ids[0], ids[1], ids[2],
		rv.Rating, rv.Comment, rv.IsActive, rv.CreatedAt)
	if isUniqueViolation(err) {
		return ErrReviewExists
	}
	return err
}

// ListReviews returns the active reviews of a service, newest first.
func (r *PostgresRepository) ListReviews(ctx context.Context, serviceID string) ([]Review, error) {
	sid, err := uuid.Parse(serviceID)
	if err != nil {
		return []Review{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, service_id, user_id, rating, comment, is_active, created_at
        FROM service_reviews WHERE service_id = $1 AND is_active ORDER BY created_at DESC`, sid)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Review, error) {
		var (
			rv                Review
			id, svcID, userID uuid.UUID
		)
		err := row.Scan(&id, &svcID, &userID, &rv.Rating, &rv.Comment, &rv.IsActive, &rv.CreatedAt)
		rv.ID, rv.ServiceID, rv.UserID = id.String(), svcID.String(), userID.String()
		return rv, err
	})
}

// ProviderRating aggregates the active reviews across a provider's services.
func (r *PostgresRepository) ProviderRating(ctx context.Context, providerID string) (float64, int, error) {
	pid, err := uuid.Parse(providerID)
	if err != nil {
		return 0, 0, ErrServiceNotFound
	}
	var (
		avg   float64
		total int
	)
	err = r.db.QueryRow(ctx, `SELECT COALESCE(AVG(r.rating), 0)::float8, COUNT(r.id)
        FROM service_reviews r JOIN services s ON s.id = r.service_id
        WHERE s.provider_id = $1 AND r.is_active`, pid).Scan(&avg, &total)
	return avg, total, err
}

// CreateCountry inserts a country and assigns its id.
func (r *PostgresRepository) CreateCountry(ctx context.Context, c *Country) error {
	return r.db.QueryRow(ctx, `INSERT INTO countries (name, code2) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Code2).Scan(&c.ID)
}

// GetCountry fetches a country.
func (r *PostgresRepository) GetCountry(ctx context.Context, id int64) (Country, error) {
	var c Country
	err := r.db.QueryRow(ctx, `SELECT id, name, code2 FROM countries WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.Code2)
	if errors.Is(err, pgx.ErrNoRows) {
		return Country{}, ErrCountryNotFound
	}
	return c, err
}

// ListCountries returns countries by name.
func (r *PostgresRepository) ListCountries(ctx context.Context) ([]Country, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, code2 FROM countries ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Country])
}

// CreateRegion inserts a region and assigns its id.
func (r *PostgresRepository) CreateRegion(ctx context.Context, rg *Region) error {
	return r.db.QueryRow(ctx, `INSERT INTO regions (country_id, name) VALUES ($1, $2) RETURNING id`,
		rg.CountryID, rg.Name).Scan(&rg.ID)
}

// GetRegion fetches a region.
func (r *PostgresRepository) GetRegion(ctx context.Context, id int64) (Region, error) {
	var rg Region
	err := r.db.QueryRow(ctx, `SELECT id, country_id, name FROM regions WHERE id = $1`, id).Scan(&rg.ID, &rg.CountryID, &rg.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Region{}, ErrRegionNotFound
	}
	return rg, err
}

// ListRegions returns regions by name.
func (r *PostgresRepository) ListRegions(ctx context.Context) ([]Region, error) {
	rows, err := r.db.Query(ctx, `SELECT id, country_id, name FROM regions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Region])
}

// CreateSubRegion inserts a sub-region and assigns its id.
func (r *PostgresRepository) CreateSubRegion(ctx context.Context, s *SubRegion) error {
	return r.db.QueryRow(ctx, `INSERT INTO sub_regions (region_id, name) VALUES ($1, $2) RETURNING id`,
		s.RegionID, s.Name).Scan(&s.ID)
}

// ListSubRegions returns sub-regions by name.
func (r *PostgresRepository) ListSubRegions(ctx context.Context) ([]SubRegion, error) {
	rows, err := r.db.Query(ctx, `SELECT id, region_id, name FROM sub_regions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[SubRegion])
}

// CreateLanguage inserts a language. Codes are unique.
func (r *PostgresRepository) CreateLanguage(ctx context.Context, l *Language) error {
	err := r.db.QueryRow(ctx, `INSERT INTO languages (name, code) VALUES ($1, $2) RETURNING id`,
		l.Name, l.Code).Scan(&l.ID)
	if isUniqueViolation(err) {
		return ErrLanguageExists
	}
	return err
}

// GetLanguage fetches a language.
func (r *PostgresRepository) GetLanguage(ctx context.Context, id int64) (Language, error) {
	var l Language
	err := r.db.QueryRow(ctx, `SELECT id, name, code FROM languages WHERE id = $1`, id).Scan(&l.ID, &l.Name, &l.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return Language{}, ErrLanguageNotFound
	}
	return l, err
}

// ListLanguages returns languages by name.
func (r *PostgresRepository) ListLanguages(ctx context.Context) ([]Language, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, code FROM languages ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Language])
}

// parseUUIDs parses every id, failing on the first malformed one.
func parseUUIDs(ids ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", id, err)
		}
		out[i] = parsed
	}
	return out, nil
}
