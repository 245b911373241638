package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users and their profile attachments.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	SetStaff(ctx context.Context, id string, staff bool) error
	UpsertAddress(ctx context.Context, addr Address) (Address, error)
	GetAddress(ctx context.Context, userID string) (Address, error)
	AddImage(ctx context.Context, userID string, img UserImage) error
	ListImages(ctx context.Context, userID string) ([]UserImage, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, email, first_name, last_name, profile_image, bio,
        password_hash, is_staff, token_version, date_joined, last_login`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		userID, user.Username, user.Email, user.FirstName, user.LastName, user.ProfileImage, user.Bio,
		user.PasswordHash, user.IsStaff, user.TokenVersion, user.DateJoined.UTC(), user.LastLogin)
	if isUniqueViolation(err) {
		return ErrUserExists
	}
	return err
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByUsername fetches a user by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (User, error) {
	var (
		id   uuid.UUID
		user User
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.ProfileImage, &user.Bio, &user.PasswordHash, &user.IsStaff, &user.TokenVersion, &user.DateJoined, &user.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.DateJoined = user.DateJoined.UTC()
	return user, nil
}

// UpdateProfile applies the non-nil fields of update.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET
            first_name = COALESCE($2, first_name),
            last_name = COALESCE($3, last_name),
            profile_image = COALESCE($4, profile_image),
            bio = COALESCE($5, bio)
        WHERE id = $1`, userID, update.FirstName, update.LastName, update.ProfileImage, update.Bio)
	if err != nil {
		return User{}, err
	}
	if cmd.RowsAffected() == 0 {
		return User{}, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// UpdateLastLogin stamps the last successful authentication.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at.UTC())
}

// UpdateTokenVersion stores a new token version, invalidating older tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.execOne(ctx, `UPDATE users SET token_version = $2 WHERE id = $1`, id, version)
}

// SetStaff toggles the staff flag.
func (r *PostgresRepository) SetStaff(ctx context.Context, id string, staff bool) error {
	return r.execOne(ctx, `UPDATE users SET is_staff = $2 WHERE id = $1`, id, staff)
}

func (r *PostgresRepository) execOne(ctx context.Context, query, id string, arg any) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, query, userID, arg)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertAddress creates or replaces the user's address.
func (r *PostgresRepository) UpsertAddress(ctx context.Context, addr Address) (Address, error) {
	userID, err := uuid.Parse(addr.UserID)
	if err != nil {
		return Address{}, ErrNotFound
	}
	var id uuid.UUID
	err = r.db.QueryRow(ctx, `INSERT INTO addresses (id, user_id, address, city, region, country, zip_code)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_id) DO UPDATE SET address = EXCLUDED.address, city = EXCLUDED.city,
            region = EXCLUDED.region, country = EXCLUDED.country, zip_code = EXCLUDED.zip_code
        RETURNING id`, uuid.New(), userID, addr.Address, addr.City, addr.Region, addr.Country, addr.ZipCode).Scan(&id)
	if err != nil {
		return Address{}, err
	}
	addr.ID = id.String()
	return addr, nil
}

// GetAddress returns the user's address.
func (r *PostgresRepository) GetAddress(ctx context.Context, userID string) (Address, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Address{}, ErrNotFound
	}
	var (
		id   uuid.UUID
		addr Address
	)
	err = r.db.QueryRow(ctx, `SELECT id, address, city, region, country, zip_code FROM addresses WHERE user_id = $1`, uid).
		Scan(&id, &addr.Address, &addr.City, &addr.Region, &addr.Country, &addr.ZipCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	if err != nil {
		return Address{}, err
	}
	addr.ID = id.String()
	addr.UserID = userID
	return addr, nil
}

// AddImage attaches an image to the user's gallery.
func (r *PostgresRepository) AddImage(ctx context.Context, userID string, img UserImage) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrNotFound
	}
	imgID, err := uuid.Parse(img.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO user_images (id, user_id, image) VALUES ($1, $2, $3)`, imgID, uid, img.Image)
	return err
}

// ListImages returns the user's gallery in upload order.
func (r *PostgresRepository) ListImages(ctx context.Context, userID string) ([]UserImage, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT id, image FROM user_images WHERE user_id = $1 ORDER BY created_at`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	images := []UserImage{}
	for rows.Next() {
		var (
			id  uuid.UUID
			img UserImage
		)
		if err := rows.Scan(&id, &img.Image); err != nil {
			return nil, err
		}
		img.ID = id.String()
		images = append(images, img)
	}
	return images, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
