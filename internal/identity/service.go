package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var (
	// ErrNotFound is returned when a user or one of its attachments does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrUserExists is returned when the username or email is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials hides whether the login or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword is returned for passwords shorter than the minimum length.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

// Service manages the user account lifecycle.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates a regular user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	return s.create(ctx, in, false)
}

func (s *Service) create(ctx context.Context, in RegisterInput, staff bool) (User, error) {
	if len(in.Password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsStaff:      staff,
		DateJoined:   s.now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies a password for the user identified by email or
// username and records the login time.
func (s *Service) Authenticate(ctx context.Context, login, password string) (User, error) {
	login = strings.TrimSpace(login)
	var (
		user User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.repo.FindByEmail(ctx, normalizeEmail(login))
	} else {
		user, err = s.repo.FindByUsername(ctx, login)
	}
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLogin = &now
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Profile returns a user together with its gallery images.
func (s *Service) Profile(ctx context.Context, id string) (User, []UserImage, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	images, err := s.repo.ListImages(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	return user, images, nil
}

// UpdateProfile changes the editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	return s.repo.UpdateProfile(ctx, id, update)
}

// SetAddress creates or replaces the user's address.
func (s *Service) SetAddress(ctx context.Context, userID string, addr Address) (Address, error) {
	addr.UserID = userID
	return s.repo.UpsertAddress(ctx, addr)
}

// Address returns the user's address or ErrNotFound.
func (s *Service) Address(ctx context.Context, userID string) (Address, error) {
	return s.repo.GetAddress(ctx, userID)
}

// AddImage appends an image URL to the user's gallery.
func (s *Service) AddImage(ctx context.Context, userID, image string) (UserImage, error) {
	img := UserImage{ID: uuid.NewString(), Image: strings.TrimSpace(image)}
	if img.Image == "" {
		return UserImage{}, errors.New("image is required")
	}
	if err := s.repo.AddImage(ctx, userID, img); err != nil {
		return UserImage{}, err
	}
	return img, nil
}

// EnsureStaff makes sure a staff account exists for email. An existing
// account is promoted; its password is left untouched.
func (s *Service) EnsureStaff(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if !user.IsStaff {
			if err := s.repo.SetStaff(ctx, user.ID, true); err != nil {
				return User{}, err
			}
			user.IsStaff = true
		}
		return user, nil
	case errors.Is(err, ErrNotFound):
		return s.create(ctx, RegisterInput{Email: email, Password: password}, true)
	default:
		return User{}, err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
