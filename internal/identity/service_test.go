package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "amina", Email: "Amina@Example.com", Password: "s3cretpass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "amina@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if user.LastLogin != nil {
		t.Fatalf("expected no last login before authentication")
	}

	byEmail, err := svc.Authenticate(ctx, "AMINA@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.LastLogin == nil {
		t.Fatalf("unexpected authenticated user: %+v", byEmail)
	}

	if _, err := svc.Authenticate(ctx, "amina", "s3cretpass"); err != nil {
		t.Fatalf("authenticate by username: %v", err)
	}

	stored, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.LastLogin == nil {
		t.Fatalf("expected last login to be persisted")
	}
}

func TestAuthenticateRejectsBadPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Username: "bo", Email: "bo@example.com", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "bo@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "c", Email: "c@example.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password error, got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "c", Email: "c@example.com", Password: "long-enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "c2", Email: "c@example.com", Password: "long-enough"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestUpdateProfileOnlyTouchesGivenFields(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Username: "dee", Email: "dee@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	first, bio := "Dee", "Plumber"
	if _, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{FirstName: &first, Bio: &bio}); err != nil {
		t.Fatalf("update: %v", err)
	}
	last := "Okafor"
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{LastName: &last})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FirstName != "Dee" || updated.LastName != "Okafor" || updated.Bio != "Plumber" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if updated.Email != "dee@example.com" {
		t.Fatalf("email must not change, got %s", updated.Email)
	}
}

func TestAddressAndImages(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Username: "eve", Email: "eve@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Address(ctx, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no address yet, got %v", err)
	}
	first, err := svc.SetAddress(ctx, user.ID, Address{Address: "1 Main St", City: "Lahore"})
	if err != nil {
		t.Fatalf("set address: %v", err)
	}
	second, err := svc.SetAddress(ctx, user.ID, Address{Address: "2 Side St", City: "Karachi"})
	if err != nil {
		t.Fatalf("replace address: %v", err)
	}
	if first.ID != second.ID || second.City != "Karachi" {
		t.Fatalf("expected in-place replacement, got %+v then %+v", first, second)
	}

	if _, err := svc.AddImage(ctx, user.ID, "https://cdn.example.com/a.png"); err != nil {
		t.Fatalf("add image: %v", err)
	}
	_, images, err := svc.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if len(images) != 1 || images[0].Image != "https://cdn.example.com/a.png" {
		t.Fatalf("unexpected images: %+v", images)
	}
}

func TestEnsureStaffPromotesExistingUser(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	admin, err := svc.EnsureStaff(ctx, "admin@example.com", "admin-password")
	if err != nil {
		t.Fatalf("ensure staff: %v", err)
	}
	if !admin.IsStaff {
		t.Fatalf("expected staff user")
	}
	again, err := svc.EnsureStaff(ctx, "admin@example.com", "ignored-password")
	if err != nil {
		t.Fatalf("ensure staff again: %v", err)
	}
	if again.ID != admin.ID {
		t.Fatalf("expected the same account to be reused")
	}

	regular, err := svc.Register(ctx, RegisterInput{Username: "ops", Email: "ops@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	promoted, err := svc.EnsureStaff(ctx, "ops@example.com", "")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.ID != regular.ID || !promoted.IsStaff {
		t.Fatalf("expected promotion of existing account, got %+v", promoted)
	}
}
