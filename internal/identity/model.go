package identity

import "time"

// User represents a registered marketplace account.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	ProfileImage string
	Bio          string
	PasswordHash []byte
	IsStaff      bool
	TokenVersion int
	DateJoined   time.Time
	LastLogin    *time.Time
}

// UserImage is a gallery image attached to a user profile.
type UserImage struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// Address is the postal address of a user. Each user has at most one.
type Address struct {
	ID      string `json:"id"`
	UserID  string `json:"user"`
	Address string `json:"address"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	ZipCode string `json:"zip_code"`
}

// RegisterInput carries sign-up data.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// ProfileUpdate holds the user-editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	ProfileImage *string
	Bio          *string
}
