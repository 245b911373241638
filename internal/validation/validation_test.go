package validation

import (
	"errors"
	"testing"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Currency string `json:"currency" validate:"omitempty,iso4217"`
	Kind     string `json:"kind" validate:"omitempty,oneof=savings checking"`
}

func TestStructCollectsFieldErrors(t *testing.T) {
	err := Struct(sample{Email: "nope", Currency: "XYZW", Kind: "gold"})
	var verrs *Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected *Errors, got %v", err)
	}
	if len(verrs.Details) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %+v", len(verrs.Details), verrs.Details)
	}
	if verrs.Details[0].Field != "email" || verrs.Details[0].Message != "Invalid email format" {
		t.Fatalf("unexpected first detail: %+v", verrs.Details[0])
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := Struct(sample{Email: "a@b.io", Currency: "USD", Kind: "savings"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
