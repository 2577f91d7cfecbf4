package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasherCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{name: "zero", cost: 0, want: bcrypt.DefaultCost},
		{name: "below minimum", cost: bcrypt.MinCost - 1, want: bcrypt.DefaultCost},
		{name: "above maximum", cost: bcrypt.MaxCost + 1, want: bcrypt.DefaultCost},
		{name: "custom", cost: bcrypt.MinCost + 1, want: bcrypt.MinCost + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewBcryptHasher(tt.cost).cost; got != tt.want {
				t.Fatalf("expected cost %d, got %d", tt.want, got)
			}
		})
	}
}

func TestBcryptHasherHashAndCompare(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if cost, err := HashCost(hash); err != nil || cost != bcrypt.MinCost {
		t.Fatalf("unexpected cost %d, err %v", cost, err)
	}
	if err := hasher.Compare(hash, "s3cret"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := hasher.Compare(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestBcryptHasherCompareMalformedHash(t *testing.T) {
	err := NewBcryptHasher(0).Compare("plain-text", "s3cret")
	if err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected invalid hash error, got %v", err)
	}
	if _, err := HashCost("plain-text"); err == nil {
		t.Fatal("expected HashCost to reject non bcrypt value")
	}
}

func TestBcryptHasherHashError(t *testing.T) {
	hasher := &BcryptHasher{cost: bcrypt.MaxCost + 1}
	if _, err := hasher.Hash("password"); err == nil {
		t.Fatal("expected hash error for invalid cost")
	}
}
