package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/conorfennell/idiomas/internal/domain"
)

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestUserID(t *testing.T) {
	token := sign(t, jwt.MapClaims{"sub": "user-123", "exp": time.Now().Add(time.Hour).Unix()}, "s3cret")

	t.Run("verified with secret", func(t *testing.T) {
		id, err := UserID(token, "s3cret")
		if err != nil {
			t.Fatalf("UserID() returned an unexpected error: %v", err)
		}
		if id != "user-123" {
			t.Errorf("Expected user-123, but got %s", id)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if _, err := UserID(token, "other"); err == nil {
			t.Error("Expected an error for a bad signature")
		}
	})

	t.Run("unverified without secret", func(t *testing.T) {
		id, err := UserID(token, "")
		if err != nil || id != "user-123" {
			t.Errorf("Expected user-123, got %q (err %v)", id, err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		if _, err := UserID(sign(t, jwt.MapClaims{"role": "anon"}, "s3cret"), "s3cret"); err == nil {
			t.Error("Expected an error for a token without subject")
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := sign(t, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}, "s3cret")
		if _, err := UserID(expired, "s3cret"); err == nil {
			t.Error("Expected an error for an expired token")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := UserID("", ""); err == nil {
			t.Error("Expected an error for an empty token")
		}
	})
}

type profileStore struct {
	Disabled
	profiles map[string]*domain.Profile
}

func (p profileStore) Configured() bool { return true }

func (p profileStore) Profile(_ context.Context, id string) (*domain.Profile, error) {
	return p.profiles[id], nil
}

func TestLookupProfile(t *testing.T) {
	store := profileStore{profiles: map[string]*domain.Profile{"admin-1": {ID: "admin-1", Role: "admin"}}}
	ctx := context.Background()

	p, err := LookupProfile(ctx, store, sign(t, jwt.MapClaims{"sub": "admin-1"}, "k"), "")
	if err != nil {
		t.Fatalf("LookupProfile() returned an unexpected error: %v", err)
	}
	if !p.IsAdmin() {
		t.Errorf("Expected an admin profile, but got %+v", p)
	}

	p, err = LookupProfile(ctx, store, sign(t, jwt.MapClaims{"sub": "user-2"}, "k"), "")
	if err != nil || p != nil {
		t.Errorf("Expected nil, nil for a user without a profile, but got %+v, %v", p, err)
	}

	if _, err := LookupProfile(ctx, Disabled{}, "x", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, but got %v", err)
	}
}
