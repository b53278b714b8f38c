package memstore

import (
	"context"
	"errors"
	"testing"

	"recipebox/internal/model"
	"recipebox/internal/store"
)

func TestCreateAndLookup(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &model.User{Name: "Ana", Email: "ana@x.com", PasswordHash: "h"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID != "1" {
		t.Fatalf("expected id 1, got %q", u.ID)
	}
	if err := s.CreateUser(ctx, &model.User{Name: "Ana", Email: "ANA@x.com"}); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "ana@x.com")
	if err != nil || got.ID != "1" {
		t.Fatalf("lookup by email: %v %+v", err, got)
	}
	if _, err := s.GetUserByID(ctx, "2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetUserByID(ctx, "abc"); !errors.Is(err, store.ErrInvalidID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestReturnedUsersAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &model.User{Name: "Ana", Email: "ana@x.com"}
	_ = s.CreateUser(ctx, u)
	_ = s.SetFavorites(ctx, u.ID, model.Favorites{"1"})

	got, _ := s.GetUserByID(ctx, u.ID)
	got.Favorites[0] = "mutated"

	again, _ := s.GetUserByID(ctx, u.ID)
	if again.Favorites[0] != "1" {
		t.Fatalf("stored favorites were mutated through a returned copy")
	}
	if s.FavoriteWrites() != 1 {
		t.Fatalf("expected one favorites write, got %d", s.FavoriteWrites())
	}
}

func TestUpdateUserEmailIndex(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := &model.User{Name: "Ana", Email: "ana@x.com"}
	b := &model.User{Name: "Bob", Email: "bob@x.com"}
	_ = s.CreateUser(ctx, a)
	_ = s.CreateUser(ctx, b)

	taken := "bob@x.com"
	if _, err := s.UpdateUser(ctx, a.ID, model.UserUpdate{Email: &taken}); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	fresh := "ana@y.com"
	if _, err := s.UpdateUser(ctx, a.ID, model.UserUpdate{Email: &fresh}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "ana@x.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("old email should be released, got %v", err)
	}
	if got, err := s.GetUserByEmail(ctx, "ana@y.com"); err != nil || got.ID != a.ID {
		t.Fatalf("new email lookup failed: %v", err)
	}
}
