package mysqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipebox/internal/model"
	"recipebox/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var userColumns = []string{"id", "name", "email", "password_hash", "favorites", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), GormConfig())
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return New(db), mock
}

func TestCreateUser_AssignsID(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(7, 1))

	u := &model.User{Name: "Ana", Email: "ana@x.com", PasswordHash: "hash"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID != "7" {
		t.Fatalf("expected id 7, got %q", u.ID)
	}
	if u.Favorites == nil {
		t.Fatalf("expected empty favorites, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'ana@x.com' for key 'idx_users_email'"})

	err := s.CreateUser(context.Background(), &model.User{Name: "Ana", Email: "ana@x.com", PasswordHash: "hash"})
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE email = ").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(3, "Ana", "ana@x.com", "hash", `["637","42"]`, now, now))

	u, err := s.GetUserByEmail(context.Background(), "ana@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.ID != "3" || u.Name != "Ana" || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if len(u.Favorites) != 2 || u.Favorites[0] != "637" {
		t.Fatalf("unexpected favorites: %v", u.Favorites)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE id = ").
		WillReturnRows(sqlmock.NewRows(userColumns))

	if _, err := s.GetUserByID(context.Background(), "99"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserByID_InvalidID(t *testing.T) {
	s, _ := newMockStore(t)
	if _, err := s.GetUserByID(context.Background(), "64b7f0c2a1"); !errors.Is(err, store.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if s.ValidID("0") || s.ValidID("abc") || !s.ValidID("12") {
		t.Fatalf("unexpected ValidID results")
	}
}

func TestSetFavorites(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE `users` SET `favorites`").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := s.SetFavorites(context.Background(), "3", model.Favorites{"637"}); err != nil {
		t.Fatalf("set favorites: %v", err)
	}

	mock.ExpectExec("UPDATE `users` SET `favorites`").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.SetFavorites(context.Background(), "4", model.Favorites{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateUser_ReturnsFreshRow(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE id = ").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(3, "Ana Maria", "ana@x.com", "hash", `[]`, now, now))

	name := "Ana Maria"
	u, err := s.UpdateUser(context.Background(), "3", model.UserUpdate{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Name != "Ana Maria" {
		t.Fatalf("unexpected name %q", u.Name)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE id = ").WillReturnRows(sqlmock.NewRows(userColumns))

	name := "x"
	if _, err := s.UpdateUser(context.Background(), "8", model.UserUpdate{Name: &name}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser_DuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE `users` SET").WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"})

	email := "taken@x.com"
	if _, err := s.UpdateUser(context.Background(), "3", model.UserUpdate{Email: &email}); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}
