// internal/store/storetest/storetest.go

// Package storetest поднимает in-memory SQLite с рабочей схемой для тестов.
package storetest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/store"
)

// MemoryDSN in-memory база с включенными внешними ключами
const MemoryDSN = ":memory:?_pragma=foreign_keys(1)"

// Logger возвращает логгер, который ничего не пишет.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewDB открывает чистую базу и применяет схему.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.DriverSQLite, MemoryDSN, 1, Logger())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := store.Migrate(ctx, db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// Stores набор хранилищ поверх одной тестовой базы
type Stores struct {
	DB      *sqlx.DB
	Users   *store.SQLUserStore
	Catalog *store.SQLCatalogStore
	Reviews *store.SQLReviewStore
}

// NewStores создает все хранилища поверх NewDB.
func NewStores(t testing.TB) *Stores {
	t.Helper()
	db := NewDB(t)
	users, err := store.NewSQLUserStore(db, Logger())
	if err != nil {
		t.Fatalf("NewSQLUserStore: %v", err)
	}
	catalog, err := store.NewSQLCatalogStore(db, Logger())
	if err != nil {
		t.Fatalf("NewSQLCatalogStore: %v", err)
	}
	reviews, err := store.NewSQLReviewStore(db, Logger())
	if err != nil {
		t.Fatalf("NewSQLReviewStore: %v", err)
	}
	return &Stores{DB: db, Users: users, Catalog: catalog, Reviews: reviews}
}

// CreateUser создает пользователя с заданной ролью.
func (s *Stores) CreateUser(t testing.TB, username string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@example.com", Role: role}
	if err := s.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return u
}

// CreateTitle создает произведение вместе с категорией и жанром, если их еще нет.
func (s *Stores) CreateTitle(t testing.TB, name string, year int) *domain.Title {
	t.Helper()
	ctx := context.Background()
	_ = s.Catalog.CreateCategory(ctx, &domain.Category{Name: "Фильм", Slug: "movie"})
	_ = s.Catalog.CreateGenre(ctx, &domain.Genre{Name: "Драма", Slug: "drama"})
	title, err := s.Catalog.CreateTitle(ctx, domain.CreateTitleRequest{
		Name:     name,
		Year:     &year,
		Genre:    []string{"drama"},
		Category: "movie",
	})
	if err != nil {
		t.Fatalf("Failed to create title %s: %v", name, err)
	}
	return title
}
