// internal/store/db.go
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/glebarez/go-sqlite" // Драйвер SQLite (dev и тесты)
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // Драйвер PostgreSQL и коды ошибок
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	// glebarez/go-sqlite регистрируется как "sqlite", sqlx о нем не знает
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open подключается к базе и проверяет соединение.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int, logger *slog.Logger) (*sqlx.DB, error) {
	logger.InfoContext(ctx, "Attempting to connect to database", slog.String("driver", driver), slog.String("dsn", redactDSN(dsn)))

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to database", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// in-memory база живет, пока живо единственное соединение
		maxOpenConns = 1
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to ping database", slog.String("error", err.Error()))
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	logger.InfoContext(ctx, "Successfully connected to database", slog.String("driver", driver))
	return db, nil
}

// Migrate применяет встроенную схему для драйвера соединения.
// Схема идемпотентна (CREATE ... IF NOT EXISTS).
func Migrate(ctx context.Context, db *sqlx.DB) error {
	name := "migrations/" + db.DriverName() + ".sql"
	schema, err := migrations.ReadFile(name)
	if err != nil {
		return fmt.Errorf("no schema for driver %q: %w", db.DriverName(), err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// uniqueViolation возвращает имя нарушенного ограничения (PostgreSQL)
// или список колонок (SQLite), если ошибка является нарушением уникальности.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" { // unique_violation
			return pqErr.Constraint, true
		}
		return "", false
	}
	const sqliteUnique = "UNIQUE constraint failed: "
	if msg := err.Error(); strings.Contains(msg, sqliteUnique) {
		return msg[strings.Index(msg, sqliteUnique)+len(sqliteUnique):], true
	}
	return "", false
}

// foreignKeyViolation сообщает, что строка ссылается на несуществующую запись.
func foreignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503" // foreign_key_violation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func redactDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return dsn
	}
	colon := strings.LastIndex(dsn[:at], ":")
	if colon < 0 || strings.HasPrefix(dsn[colon+1:], "//") {
		return dsn
	}
	return dsn[:colon] + ":********" + dsn[at:]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
