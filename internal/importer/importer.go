// internal/importer/importer.go

// Package importer загружает начальные данные YaMDb из CSV файлов.
//
// Файлы читаются в порядке зависимостей (category, genre, users, titles,
// genre_title, review, comments), идентификаторы сохраняются как есть,
// вся загрузка идет одной транзакцией. После загрузки отзывов рейтинг
// каждого произведения пересчитывается.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MaxRadzey/api-yamdb/internal/review"
	"github.com/MaxRadzey/api-yamdb/internal/store"
)

type kind int

const (
	kindText kind = iota
	kindInt
	kindNullInt // пустое значение -> NULL
	kindTime
)

// table описывает один CSV файл и таблицу, в которую он загружается.
type table struct {
	file    string
	name    string
	rename  map[string]string // заголовок CSV -> колонка
	columns map[string]kind
	// defaults подставляются, если колонки нет в файле или значение пустое
	defaults map[string]string
}

var tables = []table{
	{
		file:    "category.csv",
		name:    "categories",
		columns: map[string]kind{"id": kindInt, "name": kindText, "slug": kindText},
	},
	{
		file:    "genre.csv",
		name:    "genres",
		columns: map[string]kind{"id": kindInt, "name": kindText, "slug": kindText},
	},
	{
		file: "users.csv",
		name: "users",
		columns: map[string]kind{
			"id": kindInt, "username": kindText, "email": kindText, "role": kindText,
			"bio": kindText, "first_name": kindText, "last_name": kindText,
		},
		defaults: map[string]string{"role": "user"},
	},
	{
		file:    "titles.csv",
		name:    "titles",
		rename:  map[string]string{"category": "category_id"},
		columns: map[string]kind{"id": kindInt, "name": kindText, "year": kindInt, "description": kindText, "category_id": kindNullInt},
	},
	{
		file:    "genre_title.csv",
		name:    "genre_title",
		columns: map[string]kind{"id": kindInt, "title_id": kindInt, "genre_id": kindInt},
	},
	{
		file:    "review.csv",
		name:    "reviews",
		rename:  map[string]string{"author": "author_id", "title": "title_id"},
		columns: map[string]kind{"id": kindInt, "title_id": kindInt, "author_id": kindInt, "text": kindText, "score": kindInt, "pub_date": kindTime},
	},
	{
		file:    "comments.csv",
		name:    "comments",
		rename:  map[string]string{"author": "author_id", "review": "review_id"},
		columns: map[string]kind{"id": kindInt, "review_id": kindInt, "author_id": kindInt, "text": kindText, "pub_date": kindTime},
	},
}

// Stats количество загруженных строк по таблицам и число пересчитанных рейтингов
type Stats struct {
	Rows    map[string]int
	Ratings int
}

// Importer загружает CSV в базу.
type Importer struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// New создает Importer.
func New(db *sqlx.DB, logger *slog.Logger) *Importer {
	return &Importer{db: db, logger: logger, now: time.Now}
}

// Run загружает все файлы из dir. При любой ошибке транзакция откатывается целиком.
func (im *Importer) Run(ctx context.Context, dir string) (*Stats, error) {
	stats := &Stats{Rows: make(map[string]int, len(tables))}

	tx, err := im.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tables {
		n, err := im.loadTable(ctx, tx, filepath.Join(dir, t.file), t)
		if err != nil {
			return nil, err
		}
		stats.Rows[t.name] = n
		im.logger.InfoContext(ctx, "Imported CSV file", slog.String("file", t.file), slog.Int("rows", n))
	}

	if stats.Ratings, err = recomputeRatings(ctx, tx); err != nil {
		return nil, err
	}
	if im.db.DriverName() == store.DriverPostgres {
		if err := resetSequences(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return stats, nil
}

func (im *Importer) loadTable(ctx context.Context, tx *sqlx.Tx, path string, t table) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", t.file, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read header of %s: %w", t.file, err)
	}

	// индексы колонок CSV, которые попадают в таблицу
	var cols []string
	var idx []int
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if renamed, ok := t.rename[name]; ok {
			name = renamed
		}
		if _, ok := t.columns[name]; !ok {
			im.logger.WarnContext(ctx, "Skipping unknown CSV column", slog.String("file", t.file), slog.String("column", h))
			continue
		}
		cols = append(cols, name)
		idx = append(idx, i)
	}
	if !slices.Contains(cols, "id") {
		return 0, fmt.Errorf("%s: header must contain id column", t.file)
	}
	var extra []string
	for col := range t.defaults {
		if !slices.Contains(cols, col) {
			extra = append(extra, col)
		}
	}
	all := append(append([]string{}, cols...), extra...)

	query := tx.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(all, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")))

	n := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("failed to read %s: %w", t.file, err)
		}
		line, _ := r.FieldPos(0)

		args := make([]any, 0, len(all))
		for j, col := range cols {
			raw := strings.TrimSpace(record[idx[j]])
			if raw == "" {
				if def, ok := t.defaults[col]; ok {
					raw = def
				}
			}
			v, err := im.convert(t.columns[col], raw)
			if err != nil {
				return n, fmt.Errorf("%s:%d: column %s: %w", t.file, line, col, err)
			}
			args = append(args, v)
		}
		for _, col := range extra {
			args = append(args, t.defaults[col])
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return n, fmt.Errorf("%s:%d: failed to insert into %s: %w", t.file, line, t.name, err)
		}
		n++
	}
	return n, nil
}

func (im *Importer) convert(k kind, raw string) (any, error) {
	switch k {
	case kindInt:
		return strconv.ParseInt(raw, 10, 64)
	case kindNullInt:
		if raw == "" {
			return nil, nil
		}
		return strconv.ParseInt(raw, 10, 64)
	case kindTime:
		if raw == "" {
			return im.now().UTC(), nil
		}
		return parseTime(raw)
	default:
		return raw, nil
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

// recomputeRatings пересчитывает рейтинг всех произведений по загруженным отзывам.
func recomputeRatings(ctx context.Context, tx *sqlx.Tx) (int, error) {
	var rows []struct {
		TitleID int64 `db:"title_id"`
		Score   int   `db:"score"`
	}
	if err := tx.SelectContext(ctx, &rows, `SELECT title_id, score FROM reviews ORDER BY title_id`); err != nil {
		return 0, fmt.Errorf("failed to load scores: %w", err)
	}
	scores := make(map[int64][]int)
	for _, r := range rows {
		scores[r.TitleID] = append(scores[r.TitleID], r.Score)
	}

	var titleIDs []int64
	if err := tx.SelectContext(ctx, &titleIDs, `SELECT id FROM titles`); err != nil {
		return 0, fmt.Errorf("failed to list titles: %w", err)
	}
	update := tx.Rebind(`UPDATE titles SET rating = ? WHERE id = ?`)
	for _, id := range titleIDs {
		if _, err := tx.ExecContext(ctx, update, review.AggregateRating(scores[id]), id); err != nil {
			return 0, fmt.Errorf("failed to store rating for title %d: %w", id, err)
		}
	}
	return len(titleIDs), nil
}

// resetSequences сдвигает BIGSERIAL последовательности за максимальный загруженный id.
func resetSequences(ctx context.Context, tx *sqlx.Tx) error {
	for _, t := range tables {
		query := fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM %[1]s`,
			t.name)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", t.name, err)
		}
	}
	return nil
}
