// internal/store/catalog_store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
)

const titleSelect = `SELECT t.id, t.name, t.year, t.rating, t.description, t.category_id,
       c.name AS category_name, c.slug AS category_slug
  FROM titles t
  LEFT JOIN categories c ON c.id = t.category_id`

// titleRow строка произведения вместе с данными категории из LEFT JOIN
type titleRow struct {
	domain.Title
	CategoryName sql.NullString `db:"category_name"`
	CategorySlug sql.NullString `db:"category_slug"`
}

func (r *titleRow) toDomain() *domain.Title {
	t := r.Title
	if r.CategoryID != nil && r.CategorySlug.Valid {
		t.Category = &domain.Category{ID: *r.CategoryID, Name: r.CategoryName.String, Slug: r.CategorySlug.String}
	}
	t.Genres = []domain.Genre{}
	return &t
}

// genreLink жанр, привязанный к конкретному произведению
type genreLink struct {
	TitleID int64 `db:"title_id"`
	domain.Genre
}

// SQLCatalogStore реализует CatalogStore поверх sqlx.
type SQLCatalogStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLCatalogStore создает новый экземпляр SQLCatalogStore.
func NewSQLCatalogStore(db *sqlx.DB, logger *slog.Logger) (*SQLCatalogStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for SQLCatalogStore")
	}
	return &SQLCatalogStore{db: db, logger: logger}, nil
}

// --- Категории и жанры ---

func (s *SQLCatalogStore) CreateCategory(ctx context.Context, category *domain.Category) error {
	id, err := s.createItem(ctx, "categories", category.Name, category.Slug)
	if err != nil {
		return err
	}
	category.ID = id
	return nil
}

func (s *SQLCatalogStore) ListCategories(ctx context.Context, search string, page Page) ([]*domain.Category, int, error) {
	items := []*domain.Category{}
	total, err := s.listItems(ctx, "categories", search, page, &items)
	return items, total, err
}

func (s *SQLCatalogStore) DeleteCategory(ctx context.Context, slug string) error {
	return s.deleteItem(ctx, "categories", slug, ErrCategoryNotFound)
}

func (s *SQLCatalogStore) CreateGenre(ctx context.Context, genre *domain.Genre) error {
	id, err := s.createItem(ctx, "genres", genre.Name, genre.Slug)
	if err != nil {
		return err
	}
	genre.ID = id
	return nil
}

func (s *SQLCatalogStore) ListGenres(ctx context.Context, search string, page Page) ([]*domain.Genre, int, error) {
	items := []*domain.Genre{}
	total, err := s.listItems(ctx, "genres", search, page, &items)
	return items, total, err
}

func (s *SQLCatalogStore) DeleteGenre(ctx context.Context, slug string) error {
	return s.deleteItem(ctx, "genres", slug, ErrGenreNotFound)
}

// createItem вставляет категорию или жанр; table всегда константа из этого файла.
func (s *SQLCatalogStore) createItem(ctx context.Context, table, name, slug string) (int64, error) {
	query := `INSERT INTO ` + table + ` (name, slug) VALUES (?, ?) RETURNING id`

	s.logger.DebugContext(ctx, "Executing create catalog item query", slog.String("table", table), slog.String("slug", slug))
	var id int64
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), name, slug).Scan(&id); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			s.logger.WarnContext(ctx, "Catalog item already exists", slog.String("table", table), slog.String("constraint", constraint))
			if strings.Contains(constraint, "slug") {
				return 0, ErrSlugTaken
			}
			return 0, ErrNameTaken
		}
		s.logger.ErrorContext(ctx, "Failed to create catalog item in DB", slog.String("table", table), slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to create %s item: %w", table, err)
	}
	s.logger.InfoContext(ctx, "Catalog item created successfully in DB", slog.String("table", table), slog.String("slug", slug))
	return id, nil
}

func (s *SQLCatalogStore) listItems(ctx context.Context, table, search string, page Page, dest any) (int, error) {
	where, args := "", []any{}
	if search != "" {
		where = ` WHERE LOWER(name) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(search))
	}

	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, s.db.Rebind(`SELECT COUNT(*) FROM `+table+where), args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count catalog items", slog.String("table", table), slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	if totalCount == 0 {
		return 0, nil
	}

	query := `SELECT id, name, slug FROM ` + table + where + ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)
	if err := s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list catalog items", slog.String("table", table), slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return totalCount, nil
}

func (s *SQLCatalogStore) deleteItem(ctx context.Context, table, slug string, notFound error) error {
	s.logger.DebugContext(ctx, "Executing delete catalog item query", slog.String("table", table), slog.String("slug", slug))
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+table+` WHERE slug = ?`), slug)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete catalog item", slog.String("table", table), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound
	}
	s.logger.InfoContext(ctx, "Catalog item deleted successfully", slog.String("table", table), slog.String("slug", slug))
	return nil
}

// --- Произведения ---

// CreateTitle создает произведение и связи с жанрами в одной транзакции.
// Неизвестные слаги жанров или категории возвращают *domain.ValidationError.
func (s *SQLCatalogStore) CreateTitle(ctx context.Context, req domain.CreateTitleRequest) (*domain.Title, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		categoryID, err := categoryIDBySlug(ctx, tx, req.Category)
		if err != nil {
			return err
		}
		genreIDs, err := genreIDsBySlugs(ctx, tx, req.Genre)
		if err != nil {
			return err
		}

		query := `INSERT INTO titles (name, year, description, category_id) VALUES (?, ?, ?, ?) RETURNING id`
		if err := tx.QueryRowxContext(ctx, tx.Rebind(query), req.Name, *req.Year, req.Description, categoryID).Scan(&id); err != nil {
			return fmt.Errorf("failed to insert title: %w", err)
		}
		return linkGenres(ctx, tx, id, genreIDs)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to create title", slog.String("name", req.Name), slog.String("error", err.Error()))
		return nil, err
	}
	s.logger.InfoContext(ctx, "Title created successfully in DB", slog.Int64("titleID", id))
	return s.GetTitle(ctx, id)
}

// GetTitle возвращает произведение с категорией и жанрами.
func (s *SQLCatalogStore) GetTitle(ctx context.Context, id int64) (*domain.Title, error) {
	var row titleRow
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(titleSelect+` WHERE t.id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTitleNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get title by ID from DB", slog.Int64("titleID", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get title: %w", err)
	}
	titles := []*domain.Title{row.toDomain()}
	if err := s.attachGenres(ctx, titles); err != nil {
		return nil, err
	}
	return titles[0], nil
}

// ListTitles возвращает страницу произведений с учетом фильтров.
func (s *SQLCatalogStore) ListTitles(ctx context.Context, filter domain.TitleFilter, page Page) ([]*domain.Title, int, error) {
	var conds []string
	var args []any
	if filter.Name != "" {
		conds = append(conds, `LOWER(t.name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Name))
	}
	if filter.Year != nil {
		conds = append(conds, `t.year = ?`)
		args = append(args, *filter.Year)
	}
	if filter.Category != "" {
		conds = append(conds, `c.slug = ?`)
		args = append(args, filter.Category)
	}
	if filter.Genre != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM genre_title gt JOIN genres g ON g.id = gt.genre_id WHERE gt.title_id = t.id AND g.slug = ?)`)
		args = append(args, filter.Genre)
	}
	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var totalCount int
	countQuery := `SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id` + where
	if err := s.db.GetContext(ctx, &totalCount, s.db.Rebind(countQuery), args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count titles in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count titles: %w", err)
	}
	titles := []*domain.Title{}
	if totalCount == 0 {
		return titles, 0, nil
	}

	var rows []titleRow
	query := titleSelect + where + ` ORDER BY t.id LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)
	s.logger.DebugContext(ctx, "Executing ListTitles query", slog.String("query", query))
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list titles from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list titles: %w", err)
	}
	for i := range rows {
		titles = append(titles, rows[i].toDomain())
	}
	if err := s.attachGenres(ctx, titles); err != nil {
		return nil, 0, err
	}
	return titles, totalCount, nil
}

// UpdateTitle применяет частичное обновление. Жанры, если переданы, заменяются целиком.
func (s *SQLCatalogStore) UpdateTitle(ctx context.Context, id int64, req domain.UpdateTitleRequest) (*domain.Title, error) {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var sets []string
		var args []any
		if req.Name != nil {
			sets = append(sets, `name = ?`)
			args = append(args, *req.Name)
		}
		if req.Year != nil {
			sets = append(sets, `year = ?`)
			args = append(args, *req.Year)
		}
		if req.Description != nil {
			sets = append(sets, `description = ?`)
			args = append(args, *req.Description)
		}
		if req.Category != nil {
			categoryID, err := categoryIDBySlug(ctx, tx, *req.Category)
			if err != nil {
				return err
			}
			sets = append(sets, `category_id = ?`)
			args = append(args, categoryID)
		}

		// Пустой набор полей превращаем в no-op UPDATE, чтобы проверить существование
		if len(sets) == 0 {
			sets = append(sets, `id = id`)
		}
		args = append(args, id)
		result, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE titles SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
		if err != nil {
			return fmt.Errorf("failed to update title: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrTitleNotFound
		}

		if req.Genre != nil {
			genreIDs, err := genreIDsBySlugs(ctx, tx, *req.Genre)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM genre_title WHERE title_id = ?`), id); err != nil {
				return fmt.Errorf("failed to reset title genres: %w", err)
			}
			return linkGenres(ctx, tx, id, genreIDs)
		}
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to update title", slog.Int64("titleID", id), slog.String("error", err.Error()))
		return nil, err
	}
	s.logger.InfoContext(ctx, "Title updated successfully in DB", slog.Int64("titleID", id))
	return s.GetTitle(ctx, id)
}

// DeleteTitle удаляет произведение; отзывы и комментарии удаляются каскадно.
func (s *SQLCatalogStore) DeleteTitle(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM titles WHERE id = ?`), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete title from DB", slog.Int64("titleID", id), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete title: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTitleNotFound
	}
	s.logger.InfoContext(ctx, "Title deleted successfully from DB", slog.Int64("titleID", id))
	return nil
}

// TitleExists проверяет наличие произведения.
func (s *SQLCatalogStore) TitleExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM titles WHERE id = ?)`), id); err != nil {
		return false, fmt.Errorf("failed to check title existence: %w", err)
	}
	return exists, nil
}

// attachGenres подгружает жанры для набора произведений одним запросом.
func (s *SQLCatalogStore) attachGenres(ctx context.Context, titles []*domain.Title) error {
	if len(titles) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(titles))
	byID := make(map[int64]*domain.Title, len(titles))
	for _, t := range titles {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}

	query, args, err := sqlx.In(`SELECT gt.title_id, g.id, g.name, g.slug
  FROM genre_title gt
  JOIN genres g ON g.id = gt.genre_id
 WHERE gt.title_id IN (?)
 ORDER BY g.name`, ids)
	if err != nil {
		return fmt.Errorf("failed to build genres query: %w", err)
	}
	var links []genreLink
	if err := s.db.SelectContext(ctx, &links, s.db.Rebind(query), args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load title genres", slog.String("error", err.Error()))
		return fmt.Errorf("failed to load title genres: %w", err)
	}
	for _, l := range links {
		if t, ok := byID[l.TitleID]; ok {
			t.Genres = append(t.Genres, l.Genre)
		}
	}
	return nil
}

func (s *SQLCatalogStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func categoryIDBySlug(ctx context.Context, tx *sqlx.Tx, slug string) (int64, error) {
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM categories WHERE slug = ?`), slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NewValidationError("category", fmt.Sprintf("category %q does not exist", slug))
		}
		return 0, fmt.Errorf("failed to resolve category: %w", err)
	}
	return id, nil
}

func genreIDsBySlugs(ctx context.Context, tx *sqlx.Tx, slugs []string) ([]int64, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, slug FROM genres WHERE slug IN (?)`, slugs)
	if err != nil {
		return nil, fmt.Errorf("failed to build genre lookup: %w", err)
	}
	var genres []domain.Genre
	if err := tx.SelectContext(ctx, &genres, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to resolve genres: %w", err)
	}
	found := make(map[string]int64, len(genres))
	for _, g := range genres {
		found[g.Slug] = g.ID
	}
	ids := make([]int64, 0, len(slugs))
	seen := make(map[int64]bool, len(slugs))
	for _, slug := range slugs {
		id, ok := found[slug]
		if !ok {
			return nil, domain.NewValidationError("genre", fmt.Sprintf("genre %q does not exist", slug))
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func linkGenres(ctx context.Context, tx *sqlx.Tx, titleID int64, genreIDs []int64) error {
	for _, genreID := range genreIDs {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO genre_title (title_id, genre_id) VALUES (?, ?)`), titleID, genreID); err != nil {
			return fmt.Errorf("failed to link genre %d: %w", genreID, err)
		}
	}
	return nil
}
