// internal/store/review_store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
)

const reviewSelect = `SELECT r.id, r.title_id, r.author_id, u.username AS author, r.text, r.score, r.pub_date
  FROM reviews r
  JOIN users u ON u.id = r.author_id`

const commentSelect = `SELECT c.id, c.review_id, c.author_id, u.username AS author, c.text, c.pub_date
  FROM comments c
  JOIN users u ON u.id = c.author_id
  JOIN reviews r ON r.id = c.review_id`

// SQLReviewStore реализует ReviewStore поверх sqlx.
type SQLReviewStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLReviewStore создает новый экземпляр SQLReviewStore.
func NewSQLReviewStore(db *sqlx.DB, logger *slog.Logger) (*SQLReviewStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for SQLReviewStore")
	}
	return &SQLReviewStore{db: db, logger: logger}, nil
}

// GetReview находит отзыв, принадлежащий указанному произведению.
func (s *SQLReviewStore) GetReview(ctx context.Context, titleID, reviewID int64) (*domain.Review, error) {
	return getReview(ctx, s.db, titleID, reviewID)
}

// ListReviews возвращает отзывы произведения в порядке публикации.
func (s *SQLReviewStore) ListReviews(ctx context.Context, titleID int64, page Page) ([]*domain.Review, int, error) {
	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, s.db.Rebind(`SELECT COUNT(*) FROM reviews WHERE title_id = ?`), titleID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count reviews by titleID in DB", slog.Int64("titleID", titleID), slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	reviews := []*domain.Review{}
	if totalCount == 0 {
		return reviews, 0, nil
	}

	query := reviewSelect + ` WHERE r.title_id = ? ORDER BY r.pub_date, r.id LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &reviews, s.db.Rebind(query), titleID, page.Limit, page.Offset); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list reviews by titleID from DB", slog.Int64("titleID", titleID), slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, totalCount, nil
}

// WithTx выполняет fn в транзакции. Любая ошибка из fn откатывает изменения.
func (s *SQLReviewStore) WithTx(ctx context.Context, fn func(tx ReviewTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin review transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&sqlReviewTx{tx: tx, lockRows: s.db.DriverName() == DriverPostgres}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.ErrorContext(ctx, "Failed to rollback review transaction", slog.String("error", rbErr.Error()))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit review transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// --- Комментарии ---

// GetComment находит комментарий по цепочке произведение -> отзыв -> комментарий.
func (s *SQLReviewStore) GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*domain.Comment, error) {
	var comment domain.Comment
	query := commentSelect + ` WHERE c.id = ? AND c.review_id = ? AND r.title_id = ?`
	if err := s.db.GetContext(ctx, &comment, s.db.Rebind(query), commentID, reviewID, titleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get comment from DB", slog.Int64("commentID", commentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &comment, nil
}

// ListComments возвращает комментарии к отзыву в порядке публикации.
func (s *SQLReviewStore) ListComments(ctx context.Context, reviewID int64, page Page) ([]*domain.Comment, int, error) {
	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, s.db.Rebind(`SELECT COUNT(*) FROM comments WHERE review_id = ?`), reviewID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count comments in DB", slog.Int64("reviewID", reviewID), slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}
	comments := []*domain.Comment{}
	if totalCount == 0 {
		return comments, 0, nil
	}

	query := commentSelect + ` WHERE c.review_id = ? ORDER BY c.pub_date, c.id LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &comments, s.db.Rebind(query), reviewID, page.Limit, page.Offset); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list comments from DB", slog.Int64("reviewID", reviewID), slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, totalCount, nil
}

// CreateComment сохраняет комментарий, заполняя ID и дату публикации.
func (s *SQLReviewStore) CreateComment(ctx context.Context, comment *domain.Comment) error {
	comment.CreatedAt = time.Now().UTC()
	query := `INSERT INTO comments (review_id, author_id, text, pub_date) VALUES (?, ?, ?, ?) RETURNING id`
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), comment.ReviewID, comment.AuthorID, comment.Text, comment.CreatedAt).Scan(&comment.ID); err != nil {
		if foreignKeyViolation(err) {
			// отзыв или автор удалены после проверки в сервисе
			return s.missingCommentParent(ctx, comment.ReviewID)
		}
		s.logger.ErrorContext(ctx, "Failed to create comment in DB", slog.Int64("reviewID", comment.ReviewID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to create comment: %w", err)
	}
	s.logger.InfoContext(ctx, "Comment created successfully in DB", slog.Int64("commentID", comment.ID))
	return nil
}

func (s *SQLReviewStore) missingCommentParent(ctx context.Context, reviewID int64) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM reviews WHERE id = ?)`), reviewID); err != nil {
		return fmt.Errorf("failed to check review: %w", err)
	}
	if !exists {
		return ErrReviewNotFound
	}
	return ErrUserNotFound
}

// UpdateComment обновляет текст комментария.
func (s *SQLReviewStore) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE comments SET text = ? WHERE id = ?`), comment.Text, comment.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update comment in DB", slog.Int64("commentID", comment.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update comment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// DeleteComment удаляет комментарий.
func (s *SQLReviewStore) DeleteComment(ctx context.Context, commentID int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM comments WHERE id = ?`), commentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete comment from DB", slog.Int64("commentID", commentID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// sqlReviewTx реализует ReviewTx поверх *sqlx.Tx.
type sqlReviewTx struct {
	tx       *sqlx.Tx
	lockRows bool // SELECT ... FOR UPDATE поддерживает только PostgreSQL
}

func (t *sqlReviewTx) LockTitle(ctx context.Context, titleID int64) error {
	query := `SELECT id FROM titles WHERE id = ?`
	if t.lockRows {
		query += ` FOR UPDATE`
	}
	var id int64
	if err := t.tx.GetContext(ctx, &id, t.tx.Rebind(query), titleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTitleNotFound
		}
		return fmt.Errorf("failed to lock title: %w", err)
	}
	return nil
}

func (t *sqlReviewTx) GetReview(ctx context.Context, titleID, reviewID int64) (*domain.Review, error) {
	return getReview(ctx, t.tx, titleID, reviewID)
}

func (t *sqlReviewTx) InsertReview(ctx context.Context, review *domain.Review) error {
	review.CreatedAt = time.Now().UTC()
	query := `INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (?, ?, ?, ?, ?) RETURNING id`
	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(query), review.TitleID, review.AuthorID, review.Text, review.Score, review.CreatedAt).Scan(&review.ID)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicateReview
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (t *sqlReviewTx) UpdateReview(ctx context.Context, review *domain.Review) error {
	result, err := t.tx.ExecContext(ctx, t.tx.Rebind(`UPDATE reviews SET text = ?, score = ? WHERE id = ?`), review.Text, review.Score, review.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (t *sqlReviewTx) DeleteReview(ctx context.Context, reviewID int64) error {
	result, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM reviews WHERE id = ?`), reviewID)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (t *sqlReviewTx) TitleScores(ctx context.Context, titleID int64) ([]int, error) {
	scores := []int{}
	if err := t.tx.SelectContext(ctx, &scores, t.tx.Rebind(`SELECT score FROM reviews WHERE title_id = ?`), titleID); err != nil {
		return nil, fmt.Errorf("failed to load title scores: %w", err)
	}
	return scores, nil
}

func (t *sqlReviewTx) SetTitleRating(ctx context.Context, titleID int64, rating *int) error {
	if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(`UPDATE titles SET rating = ? WHERE id = ?`), rating, titleID); err != nil {
		return fmt.Errorf("failed to store title rating: %w", err)
	}
	return nil
}

func (t *sqlReviewTx) DeleteUser(ctx context.Context, username string) ([]int64, error) {
	// блокировка строки пользователя не дает параллельно вставить его новый отзыв
	query := `SELECT id FROM users WHERE username = ?`
	if t.lockRows {
		query += ` FOR UPDATE`
	}
	var userID int64
	if err := t.tx.GetContext(ctx, &userID, t.tx.Rebind(query), username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	titleIDs := []int64{}
	if err := t.tx.SelectContext(ctx, &titleIDs,
		t.tx.Rebind(`SELECT DISTINCT title_id FROM reviews WHERE author_id = ? ORDER BY title_id`), userID); err != nil {
		return nil, fmt.Errorf("failed to list reviewed titles: %w", err)
	}
	// порядок по id исключает взаимные блокировки с другими транзакциями
	locked := titleIDs[:0]
	for _, id := range titleIDs {
		if err := t.LockTitle(ctx, id); err != nil {
			if errors.Is(err, ErrTitleNotFound) {
				continue // произведение удалено параллельно вместе с отзывами
			}
			return nil, err
		}
		locked = append(locked, id)
	}

	if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM users WHERE id = ?`), userID); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return locked, nil
}

// rebindQueryer общий интерфейс *sqlx.DB и *sqlx.Tx
type rebindQueryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getReview(ctx context.Context, q rebindQueryer, titleID, reviewID int64) (*domain.Review, error) {
	var review domain.Review
	query := reviewSelect + ` WHERE r.id = ? AND r.title_id = ?`
	if err := sqlx.GetContext(ctx, q, &review, q.Rebind(query), reviewID, titleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}
