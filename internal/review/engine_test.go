package review

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/policy"
	"github.com/MaxRadzey/api-yamdb/internal/store"
	"github.com/MaxRadzey/api-yamdb/internal/store/storetest"
)

func newTestEngine(t *testing.T) (*Engine, *storetest.Stores) {
	t.Helper()
	s := storetest.NewStores(t)
	return NewEngine(s.Reviews, s.Catalog, storetest.Logger()), s
}

func titleRating(t *testing.T, s *storetest.Stores, titleID int64) *int {
	t.Helper()
	title, err := s.Catalog.GetTitle(context.Background(), titleID)
	if err != nil {
		t.Fatalf("GetTitle: %v", err)
	}
	return title.Rating
}

func TestRatingScenario(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	title := s.CreateTitle(t, "Bridge on the River Kwai", 1957)
	alice := s.CreateUser(t, "alice", domain.RoleUser)
	bob := s.CreateUser(t, "bob", domain.RoleUser)

	first, err := engine.CreateReview(ctx, alice, title.ID, "solid", 5)
	if err != nil {
		t.Fatalf("alice review: %v", err)
	}
	if got := titleRating(t, s, title.ID); got == nil || *got != 5 {
		t.Fatalf("rating after first review = %v, want 5", got)
	}

	if _, err := engine.CreateReview(ctx, alice, title.ID, "again", 9); !errors.Is(err, store.ErrDuplicateReview) {
		t.Errorf("second review by alice: got %v, want ErrDuplicateReview", err)
	}

	second, err := engine.CreateReview(ctx, bob, title.ID, "meh", 3)
	if err != nil {
		t.Fatalf("bob review: %v", err)
	}
	if got := titleRating(t, s, title.ID); got == nil || *got != 4 {
		t.Fatalf("rating after two reviews = %v, want 4", got)
	}

	if err := engine.DeleteReview(ctx, alice, title.ID, first.ID); err != nil {
		t.Fatalf("delete alice review: %v", err)
	}
	if got := titleRating(t, s, title.ID); got == nil || *got != 3 {
		t.Fatalf("rating after delete = %v, want 3", got)
	}

	if err := engine.DeleteReview(ctx, bob, title.ID, second.ID); err != nil {
		t.Fatalf("delete bob review: %v", err)
	}
	if got := titleRating(t, s, title.ID); got != nil {
		t.Fatalf("rating without reviews = %d, want nil", *got)
	}
}

func TestUpdateReviewRecomputesRating(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	title := s.CreateTitle(t, "Сталкер", 1979)
	alice := s.CreateUser(t, "alice", domain.RoleUser)
	moderator := s.CreateUser(t, "mod", domain.RoleModerator)
	mallory := s.CreateUser(t, "mallory", domain.RoleUser)

	r, err := engine.CreateReview(ctx, alice, title.ID, "good", 6)
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}

	score := 2
	if _, err := engine.UpdateReview(ctx, mallory, title.ID, r.ID, domain.UpdateReviewRequest{Score: &score}); !errors.Is(err, policy.ErrForbidden) {
		t.Errorf("foreign update: got %v, want ErrForbidden", err)
	}
	if _, err := engine.UpdateReview(ctx, nil, title.ID, r.ID, domain.UpdateReviewRequest{Score: &score}); !errors.Is(err, policy.ErrUnauthenticated) {
		t.Errorf("anonymous update: got %v, want ErrUnauthenticated", err)
	}

	updated, err := engine.UpdateReview(ctx, moderator, title.ID, r.ID, domain.UpdateReviewRequest{Score: &score})
	if err != nil {
		t.Fatalf("moderator update: %v", err)
	}
	if updated.Score != 2 || updated.Text != "good" || updated.Author != "alice" {
		t.Errorf("unexpected review after update: %+v", updated)
	}
	if got := titleRating(t, s, title.ID); got == nil || *got != 2 {
		t.Errorf("rating after update = %v, want 2", got)
	}

	bad := 11
	_, err = engine.UpdateReview(ctx, alice, title.ID, r.ID, domain.UpdateReviewRequest{Score: &bad})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "score" {
		t.Errorf("out of range score: got %v", err)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	title := s.CreateTitle(t, "Солярис", 1972)
	alice := s.CreateUser(t, "alice", domain.RoleUser)

	var vErr *domain.ValidationError
	for _, score := range []int{0, 11, -3} {
		if _, err := engine.CreateReview(ctx, alice, title.ID, "text", score); !errors.As(err, &vErr) {
			t.Errorf("score %d: got %v, want ValidationError", score, err)
		}
	}
	if _, err := engine.CreateReview(ctx, alice, title.ID, "   ", 5); !errors.As(err, &vErr) {
		t.Errorf("blank text: got %v, want ValidationError", err)
	}
	if _, err := engine.CreateReview(ctx, nil, title.ID, "text", 5); !errors.Is(err, policy.ErrUnauthenticated) {
		t.Errorf("anonymous: got %v", err)
	}
	if _, err := engine.CreateReview(ctx, alice, title.ID+42, "text", 5); !errors.Is(err, store.ErrTitleNotFound) {
		t.Errorf("missing title: got %v", err)
	}
	if _, _, err := engine.ListReviews(ctx, title.ID+42, store.Page{Limit: 10}); !errors.Is(err, store.ErrTitleNotFound) {
		t.Errorf("list for missing title: got %v", err)
	}
}

func TestConcurrentDuplicateReviews(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	title := s.CreateTitle(t, "Жертвоприношение", 1986)
	alice := s.CreateUser(t, "alice", domain.RoleUser)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.CreateReview(ctx, alice, title.ID, "race", 8)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrDuplicateReview):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("succeeded = %d, want exactly 1", succeeded)
	}
	_, total, err := engine.ListReviews(ctx, title.ID, store.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if total != 1 {
		t.Errorf("stored reviews = %d, want 1", total)
	}
}

func TestCommentLifecycle(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	title := s.CreateTitle(t, "Ностальгия", 1983)
	alice := s.CreateUser(t, "alice", domain.RoleUser)
	bob := s.CreateUser(t, "bob", domain.RoleUser)
	admin := s.CreateUser(t, "root", domain.RoleAdmin)

	r, err := engine.CreateReview(ctx, alice, title.ID, "slow but great", 9)
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}

	var ids []int64
	for i := 0; i < 3; i++ {
		c, err := engine.CreateComment(ctx, bob, title.ID, r.ID, "reply")
		if err != nil {
			t.Fatalf("CreateComment #%d: %v", i, err)
		}
		ids = append(ids, c.ID)
	}
	comments, total, err := engine.ListComments(ctx, title.ID, r.ID, store.Page{Limit: 2})
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if total != 3 || len(comments) != 2 || comments[0].ID != ids[0] {
		t.Errorf("unexpected page: total=%d len=%d", total, len(comments))
	}

	text := "edited"
	if _, err := engine.UpdateComment(ctx, alice, title.ID, r.ID, ids[0], domain.UpdateCommentRequest{Text: &text}); !errors.Is(err, policy.ErrForbidden) {
		t.Errorf("foreign comment update: got %v", err)
	}
	c, err := engine.UpdateComment(ctx, bob, title.ID, r.ID, ids[0], domain.UpdateCommentRequest{Text: &text})
	if err != nil || c.Text != "edited" {
		t.Errorf("own comment update: %v %+v", err, c)
	}
	if err := engine.DeleteComment(ctx, admin, title.ID, r.ID, ids[1]); err != nil {
		t.Errorf("admin delete: %v", err)
	}
	if _, err := engine.GetComment(ctx, title.ID, r.ID, ids[1]); !errors.Is(err, store.ErrCommentNotFound) {
		t.Errorf("deleted comment: got %v", err)
	}

	if _, err := engine.CreateComment(ctx, bob, title.ID, r.ID+100, "lost"); !errors.Is(err, store.ErrReviewNotFound) {
		t.Errorf("comment to missing review: got %v", err)
	}
	if got := titleRating(t, s, title.ID); got == nil || *got != 9 {
		t.Errorf("comments must not affect rating, got %v", got)
	}
}

func TestDeleteUserRecomputesRatings(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	admin := s.CreateUser(t, "root", domain.RoleAdmin)
	alice := s.CreateUser(t, "alice", domain.RoleUser)
	bob := s.CreateUser(t, "bob", domain.RoleUser)
	solo := s.CreateTitle(t, "Alien", 1979)
	shared := s.CreateTitle(t, "Aliens", 1986)

	if _, err := engine.CreateReview(ctx, alice, solo.ID, "scary", 7); err != nil {
		t.Fatalf("alice on solo: %v", err)
	}
	if _, err := engine.CreateReview(ctx, alice, shared.ID, "loud", 9); err != nil {
		t.Fatalf("alice on shared: %v", err)
	}
	bobReview, err := engine.CreateReview(ctx, bob, shared.ID, "fine", 4)
	if err != nil {
		t.Fatalf("bob on shared: %v", err)
	}
	if _, err := engine.CreateComment(ctx, alice, shared.ID, bobReview.ID, "disagree"); err != nil {
		t.Fatalf("alice comment: %v", err)
	}

	if err := engine.DeleteUser(ctx, bob, "alice"); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("non-admin delete: got %v, want ErrForbidden", err)
	}
	if err := engine.DeleteUser(ctx, admin, "alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	// у произведения без отзывов рейтинг null, а не последнее значение
	reviews, total, err := engine.ListReviews(ctx, solo.ID, store.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if total != 0 || len(reviews) != 0 {
		t.Fatalf("solo reviews left: %d", total)
	}
	if r := titleRating(t, s, solo.ID); r != nil {
		t.Errorf("solo rating = %d, want null", *r)
	}
	if r := titleRating(t, s, shared.ID); r == nil || *r != 4 {
		t.Errorf("shared rating = %v, want 4", r)
	}
	if _, total, _ := engine.ListComments(ctx, shared.ID, bobReview.ID, store.Page{Limit: 10}); total != 0 {
		t.Errorf("alice comments left: %d", total)
	}

	if err := engine.DeleteUser(ctx, admin, "alice"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("repeated delete: got %v, want ErrUserNotFound", err)
	}
}
