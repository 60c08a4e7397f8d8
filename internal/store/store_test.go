package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/store"
	"github.com/MaxRadzey/api-yamdb/internal/store/storetest"
)

func TestUserStoreUniqueness(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()
	alice := s.CreateUser(t, "alice", domain.RoleUser)

	if alice.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	err := s.Users.Create(ctx, &domain.User{Username: "alice", Email: "other@example.com"})
	if !errors.Is(err, store.ErrUsernameTaken) {
		t.Errorf("duplicate username: got %v, want ErrUsernameTaken", err)
	}
	err = s.Users.Create(ctx, &domain.User{Username: "bob", Email: "alice@example.com"})
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Errorf("duplicate email: got %v, want ErrEmailTaken", err)
	}
	if !errors.Is(err, store.ErrUserAlreadyExists) {
		t.Errorf("ErrEmailTaken should wrap ErrUserAlreadyExists")
	}

	got, err := s.Users.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.Role != domain.RoleUser || got.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", got)
	}
	if _, err := s.Users.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("GetByEmail missing: got %v", err)
	}
}

func TestUserStoreListAndDelete(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()
	for _, name := range []string{"anna", "boris", "annette"} {
		s.CreateUser(t, name, domain.RoleUser)
	}

	users, total, err := s.Users.List(ctx, "ann", store.Page{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Errorf("search ann: got total=%d len=%d, want 2", total, len(users))
	}

	deleteUser := func(username string) ([]int64, error) {
		var ids []int64
		err := s.Reviews.WithTx(ctx, func(tx store.ReviewTx) error {
			var err error
			ids, err = tx.DeleteUser(ctx, username)
			return err
		})
		return ids, err
	}
	ids, err := deleteUser("boris")
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("boris has no reviews, got titles %v", ids)
	}
	if _, err := deleteUser("boris"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("second delete: got %v", err)
	}
	if _, err := s.Users.GetByUsername(ctx, "boris"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("boris still present: %v", err)
	}
}

func TestCatalogItems(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()

	if err := s.Catalog.CreateCategory(ctx, &domain.Category{Name: "Книга", Slug: "book"}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	err := s.Catalog.CreateCategory(ctx, &domain.Category{Name: "Книги", Slug: "book"})
	if !errors.Is(err, store.ErrSlugTaken) {
		t.Errorf("duplicate slug: got %v, want ErrSlugTaken", err)
	}
	err = s.Catalog.CreateCategory(ctx, &domain.Category{Name: "Книга", Slug: "books"})
	if !errors.Is(err, store.ErrNameTaken) {
		t.Errorf("duplicate name: got %v, want ErrNameTaken", err)
	}

	for _, g := range []domain.Genre{{Name: "Rock", Slug: "rock"}, {Name: "Rap", Slug: "rap"}, {Name: "Jazz", Slug: "jazz"}} {
		g := g
		if err := s.Catalog.CreateGenre(ctx, &g); err != nil {
			t.Fatalf("CreateGenre: %v", err)
		}
	}
	genres, total, err := s.Catalog.ListGenres(ctx, "R", store.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListGenres: %v", err)
	}
	if total != 2 || genres[0].Slug != "rap" || genres[1].Slug != "rock" {
		t.Errorf("unexpected search result: total=%d %+v", total, genres)
	}

	if err := s.Catalog.DeleteGenre(ctx, "jazz"); err != nil {
		t.Fatalf("DeleteGenre: %v", err)
	}
	if err := s.Catalog.DeleteGenre(ctx, "jazz"); !errors.Is(err, store.ErrGenreNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}

func TestTitleLifecycle(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()
	title := s.CreateTitle(t, "Мост через реку Квай", 1957)

	if title.Rating != nil {
		t.Errorf("new title must have no rating, got %d", *title.Rating)
	}
	if title.Category == nil || title.Category.Slug != "movie" {
		t.Errorf("unexpected category: %+v", title.Category)
	}
	if len(title.Genres) != 1 || title.Genres[0].Slug != "drama" {
		t.Errorf("unexpected genres: %+v", title.Genres)
	}

	year := 1958
	_, err := s.Catalog.UpdateTitle(ctx, title.ID, domain.UpdateTitleRequest{Year: &year, Genre: &[]string{"unknown"}})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "genre" {
		t.Fatalf("unknown genre: got %v, want validation error on genre", err)
	}
	unchanged, err := s.Catalog.GetTitle(ctx, title.ID)
	if err != nil {
		t.Fatalf("GetTitle: %v", err)
	}
	if unchanged.Year != 1957 {
		t.Errorf("failed update must roll back, year=%d", unchanged.Year)
	}

	if err := s.Catalog.DeleteCategory(ctx, "movie"); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	detached, err := s.Catalog.GetTitle(ctx, title.ID)
	if err != nil {
		t.Fatalf("GetTitle after category delete: %v", err)
	}
	if detached.Category != nil {
		t.Errorf("category must be detached, got %+v", detached.Category)
	}

	if err := s.Catalog.DeleteTitle(ctx, title.ID); err != nil {
		t.Fatalf("DeleteTitle: %v", err)
	}
	if _, err := s.Catalog.GetTitle(ctx, title.ID); !errors.Is(err, store.ErrTitleNotFound) {
		t.Errorf("GetTitle after delete: got %v", err)
	}
}

func TestListTitlesFilters(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()
	s.CreateTitle(t, "Солярис", 1972)
	s.CreateTitle(t, "Сталкер", 1979)
	if err := s.Catalog.CreateGenre(ctx, &domain.Genre{Name: "Фантастика", Slug: "sci-fi"}); err != nil {
		t.Fatalf("CreateGenre: %v", err)
	}
	year := 1979
	if _, err := s.Catalog.CreateTitle(ctx, domain.CreateTitleRequest{Name: "Alien", Year: &year, Genre: []string{"sci-fi", "drama"}, Category: "movie"}); err != nil {
		t.Fatalf("CreateTitle: %v", err)
	}

	cases := []struct {
		name   string
		filter domain.TitleFilter
		want   int
	}{
		{"all", domain.TitleFilter{}, 3},
		{"by year", domain.TitleFilter{Year: &year}, 2},
		{"by genre", domain.TitleFilter{Genre: "sci-fi"}, 1},
		{"by category", domain.TitleFilter{Category: "movie"}, 3},
		{"by name", domain.TitleFilter{Name: "ALI"}, 1},
		{"nothing", domain.TitleFilter{Category: "book"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			titles, total, err := s.Catalog.ListTitles(ctx, tc.filter, store.Page{Limit: 10})
			if err != nil {
				t.Fatalf("ListTitles: %v", err)
			}
			if total != tc.want || len(titles) != tc.want {
				t.Errorf("got total=%d len=%d, want %d", total, len(titles), tc.want)
			}
		})
	}
}

func TestReviewTxDuplicate(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()
	author := s.CreateUser(t, "critic", domain.RoleUser)
	title := s.CreateTitle(t, "Зеркало", 1975)

	insert := func() error {
		return s.Reviews.WithTx(ctx, func(tx store.ReviewTx) error {
			if err := tx.LockTitle(ctx, title.ID); err != nil {
				return err
			}
			return tx.InsertReview(ctx, &domain.Review{TitleID: title.ID, AuthorID: author.ID, Text: "ok", Score: 7})
		})
	}
	if err := insert(); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if err := insert(); !errors.Is(err, store.ErrDuplicateReview) {
		t.Errorf("second review: got %v, want ErrDuplicateReview", err)
	}

	reviews, total, err := s.Reviews.ListReviews(ctx, title.ID, store.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if total != 1 || reviews[0].Author != "critic" {
		t.Errorf("unexpected reviews: total=%d %+v", total, reviews)
	}

	err = s.Reviews.WithTx(ctx, func(tx store.ReviewTx) error { return tx.LockTitle(ctx, title.ID+100) })
	if !errors.Is(err, store.ErrTitleNotFound) {
		t.Errorf("lock missing title: got %v", err)
	}
}

func TestCommentScopedToTitle(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()
	author := s.CreateUser(t, "reader", domain.RoleUser)
	title := s.CreateTitle(t, "Андрей Рублев", 1966)
	other := s.CreateTitle(t, "Иваново детство", 1962)

	review := &domain.Review{TitleID: title.ID, AuthorID: author.ID, Text: "great", Score: 9}
	if err := s.Reviews.WithTx(ctx, func(tx store.ReviewTx) error { return tx.InsertReview(ctx, review) }); err != nil {
		t.Fatalf("InsertReview: %v", err)
	}
	comment := &domain.Comment{ReviewID: review.ID, AuthorID: author.ID, Text: "agree"}
	if err := s.Reviews.CreateComment(ctx, comment); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	if _, err := s.Reviews.GetComment(ctx, title.ID, review.ID, comment.ID); err != nil {
		t.Errorf("GetComment: %v", err)
	}
	if _, err := s.Reviews.GetComment(ctx, other.ID, review.ID, comment.ID); !errors.Is(err, store.ErrCommentNotFound) {
		t.Errorf("GetComment under wrong title: got %v", err)
	}

	if err := s.Catalog.DeleteTitle(ctx, title.ID); err != nil {
		t.Fatalf("DeleteTitle: %v", err)
	}
	comments, total, err := s.Reviews.ListComments(ctx, review.ID, store.Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if total != 0 || len(comments) != 0 {
		t.Errorf("comments must cascade with title, got %d", total)
	}
}

func TestSearchMatchesLiterally(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()
	for _, name := range []string{"a_b", "axb", "100%", "1000"} {
		s.CreateUser(t, name, domain.RoleUser)
	}

	tests := []struct {
		search string
		want   int
	}{
		{"a_b", 1},
		{"_", 1},
		{"0%", 1},
		{"x", 1},
	}
	for _, tt := range tests {
		_, total, err := s.Users.List(ctx, tt.search, store.Page{Limit: 10})
		if err != nil {
			t.Fatalf("List(%q): %v", tt.search, err)
		}
		if total != tt.want {
			t.Errorf("List(%q) total = %d, want %d", tt.search, total, tt.want)
		}
	}

	if err := s.Catalog.CreateGenre(ctx, &domain.Genre{Name: "sci_fi", Slug: "sci-fi"}); err != nil {
		t.Fatalf("CreateGenre: %v", err)
	}
	if err := s.Catalog.CreateGenre(ctx, &domain.Genre{Name: "scixfi", Slug: "scixfi"}); err != nil {
		t.Fatalf("CreateGenre: %v", err)
	}
	if _, total, err := s.Catalog.ListGenres(ctx, "i_f", store.Page{Limit: 10}); err != nil || total != 1 {
		t.Errorf("ListGenres(i_f) = %d, %v; want 1", total, err)
	}
}

func TestCreateCommentOnDeletedReview(t *testing.T) {
	s := storetest.NewStores(t)
	ctx := context.Background()
	author := s.CreateUser(t, "carol", domain.RoleUser)

	err := s.Reviews.CreateComment(ctx, &domain.Comment{ReviewID: 4242, AuthorID: author.ID, Text: "late"})
	if !errors.Is(err, store.ErrReviewNotFound) {
		t.Errorf("got %v, want ErrReviewNotFound", err)
	}
}
