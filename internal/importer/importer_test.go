package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/store/storetest"
)

var fixture = map[string]string{
	"category.csv": "id,name,slug\n1,Фильм,movie\n2,Книга,book\n",
	"genre.csv":    "id,name,slug\n1,Драма,drama\n2,Комедия,comedy\n",
	"users.csv": "id,username,email,role,bio,first_name,last_name\n" +
		"100,bingobongo,bingobongo@yamdb.fake,user,,,\n" +
		"101,capt_obvious,capt_obvious@yamdb.fake,admin,,,\n" +
		"102,faust,faust@yamdb.fake,moderator,,,\n",
	"titles.csv": "id,name,year,category\n" +
		"1,Побег из Шоушенка,1994,1\n" +
		"2,Крестный отец,1972,1\n" +
		"3,Мастер и Маргарита,1967,\n",
	"genre_title.csv": "id,title_id,genre_id\n1,1,1\n2,2,1\n3,2,2\n",
	"review.csv": "id,title_id,text,author,score,pub_date\n" +
		"1,1,\"Отлично, смотреть всем\",100,10,2019-09-24T21:08:21.567Z\n" +
		"2,1,Неплохо,101,5,2019-09-24T21:08:21.567Z\n" +
		"3,2,Классика,102,7,\n",
	"comments.csv": "id,review_id,text,author,pub_date\n1,1,Согласен,102,2019-09-24T21:08:21.567Z\n",
}

func writeFixture(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRun(t *testing.T) {
	stores := storetest.NewStores(t)
	ctx := context.Background()

	stats, err := New(stores.DB, storetest.Logger()).Run(ctx, writeFixture(t, fixture))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := map[string]int{"categories": 2, "genres": 2, "users": 3, "titles": 3, "genre_title": 3, "reviews": 3, "comments": 1}
	for table, n := range want {
		if stats.Rows[table] != n {
			t.Errorf("rows[%s] = %d, want %d", table, stats.Rows[table], n)
		}
	}
	if stats.Ratings != 3 {
		t.Errorf("ratings = %d, want 3", stats.Ratings)
	}

	// (10 + 5) / 2 = 7.5 округляется до 8
	title, err := stores.Catalog.GetTitle(ctx, 1)
	if err != nil {
		t.Fatalf("GetTitle: %v", err)
	}
	if title.Rating == nil || *title.Rating != 8 {
		t.Errorf("rating = %v, want 8", title.Rating)
	}
	if title.Category == nil || title.Category.Slug != "movie" || len(title.Genres) != 1 {
		t.Errorf("unexpected relations %+v", title)
	}

	noCategory, err := stores.Catalog.GetTitle(ctx, 3)
	if err != nil {
		t.Fatalf("GetTitle: %v", err)
	}
	if noCategory.Category != nil || noCategory.Rating != nil {
		t.Errorf("title 3 should have no category and no rating: %+v", noCategory)
	}

	admin, err := stores.Users.GetByUsername(ctx, "capt_obvious")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if admin.ID != 101 || admin.Role != domain.RoleAdmin {
		t.Errorf("unexpected user %+v", admin)
	}

	// новые записи получают id после загруженных
	u := stores.CreateUser(t, "newcomer", domain.RoleUser)
	if u.ID <= 102 {
		t.Errorf("new user id = %d, want > 102", u.ID)
	}
}

func TestRunRollsBackOnError(t *testing.T) {
	stores := storetest.NewStores(t)
	ctx := context.Background()

	broken := make(map[string]string, len(fixture))
	for k, v := range fixture {
		broken[k] = v
	}
	broken["review.csv"] = "id,title_id,text,author,score,pub_date\n1,1,Плохо,100,abc,\n"

	_, err := New(stores.DB, storetest.Logger()).Run(ctx, writeFixture(t, broken))
	if err == nil || !strings.Contains(err.Error(), "review.csv:2") {
		t.Fatalf("got %v, want error pointing at review.csv:2", err)
	}
	if _, err := stores.Catalog.GetTitle(ctx, 1); err == nil {
		t.Error("titles must be rolled back after a failed import")
	}
}

func TestRunMissingFile(t *testing.T) {
	stores := storetest.NewStores(t)
	files := map[string]string{"category.csv": fixture["category.csv"]}

	_, err := New(stores.DB, storetest.Logger()).Run(context.Background(), writeFixture(t, files))
	if err == nil || !strings.Contains(err.Error(), "genre.csv") {
		t.Fatalf("got %v, want missing genre.csv error", err)
	}
}

func TestParseTime(t *testing.T) {
	for _, raw := range []string{"2019-09-24T21:08:21.567Z", "2019-09-24 21:08:21", "2019-09-24"} {
		if _, err := parseTime(raw); err != nil {
			t.Errorf("parseTime(%q): %v", raw, err)
		}
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Error("expected error for unparseable time")
	}
}
