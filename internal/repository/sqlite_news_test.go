package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
)

type staticNewsSource struct {
	items []core.RemoteNewsItem
	err   error
}

func (s *staticNewsSource) FetchNews(ctx context.Context) ([]core.RemoteNewsItem, error) {
	return s.items, s.err
}

func newTestNewsRepository(t *testing.T, source core.NewsSource) *sqliteNewsRepository {
	t.Helper()
	repo := newSqliteNews(newTestAppContext(t, source))
	repo.now = fixedClock(1_700_000_000_000)
	if err := repo.SaveCategories(context.Background()); err != nil {
		t.Fatalf("error saving categories: %v", err)
	}
	return repo
}

func saveTestNews(t *testing.T, repo *sqliteNewsRepository, news ...core.News) []int {
	t.Helper()
	ids := make([]int, 0, len(news))
	for _, n := range news {
		saved, err := repo.SaveNewsItem(context.Background(), n)
		if err != nil {
			t.Fatalf("error saving news: %v", err)
		}
		ids = append(ids, *saved.Id)
	}
	return ids
}

func newsTitles(news []core.NewsWithCreators) []string {
	result := make([]string, len(news))
	for i, n := range news {
		result[i] = n.News.Title
	}
	return result
}

func equalStrings(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGetSiteCategories(t *testing.T) {
	t.Parallel()

	// NOTE: not backed by a database, GetSiteCategories only reads the embedded json
	categories, err := newSqliteNews(nil).GetSiteCategories()
	if err != nil {
		t.Fatalf("error getting categories: %v", err)
	}
	seen := make(map[int]bool)
	for _, category := range categories {
		if category.Name == "" {
			t.Errorf("category %v has no name", category.Id)
		}
		if seen[category.Id] {
			t.Errorf("duplicate category id %v", category.Id)
		}
		seen[category.Id] = true
	}
}

func TestGetAllNewsCategories(t *testing.T) {
	t.Parallel()

	repo := newTestNewsRepository(t, nil)
	categories, err := flow.First(context.Background(), repo.GetAllNewsCategories())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 8 {
		t.Fatalf("got %v categories, want 8", len(categories))
	}
	for i, category := range categories {
		if category.Id != i+1 {
			t.Errorf("categories not ordered by id: %+v", categories)
			break
		}
	}
}

func TestGetAllNews(t *testing.T) {
	t.Parallel()

	repo := newTestNewsRepository(t, nil)
	saveTestNews(t, repo,
		core.News{NewsCategoryId: 2, Title: "later", CreatorId: 2, PublishDate: 300, PublishEnabled: true},
		core.News{NewsCategoryId: 1, Title: "earlier", CreatorId: 2, PublishDate: 100, PublishEnabled: true},
		core.News{NewsCategoryId: 1, Title: "draft", CreatorId: 2, PublishDate: 200, PublishEnabled: false},
		core.News{NewsCategoryId: 1, Title: "scheduled", CreatorId: 2, PublishDate: 900, PublishEnabled: true},
		core.News{NewsCategoryId: 3, Title: "just now", CreatorId: 2, PublishDate: 500, PublishEnabled: true},
		core.News{NewsCategoryId: 3, Title: "next moment", CreatorId: 2, PublishDate: 501, PublishEnabled: true},
	)

	news, err := flow.First(context.Background(), repo.GetAllNews(nil, true, 500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := newsTitles(news); !equalStrings(got, "earlier", "later", "just now") {
		t.Fatalf("got %v", got)
	}
	if news[0].Category.Name != "Announcement" || news[1].Category.Name != "Birthday" {
		t.Errorf("categories not enriched: %+v, %+v", news[0].Category, news[1].Category)
	}
	if news[0].Creator.LastName != "Ivanov" {
		t.Errorf("got creator %+v", news[0].Creator)
	}
	if news[0].News.CreateDate != 1_700_000_000_000 {
		t.Errorf("got create date %v", news[0].News.CreateDate)
	}
}

func TestGetAllNewsIsLiveAndOwned(t *testing.T) {
	t.Parallel()

	repo := newTestNewsRepository(t, nil)
	owner := scope.New(context.Background())

	ch := make(chan []core.NewsWithCreators)
	done := make(chan error, 1)
	go func() {
		done <- repo.GetAllNews(owner, true, 1000)(context.Background(), func(news []core.NewsWithCreators) error {
			ch <- news
			return nil
		})
	}()

	if got := next(t, ch); len(got) != 0 {
		t.Fatalf("expected no news, got %v", newsTitles(got))
	}
	saveTestNews(t, repo, core.News{NewsCategoryId: 1, Title: "water outage", CreatorId: 1, PublishDate: 10, PublishEnabled: true})
	if got := next(t, ch); !equalStrings(newsTitles(got), "water outage") {
		t.Fatalf("got %v", newsTitles(got))
	}

	owner.Cancel()
	if err := next(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestEditAndRemoveNewsItem(t *testing.T) {
	t.Parallel()

	repo := newTestNewsRepository(t, nil)
	ids := saveTestNews(t, repo,
		core.News{NewsCategoryId: 1, Title: "a", CreatorId: 1, PublishDate: 10, PublishEnabled: true},
		core.News{NewsCategoryId: 1, Title: "b", CreatorId: 1, PublishDate: 20, PublishEnabled: true},
	)

	_, err := repo.EditNewsItem(context.Background(), core.News{Id: &ids[0], NewsCategoryId: 3, Title: "a2", PublishDate: 30, PublishEnabled: true})
	if err != nil {
		t.Fatalf("error editing: %v", err)
	}
	if err := repo.RemoveNewsItemById(context.Background(), ids[1]); err != nil {
		t.Fatalf("error removing: %v", err)
	}
	if err := repo.RemoveNewsItemById(context.Background(), ids[1]); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	news, err := flow.First(context.Background(), repo.GetAllNews(nil, true, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(news) != 1 || news[0].News.Title != "a2" || news[0].Category.Name != "Salary" {
		t.Errorf("got %+v", news)
	}
}

func TestFilterNews(t *testing.T) {
	t.Parallel()

	repo := newTestNewsRepository(t, nil)
	saveTestNews(t, repo,
		core.News{NewsCategoryId: 1, Title: "c1-early", CreatorId: 1, PublishDate: 100},
		core.News{NewsCategoryId: 1, Title: "c1-late", CreatorId: 1, PublishDate: 500, PublishEnabled: true},
		core.News{NewsCategoryId: 2, Title: "c2-early", CreatorId: 1, PublishDate: 150, PublishEnabled: true},
	)

	var tests = []struct {
		name string
		f    flow.Flow[[]core.NewsWithCreators]
		want []string
	}{
		{"by category", repo.FilterNewsByCategory(1), []string{"c1-early", "c1-late"}},
		{"by publish date", repo.FilterNewsByPublishDate(100, 200), []string{"c1-early", "c2-early"}},
		{"by category and publish date", repo.FilterNewsByCategoryAndPublishDate(1, 400, 600), []string{"c1-late"}},
		{"empty", repo.FilterNewsByCategory(7), []string{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			news, err := flow.First(context.Background(), tt.f)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := newsTitles(news); !equalStrings(got, tt.want...) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefreshNewsUpsertsByExternalId(t *testing.T) {
	t.Parallel()

	source := &staticNewsSource{items: []core.RemoteNewsItem{
		{ExternalId: "a", NewsCategoryId: 1, Title: "Concert", PublishDate: 10},
		{ExternalId: "b", NewsCategoryId: 5, Title: "New year", PublishDate: 20},
	}}
	repo := newTestNewsRepository(t, source)

	if err := repo.RefreshNews(context.Background()); err != nil {
		t.Fatalf("error refreshing: %v", err)
	}
	source.items[0].Title = "Concert moved"
	if err := repo.RefreshNews(context.Background()); err != nil {
		t.Fatalf("error refreshing again: %v", err)
	}

	news, err := flow.First(context.Background(), repo.GetAllNews(nil, true, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := newsTitles(news); !equalStrings(got, "Concert moved", "New year") {
		t.Errorf("got %v", got)
	}
	if news[0].News.CreatorId != 1 {
		t.Errorf("imported news must belong to the feed creator, got %v", news[0].News.CreatorId)
	}
}

func TestRefreshNewsSourceFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("feed down")
	repo := newTestNewsRepository(t, &staticNewsSource{err: boom})
	if err := repo.RefreshNews(context.Background()); !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
}
