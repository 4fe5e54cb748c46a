package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/gin-gonic/gin"
)

type failingNewsRepository struct {
	core.NewsRepository
}

func (failingNewsRepository) RefreshNews(ctx context.Context) error {
	return errBoom
}

func (failingNewsRepository) SaveNewsItem(ctx context.Context, item core.News) (core.News, error) {
	return item, errBoom
}

func (failingNewsRepository) EditNewsItem(ctx context.Context, item core.News) (core.News, error) {
	return item, errBoom
}

func (failingNewsRepository) RemoveNewsItemById(ctx context.Context, id int) error {
	return errBoom
}

func (failingNewsRepository) GetAllNewsCategories() flow.Flow[[]core.NewsCategory] {
	return flow.Error[[]core.NewsCategory](errBoom)
}

func (failingNewsRepository) FilterNewsByCategory(newsCategoryId int) flow.Flow[[]core.NewsWithCreators] {
	return flow.Error[[]core.NewsWithCreators](errBoom)
}

type newsBody struct {
	Direction string `json:"direction"`
	News      []struct {
		News         core.News         `json:"news"`
		Category     core.NewsCategory `json:"category"`
		PublishedAgo string            `json:"publishedAgo"`
	} `json:"news"`
}

func (b newsBody) titles() []string {
	titles := make([]string, len(b.News))
	for i, n := range b.News {
		titles[i] = n.News.Title
	}
	return titles
}

type indexBody struct {
	newsBody
	Categories []core.NewsCategory `json:"categories"`
}

func equalTitles(a []string, b ...string) bool {
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

func createNews(t *testing.T, s *testServer, title string, categoryId int, publishDate int64) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/news", gin.H{
		"newsCategoryId": categoryId,
		"title":          title,
		"creatorId":      2,
		"publishDate":    publishDate,
		"publishEnabled": true,
	})
	expectStatus(t, w, http.StatusCreated)
	if got := decode[signalBody](t, w).Signal; got != "news_item_created" {
		t.Fatalf("got signal %q", got)
	}
}

func TestNewsRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	createNews(t, s, "Concert", 1, 100)
	createNews(t, s, "Water outage", 4, 200)

	w := s.do(t, http.MethodGet, "/api/news", nil)
	expectStatus(t, w, http.StatusOK)
	body := decode[newsBody](t, w)
	if body.Direction != "ASC" || !equalTitles(body.titles(), "Concert", "Water outage") {
		t.Fatalf("got %v %v", body.Direction, body.titles())
	}
	if body.News[0].PublishedAgo == "" {
		t.Errorf("got published ago %q", body.News[0].PublishedAgo)
	}
	if body.News[1].Category.Name != "Trade union" {
		t.Errorf("got category %+v", body.News[1].Category)
	}

	w = s.do(t, http.MethodPost, "/api/news/sort", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[newsBody](t, w).Direction; got != "DESC" {
		t.Errorf("got direction %q", got)
	}
	body = decode[newsBody](t, s.do(t, http.MethodGet, "/api/news", nil))
	if !equalTitles(body.titles(), "Water outage", "Concert") {
		t.Errorf("got %v after toggling the sort", body.titles())
	}

	var filters = []struct {
		query string
		want  []string
	}{
		{"?category=1", []string{"Concert"}},
		{"?from=150&to=250", []string{"Water outage"}},
		{"?category=4&from=0&to=150", []string{}},
	}
	for _, f := range filters {
		w := s.do(t, http.MethodGet, "/api/news"+f.query, nil)
		expectStatus(t, w, http.StatusOK)
		if got := decode[newsBody](t, w).titles(); !equalTitles(got, f.want...) {
			t.Errorf("%v: got %v, want %v", f.query, got, f.want)
		}
	}
	expectStatus(t, s.do(t, http.MethodGet, "/api/news?from=150", nil), http.StatusBadRequest)

	expectStatus(t, s.do(t, http.MethodPut, "/api/news/1", gin.H{
		"newsCategoryId": 5,
		"title":          "Concert moved",
		"publishDate":    100,
		"publishEnabled": true,
	}), http.StatusOK)

	w = s.do(t, http.MethodDelete, "/api/news/2", nil)
	expectStatus(t, w, http.StatusNoContent)
	if w.Body.Len() != 0 {
		t.Errorf("removal has no success signal, got body %q", w.Body.String())
	}
	w = s.do(t, http.MethodDelete, "/api/news/2", nil)
	expectStatus(t, w, http.StatusInternalServerError)
	if got := decode[signalBody](t, w).Signal; got != "remove_news_item_exception" {
		t.Errorf("got signal %q", got)
	}

	body = decode[newsBody](t, s.do(t, http.MethodGet, "/api/news", nil))
	if !equalTitles(body.titles(), "Concert moved") {
		t.Errorf("got %v", body.titles())
	}

	w = s.do(t, http.MethodGet, "/api/news/categories", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]core.NewsCategory](t, w); len(got) != 8 {
		t.Errorf("got %v categories", len(got))
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/news/refresh", nil), http.StatusAccepted)
}

func TestNewsIndexIsCachedUntilMutation(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	createNews(t, s, "Concert", 1, 100)

	w := s.do(t, http.MethodGet, "/api/news/index", nil)
	expectStatus(t, w, http.StatusOK)
	index := decode[indexBody](t, w)
	if len(index.Categories) != 8 || !equalTitles(index.titles(), "Concert") {
		t.Fatalf("got %+v", index)
	}

	_, err := s.appContext.Deps.NewsRepository.SaveNewsItem(context.Background(), core.News{
		NewsCategoryId: 2, Title: "Birthday", CreatorId: 2, PublishDate: 150, PublishEnabled: true,
	})
	if err != nil {
		t.Fatalf("error saving news: %v", err)
	}
	index = decode[indexBody](t, s.do(t, http.MethodGet, "/api/news/index", nil))
	if !equalTitles(index.titles(), "Concert") {
		t.Errorf("expected the cached index, got %v", index.titles())
	}

	createNews(t, s, "Massage day", 6, 175)
	index = decode[indexBody](t, s.do(t, http.MethodGet, "/api/news/index", nil))
	if !equalTitles(index.titles(), "Concert", "Birthday", "Massage day") {
		t.Errorf("expected a fresh index after a mutation, got %v", index.titles())
	}
}

func TestNewsFailureSignals(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, func(d *core.AppDeps) {
		d.NewsRepository = failingNewsRepository{d.NewsRepository}
	})
	var tests = []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantSignal string
	}{
		{"save", http.MethodPost, "/api/news", gin.H{"title": "t"}, http.StatusInternalServerError, "save_news_item_exception"},
		{"edit", http.MethodPut, "/api/news/1", gin.H{"title": "t"}, http.StatusInternalServerError, "edit_news_item_exception"},
		{"remove", http.MethodDelete, "/api/news/1", nil, http.StatusInternalServerError, "remove_news_item_exception"},
		{"categories", http.MethodGet, "/api/news/categories", nil, http.StatusBadGateway, "load_news_categories_exception"},
		{"filter", http.MethodGet, "/api/news?category=1", nil, http.StatusBadGateway, "load_news_exception"},
		{"refresh", http.MethodPost, "/api/news/refresh", nil, http.StatusBadGateway, "load_news_exception"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := s.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, w, tt.wantStatus)
			if got := decode[signalBody](t, w).Signal; got != tt.wantSignal {
				t.Errorf("got signal %q, want %q", got, tt.wantSignal)
			}
		})
	}
}

func TestStreamNews(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	createNews(t, s, "Concert", 1, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	w := s.doRequest(t, newRequest(t, http.MethodGet, "/api/news/stream", nil).WithContext(ctx))

	body := w.Body.String()
	if !strings.Contains(body, "event:news") || !strings.Contains(body, "Concert") {
		t.Errorf("got body %q", body)
	}
}
