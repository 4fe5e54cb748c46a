package feed

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/metrics"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// Site is a group of feeds whose items land in one news category.
type Site struct {
	Name       string   `json:"name"`
	CategoryId int      `json:"categoryId"`
	Urls       []string `json:"urls"`
	Disabled   bool     `json:"disabled"`
}

//go:embed sitedata
var dataFs embed.FS

func LoadSites() ([]Site, error) {
	jsonBytes, err := dataFs.ReadFile("sitedata/feeds.json")
	if err != nil {
		return nil, fmt.Errorf("could not load feeds.json: %w", err)
	}
	var sites []Site
	err = json.Unmarshal(jsonBytes, &sites)
	if err != nil {
		return nil, err
	}
	return sites, nil
}

// Source fetches the configured RSS/Atom feeds and turns their items into
// news items.
type Source struct {
	sites     []Site
	client    *http.Client
	limiter   *hostLimiter
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

var _ core.NewsSource = (*Source)(nil)

type Option func(s *Source)

func WithSites(sites []Site) Option {
	return func(s *Source) {
		s.sites = sites
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

func NewSource(appContext *core.AppContext, opts ...Option) (*Source, error) {
	s := &Source{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   newHostLimiter(appContext.Config.FeedRequestsPerSecond, 1),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sites == nil {
		sites, err := LoadSites()
		if err != nil {
			return nil, err
		}
		s.sites = sites
	}
	return s, nil
}

// FetchNews fetches every enabled site concurrently. A failing site is logged
// and skipped; FetchNews fails only when no site could be fetched.
func (s *Source) FetchNews(ctx context.Context) ([]core.RemoteNewsItem, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	items := make([]core.RemoteNewsItem, 0)
	var siteErrs []error
	fetched := 0
	for _, site := range s.sites {
		if site.Disabled {
			continue
		}
		if len(site.Urls) == 0 {
			log.Printf("not getting items for %v: Urls list is empty", site.Name)
			continue
		}
		wg.Add(1)
		go func(site Site) {
			defer wg.Done()
			start := time.Now()
			siteItems, err := s.parse(ctx, site)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("FetchNews failed for %v: %v", site.Name, err)
				siteErrs = append(siteErrs, err)
				return
			}
			log.Printf("FetchNews: %v took %v to parse %v items", site.Name, time.Since(start), len(siteItems))
			fetched++
			items = append(items, siteItems...)
		}(site)
	}
	wg.Wait()
	if fetched == 0 && len(siteErrs) > 0 {
		return nil, errors.Join(siteErrs...)
	}
	return dedupe(items), nil
}

func dedupe(items []core.RemoteNewsItem) []core.RemoteNewsItem {
	seenIds := make(map[string]bool, len(items))
	result := make([]core.RemoteNewsItem, 0, len(items))
	for _, item := range items {
		if seenIds[item.ExternalId] {
			continue
		}
		seenIds[item.ExternalId] = true
		result = append(result, item)
	}
	return result
}

func (s *Source) parse(ctx context.Context, site Site) ([]core.RemoteNewsItem, error) {
	parsed := make([]core.RemoteNewsItem, 0)
	fp := gofeed.NewParser()
	for _, url := range site.Urls {
		content, err := s.getContent(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to get content for site %v: %w", site.Name, err)
		}
		feed, err := fp.ParseString(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse site %v: %w", site.Name, err)
		}
		for _, item := range feed.Items {
			parsed = append(parsed, s.convert(item, site))
		}
	}
	return parsed, nil
}

func (s *Source) convert(feedItem *gofeed.Item, site Site) core.RemoteNewsItem {
	published := feedItem.PublishedParsed
	if published == nil {
		published = feedItem.UpdatedParsed
	}
	if published == nil {
		now := s.now()
		published = &now
	}
	description := feedItem.Content
	if description == "" {
		description = feedItem.Description
	}
	return core.RemoteNewsItem{
		ExternalId:     core.ExternalNewsId(feedItem.Title, feedItem.Link),
		NewsCategoryId: site.CategoryId,
		Title:          strings.TrimSpace(s.sanitizer.Sanitize(feedItem.Title)),
		Description:    strings.TrimSpace(s.sanitizer.Sanitize(description)),
		Link:           feedItem.Link,
		PublishDate:    published.UnixMilli(),
	}
}

func (s *Source) getContent(ctx context.Context, url string) (string, error) {
	if err := s.limiter.Wait(ctx, url); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error getting %v: %w", url, err)
	}
	defer resp.Body.Close()
	metrics.FeedFetchStatusInc(fmt.Sprintf("%v", resp.StatusCode), url)
	if resp.StatusCode > 299 {
		return "", fmt.Errorf("error getting %v, returned error code %v", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading body of %v: %w", url, err)
	}
	return string(body), nil
}
