package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/bjarke-xyz/fmh/ginutils"
	"github.com/bjarke-xyz/fmh/internal/config"
	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/repository"
	"github.com/bjarke-xyz/fmh/internal/viewmodel"
	"github.com/bjarke-xyz/fmh/jobs"
	"github.com/bjarke-xyz/fmh/pkg"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	newsCachePrefix   = "news:"
	newsIndexCacheTtl = 2 * time.Minute
)

type newsView struct {
	core.NewsWithCreators
	PublishedAgo string `json:"publishedAgo"`
}

type newsResponse struct {
	Direction string     `json:"direction,omitempty"`
	News      []newsView `json:"news"`
}

type newsIndex struct {
	Direction  string              `json:"direction"`
	Categories []core.NewsCategory `json:"categories"`
	News       []newsView          `json:"news"`
}

func toNewsViews(now time.Time, news []core.NewsWithCreators) []newsView {
	return lo.Map(news, func(n core.NewsWithCreators, _ int) newsView {
		return newsView{
			NewsWithCreators: n,
			PublishedAgo:     config.EnglishTimeagoConfig.FormatReference(time.UnixMilli(n.News.PublishDate), now),
		}
	})
}

func (a *api) invalidateNewsCache(ctx context.Context) {
	if err := a.context.Infra.Cache.Invalidate(ctx, newsCachePrefix); err != nil {
		log.Printf("error invalidating news cache: %v", err)
	}
}

// GetNews answers with the published news list, or with a filter when
// category or from/to are given.
func (a *api) GetNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		category := ginutils.OptionalIntQuery(c, "category")
		from := ginutils.OptionalInt64Query(c, "from")
		to := ginutils.OptionalInt64Query(c, "to")
		if (from == nil) != (to == nil) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be given together"})
			return
		}

		if category == nil && from == nil {
			news, err := flow.First(c.Request.Context(), a.news.Data())
			if err != nil {
				c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, newsResponse{
				Direction: a.news.SortDirection().String(),
				News:      toNewsViews(a.now(), news),
			})
			return
		}

		var filtered flow.Flow[[]core.NewsWithCreators]
		switch {
		case category != nil && from != nil:
			filtered = a.news.FilterNewsByCategoryAndPublishDate(*category, *from, *to)
		case category != nil:
			filtered = a.news.FilterNewsByCategory(*category)
		default:
			filtered = a.news.FilterNewsByPublishDate(*from, *to)
		}
		a.newsLock.Lock()
		news, err := flow.First(c.Request.Context(), filtered)
		a.newsLock.Unlock()
		if errors.Is(err, flow.ErrEmpty) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"signal": a.news.LoadNewsExceptionEvent.Name()})
			return
		}
		if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, newsResponse{News: toNewsViews(a.now(), news)})
	}
}

func (a *api) StreamNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		streamFlow(c, "news", flow.Map(a.news.Data(), func(news []core.NewsWithCreators) []newsView {
			return toNewsViews(a.now(), news)
		}))
	}
}

// GetNewsIndex loads categories and news concurrently and caches the result
// per sort direction until the next news mutation.
func (a *api) GetNewsIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		direction := a.news.SortDirection().String()
		index, err := repository.Remember(c.Request.Context(), a.context.Infra.Cache, newsCachePrefix+"index:"+direction, newsIndexCacheTtl,
			func(ctx context.Context) (newsIndex, error) {
				return a.loadNewsIndex(ctx, direction)
			})
		if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, index)
	}
}

func (a *api) loadNewsIndex(ctx context.Context, direction string) (newsIndex, error) {
	a.newsLock.Lock()
	defer a.newsLock.Unlock()
	categoriesPromise := pkg.NewPromise(func() ([]core.NewsCategory, error) {
		return flow.First(ctx, a.news.GetAllNewsCategories())
	})
	newsPromise := pkg.NewPromise(func() ([]core.NewsWithCreators, error) {
		return flow.First(ctx, a.news.Data())
	})
	categories, categoriesErr := categoriesPromise.GetContext(ctx)
	news, newsErr := newsPromise.GetContext(ctx)
	if err := errors.Join(categoriesErr, newsErr); err != nil {
		return newsIndex{}, err
	}
	return newsIndex{
		Direction:  direction,
		Categories: categories,
		News:       toNewsViews(a.now(), news),
	}, nil
}

func (a *api) GetNewsCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		a.newsLock.Lock()
		categories, err := flow.First(c.Request.Context(), a.news.GetAllNewsCategories())
		a.newsLock.Unlock()
		if errors.Is(err, flow.ErrEmpty) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"signal": a.news.LoadNewsCategoriesExceptionEvent.Name()})
			return
		}
		if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

func (a *api) ToggleNewsSort() gin.HandlerFunc {
	return func(c *gin.Context) {
		direction := a.news.OnSortDirectionButtonClicked()
		c.JSON(http.StatusOK, gin.H{"direction": direction.String()})
	}
}

func (a *api) RefreshNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := jobs.NewsRefresh(a.news, a.newsLock)(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"signal": a.news.LoadNewsExceptionEvent.Name()})
			return
		}
		a.invalidateNewsCache(c.Request.Context())
		c.Status(http.StatusAccepted)
	}
}

func (a *api) CreateNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		var item core.News
		if err := c.ShouldBindJSON(&item); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item.Id = nil
		a.newsLock.Lock()
		defer a.newsLock.Unlock()
		fired := viewmodel.Await(func() *scope.Job {
			return a.news.Save(item)
		}, a.news.NewsItemCreatedEvent, a.news.SaveNewsItemExceptionEvent)
		if fired[a.news.NewsItemCreatedEvent] {
			a.invalidateNewsCache(c.Request.Context())
		}
		respondSignal(c, fired, a.news.NewsItemCreatedEvent, http.StatusCreated, a.news.SaveNewsItemExceptionEvent, http.StatusInternalServerError)
	}
}

func (a *api) EditNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		var item core.News
		if err := c.ShouldBindJSON(&item); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item.Id = &id
		a.newsLock.Lock()
		defer a.newsLock.Unlock()
		fired := viewmodel.Await(func() *scope.Job {
			return a.news.Edit(item)
		}, a.news.EditNewsItemSavedEvent, a.news.EditNewsItemExceptionEvent)
		if fired[a.news.EditNewsItemSavedEvent] {
			a.invalidateNewsCache(c.Request.Context())
		}
		respondSignal(c, fired, a.news.EditNewsItemSavedEvent, http.StatusOK, a.news.EditNewsItemExceptionEvent, http.StatusInternalServerError)
	}
}

// RemoveNews answers 204 unless the failure signal fired; removal has no
// success signal.
func (a *api) RemoveNews() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		a.newsLock.Lock()
		defer a.newsLock.Unlock()
		fired := viewmodel.Await(func() *scope.Job {
			return a.news.Remove(id)
		}, a.news.RemoveNewsItemExceptionEvent)
		if !fired[a.news.RemoveNewsItemExceptionEvent] {
			a.invalidateNewsCache(c.Request.Context())
		}
		respondSignal(c, fired, nil, http.StatusNoContent, a.news.RemoveNewsItemExceptionEvent, http.StatusInternalServerError)
	}
}
