package viewmodel

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/pkg/event"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
	"github.com/samber/lo"
)

type SortDirection int

const (
	SortDirectionAsc SortDirection = iota
	SortDirectionDesc
)

func (d SortDirection) Reverse() SortDirection {
	if d == SortDirectionAsc {
		return SortDirectionDesc
	}
	return SortDirectionAsc
}

func (d SortDirection) String() string {
	if d == SortDirectionDesc {
		return "DESC"
	}
	return "ASC"
}

type NewsViewModel struct {
	newsRepository core.NewsRepository
	scope          *scope.Scope
	now            func() time.Time

	sortDirection *flow.State[SortDirection]

	dataOnce sync.Once
	data     flow.Flow[[]core.NewsWithCreators]

	initJob *scope.Job

	NewsItemCreatedEvent             *event.Event
	LoadNewsExceptionEvent           *event.Event
	SaveNewsItemExceptionEvent       *event.Event
	EditNewsItemSavedEvent           *event.Event
	EditNewsItemExceptionEvent       *event.Event
	RemoveNewsItemExceptionEvent     *event.Event
	LoadNewsCategoriesExceptionEvent *event.Event
}

type NewsViewModelOption func(vm *NewsViewModel)

// WithClock replaces the clock used to pick the publish date cut-off of Data.
func WithClock(now func() time.Time) NewsViewModelOption {
	return func(vm *NewsViewModel) {
		vm.now = now
	}
}

// NewNewsViewModel starts a category sync followed by a news refresh. Their
// failures are only logged.
func NewNewsViewModel(ctx context.Context, newsRepository core.NewsRepository, opts ...NewsViewModelOption) *NewsViewModel {
	vm := &NewsViewModel{
		newsRepository:                   newsRepository,
		scope:                            scope.New(ctx),
		now:                              time.Now,
		sortDirection:                    flow.NewState(SortDirectionAsc),
		NewsItemCreatedEvent:             event.New("news_item_created"),
		LoadNewsExceptionEvent:           event.New("load_news_exception"),
		SaveNewsItemExceptionEvent:       event.New("save_news_item_exception"),
		EditNewsItemSavedEvent:           event.New("edit_news_item_saved"),
		EditNewsItemExceptionEvent:       event.New("edit_news_item_exception"),
		RemoveNewsItemExceptionEvent:     event.New("remove_news_item_exception"),
		LoadNewsCategoriesExceptionEvent: event.New("load_news_categories_exception"),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.initJob = vm.scope.Launch("initNews", func(ctx context.Context) {
		if err := vm.newsRepository.SaveCategories(ctx); err != nil {
			log.Printf("saveCategories failed: %v", err)
			return
		}
		if err := vm.newsRepository.RefreshNews(ctx); err != nil {
			log.Printf("refreshNews failed: %v", err)
		}
	})
	return vm
}

// Ready is closed once the initial category sync and refresh have finished.
func (vm *NewsViewModel) Ready() <-chan struct{} {
	return vm.initJob.Done()
}

// Data is the published news list in the current sort direction. The publish
// date cut-off is taken once, when Data is first called.
func (vm *NewsViewModel) Data() flow.Flow[[]core.NewsWithCreators] {
	vm.dataOnce.Do(func() {
		publishedUntil := vm.now().UnixMilli()
		news := vm.newsRepository.GetAllNews(vm.scope, true, publishedUntil)
		vm.data = flow.Combine(news, vm.sortDirection.Flow(), sortNews)
	})
	return vm.data
}

func sortNews(news []core.NewsWithCreators, sortDirection SortDirection) []core.NewsWithCreators {
	switch sortDirection {
	case SortDirectionDesc:
		return lo.Reverse(slices.Clone(news))
	default:
		return news
	}
}

func (vm *NewsViewModel) SortDirection() SortDirection {
	return vm.sortDirection.Value()
}

func (vm *NewsViewModel) OnRefresh() *scope.Job {
	return launchWithSignals(vm.scope, "refreshNews", vm.newsRepository.RefreshNews, nil, vm.LoadNewsExceptionEvent)
}

func (vm *NewsViewModel) OnSortDirectionButtonClicked() SortDirection {
	return vm.sortDirection.Update(SortDirection.Reverse)
}

func (vm *NewsViewModel) Save(newsItem core.News) *scope.Job {
	return launchWithSignals(vm.scope, "saveNewsItem", func(ctx context.Context) error {
		_, err := vm.newsRepository.SaveNewsItem(ctx, newsItem)
		return err
	}, vm.NewsItemCreatedEvent, vm.SaveNewsItemExceptionEvent)
}

func (vm *NewsViewModel) Edit(newsItem core.News) *scope.Job {
	return launchWithSignals(vm.scope, "editNewsItem", func(ctx context.Context) error {
		_, err := vm.newsRepository.EditNewsItem(ctx, newsItem)
		return err
	}, vm.EditNewsItemSavedEvent, vm.EditNewsItemExceptionEvent)
}

// Remove has no success signal.
func (vm *NewsViewModel) Remove(id int) *scope.Job {
	return launchWithSignals(vm.scope, "removeNewsItem", func(ctx context.Context) error {
		return vm.newsRepository.RemoveNewsItemById(ctx, id)
	}, nil, vm.RemoveNewsItemExceptionEvent)
}

func (vm *NewsViewModel) GetAllNewsCategories() flow.Flow[[]core.NewsCategory] {
	return flow.Catch(vm.newsRepository.GetAllNewsCategories(),
		onFlowFailure("getAllNewsCategories", vm.LoadNewsCategoriesExceptionEvent))
}

func (vm *NewsViewModel) FilterNewsByCategory(newsCategoryId int) flow.Flow[[]core.NewsWithCreators] {
	return flow.Catch(vm.newsRepository.FilterNewsByCategory(newsCategoryId),
		onFlowFailure("filterNewsByCategory", vm.LoadNewsExceptionEvent))
}

func (vm *NewsViewModel) FilterNewsByPublishDate(dateStart int64, dateEnd int64) flow.Flow[[]core.NewsWithCreators] {
	return flow.Catch(vm.newsRepository.FilterNewsByPublishDate(dateStart, dateEnd),
		onFlowFailure("filterNewsByPublishDate", vm.LoadNewsExceptionEvent))
}

func (vm *NewsViewModel) FilterNewsByCategoryAndPublishDate(newsCategoryId int, dateStart int64, dateEnd int64) flow.Flow[[]core.NewsWithCreators] {
	return flow.Catch(vm.newsRepository.FilterNewsByCategoryAndPublishDate(newsCategoryId, dateStart, dateEnd),
		onFlowFailure("filterNewsByCategoryAndPublishDate", vm.LoadNewsExceptionEvent))
}

func (vm *NewsViewModel) Close() {
	vm.scope.Cancel()
	vm.scope.Wait()
}
