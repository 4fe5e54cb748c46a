package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/pkg/event"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
)

var errRepository = errors.New("repository failure")

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == name {
			n++
		}
	}
	return n
}

func (c *callLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeClaimRepository struct {
	callLog
	err       error
	fullClaim core.FullClaim
}

func (f *fakeClaimRepository) GetClaimById(id int) flow.Flow[core.FullClaim] {
	f.record("GetClaimById")
	return flow.Of(f.fullClaim)
}

func (f *fakeClaimRepository) SaveClaimComment(ctx context.Context, claimId int, comment core.ClaimComment) (core.ClaimComment, error) {
	f.record("SaveClaimComment")
	return comment, f.err
}

func (f *fakeClaimRepository) ChangeClaimComment(ctx context.Context, comment core.ClaimComment) (core.ClaimComment, error) {
	f.record("ChangeClaimComment")
	return comment, f.err
}

func (f *fakeClaimRepository) SaveClaim(ctx context.Context, claim core.Claim) (core.Claim, error) {
	f.record("SaveClaim")
	return claim, f.err
}

func (f *fakeClaimRepository) EditClaim(ctx context.Context, claim core.Claim) (core.Claim, error) {
	f.record("EditClaim")
	return claim, f.err
}

func (f *fakeClaimRepository) GetAllCommentsForClaim(ctx context.Context, id int) ([]core.ClaimComment, error) {
	f.record("GetAllCommentsForClaim")
	return nil, f.err
}

func (f *fakeClaimRepository) ChangeClaimStatus(ctx context.Context, claimId int, status core.ClaimStatus, executorId *int, comment core.ClaimComment) (core.Claim, error) {
	f.record("ChangeClaimStatus")
	return core.Claim{Id: &claimId, Status: status, ExecutorId: executorId}, f.err
}

type fakeNewsRepository struct {
	callLog
	err       error
	filterErr error
	news      *flow.State[int]
	items     [][]core.NewsWithCreators

	mu                sync.Mutex
	publishedUntil []int64
}

func newFakeNewsRepository(items ...core.NewsWithCreators) *fakeNewsRepository {
	return &fakeNewsRepository{
		news:  flow.NewState(0),
		items: [][]core.NewsWithCreators{items},
	}
}

// publish makes the live GetAllNews stream emit a new list.
func (f *fakeNewsRepository) publish(items ...core.NewsWithCreators) {
	f.mu.Lock()
	f.items = append(f.items, items)
	version := len(f.items) - 1
	f.mu.Unlock()
	f.news.Set(version)
}

func (f *fakeNewsRepository) SaveCategories(ctx context.Context) error {
	f.record("SaveCategories")
	return f.err
}

func (f *fakeNewsRepository) RefreshNews(ctx context.Context) error {
	f.record("RefreshNews")
	return f.err
}

func (f *fakeNewsRepository) GetAllNews(owner *scope.Scope, publishEnabled bool, publishedUntil int64) flow.Flow[[]core.NewsWithCreators] {
	f.record("GetAllNews")
	f.mu.Lock()
	f.publishedUntil = append(f.publishedUntil, publishedUntil)
	f.mu.Unlock()
	return flow.Map(f.news.Flow(), func(version int) []core.NewsWithCreators {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.items[version]
	})
}

func (f *fakeNewsRepository) SaveNewsItem(ctx context.Context, item core.News) (core.News, error) {
	f.record("SaveNewsItem")
	return item, f.err
}

func (f *fakeNewsRepository) EditNewsItem(ctx context.Context, item core.News) (core.News, error) {
	f.record("EditNewsItem")
	return item, f.err
}

func (f *fakeNewsRepository) RemoveNewsItemById(ctx context.Context, id int) error {
	f.record("RemoveNewsItemById")
	return f.err
}

func (f *fakeNewsRepository) GetAllNewsCategories() flow.Flow[[]core.NewsCategory] {
	f.record("GetAllNewsCategories")
	if f.filterErr != nil {
		return flow.Error[[]core.NewsCategory](f.filterErr)
	}
	return flow.Of([]core.NewsCategory{{Id: 1, Name: "Announcement"}})
}

func (f *fakeNewsRepository) filtered(name string) flow.Flow[[]core.NewsWithCreators] {
	f.record(name)
	if f.filterErr != nil {
		return flow.Error[[]core.NewsWithCreators](f.filterErr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return flow.Of(f.items[0])
}

func (f *fakeNewsRepository) FilterNewsByCategory(newsCategoryId int) flow.Flow[[]core.NewsWithCreators] {
	return f.filtered("FilterNewsByCategory")
}

func (f *fakeNewsRepository) FilterNewsByPublishDate(dateStart int64, dateEnd int64) flow.Flow[[]core.NewsWithCreators] {
	return f.filtered("FilterNewsByPublishDate")
}

func (f *fakeNewsRepository) FilterNewsByCategoryAndPublishDate(newsCategoryId int, dateStart int64, dateEnd int64) flow.Flow[[]core.NewsWithCreators] {
	return f.filtered("FilterNewsByCategoryAndPublishDate")
}

// signalRecorder subscribes to events before an operation runs so that a
// single emission per event can be counted after the operation's job is done.
type signalRecorder struct {
	channels map[*event.Event]<-chan struct{}
}

func recordSignals(t *testing.T, events ...*event.Event) *signalRecorder {
	t.Helper()
	r := &signalRecorder{channels: make(map[*event.Event]<-chan struct{})}
	for _, e := range events {
		ch, unsubscribe := e.Subscribe()
		t.Cleanup(unsubscribe)
		r.channels[e] = ch
	}
	return r
}

func (r *signalRecorder) received(e *event.Event) bool {
	select {
	case <-r.channels[e]:
		return true
	default:
		return false
	}
}
