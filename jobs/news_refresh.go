package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/bjarke-xyz/fmh/internal/viewmodel"
	"github.com/bjarke-xyz/fmh/pkg/scope"
)

const JobIdentifierNewsRefresh = "FMH_NEWS_REFRESH_JOB"

var ErrNewsRefreshFailed = errors.New("news refresh failed")

// NewsRefresh refreshes news through the app's news view model. lock is held
// for the duration so the failure signal is not confused with one caused by
// another caller.
func NewsRefresh(news *viewmodel.NewsViewModel, lock sync.Locker) JobFunc {
	return func(ctx context.Context) error {
		lock.Lock()
		defer lock.Unlock()
		fired := viewmodel.Await(func() *scope.Job {
			return news.OnRefresh()
		}, news.LoadNewsExceptionEvent)
		if fired[news.LoadNewsExceptionEvent] {
			return ErrNewsRefreshFailed
		}
		return nil
	}
}
