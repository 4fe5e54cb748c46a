package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bjarke-xyz/fmh/internal/config"
	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/feed"
	"github.com/bjarke-xyz/fmh/internal/repository"
	"github.com/bjarke-xyz/fmh/internal/storage"
	"github.com/bjarke-xyz/fmh/internal/viewmodel"
	"github.com/bjarke-xyz/fmh/jobs"
)

// Services are the long lived parts a host serves from.
type Services struct {
	News       *viewmodel.NewsViewModel
	NewsLock   *sync.Mutex
	JobManager *jobs.JobManager
}

func AppContext(cfg *config.Config) (*core.AppContext, error) {
	cache := repository.NewLayeredCache(cfg)

	appContext := &core.AppContext{
		Config: cfg,
		Infra: &core.AppInfra{
			Cache: cache,
		},
		Deps: &core.AppDeps{},
	}

	newsSource, err := feed.NewSource(appContext)
	if err != nil {
		return nil, fmt.Errorf("failed to create news source: %w", err)
	}
	appContext.Deps.NewsSource = newsSource
	appContext.Deps.ClaimRepository = repository.NewSqliteClaims(appContext)
	appContext.Deps.NewsRepository = repository.NewSqliteNews(appContext)

	return appContext, nil
}

// Initialise starts the app wide news view model and registers the refresh
// job, and the backup job when a backup bucket is configured. The job manager
// is not started.
func Initialise(ctx context.Context, appContext *core.AppContext) (*Services, error) {
	services := &Services{
		News:       viewmodel.NewNewsViewModel(ctx, appContext.Deps.NewsRepository),
		NewsLock:   &sync.Mutex{},
		JobManager: jobs.NewJobManager(),
	}
	cronStr := appContext.Config.NewsRefreshCron
	err := services.JobManager.Cron(cronStr, jobs.JobIdentifierNewsRefresh, jobs.NewsRefresh(services.News, services.NewsLock), cronStr != "")
	if err != nil {
		services.News.Close()
		return nil, err
	}
	if appContext.Config.BackupEnabled() {
		backup, err := storage.NewBackupFromConfig(ctx, appContext.Config)
		if err == nil {
			err = services.JobManager.Cron(appContext.Config.DbBackupCron, jobs.JobIdentifierDbBackup, jobs.DbBackup(appContext.Config, backup), true)
		}
		if err != nil {
			services.News.Close()
			return nil, err
		}
	}
	return services, nil
}

func Dispose(appContext *core.AppContext, services *Services) {
	if services != nil {
		services.JobManager.Stop()
		services.News.Close()
	}
	if err := appContext.Infra.Cache.Purge(context.Background()); err != nil {
		log.Printf("error deleting expired cache entries: %v", err)
	}
}
