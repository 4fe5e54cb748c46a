package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var signalCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fmh_viewmodel_signals_total",
	Help: "Counter of one-shot signals emitted by view models",
}, []string{"signal"})

var repositoryErrorCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fmh_repository_errors_total",
	Help: "Counter of failed repository operations seen by view models",
}, []string{"op"})

var feedFetchStatusCodes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fmh_feed_fetch_status_codes_total",
	Help: "The total number of news feed fetch status codes",
}, []string{"status_code", "url"})

var newsItemsImported = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fmh_news_items_imported_total",
	Help: "Number of news items upserted by RefreshNews",
})

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fmh_cache_lookups_total",
	Help: "Cache lookups by layer and result",
}, []string{"layer", "result"})

var dbBackupSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fmh_db_backup_size_bytes",
	Help: "Size in bytes of the fmh db, measured at backup time",
})

func SignalInc(signal string) {
	signalCounter.WithLabelValues(signal).Inc()
}

func RepositoryErrorInc(op string) {
	repositoryErrorCounter.WithLabelValues(op).Inc()
}

func FeedFetchStatusInc(statusCode string, url string) {
	feedFetchStatusCodes.WithLabelValues(statusCode, url).Inc()
}

func NewsItemsImportedAdd(count int) {
	newsItemsImported.Add(float64(count))
}

func CacheLookupInc(layer string, result string) {
	cacheLookups.WithLabelValues(layer, result).Inc()
}

func DbBackupSizeSet(bytes int64) {
	dbBackupSize.Set(float64(bytes))
}
