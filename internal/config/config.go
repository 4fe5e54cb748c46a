package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      int
	DbConnStr string

	JobKey string

	AppEnv string

	NewsRefreshCron       string
	NewsFeedCreatorId     int
	FeedRequestsPerSecond float64

	MetricsAddr string

	DbBackupCron            string
	BackupDbPath            string
	S3BackupUrl             string
	S3BackupBucket          string
	S3BackupAccessKeyId     string
	S3BackupSecretAccessKey string

	BuildTime *time.Time
}

const (
	AppEnvDevelopment = "development"
	AppEnvProduction  = "production"
)

func (c *Config) ConnectionString() string {
	return c.DbConnStr
}

func NewConfig() (*Config, error) {
	godotenv.Load()
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = AppEnvDevelopment
	} else {
		if appEnv != AppEnvDevelopment && appEnv != AppEnvProduction {
			return nil, fmt.Errorf("failed to validate APP_ENV: invalid value %q", appEnv)
		}
	}
	buildTimeStr := os.Getenv("BUILD_TIME")
	var buildTime *time.Time
	if buildTimeStr != "" {
		_buildTime, err := time.Parse("2006-01-02 15:04:05", buildTimeStr)
		if err != nil {
			log.Printf("error parsing BUILD_TIME env: %v", err)
		} else {
			buildTime = &_buildTime
		}
	}
	return &Config{
		Port:                  intEnv("PORT", 8080),
		DbConnStr:             stringEnv("DB_CONN_STR", "fmh.db"),
		JobKey:                os.Getenv("JOB_KEY"),
		AppEnv:                appEnv,
		NewsRefreshCron:       stringEnv("NEWS_REFRESH_CRON", "*/15 * * * *"),
		NewsFeedCreatorId:     intEnv("NEWS_FEED_CREATOR_ID", 1),
		FeedRequestsPerSecond: floatEnv("FEED_REQUESTS_PER_SECOND", 1),
		MetricsAddr:           stringEnv("METRICS_ADDR", ":9091"),

		DbBackupCron:            stringEnv("DB_BACKUP_CRON", "0 3 * * *"),
		BackupDbPath:            stringEnv("BACKUP_DB_PATH", filepath.Join(os.TempDir(), "fmh-backup.db")),
		S3BackupUrl:             os.Getenv("S3_BACKUP_URL"),
		S3BackupBucket:          os.Getenv("S3_BACKUP_BUCKET"),
		S3BackupAccessKeyId:     os.Getenv("S3_BACKUP_ACCESS_KEY_ID"),
		S3BackupSecretAccessKey: os.Getenv("S3_BACKUP_SECRET_ACCESS_KEY"),

		BuildTime: buildTime,
	}, nil
}

// BackupEnabled reports whether a backup bucket is configured.
func (c *Config) BackupEnabled() bool {
	return c.S3BackupBucket != ""
}

func stringEnv(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func intEnv(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("error parsing %v env %q: %v", key, valStr, err)
		return defaultVal
	}
	return val
}

func floatEnv(key string, defaultVal float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("error parsing %v env %q: %v", key, valStr, err)
		return defaultVal
	}
	return val
}
