package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/bjarke-xyz/fmh/ginutils"
	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/viewmodel"
	"github.com/bjarke-xyz/fmh/jobs"
	"github.com/bjarke-xyz/fmh/pkg"
	"github.com/bjarke-xyz/fmh/pkg/event"
	"github.com/gin-gonic/gin"
)

type api struct {
	context    *core.AppContext
	claims     core.ClaimRepository
	news       *viewmodel.NewsViewModel
	newsLock   sync.Locker
	jobManager *jobs.JobManager
	now        func() time.Time
}

// NewAPI serves the claim routes with one card view model per request and the
// news routes with the app wide news view model. newsLock serialises news
// operations that are answered by a signal.
func NewAPI(context *core.AppContext, news *viewmodel.NewsViewModel, newsLock sync.Locker, jobManager *jobs.JobManager) *api {
	return &api{
		context:    context,
		claims:     context.Deps.ClaimRepository,
		news:       news,
		newsLock:   newsLock,
		jobManager: jobManager,
		now:        time.Now,
	}
}

func (a *api) Route(r *gin.Engine) {
	r.Use(RequestId())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"buildTime": a.context.Config.BuildTime,
		})
	})

	apiGroup := r.Group("/api")
	apiGroup.POST("/job", a.RunJob())

	claims := apiGroup.Group("/claims")
	claims.POST("", a.CreateClaim())
	claims.GET("/:id", a.GetClaim())
	claims.GET("/:id/stream", a.StreamClaim())
	claims.PUT("/:id", a.UpdateClaim())
	claims.POST("/:id/comments", a.CreateClaimComment())
	claims.PUT("/:id/comments/:commentId", a.UpdateClaimComment())
	claims.POST("/:id/comments/refresh", a.RefreshClaimComments())
	claims.POST("/:id/status", a.ChangeClaimStatus())

	news := apiGroup.Group("/news")
	news.GET("", a.GetNews())
	news.GET("/stream", a.StreamNews())
	news.GET("/index", a.GetNewsIndex())
	news.GET("/categories", a.GetNewsCategories())
	news.POST("/sort", a.ToggleNewsSort())
	news.POST("/refresh", a.RefreshNews())
	news.POST("", a.CreateNews())
	news.PUT("/:id", a.EditNews())
	news.DELETE("/:id", a.RemoveNews())
}

const requestIdHeader = "X-Request-Id"

// RequestId tags each request with an id, reusing the caller's when given.
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(requestIdHeader)
		if requestId == "" {
			requestId = pkg.NewRequestId()
		}
		c.Set("requestId", requestId)
		c.Header(requestIdHeader, requestId)
		c.Next()
		if len(c.Errors) > 0 {
			log.Printf("request %v %v %v failed: %v", requestId, c.Request.Method, c.FullPath(), c.Errors.String())
		}
	}
}

func (a *api) RunJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != a.context.Config.JobKey {
			c.AbortWithStatus(401)
			return
		}
		name := ginutils.StringQuery(c, "job", jobs.JobIdentifierNewsRefresh)
		fireAndForget := c.Query("fireAndForget") == "true"
		if fireAndForget {
			go a.jobManager.RunJob(context.Background(), name)
			c.Status(http.StatusOK)
			return
		}
		err := a.jobManager.RunJob(c.Request.Context(), name)
		if errors.Is(err, jobs.ErrUnknownJob) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusOK)
	}
}

// respondSignal answers with the signal that fired: successStatus for success,
// failureStatus for failure. An operation that ended without either signal is
// answered with 500.
func respondSignal(c *gin.Context, fired map[*event.Event]bool, success *event.Event, successStatus int, failure *event.Event, failureStatus int) {
	switch {
	case failure != nil && fired[failure]:
		c.JSON(failureStatus, gin.H{"signal": failure.Name()})
	case success != nil && fired[success]:
		c.JSON(successStatus, gin.H{"signal": success.Name()})
	case success == nil && failure != nil:
		// operations without a success signal succeed silently
		c.Status(successStatus)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no signal"})
	}
}
