package api

import (
	"errors"
	"net/http"

	"github.com/bjarke-xyz/fmh/ginutils"
	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/viewmodel"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
	"github.com/gin-gonic/gin"
)

// claimCard gives the request its own card view model. The caller must Close
// it.
func (a *api) claimCard(c *gin.Context) *viewmodel.ClaimCardViewModel {
	return viewmodel.NewClaimCardViewModel(c.Request.Context(), a.claims)
}

func (a *api) GetClaim() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		vm := a.claimCard(c)
		defer vm.Close()
		vm.Init(id)
		fullClaim, err := flow.First(c.Request.Context(), vm.DataFullClaim())
		if errors.Is(err, core.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, fullClaim)
	}
}

func (a *api) StreamClaim() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		vm := a.claimCard(c)
		defer vm.Close()
		vm.Init(id)
		streamFlow(c, "claim", vm.DataFullClaim())
	}
}

func (a *api) CreateClaim() gin.HandlerFunc {
	return func(c *gin.Context) {
		var claim core.Claim
		if err := c.ShouldBindJSON(&claim); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vm := a.claimCard(c)
		defer vm.Close()
		fired := viewmodel.Await(func() *scope.Job {
			return vm.Save(claim)
		}, vm.ClaimCreatedEvent, vm.CreateClaimExceptionEvent)
		respondSignal(c, fired, vm.ClaimCreatedEvent, http.StatusCreated, vm.CreateClaimExceptionEvent, http.StatusInternalServerError)
	}
}

func (a *api) UpdateClaim() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		var claim core.Claim
		if err := c.ShouldBindJSON(&claim); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claim.Id = &id
		vm := a.claimCard(c)
		defer vm.Close()
		fired := viewmodel.Await(func() *scope.Job {
			return vm.UpdateClaim(claim)
		}, vm.ClaimUpdatedEvent, vm.ClaimUpdateExceptionEvent)
		respondSignal(c, fired, vm.ClaimUpdatedEvent, http.StatusOK, vm.ClaimUpdateExceptionEvent, http.StatusInternalServerError)
	}
}

func (a *api) CreateClaimComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		var comment core.ClaimComment
		if err := c.ShouldBindJSON(&comment); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		comment.ClaimId = &id
		vm := a.claimCard(c)
		defer vm.Close()
		fired := viewmodel.Await(func() *scope.Job {
			return vm.CreateClaimComment(comment)
		}, vm.ClaimCommentCreatedEvent, vm.ClaimCommentCreateExceptionEvent)
		respondSignal(c, fired, vm.ClaimCommentCreatedEvent, http.StatusCreated, vm.ClaimCommentCreateExceptionEvent, http.StatusInternalServerError)
	}
}

func (a *api) UpdateClaimComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		commentId, ok := ginutils.IntParam(c, "commentId")
		if !ok {
			return
		}
		var comment core.ClaimComment
		if err := c.ShouldBindJSON(&comment); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		comment.Id = &commentId
		comment.ClaimId = &id
		vm := a.claimCard(c)
		defer vm.Close()
		fired := viewmodel.Await(func() *scope.Job {
			return vm.UpdateClaimComment(comment)
		}, vm.ClaimCommentUpdatedEvent, vm.UpdateClaimCommentExceptionEvent)
		respondSignal(c, fired, vm.ClaimCommentUpdatedEvent, http.StatusOK, vm.UpdateClaimCommentExceptionEvent, http.StatusInternalServerError)
	}
}

// RefreshClaimComments can only observe success: the card keeps its load
// failure to itself, so a missing success signal is reported as 502.
func (a *api) RefreshClaimComments() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		vm := a.claimCard(c)
		defer vm.Close()
		fired := viewmodel.Await(func() *scope.Job {
			return vm.GetAllClaimComments(id)
		}, vm.ClaimCommentsLoadedEvent)
		if !fired[vm.ClaimCommentsLoadedEvent] {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "comments could not be loaded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"signal": vm.ClaimCommentsLoadedEvent.Name()})
	}
}

type changeStatusRequest struct {
	Status     string            `json:"status" binding:"required"`
	ExecutorId *int              `json:"executorId"`
	Comment    core.ClaimComment `json:"comment"`
}

func (a *api) ChangeClaimStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ginutils.IntParam(c, "id")
		if !ok {
			return
		}
		var req changeStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status, err := core.ParseClaimStatus(req.Status)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vm := a.claimCard(c)
		defer vm.Close()
		fired := viewmodel.Await(func() *scope.Job {
			return vm.ChangeClaimStatus(id, status, req.ExecutorId, req.Comment)
		}, vm.ClaimStatusChangedEvent, vm.ClaimStatusChangeExceptionEvent)
		respondSignal(c, fired, vm.ClaimStatusChangedEvent, http.StatusOK, vm.ClaimStatusChangeExceptionEvent, http.StatusInternalServerError)
	}
}
