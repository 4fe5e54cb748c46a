package viewmodel

import (
	"context"
	"fmt"
	"sync"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/pkg/event"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
)

type ClaimCommentItemClickListener interface {
	OnCard(claimComment core.ClaimCommentWithCreator)
}

var _ ClaimCommentItemClickListener = (*ClaimCardViewModel)(nil)

type ClaimCardViewModel struct {
	claimRepository core.ClaimRepository
	scope           *scope.Scope

	mu            sync.Mutex
	claimId       *int
	dataFullClaim flow.Flow[core.FullClaim]

	ClaimStatusChangedEvent          *event.Event
	ClaimStatusChangeExceptionEvent  *event.Event
	ClaimUpdateExceptionEvent        *event.Event
	ClaimUpdatedEvent                *event.Event
	ClaimCreatedEvent                *event.Event
	CreateClaimExceptionEvent        *event.Event
	claimCommentsLoadExceptionEvent  *event.Event
	ClaimCommentsLoadedEvent         *event.Event
	ClaimCommentCreatedEvent         *event.Event
	ClaimCommentUpdatedEvent         *event.Event
	ClaimCommentCreateExceptionEvent *event.Event
	UpdateClaimCommentExceptionEvent *event.Event
	ShowNoCommentEditingRightsError  *event.Event
}

func NewClaimCardViewModel(ctx context.Context, claimRepository core.ClaimRepository) *ClaimCardViewModel {
	return &ClaimCardViewModel{
		claimRepository:                  claimRepository,
		scope:                            scope.New(ctx),
		ClaimStatusChangedEvent:          event.New("claim_status_changed"),
		ClaimStatusChangeExceptionEvent:  event.New("claim_status_change_exception"),
		ClaimUpdateExceptionEvent:        event.New("claim_update_exception"),
		ClaimUpdatedEvent:                event.New("claim_updated"),
		ClaimCreatedEvent:                event.New("claim_created"),
		CreateClaimExceptionEvent:        event.New("create_claim_exception"),
		claimCommentsLoadExceptionEvent:  event.New("claim_comments_load_exception"),
		ClaimCommentsLoadedEvent:         event.New("claim_comments_loaded"),
		ClaimCommentCreatedEvent:         event.New("claim_comment_created"),
		ClaimCommentUpdatedEvent:         event.New("claim_comment_updated"),
		ClaimCommentCreateExceptionEvent: event.New("claim_comment_create_exception"),
		UpdateClaimCommentExceptionEvent: event.New("update_claim_comment_exception"),
		ShowNoCommentEditingRightsError:  event.New("show_no_comment_editing_rights_error"),
	}
}

// Init records the claim the card shows. It must be called exactly once,
// before DataFullClaim.
func (vm *ClaimCardViewModel) Init(claimId int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.claimId != nil {
		panic(fmt.Sprintf("ClaimCardViewModel: claim id already initialised to %v", *vm.claimId))
	}
	vm.claimId = &claimId
}

// DataFullClaim returns the live stream of the claim given to Init. The stream
// is built on the first call and shared by later calls.
func (vm *ClaimCardViewModel) DataFullClaim() flow.Flow[core.FullClaim] {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.dataFullClaim == nil {
		if vm.claimId == nil {
			panic("ClaimCardViewModel: DataFullClaim used before Init")
		}
		vm.dataFullClaim = vm.claimRepository.GetClaimById(*vm.claimId)
	}
	return vm.dataFullClaim
}

// CreateClaimComment does nothing, and signals nothing, when the comment has
// no claim id.
func (vm *ClaimCardViewModel) CreateClaimComment(claimComment core.ClaimComment) *scope.Job {
	if claimComment.ClaimId == nil {
		return scope.CompletedJob("createClaimComment")
	}
	claimId := *claimComment.ClaimId
	return launchWithSignals(vm.scope, "createClaimComment", func(ctx context.Context) error {
		_, err := vm.claimRepository.SaveClaimComment(ctx, claimId, claimComment)
		return err
	}, vm.ClaimCommentCreatedEvent, vm.ClaimCommentCreateExceptionEvent)
}

func (vm *ClaimCardViewModel) UpdateClaimComment(comment core.ClaimComment) *scope.Job {
	return launchWithSignals(vm.scope, "updateClaimComment", func(ctx context.Context) error {
		_, err := vm.claimRepository.ChangeClaimComment(ctx, comment)
		return err
	}, vm.ClaimCommentUpdatedEvent, vm.UpdateClaimCommentExceptionEvent)
}

func (vm *ClaimCardViewModel) Save(claim core.Claim) *scope.Job {
	return launchWithSignals(vm.scope, "saveClaim", func(ctx context.Context) error {
		_, err := vm.claimRepository.SaveClaim(ctx, claim)
		return err
	}, vm.ClaimCreatedEvent, vm.CreateClaimExceptionEvent)
}

func (vm *ClaimCardViewModel) UpdateClaim(updatedClaim core.Claim) *scope.Job {
	return launchWithSignals(vm.scope, "updateClaim", func(ctx context.Context) error {
		_, err := vm.claimRepository.EditClaim(ctx, updatedClaim)
		return err
	}, vm.ClaimUpdatedEvent, vm.ClaimUpdateExceptionEvent)
}

// GetAllClaimComments reports failure on a signal that is not exported.
func (vm *ClaimCardViewModel) GetAllClaimComments(id int) *scope.Job {
	return launchWithSignals(vm.scope, "getAllClaimComments", func(ctx context.Context) error {
		_, err := vm.claimRepository.GetAllCommentsForClaim(ctx, id)
		return err
	}, vm.ClaimCommentsLoadedEvent, vm.claimCommentsLoadExceptionEvent)
}

func (vm *ClaimCardViewModel) ChangeClaimStatus(claimId int, newClaimStatus core.ClaimStatus, executorId *int, claimComment core.ClaimComment) *scope.Job {
	return launchWithSignals(vm.scope, "changeClaimStatus", func(ctx context.Context) error {
		_, err := vm.claimRepository.ChangeClaimStatus(ctx, claimId, newClaimStatus, executorId, claimComment)
		return err
	}, vm.ClaimStatusChangedEvent, vm.ClaimStatusChangeExceptionEvent)
}

// OnCard is disabled: opening the comment editor needs the acting user, which
// the card does not have. ShowNoCommentEditingRightsError is never emitted.
func (vm *ClaimCardViewModel) OnCard(claimComment core.ClaimCommentWithCreator) {
}

// Close cancels everything the view model launched and waits for it.
func (vm *ClaimCardViewModel) Close() {
	vm.scope.Cancel()
	vm.scope.Wait()
}
