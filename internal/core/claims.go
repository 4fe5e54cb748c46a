package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/bjarke-xyz/fmh/pkg/flow"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidStatusTransition = errors.New("invalid claim status transition")
	ErrMissingExecutor         = errors.New("claim executor is required")
)

type ClaimRepository interface {
	GetClaimById(id int) flow.Flow[FullClaim]
	SaveClaimComment(ctx context.Context, claimId int, comment ClaimComment) (ClaimComment, error)
	ChangeClaimComment(ctx context.Context, comment ClaimComment) (ClaimComment, error)
	SaveClaim(ctx context.Context, claim Claim) (Claim, error)
	EditClaim(ctx context.Context, claim Claim) (Claim, error)
	GetAllCommentsForClaim(ctx context.Context, id int) ([]ClaimComment, error)
	ChangeClaimStatus(ctx context.Context, claimId int, status ClaimStatus, executorId *int, comment ClaimComment) (Claim, error)
}

type ClaimStatus string

const (
	ClaimStatusOpen       ClaimStatus = "OPEN"
	ClaimStatusInProgress ClaimStatus = "IN_PROGRESS"
	ClaimStatusCancelled  ClaimStatus = "CANCELLED"
	ClaimStatusExecuted   ClaimStatus = "EXECUTED"
)

func ParseClaimStatus(s string) (ClaimStatus, error) {
	switch status := ClaimStatus(s); status {
	case ClaimStatusOpen, ClaimStatusInProgress, ClaimStatusCancelled, ClaimStatusExecuted:
		return status, nil
	}
	return "", fmt.Errorf("unknown claim status %q", s)
}

type ExecutorRule int

const (
	ExecutorRequired ExecutorRule = iota
	ExecutorCleared
	ExecutorKept
)

// StatusTransition describes what happens to the executor when a claim moves
// between two statuses.
type StatusTransition struct {
	From     ClaimStatus
	To       ClaimStatus
	Executor ExecutorRule
}

var statusTransitions = []StatusTransition{
	{ClaimStatusOpen, ClaimStatusInProgress, ExecutorRequired},
	{ClaimStatusOpen, ClaimStatusCancelled, ExecutorCleared},
	{ClaimStatusInProgress, ClaimStatusOpen, ExecutorCleared},
	{ClaimStatusInProgress, ClaimStatusExecuted, ExecutorKept},
}

func FindStatusTransition(from, to ClaimStatus) (StatusTransition, error) {
	for _, t := range statusTransitions {
		if t.From == from && t.To == to {
			return t, nil
		}
	}
	return StatusTransition{}, fmt.Errorf("%w: %v -> %v", ErrInvalidStatusTransition, from, to)
}

type User struct {
	Id         int    `db:"id" json:"id"`
	LastName   string `db:"last_name" json:"lastName"`
	FirstName  string `db:"first_name" json:"firstName"`
	MiddleName string `db:"middle_name" json:"middleName"`
}

func (u User) FullName() string {
	name := u.LastName
	if u.FirstName != "" {
		name += " " + u.FirstName
	}
	if u.MiddleName != "" {
		name += " " + u.MiddleName
	}
	return name
}

type Claim struct {
	Id              *int        `db:"id" json:"id"`
	Title           string      `db:"title" json:"title"`
	Description     string      `db:"description" json:"description"`
	CreatorId       int         `db:"creator_id" json:"creatorId"`
	ExecutorId      *int        `db:"executor_id" json:"executorId"`
	CreateDate      int64       `db:"create_date" json:"createDate"`
	PlanExecuteDate int64       `db:"plan_execute_date" json:"planExecuteDate"`
	FactExecuteDate *int64      `db:"fact_execute_date" json:"factExecuteDate"`
	Status          ClaimStatus `db:"status" json:"status"`
}

type ClaimComment struct {
	Id          *int   `db:"id" json:"id"`
	ClaimId     *int   `db:"claim_id" json:"claimId"`
	Description string `db:"description" json:"description"`
	CreatorId   int    `db:"creator_id" json:"creatorId"`
	CreateDate  int64  `db:"create_date" json:"createDate"`
}

type ClaimCommentWithCreator struct {
	Comment ClaimComment `json:"comment"`
	Creator User         `json:"creator"`
}

type FullClaim struct {
	Claim    Claim                     `json:"claim"`
	Creator  User                      `json:"creator"`
	Executor *User                     `json:"executor"`
	Comments []ClaimCommentWithCreator `json:"comments"`
}
