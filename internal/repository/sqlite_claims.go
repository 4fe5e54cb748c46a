package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/repository/db"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/jmoiron/sqlx"
)

type sqliteClaimRepository struct {
	appContext *core.AppContext
	changes    *flow.State[uint64]
	now        func() time.Time
}

func NewSqliteClaims(appContext *core.AppContext) core.ClaimRepository {
	return &sqliteClaimRepository{
		appContext: appContext,
		changes:    flow.NewState[uint64](0),
		now:        time.Now,
	}
}

type commentRow struct {
	core.ClaimComment
	CreatorLastName   string `db:"creator_last_name"`
	CreatorFirstName  string `db:"creator_first_name"`
	CreatorMiddleName string `db:"creator_middle_name"`
}

func (r commentRow) withCreator() core.ClaimCommentWithCreator {
	return core.ClaimCommentWithCreator{
		Comment: r.ClaimComment,
		Creator: core.User{
			Id:         r.CreatorId,
			LastName:   r.CreatorLastName,
			FirstName:  r.CreatorFirstName,
			MiddleName: r.CreatorMiddleName,
		},
	}
}

func (r *sqliteClaimRepository) GetClaimById(id int) flow.Flow[core.FullClaim] {
	return liveQuery(r.changes, func(ctx context.Context) (core.FullClaim, error) {
		return r.getFullClaim(ctx, id)
	})
}

func (r *sqliteClaimRepository) getFullClaim(ctx context.Context, id int) (core.FullClaim, error) {
	var fullClaim core.FullClaim
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return fullClaim, err
	}
	claim, err := getClaim(ctx, db, id)
	if err != nil {
		return fullClaim, err
	}
	fullClaim.Claim = claim
	creator, err := getUser(ctx, db, claim.CreatorId)
	if err != nil {
		return fullClaim, fmt.Errorf("error getting creator of claim %v: %w", id, err)
	}
	fullClaim.Creator = creator
	if claim.ExecutorId != nil {
		executor, err := getUser(ctx, db, *claim.ExecutorId)
		if err != nil {
			return fullClaim, fmt.Errorf("error getting executor of claim %v: %w", id, err)
		}
		fullClaim.Executor = &executor
	}
	var rows []commentRow
	sqlQuery := fmt.Sprintf("SELECT %v, u.last_name AS creator_last_name, u.first_name AS creator_first_name, u.middle_name AS creator_middle_name "+
		"FROM claim_comments c JOIN users u ON u.id = c.creator_id WHERE c.claim_id = ? ORDER BY c.create_date, c.id", DBTags(core.ClaimComment{}, "c"))
	err = db.SelectContext(ctx, &rows, sqlQuery, id)
	if err != nil {
		return fullClaim, fmt.Errorf("error getting comments for claim %v: %w", id, err)
	}
	fullClaim.Comments = make([]core.ClaimCommentWithCreator, len(rows))
	for i, row := range rows {
		fullClaim.Comments[i] = row.withCreator()
	}
	return fullClaim, nil
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func getClaim(ctx context.Context, q queryer, id int) (core.Claim, error) {
	var claim core.Claim
	sqlQuery := fmt.Sprintf("SELECT %v FROM claims WHERE id = ?", DBTags(core.Claim{}, ""))
	err := q.GetContext(ctx, &claim, sqlQuery, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return claim, fmt.Errorf("claim %v: %w", id, core.ErrNotFound)
		}
		return claim, fmt.Errorf("error getting claim %v: %w", id, err)
	}
	return claim, nil
}

func getUser(ctx context.Context, q queryer, id int) (core.User, error) {
	var user core.User
	sqlQuery := fmt.Sprintf("SELECT %v FROM users WHERE id = ?", DBTags(core.User{}, ""))
	err := q.GetContext(ctx, &user, sqlQuery, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user, fmt.Errorf("user %v: %w", id, core.ErrNotFound)
		}
		return user, err
	}
	return user, nil
}

func (r *sqliteClaimRepository) SaveClaimComment(ctx context.Context, claimId int, comment core.ClaimComment) (core.ClaimComment, error) {
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return comment, err
	}
	comment.ClaimId = &claimId
	if comment.CreateDate == 0 {
		comment.CreateDate = r.now().UnixMilli()
	}
	saved, err := insertComment(ctx, db, comment)
	if err != nil {
		return comment, err
	}
	bump(r.changes)
	return saved, nil
}

func insertComment(ctx context.Context, ext sqlx.ExtContext, comment core.ClaimComment) (core.ClaimComment, error) {
	result, err := sqlx.NamedExecContext(ctx, ext, "INSERT INTO claim_comments (claim_id, description, creator_id, create_date) "+
		"VALUES (:claim_id, :description, :creator_id, :create_date)", comment)
	if err != nil {
		return comment, fmt.Errorf("failed to insert comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return comment, fmt.Errorf("failed to get comment id: %w", err)
	}
	commentId := int(id)
	comment.Id = &commentId
	return comment, nil
}

func (r *sqliteClaimRepository) ChangeClaimComment(ctx context.Context, comment core.ClaimComment) (core.ClaimComment, error) {
	if comment.Id == nil {
		return comment, fmt.Errorf("comment has no id: %w", core.ErrNotFound)
	}
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return comment, err
	}
	result, err := db.ExecContext(ctx, "UPDATE claim_comments SET description = ? WHERE id = ?", comment.Description, *comment.Id)
	if err != nil {
		return comment, fmt.Errorf("failed to update comment %v: %w", *comment.Id, err)
	}
	if err := expectAffected(result, "comment", *comment.Id); err != nil {
		return comment, err
	}
	bump(r.changes)
	return comment, nil
}

func (r *sqliteClaimRepository) SaveClaim(ctx context.Context, claim core.Claim) (core.Claim, error) {
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return claim, err
	}
	// New claims always start open; executors arrive through ChangeClaimStatus.
	claim.Status = core.ClaimStatusOpen
	claim.ExecutorId = nil
	claim.FactExecuteDate = nil
	if claim.CreateDate == 0 {
		claim.CreateDate = r.now().UnixMilli()
	}
	result, err := db.NamedExecContext(ctx, "INSERT INTO claims (title, description, creator_id, executor_id, create_date, plan_execute_date, fact_execute_date, status) "+
		"VALUES (:title, :description, :creator_id, :executor_id, :create_date, :plan_execute_date, :fact_execute_date, :status)", claim)
	if err != nil {
		return claim, fmt.Errorf("failed to insert claim: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return claim, fmt.Errorf("failed to get claim id: %w", err)
	}
	claimId := int(id)
	claim.Id = &claimId
	bump(r.changes)
	return claim, nil
}

// EditClaim updates the title, description and planned date of a claim.
// Status, executor and fact date only change through ChangeClaimStatus.
func (r *sqliteClaimRepository) EditClaim(ctx context.Context, claim core.Claim) (core.Claim, error) {
	if claim.Id == nil {
		return claim, fmt.Errorf("claim has no id: %w", core.ErrNotFound)
	}
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return claim, err
	}
	result, err := db.NamedExecContext(ctx, "UPDATE claims SET title = :title, description = :description, "+
		"plan_execute_date = :plan_execute_date WHERE id = :id", claim)
	if err != nil {
		return claim, fmt.Errorf("failed to update claim %v: %w", *claim.Id, err)
	}
	if err := expectAffected(result, "claim", *claim.Id); err != nil {
		return claim, err
	}
	bump(r.changes)
	return getClaim(ctx, db, *claim.Id)
}

func (r *sqliteClaimRepository) GetAllCommentsForClaim(ctx context.Context, id int) ([]core.ClaimComment, error) {
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return nil, err
	}
	comments := make([]core.ClaimComment, 0)
	sqlQuery := fmt.Sprintf("SELECT %v FROM claim_comments WHERE claim_id = ? ORDER BY create_date, id", DBTags(core.ClaimComment{}, ""))
	err = db.SelectContext(ctx, &comments, sqlQuery, id)
	if err != nil {
		return nil, fmt.Errorf("error getting comments for claim %v: %w", id, err)
	}
	return comments, nil
}

func (r *sqliteClaimRepository) ChangeClaimStatus(ctx context.Context, claimId int, status core.ClaimStatus, executorId *int, comment core.ClaimComment) (core.Claim, error) {
	db, err := db.Open(r.appContext.Config)
	if err != nil {
		return core.Claim{}, err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return core.Claim{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	claim, err := getClaim(ctx, tx, claimId)
	if err != nil {
		tx.Rollback()
		return claim, err
	}
	transition, err := core.FindStatusTransition(claim.Status, status)
	if err != nil {
		tx.Rollback()
		return claim, err
	}
	switch transition.Executor {
	case core.ExecutorRequired:
		if executorId == nil {
			tx.Rollback()
			return claim, fmt.Errorf("claim %v to %v: %w", claimId, status, core.ErrMissingExecutor)
		}
		claim.ExecutorId = executorId
	case core.ExecutorCleared:
		claim.ExecutorId = nil
	}
	if status == core.ClaimStatusExecuted {
		factExecuteDate := r.now().UnixMilli()
		claim.FactExecuteDate = &factExecuteDate
	}
	claim.Status = status
	log.Printf("ChangeClaimStatus: claim=%v %v -> %v", claimId, transition.From, transition.To)
	_, err = tx.NamedExecContext(ctx, "UPDATE claims SET status = :status, executor_id = :executor_id, fact_execute_date = :fact_execute_date WHERE id = :id", claim)
	if err != nil {
		tx.Rollback()
		return claim, fmt.Errorf("failed to update status of claim %v: %w", claimId, err)
	}
	if comment.Description != "" {
		comment.ClaimId = &claimId
		if comment.CreateDate == 0 {
			comment.CreateDate = r.now().UnixMilli()
		}
		_, err = insertComment(ctx, tx, comment)
		if err != nil {
			tx.Rollback()
			return claim, err
		}
	}
	err = tx.Commit()
	if err != nil {
		return claim, fmt.Errorf("failed to commit tx: %w", err)
	}
	bump(r.changes)
	return claim, nil
}

func expectAffected(result sql.Result, what string, id int) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%v %v: %w", what, id, core.ErrNotFound)
	}
	return nil
}
