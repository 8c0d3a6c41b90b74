package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sgd-gov/despacho-service/repository/models"
	"github.com/sgd-gov/despacho-service/workflow"
)

func newID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// reproject recomputes the dispatch's workflow_status from its approval rows
// and stores it, inside the caller's transaction. Every approval mutation
// funnels through this so the stored column never drifts from the projection.
func reproject(tx *gorm.DB, dispatch *models.Dispatch) *RepositoryError {
	var approvals []models.DispatchApproval
	if err := tx.Where("dispatch_id = ?", dispatch.ID).Find(&approvals).Error; err != nil {
		return wrapDBError(err, "Failed to load approvals for projection")
	}
	dispatch.WorkflowStatus = string(workflow.ProjectApprovals(approvals))
	if err := tx.Save(dispatch).Error; err != nil {
		return wrapDBError(err, "Failed to update workflow status")
	}
	return nil
}

// ListDispatchApprovals returns a dispatch's approval chain ordered by
// approval_order, with approver identity preloaded.
func (r *Repository) ListDispatchApprovals(ctx context.Context, dispatchID string) ([]models.DispatchApproval, *RepositoryError) {
	var approvals []models.DispatchApproval
	err := r.db.WithContext(ctx).
		Preload("Approver").
		Where("dispatch_id = ?", dispatchID).
		Order("approval_order asc").
		Find(&approvals).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to list approvals")
	}
	return approvals, nil
}

// ListPendingApprovals returns the caller's personal queue. An empty
// approverID yields an empty result; the queue is meaningless without an
// identity.
func (r *Repository) ListPendingApprovals(ctx context.Context, approverID string) ([]models.DispatchApproval, *RepositoryError) {
	if approverID == "" {
		return []models.DispatchApproval{}, nil
	}
	var approvals []models.DispatchApproval
	err := r.db.WithContext(ctx).
		Preload("Dispatch").
		Where("approver_id = ? AND status = ?", approverID, models.ApprovalStatusPending).
		Order("created_at asc").
		Find(&approvals).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to list pending approvals")
	}
	return approvals, nil
}

func (r *Repository) CountPendingApprovals(ctx context.Context, approverID string) (int64, *RepositoryError) {
	if approverID == "" {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DispatchApproval{}).
		Where("approver_id = ? AND status = ?", approverID, models.ApprovalStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, wrapDBError(err, "Failed to count pending approvals")
	}
	return count, nil
}

// AddApprover inserts a pending approval row and flips the parent dispatch
// into approval. A duplicate (dispatch, order) surfaces as CONFLICT via the
// unique index; no pre-check is performed.
func (r *Repository) AddApprover(ctx context.Context, dispatchID, approverID string, order int) (*models.DispatchApproval, *RepositoryError) {
	dbTx := r.db.WithContext(ctx).Begin()

	var dispatch models.Dispatch
	err := dbTx.Where("dispatch_id = ?", dispatchID).First(&dispatch).Error
	if err != nil {
		dbTx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Dispatch", dispatchID)
		}
		return nil, wrapDBError(err, "Database error")
	}

	if dispatch.Archived {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidState,
			Message: "Dispatch is archived",
			Detail:  fmt.Sprintf("Dispatch %s is archived and cannot receive approvers", dispatchID),
		}
	}

	approval := models.DispatchApproval{
		ID:            newID("APR"),
		DispatchID:    dispatch.ID,
		ApprovalOrder: order,
		Status:        models.ApprovalStatusPending,
		Version:       1,
	}
	if approverID != "" {
		approval.ApproverID = &approverID
	}

	if err := dbTx.Create(&approval).Error; err != nil {
		dbTx.Rollback()
		return nil, wrapDBError(err, "Failed to create approval")
	}

	dispatch.RequiresApproval = true
	if repoErr := reproject(dbTx, &dispatch); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, wrapDBError(err, "Failed to commit transaction")
	}
	return &approval, nil
}

// RemoveApprover deletes an approval row. Only pending rows may be removed;
// decided rows return INVALID_STATE. The dispatch's workflow status is
// recomputed, so removing the last approver rolls it back to nao_iniciado.
func (r *Repository) RemoveApprover(ctx context.Context, approvalID string) (*models.DispatchApproval, *RepositoryError) {
	dbTx := r.db.WithContext(ctx).Begin()

	var approval models.DispatchApproval
	err := dbTx.Where("approval_id = ?", approvalID).First(&approval).Error
	if err != nil {
		dbTx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Approval", approvalID)
		}
		return nil, wrapDBError(err, "Database error")
	}

	if approval.Status != models.ApprovalStatusPending {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidState,
			Message: "Only pending approvals can be removed",
			Detail:  fmt.Sprintf("Approval %s has status %s", approvalID, approval.Status),
		}
	}

	// The delete repeats the status predicate so a decision committed by a
	// concurrent writer between the read above and this statement cannot be
	// wiped out. Zero rows affected after the guard passed means exactly that.
	result := dbTx.Where("approval_id = ? AND status = ?", approvalID, models.ApprovalStatusPending).
		Delete(&models.DispatchApproval{})
	if result.Error != nil {
		dbTx.Rollback()
		return nil, wrapDBError(result.Error, "Failed to remove approval")
	}
	if result.RowsAffected == 0 {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeConflict,
			Message: "Approval was decided concurrently",
			Detail:  fmt.Sprintf("Approval %s is no longer pending; re-fetch and retry", approvalID),
		}
	}

	var dispatch models.Dispatch
	if err := dbTx.Where("dispatch_id = ?", approval.DispatchID).First(&dispatch).Error; err != nil {
		dbTx.Rollback()
		return nil, wrapDBError(err, "Failed to load parent dispatch")
	}
	if repoErr := reproject(dbTx, &dispatch); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, wrapDBError(err, "Failed to commit transaction")
	}
	return &approval, nil
}

// RecordDecision updates a pending approval with the approver's decision.
// The update matches both id and version; when the row exists but the
// version is stale a concurrent writer won, and CONFLICT tells the caller to
// re-fetch and retry. approved_at is set only for aprovado.
func (r *Repository) RecordDecision(ctx context.Context, input DecisionInput) (*models.DispatchApproval, *RepositoryError) {
	if !models.ValidDecisionStatus(input.Status) {
		return nil, &RepositoryError{
			Code:    ErrCodeValidation,
			Message: "Invalid decision status",
			Detail:  fmt.Sprintf("Status must be aprovado, rejeitado or devolvido, got %q", input.Status),
		}
	}

	dbTx := r.db.WithContext(ctx).Begin()

	var approval models.DispatchApproval
	err := dbTx.Where("approval_id = ?", input.ApprovalID).First(&approval).Error
	if err != nil {
		dbTx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Approval", input.ApprovalID)
		}
		return nil, wrapDBError(err, "Database error")
	}

	if approval.Status != models.ApprovalStatusPending {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidState,
			Message: "Approval already decided",
			Detail:  fmt.Sprintf("Approval %s has status %s", input.ApprovalID, approval.Status),
		}
	}

	updates := map[string]interface{}{
		"status":   input.Status,
		"comments": input.Comments,
		"version":  gorm.Expr("version + 1"),
	}
	if input.Status == models.ApprovalStatusApproved {
		updates["approved_at"] = time.Now()
	}

	result := dbTx.Model(&models.DispatchApproval{}).
		Where("approval_id = ? AND version = ?", input.ApprovalID, input.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		dbTx.Rollback()
		return nil, wrapDBError(result.Error, "Failed to record decision")
	}
	if result.RowsAffected == 0 {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeConflict,
			Message: "Approval was modified concurrently",
			Detail:  fmt.Sprintf("Expected version %d is stale; re-fetch and retry", input.ExpectedVersion),
		}
	}

	var dispatch models.Dispatch
	if err := dbTx.Where("dispatch_id = ?", approval.DispatchID).First(&dispatch).Error; err != nil {
		dbTx.Rollback()
		return nil, wrapDBError(err, "Failed to load parent dispatch")
	}
	if repoErr := reproject(dbTx, &dispatch); repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, wrapDBError(err, "Failed to commit transaction")
	}

	var decided models.DispatchApproval
	if err := r.db.WithContext(ctx).Preload("Approver").Where("approval_id = ?", input.ApprovalID).First(&decided).Error; err != nil {
		return nil, wrapDBError(err, "Failed to reload approval")
	}
	return &decided, nil
}

// BulkDecide applies one decision to every listed approval in a single
// statement. Only rows still pending are touched; the returned count lets
// the caller detect skipped ids. The whole batch commits or rolls back as
// one transaction.
func (r *Repository) BulkDecide(ctx context.Context, input BulkDecisionInput) (int64, *RepositoryError) {
	if !models.ValidDecisionStatus(input.Status) {
		return 0, &RepositoryError{
			Code:    ErrCodeValidation,
			Message: "Invalid decision status",
			Detail:  fmt.Sprintf("Status must be aprovado, rejeitado or devolvido, got %q", input.Status),
		}
	}
	if len(input.ApprovalIDs) == 0 {
		return 0, &RepositoryError{
			Code:    ErrCodeValidation,
			Message: "No approvals selected",
			Detail:  "approval_ids must not be empty",
		}
	}

	dbTx := r.db.WithContext(ctx).Begin()

	// Dispatches to re-project, captured before the update.
	var dispatchIDs []string
	err := dbTx.Model(&models.DispatchApproval{}).
		Distinct("dispatch_id").
		Where("approval_id IN ? AND status = ?", input.ApprovalIDs, models.ApprovalStatusPending).
		Pluck("dispatch_id", &dispatchIDs).Error
	if err != nil {
		dbTx.Rollback()
		return 0, wrapDBError(err, "Failed to resolve affected dispatches")
	}

	updates := map[string]interface{}{
		"status":   input.Status,
		"comments": input.Comments,
		"version":  gorm.Expr("version + 1"),
	}
	if input.Status == models.ApprovalStatusApproved {
		updates["approved_at"] = time.Now()
	}

	result := dbTx.Model(&models.DispatchApproval{}).
		Where("approval_id IN ? AND status = ?", input.ApprovalIDs, models.ApprovalStatusPending).
		Updates(updates)
	if result.Error != nil {
		dbTx.Rollback()
		return 0, wrapDBError(result.Error, "Failed to apply bulk decision")
	}

	for _, dispatchID := range dispatchIDs {
		var dispatch models.Dispatch
		if err := dbTx.Where("dispatch_id = ?", dispatchID).First(&dispatch).Error; err != nil {
			dbTx.Rollback()
			return 0, wrapDBError(err, "Failed to load dispatch for projection")
		}
		if repoErr := reproject(dbTx, &dispatch); repoErr != nil {
			dbTx.Rollback()
			return 0, repoErr
		}
	}

	if err := dbTx.Commit().Error; err != nil {
		return 0, wrapDBError(err, "Failed to commit transaction")
	}
	return result.RowsAffected, nil
}
