package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sgd-gov/despacho-service/repository/models"
	"github.com/sgd-gov/despacho-service/workflow"
)

// CreateDispatch inserts a new draft dispatch.
func (r *Repository) CreateDispatch(ctx context.Context, input CreateDispatchInput) (*models.Dispatch, *RepositoryError) {
	if input.Number == "" || input.Subject == "" {
		return nil, &RepositoryError{
			Code:    ErrCodeValidation,
			Message: "Number and subject are required",
			Detail:  "number and subject must not be empty",
		}
	}
	if !models.ValidDispatchType(input.DispatchType) {
		return nil, &RepositoryError{
			Code:    ErrCodeValidation,
			Message: "Invalid dispatch type",
			Detail:  fmt.Sprintf("Unknown dispatch type %q", input.DispatchType),
		}
	}

	priority := input.Priority
	if priority == "" {
		priority = "normal"
	}

	dispatch := models.Dispatch{
		ID:               newID("DSP"),
		Number:           input.Number,
		Subject:          input.Subject,
		Content:          input.Content,
		DispatchType:     input.DispatchType,
		Priority:         priority,
		Status:           models.DispatchStatusDraft,
		WorkflowStatus:   string(workflow.StatusNotStarted),
		OriginUnitID:     input.OriginUnitID,
		CreatorID:        input.CreatorID,
		SignerID:         input.SignerID,
		Deadline:         input.Deadline,
		RequiresResponse: input.RequiresResponse,
	}

	if err := r.db.WithContext(ctx).Create(&dispatch).Error; err != nil {
		return nil, wrapDBError(err, "Failed to create dispatch")
	}
	return &dispatch, nil
}

// GetDispatch loads a dispatch with its full approval chain, signatures and
// participant identities.
func (r *Repository) GetDispatch(ctx context.Context, id string) (*models.Dispatch, *RepositoryError) {
	var dispatch models.Dispatch
	err := r.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB {
			return db.Order("approval_order asc")
		}).
		Preload("Approvals.Approver").
		Preload("Signatures", func(db *gorm.DB) *gorm.DB {
			return db.Order("signed_at desc")
		}).
		Preload("Signatures.Signer").
		Preload("OriginUnit").
		Preload("Creator").
		Where("dispatch_id = ?", id).
		First(&dispatch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Dispatch", id)
		}
		return nil, wrapDBError(err, "Database error")
	}
	return &dispatch, nil
}

// ListDispatches returns dispatches matching the filter, newest first.
// Archived rows are hidden unless the filter asks for them.
func (r *Repository) ListDispatches(ctx context.Context, filter DispatchFilter) ([]models.Dispatch, *RepositoryError) {
	q := r.db.WithContext(ctx).Preload("OriginUnit").Order("created_at desc")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.DispatchType != "" {
		q = q.Where("dispatch_type = ?", filter.DispatchType)
	}
	if filter.OriginUnitID != "" {
		q = q.Where("origin_unit_id = ?", filter.OriginUnitID)
	}
	if !filter.IncludeArchived {
		q = q.Where("archived = ?", false)
	}

	var dispatches []models.Dispatch
	if err := q.Find(&dispatches).Error; err != nil {
		return nil, wrapDBError(err, "Failed to list dispatches")
	}
	return dispatches, nil
}

// EmitDispatch moves a draft to emitido. When the dispatch requires
// approval, the projected workflow status must be aprovado first.
func (r *Repository) EmitDispatch(ctx context.Context, id string) (*models.Dispatch, *RepositoryError) {
	dbTx := r.db.WithContext(ctx).Begin()

	dispatch, repoErr := findDispatchForUpdate(dbTx, id)
	if repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	if dispatch.Status != models.DispatchStatusDraft {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidState,
			Message: "Dispatch is not a draft",
			Detail:  fmt.Sprintf("Dispatch status is %s, must be %s", dispatch.Status, models.DispatchStatusDraft),
		}
	}

	if dispatch.RequiresApproval {
		var approvals []models.DispatchApproval
		if err := dbTx.Where("dispatch_id = ?", dispatch.ID).Find(&approvals).Error; err != nil {
			dbTx.Rollback()
			return nil, wrapDBError(err, "Failed to load approvals")
		}
		if status := workflow.ProjectApprovals(approvals); status != workflow.StatusApproved {
			dbTx.Rollback()
			return nil, &RepositoryError{
				Code:    ErrCodeInvalidState,
				Message: "Approval chain not complete",
				Detail:  fmt.Sprintf("Workflow status is %s, must be %s to emit", status, workflow.StatusApproved),
			}
		}
	}

	now := time.Now()
	dispatch.Status = models.DispatchStatusIssued
	dispatch.EmittedAt = &now
	if err := dbTx.Save(dispatch).Error; err != nil {
		dbTx.Rollback()
		return nil, wrapDBError(err, "Failed to update dispatch")
	}
	if err := dbTx.Commit().Error; err != nil {
		return nil, wrapDBError(err, "Failed to commit transaction")
	}
	return dispatch, nil
}

// CompleteDispatch closes an issued/in-transit dispatch and archives it with
// a retention deadline. Rows are never physically deleted.
func (r *Repository) CompleteDispatch(ctx context.Context, id string) (*models.Dispatch, *RepositoryError) {
	dbTx := r.db.WithContext(ctx).Begin()

	dispatch, repoErr := findDispatchForUpdate(dbTx, id)
	if repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	if dispatch.Status != models.DispatchStatusIssued && dispatch.Status != models.DispatchStatusInTransit {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidState,
			Message: "Dispatch cannot be completed",
			Detail:  fmt.Sprintf("Dispatch status is %s, must be %s or %s", dispatch.Status, models.DispatchStatusIssued, models.DispatchStatusInTransit),
		}
	}

	now := time.Now()
	retention := now.Add(r.retention)
	dispatch.Status = models.DispatchStatusCompleted
	dispatch.CompletedAt = &now
	dispatch.Archived = true
	dispatch.ArchivedAt = &now
	dispatch.RetentionUntil = &retention
	if err := dbTx.Save(dispatch).Error; err != nil {
		dbTx.Rollback()
		return nil, wrapDBError(err, "Failed to update dispatch")
	}
	if err := dbTx.Commit().Error; err != nil {
		return nil, wrapDBError(err, "Failed to commit transaction")
	}
	return dispatch, nil
}

// CancelDispatch cancels any non-terminal dispatch and archives it.
func (r *Repository) CancelDispatch(ctx context.Context, id string) (*models.Dispatch, *RepositoryError) {
	dbTx := r.db.WithContext(ctx).Begin()

	dispatch, repoErr := findDispatchForUpdate(dbTx, id)
	if repoErr != nil {
		dbTx.Rollback()
		return nil, repoErr
	}

	if dispatch.Status == models.DispatchStatusCompleted || dispatch.Status == models.DispatchStatusCancelled {
		dbTx.Rollback()
		return nil, &RepositoryError{
			Code:    ErrCodeInvalidState,
			Message: "Dispatch already closed",
			Detail:  fmt.Sprintf("Dispatch status is %s", dispatch.Status),
		}
	}

	now := time.Now()
	retention := now.Add(r.retention)
	dispatch.Status = models.DispatchStatusCancelled
	dispatch.CancelledAt = &now
	dispatch.Archived = true
	dispatch.ArchivedAt = &now
	dispatch.RetentionUntil = &retention
	if err := dbTx.Save(dispatch).Error; err != nil {
		dbTx.Rollback()
		return nil, wrapDBError(err, "Failed to update dispatch")
	}
	if err := dbTx.Commit().Error; err != nil {
		return nil, wrapDBError(err, "Failed to commit transaction")
	}
	return dispatch, nil
}

// ListRetentionDue returns archived dispatches whose retention period has
// lapsed as of the given instant, for the destruction-review report.
func (r *Repository) ListRetentionDue(ctx context.Context, asOf time.Time) ([]models.Dispatch, *RepositoryError) {
	var dispatches []models.Dispatch
	err := r.db.WithContext(ctx).
		Where("archived = ? AND retention_until IS NOT NULL AND retention_until <= ?", true, asOf).
		Order("retention_until asc").
		Find(&dispatches).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to list retention-due dispatches")
	}
	return dispatches, nil
}

// DispatchSummary aggregates counts for the reporting dashboard.
func (r *Repository) DispatchSummary(ctx context.Context) (*Summary, *RepositoryError) {
	summary := &Summary{
		ByStatus:         make(map[string]int64),
		ByWorkflowStatus: make(map[string]int64),
	}

	if err := r.db.WithContext(ctx).Model(&models.Dispatch{}).Count(&summary.Total).Error; err != nil {
		return nil, wrapDBError(err, "Failed to count dispatches")
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byStatus []bucket
	err := r.db.WithContext(ctx).Model(&models.Dispatch{}).
		Select("status as key, count(*) as count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to aggregate by status")
	}
	for _, b := range byStatus {
		summary.ByStatus[b.Key] = b.Count
	}

	var byWorkflow []bucket
	err = r.db.WithContext(ctx).Model(&models.Dispatch{}).
		Select("workflow_status as key, count(*) as count").
		Group("workflow_status").
		Scan(&byWorkflow).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to aggregate by workflow status")
	}
	for _, b := range byWorkflow {
		summary.ByWorkflowStatus[b.Key] = b.Count
	}

	err = r.db.WithContext(ctx).Model(&models.DispatchApproval{}).
		Where("status = ?", models.ApprovalStatusPending).
		Count(&summary.PendingApprovals).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to count pending approvals")
	}

	return summary, nil
}

// findDispatchForUpdate loads a dispatch with a row lock so concurrent
// status transitions serialize on the row.
func findDispatchForUpdate(tx *gorm.DB, id string) (*models.Dispatch, *RepositoryError) {
	var dispatch models.Dispatch
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("dispatch_id = ?", id).First(&dispatch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Dispatch", id)
		}
		return nil, wrapDBError(err, "Database error")
	}
	return &dispatch, nil
}
