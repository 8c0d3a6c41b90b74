package repository

import (
	"context"
	"time"

	"github.com/sgd-gov/despacho-service/repository/models"
)

// CreateDispatchInput carries the writable fields of a new dispatch.
type CreateDispatchInput struct {
	Number           string     `json:"number"`
	Subject          string     `json:"subject"`
	Content          string     `json:"content"`
	DispatchType     string     `json:"dispatch_type"`
	Priority         string     `json:"priority"`
	OriginUnitID     string     `json:"origin_unit_id"`
	CreatorID        string     `json:"creator_id"`
	SignerID         *string    `json:"signer_id,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	RequiresResponse bool       `json:"requires_response"`
}

// DispatchFilter narrows ListDispatches. Zero values mean "no filter".
type DispatchFilter struct {
	Status          string
	DispatchType    string
	OriginUnitID    string
	IncludeArchived bool
}

// DecisionInput is one approver's decision on a pending approval.
// ExpectedVersion is the row version the caller last read; a stale value
// yields a CONFLICT requiring re-fetch-and-retry.
type DecisionInput struct {
	ApprovalID      string `json:"approval_id"`
	Status          string `json:"status"`
	Comments        string `json:"comments"`
	ExpectedVersion int    `json:"version"`
}

// BulkDecisionInput applies the same decision to every listed approval.
type BulkDecisionInput struct {
	ApprovalIDs []string `json:"approval_ids"`
	Status      string   `json:"status"`
	Comments    string   `json:"comments"`
}

// SignatureInput carries a signing action.
type SignatureInput struct {
	DispatchID    string  `json:"dispatch_id"`
	SignerID      string  `json:"signer_id"`
	SignatureType string  `json:"signature_type"`
	SignatureData *string `json:"signature_data,omitempty"`
	DeviceInfo    string  `json:"device_info"`
	IPAddress     string  `json:"ip_address"`
}

// Summary aggregates dispatch counts for the reporting dashboard.
type Summary struct {
	Total            int64            `json:"total"`
	ByStatus         map[string]int64 `json:"by_status"`
	ByWorkflowStatus map[string]int64 `json:"by_workflow_status"`
	PendingApprovals int64            `json:"pending_approvals"`
}

// Store is the persistence surface the HTTP layer depends on.
type Store interface {
	CreateDispatch(ctx context.Context, input CreateDispatchInput) (*models.Dispatch, *RepositoryError)
	GetDispatch(ctx context.Context, id string) (*models.Dispatch, *RepositoryError)
	ListDispatches(ctx context.Context, filter DispatchFilter) ([]models.Dispatch, *RepositoryError)
	EmitDispatch(ctx context.Context, id string) (*models.Dispatch, *RepositoryError)
	CompleteDispatch(ctx context.Context, id string) (*models.Dispatch, *RepositoryError)
	CancelDispatch(ctx context.Context, id string) (*models.Dispatch, *RepositoryError)
	ListRetentionDue(ctx context.Context, asOf time.Time) ([]models.Dispatch, *RepositoryError)
	DispatchSummary(ctx context.Context) (*Summary, *RepositoryError)

	ListDispatchApprovals(ctx context.Context, dispatchID string) ([]models.DispatchApproval, *RepositoryError)
	ListPendingApprovals(ctx context.Context, approverID string) ([]models.DispatchApproval, *RepositoryError)
	CountPendingApprovals(ctx context.Context, approverID string) (int64, *RepositoryError)
	AddApprover(ctx context.Context, dispatchID, approverID string, order int) (*models.DispatchApproval, *RepositoryError)
	RemoveApprover(ctx context.Context, approvalID string) (*models.DispatchApproval, *RepositoryError)
	RecordDecision(ctx context.Context, input DecisionInput) (*models.DispatchApproval, *RepositoryError)
	BulkDecide(ctx context.Context, input BulkDecisionInput) (int64, *RepositoryError)

	SignDispatch(ctx context.Context, input SignatureInput) (*models.DispatchSignature, *RepositoryError)
	ListDispatchSignatures(ctx context.Context, dispatchID string) ([]models.DispatchSignature, *RepositoryError)
}

var _ Store = (*Repository)(nil)
