package models

import "time"

// Approval statuses.
const (
	ApprovalStatusPending  = "pendente"
	ApprovalStatusApproved = "aprovado"
	ApprovalStatusRejected = "rejeitado"
	ApprovalStatusReturned = "devolvido"
)

// DispatchApproval is one approver's pending/decided state for a dispatch.
// approval_order is unique per dispatch and defines list ordering only;
// approvers may decide in any order. Version is the optimistic lock counter
// checked on decision updates.
type DispatchApproval struct {
	ID            string     `gorm:"column:approval_id;primaryKey;type:varchar(50)" json:"id"`
	DispatchID    string     `gorm:"column:dispatch_id;type:varchar(50);not null;index;uniqueIndex:idx_dispatch_approval_order" json:"dispatch_id"`
	Dispatch      *Dispatch  `gorm:"foreignKey:DispatchID" json:"dispatch,omitempty"`
	ApproverID    *string    `gorm:"column:approver_id;type:varchar(50);index" json:"approver_id,omitempty"`
	Approver      *User      `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	ApprovalOrder int        `gorm:"column:approval_order;not null;uniqueIndex:idx_dispatch_approval_order" json:"approval_order"`
	Status        string     `gorm:"column:status;type:varchar(20);default:'pendente'" json:"status"`
	Comments      string     `gorm:"column:comments;type:text" json:"comments"`
	ApprovedAt    *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	Version       int        `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ValidDecisionStatus reports whether s is a status an approver may record.
// Pendente is the initial state, not a decision.
func ValidDecisionStatus(s string) bool {
	switch s {
	case ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusReturned:
		return true
	}
	return false
}
