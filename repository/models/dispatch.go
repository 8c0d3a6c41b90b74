package models

import "time"

// Dispatch statuses, Portuguese enum values as stored in the database.
const (
	DispatchStatusDraft     = "rascunho"
	DispatchStatusIssued    = "emitido"
	DispatchStatusInTransit = "em_transito"
	DispatchStatusCompleted = "concluido"
	DispatchStatusCancelled = "cancelado"
)

// Dispatch types.
const (
	DispatchTypeInformative   = "informativo"
	DispatchTypeDeterminative = "determinativo"
	DispatchTypeAuthorizing   = "autorizativo"
	DispatchTypeRatifying     = "homologatorio"
	DispatchTypeDecisive      = "decisorio"
)

// Dispatch represents an outgoing formal administrative communication.
// Dispatches are archived on completion or cancellation, never deleted.
type Dispatch struct {
	ID               string     `gorm:"column:dispatch_id;primaryKey;type:varchar(50)" json:"id"`
	Number           string     `gorm:"column:number;type:varchar(50);uniqueIndex;not null" json:"number"`
	Subject          string     `gorm:"column:subject;type:varchar(255);not null" json:"subject"`
	Content          string     `gorm:"column:content;type:text" json:"content"`
	DispatchType     string     `gorm:"column:dispatch_type;type:varchar(30);not null" json:"dispatch_type"`
	Priority         string     `gorm:"column:priority;type:varchar(20);default:'normal'" json:"priority"`
	Status           string     `gorm:"column:status;type:varchar(20);default:'rascunho'" json:"status"`
	WorkflowStatus   string     `gorm:"column:workflow_status;type:varchar(20);default:'nao_iniciado'" json:"workflow_status"`
	OriginUnitID     string     `gorm:"column:origin_unit_id;type:varchar(50);index" json:"origin_unit_id"`
	OriginUnit       *Unit      `gorm:"foreignKey:OriginUnitID" json:"origin_unit,omitempty"`
	Deadline         *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`
	RequiresApproval bool       `gorm:"column:requires_approval;default:false" json:"requires_approval"`
	RequiresResponse bool       `gorm:"column:requires_response;default:false" json:"requires_response"`
	SignerID         *string    `gorm:"column:signer_id;type:varchar(50);index" json:"signer_id,omitempty"`
	Signer           *User      `gorm:"foreignKey:SignerID" json:"signer,omitempty"`
	CreatorID        string     `gorm:"column:creator_id;type:varchar(50);index" json:"creator_id"`
	Creator          *User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Archived         bool       `gorm:"column:archived;default:false" json:"archived"`
	ArchivedAt       *time.Time `gorm:"column:archived_at" json:"archived_at,omitempty"`
	RetentionUntil   *time.Time `gorm:"column:retention_until" json:"retention_until,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	EmittedAt        *time.Time `gorm:"column:emitted_at" json:"emitted_at,omitempty"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt      *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`

	// Relationships
	Approvals  []DispatchApproval  `gorm:"foreignKey:DispatchID" json:"approvals,omitempty"`
	Signatures []DispatchSignature `gorm:"foreignKey:DispatchID" json:"signatures,omitempty"`
}

// ValidDispatchType reports whether t is one of the known dispatch types.
func ValidDispatchType(t string) bool {
	switch t {
	case DispatchTypeInformative, DispatchTypeDeterminative, DispatchTypeAuthorizing,
		DispatchTypeRatifying, DispatchTypeDecisive:
		return true
	}
	return false
}
