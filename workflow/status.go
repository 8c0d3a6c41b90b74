// Package workflow derives a dispatch's coarse workflow status from its
// approval and signature rows. It is the single authoritative projection:
// every screen, gate and mutation that needs the status calls Project
// instead of recomputing its own variant.
package workflow

import "github.com/sgd-gov/despacho-service/repository/models"

// Status is the derived approval state of a dispatch.
type Status string

const (
	StatusNotStarted Status = "nao_iniciado"
	StatusInApproval Status = "em_aprovacao"
	StatusApproved   Status = "aprovado"
	StatusRejected   Status = "rejeitado"
)

// Snapshot pairs the approval projection with the independent signed check.
type Snapshot struct {
	Status Status `json:"status"`
	Signed bool   `json:"signed"`
}

// Project derives the full workflow snapshot from the current record sets.
// The signed flag is independent of the approval status; a signature never
// alters the projected approval state.
func Project(approvals []models.DispatchApproval, signatures []models.DispatchSignature) Snapshot {
	return Snapshot{
		Status: ProjectApprovals(approvals),
		Signed: Signed(signatures),
	}
}

// ProjectApprovals derives the approval status alone:
//   - no approval rows: nao_iniciado
//   - any rejected row: rejeitado, regardless of the others (first rejection
//     wins, there is no escalation or override path)
//   - every row approved: aprovado
//   - otherwise (pending or returned rows remain): em_aprovacao
func ProjectApprovals(approvals []models.DispatchApproval) Status {
	if len(approvals) == 0 {
		return StatusNotStarted
	}
	allApproved := true
	for _, a := range approvals {
		switch a.Status {
		case models.ApprovalStatusRejected:
			return StatusRejected
		case models.ApprovalStatusApproved:
		default:
			// pendente and devolvido both keep the chain open
			allApproved = false
		}
	}
	if allApproved {
		return StatusApproved
	}
	return StatusInApproval
}

// Signed reports whether at least one valid signature row exists.
func Signed(signatures []models.DispatchSignature) bool {
	for _, s := range signatures {
		if s.IsValid {
			return true
		}
	}
	return false
}
