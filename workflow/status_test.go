package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sgd-gov/despacho-service/repository/models"
)

func approvalsWith(statuses ...string) []models.DispatchApproval {
	approvals := make([]models.DispatchApproval, 0, len(statuses))
	for i, s := range statuses {
		approvals = append(approvals, models.DispatchApproval{
			ID:            "APR-" + string(rune('a'+i)),
			DispatchID:    "DSP-1",
			ApprovalOrder: i + 1,
			Status:        s,
		})
	}
	return approvals
}

func TestProjectApprovals(t *testing.T) {
	t.Run("no approvals means not started", func(t *testing.T) {
		assert.Equal(t, StatusNotStarted, ProjectApprovals(nil))
		assert.Equal(t, StatusNotStarted, ProjectApprovals([]models.DispatchApproval{}))
	})

	t.Run("single pending approval means in approval", func(t *testing.T) {
		got := ProjectApprovals(approvalsWith(models.ApprovalStatusPending))
		assert.Equal(t, StatusInApproval, got)
	})

	t.Run("all approved means approved", func(t *testing.T) {
		got := ProjectApprovals(approvalsWith(
			models.ApprovalStatusApproved,
			models.ApprovalStatusApproved,
			models.ApprovalStatusApproved,
		))
		assert.Equal(t, StatusApproved, got)
	})

	t.Run("any rejection wins regardless of other states", func(t *testing.T) {
		got := ProjectApprovals(approvalsWith(
			models.ApprovalStatusApproved,
			models.ApprovalStatusRejected,
			models.ApprovalStatusPending,
		))
		assert.Equal(t, StatusRejected, got)
	})

	t.Run("second approver rejects while first is still pending", func(t *testing.T) {
		// Approvers act independently in any order; a rejection at order 2
		// projects rejeitado even though order 1 has not decided.
		got := ProjectApprovals(approvalsWith(
			models.ApprovalStatusPending,
			models.ApprovalStatusRejected,
		))
		assert.Equal(t, StatusRejected, got)
	})

	t.Run("returned approval keeps the chain open", func(t *testing.T) {
		got := ProjectApprovals(approvalsWith(
			models.ApprovalStatusApproved,
			models.ApprovalStatusReturned,
		))
		assert.Equal(t, StatusInApproval, got)
	})

	t.Run("mixed approved and pending means in approval", func(t *testing.T) {
		got := ProjectApprovals(approvalsWith(
			models.ApprovalStatusApproved,
			models.ApprovalStatusPending,
		))
		assert.Equal(t, StatusInApproval, got)
	})
}

func TestSigned(t *testing.T) {
	t.Run("no signatures", func(t *testing.T) {
		assert.False(t, Signed(nil))
	})

	t.Run("valid signature", func(t *testing.T) {
		sigs := []models.DispatchSignature{{ID: "SIG-1", IsValid: true}}
		assert.True(t, Signed(sigs))
	})

	t.Run("only invalidated signatures", func(t *testing.T) {
		sigs := []models.DispatchSignature{{ID: "SIG-1", IsValid: false}}
		assert.False(t, Signed(sigs))
	})
}

func TestProject(t *testing.T) {
	t.Run("signature does not alter the approval projection", func(t *testing.T) {
		approvals := approvalsWith(models.ApprovalStatusApproved)
		sigs := []models.DispatchSignature{{ID: "SIG-1", IsValid: true}}

		snap := Project(approvals, sigs)
		assert.Equal(t, StatusApproved, snap.Status)
		assert.True(t, snap.Signed)

		// Same approvals without the signature: status identical.
		snapNoSig := Project(approvals, nil)
		assert.Equal(t, snap.Status, snapNoSig.Status)
		assert.False(t, snapNoSig.Signed)
	})

	t.Run("signed dispatch with no approvals is still not started", func(t *testing.T) {
		sigs := []models.DispatchSignature{{ID: "SIG-1", IsValid: true}}
		snap := Project(nil, sigs)
		assert.Equal(t, StatusNotStarted, snap.Status)
		assert.True(t, snap.Signed)
	})
}
