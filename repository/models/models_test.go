package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidDecisionStatus(t *testing.T) {
	assert.True(t, ValidDecisionStatus(ApprovalStatusApproved))
	assert.True(t, ValidDecisionStatus(ApprovalStatusRejected))
	assert.True(t, ValidDecisionStatus(ApprovalStatusReturned))

	// Pendente is the initial state, never a decision.
	assert.False(t, ValidDecisionStatus(ApprovalStatusPending))
	assert.False(t, ValidDecisionStatus(""))
	assert.False(t, ValidDecisionStatus("approved"))
}

func TestValidSignatureType(t *testing.T) {
	assert.True(t, ValidSignatureType(SignatureTypeDigital))
	assert.True(t, ValidSignatureType(SignatureTypeHandDrawn))
	assert.True(t, ValidSignatureType(SignatureTypeCertificate))
	assert.False(t, ValidSignatureType("pki"))
}

func TestValidDispatchType(t *testing.T) {
	for _, dt := range []string{
		DispatchTypeInformative,
		DispatchTypeDeterminative,
		DispatchTypeAuthorizing,
		DispatchTypeRatifying,
		DispatchTypeDecisive,
	} {
		assert.True(t, ValidDispatchType(dt), dt)
	}
	assert.False(t, ValidDispatchType("memorando"))
}
