package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sgd-gov/despacho-service/repository/models"
)

// validateSignatureInput runs the edge checks that must reject a signing
// action before any write happens.
func validateSignatureInput(input SignatureInput) *RepositoryError {
	if !models.ValidSignatureType(input.SignatureType) {
		return &RepositoryError{
			Code:    ErrCodeValidation,
			Message: "Invalid signature type",
			Detail:  fmt.Sprintf("Signature type must be digital, manuscrita or certificado, got %q", input.SignatureType),
		}
	}
	if input.SignatureType == models.SignatureTypeHandDrawn &&
		(input.SignatureData == nil || *input.SignatureData == "") {
		return &RepositoryError{
			Code:    ErrCodeValidation,
			Message: "Hand-drawn signature requires image data",
			Detail:  "signature_data must carry the rendered canvas payload when signature_type is manuscrita",
		}
	}
	if input.SignerID == "" {
		return &RepositoryError{
			Code:    ErrCodeValidation,
			Message: "Signer is required",
			Detail:  "signer_id must not be empty",
		}
	}
	return nil
}

// SignDispatch inserts an immutable signature row. The image payload is
// opaque; only its presence is checked for manuscrita. is_valid is set true
// at creation and never re-evaluated. The dispatch's workflow_status column
// is untouched; "is signed" is derived from the signature rows themselves.
func (r *Repository) SignDispatch(ctx context.Context, input SignatureInput) (*models.DispatchSignature, *RepositoryError) {
	if repoErr := validateSignatureInput(input); repoErr != nil {
		return nil, repoErr
	}

	dbTx := r.db.WithContext(ctx).Begin()

	var dispatch models.Dispatch
	err := dbTx.Where("dispatch_id = ?", input.DispatchID).First(&dispatch).Error
	if err != nil {
		dbTx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Dispatch", input.DispatchID)
		}
		return nil, wrapDBError(err, "Database error")
	}

	signature := models.DispatchSignature{
		ID:            newID("SIG"),
		DispatchID:    dispatch.ID,
		SignerID:      input.SignerID,
		SignatureType: input.SignatureType,
		SignatureData: input.SignatureData,
		SignedAt:      time.Now(),
		IsValid:       true,
		IPAddress:     input.IPAddress,
		DeviceInfo:    input.DeviceInfo,
	}

	if err := dbTx.Create(&signature).Error; err != nil {
		dbTx.Rollback()
		return nil, wrapDBError(err, "Failed to create signature")
	}

	if err := dbTx.Commit().Error; err != nil {
		return nil, wrapDBError(err, "Failed to commit transaction")
	}
	return &signature, nil
}

// ListDispatchSignatures returns a dispatch's signatures newest first, with
// signer identity preloaded.
func (r *Repository) ListDispatchSignatures(ctx context.Context, dispatchID string) ([]models.DispatchSignature, *RepositoryError) {
	var signatures []models.DispatchSignature
	err := r.db.WithContext(ctx).
		Preload("Signer").
		Where("dispatch_id = ?", dispatchID).
		Order("signed_at desc").
		Find(&signatures).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to list signatures")
	}
	return signatures, nil
}
