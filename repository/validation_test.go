package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgd-gov/despacho-service/repository/models"
)

func TestValidateSignatureInput(t *testing.T) {
	payload := "data:image/png;base64,iVBORw0KGgo="

	t.Run("digital without payload is fine", func(t *testing.T) {
		err := validateSignatureInput(SignatureInput{
			SignerID:      "USR-001",
			SignatureType: models.SignatureTypeDigital,
		})
		assert.Nil(t, err)
	})

	t.Run("manuscrita requires image data", func(t *testing.T) {
		err := validateSignatureInput(SignatureInput{
			SignerID:      "USR-001",
			SignatureType: models.SignatureTypeHandDrawn,
		})
		require.NotNil(t, err)
		assert.Equal(t, ErrCodeValidation, err.Code)

		empty := ""
		err = validateSignatureInput(SignatureInput{
			SignerID:      "USR-001",
			SignatureType: models.SignatureTypeHandDrawn,
			SignatureData: &empty,
		})
		require.NotNil(t, err)
		assert.Equal(t, ErrCodeValidation, err.Code)
	})

	t.Run("manuscrita with payload passes", func(t *testing.T) {
		err := validateSignatureInput(SignatureInput{
			SignerID:      "USR-001",
			SignatureType: models.SignatureTypeHandDrawn,
			SignatureData: &payload,
		})
		assert.Nil(t, err)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		err := validateSignatureInput(SignatureInput{
			SignerID:      "USR-001",
			SignatureType: "biometria",
		})
		require.NotNil(t, err)
		assert.Equal(t, ErrCodeValidation, err.Code)
	})

	t.Run("missing signer rejected", func(t *testing.T) {
		err := validateSignatureInput(SignatureInput{
			SignatureType: models.SignatureTypeDigital,
		})
		require.NotNil(t, err)
		assert.Equal(t, ErrCodeValidation, err.Code)
	})
}

func TestWrapDBError(t *testing.T) {
	t.Run("unique violation becomes conflict", func(t *testing.T) {
		pgErr := &pgconn.PgError{
			Code:    PgErrUniqueViolation,
			Message: "duplicate key value violates unique constraint",
			Detail:  "Key (dispatch_id, approval_order)=(DSP-1, 1) already exists.",
		}
		repoErr := wrapDBError(pgErr, "Failed to create approval")
		assert.Equal(t, ErrCodeConflict, repoErr.Code)
		assert.Contains(t, repoErr.Detail, "approval_order")
	})

	t.Run("other pg errors keep the database code", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: PgErrForeignKeyViolation, Message: "fk violation"}
		repoErr := wrapDBError(pgErr, "Failed to create approval")
		assert.Equal(t, ErrCodeDatabase, repoErr.Code)
	})

	t.Run("plain errors are wrapped with the given message", func(t *testing.T) {
		repoErr := wrapDBError(errors.New("connection refused"), "Database error")
		assert.Equal(t, ErrCodeDatabase, repoErr.Code)
		assert.Equal(t, "Database error", repoErr.Message)
		assert.Equal(t, "connection refused", repoErr.Detail)
	})
}

func TestNotFoundError(t *testing.T) {
	err := notFound("Dispatch", "DSP-404")
	assert.Equal(t, ErrCodeNotFound, err.Code)
	assert.Contains(t, err.Detail, "DSP-404")
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}
