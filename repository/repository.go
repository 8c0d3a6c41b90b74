package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sgd-gov/despacho-service/repository/models"
)

// PostgreSQL error codes as constants
const (
	// Class 23 — Integrity Constraint Violation
	PgErrForeignKeyViolation = "23503" // foreign_key_violation
	PgErrUniqueViolation     = "23505" // unique_violation
	PgErrCheckViolation      = "23514" // check_violation
	PgErrNotNullViolation    = "23502" // not_null_violation

	// Class 08 — Connection Exception
	PgErrConnectionException = "08000" // connection_exception
	PgErrConnectionFailure   = "08006" // connection_failure

	// Class 40 — Transaction Rollback
	PgErrTransactionRollback = "40000" // transaction_rollback
)

// Repository error codes
const (
	ErrCodeNotFound     = "ENTITY_NOT_FOUND"
	ErrCodeInvalidState = "INVALID_STATE"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeDatabase     = "DATABASE_ERROR"
)

// RepositoryError represents an error in the repository layer
type RepositoryError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
}

// Repository owns database access for dispatches, approvals and signatures.
type Repository struct {
	db        *gorm.DB
	logger    *zap.Logger
	retention time.Duration
}

// NewRepository creates a Repository. retention is the period archived
// dispatches are kept before they show up on the destruction-review report.
func NewRepository(logger *zap.Logger, retention time.Duration) *Repository {
	return &Repository{
		logger:    logger,
		retention: retention,
	}
}

// ConnectDB opens the Postgres connection, retrying while the database
// container comes up.
func (r *Repository) ConnectDB(dsn string) error {
	var lastErr error
	for i := 0; i < 10; i++ {
		db, err := gorm.Open(postgres.Open(dsn))
		if err == nil {
			r.db = db
			r.logger.Info("connected to Postgres")
			return nil
		}
		lastErr = err
		r.logger.Warn("connection attempt failed", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("connect to postgres: %w", lastErr)
}

// UseDB injects an already-open gorm handle. Intended for tests.
func (r *Repository) UseDB(db *gorm.DB) {
	r.db = db
}

func (r *Repository) Migrate() error {
	err := r.db.AutoMigrate(
		&models.Unit{},
		&models.User{},
		&models.Dispatch{},
		&models.DispatchApproval{},
		&models.DispatchSignature{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	r.logger.Info("database migration completed")
	return nil
}

// Seed loads reference units and users when the database is empty.
func (r *Repository) Seed() error {
	var unitCount int64
	r.db.Model(&models.Unit{}).Count(&unitCount)
	if unitCount > 0 {
		r.logger.Info("seed data already exists, skipping")
		return nil
	}

	units := []models.Unit{
		{ID: "UNI-001", Name: "Gabinete do Secretário", Acronym: "GAB"},
		{ID: "UNI-002", Name: "Departamento de Protocolo", Acronym: "DEPROT"},
		{ID: "UNI-003", Name: "Procuradoria Administrativa", Acronym: "PROADM"},
		{ID: "UNI-004", Name: "Divisão de Arquivo e Memória", Acronym: "DAM"},
	}
	for _, unit := range units {
		if err := r.db.Create(&unit).Error; err != nil {
			return fmt.Errorf("seed unit %s: %w", unit.ID, err)
		}
	}

	users := []models.User{
		{ID: "USR-001", Name: "Helena Barros", Position: "Secretária Adjunta", Registration: "MAT-10482", UnitID: "UNI-001", Role: "gestor"},
		{ID: "USR-002", Name: "Carlos Mendonça", Position: "Chefe de Protocolo", Registration: "MAT-20931", UnitID: "UNI-002", Role: "gestor"},
		{ID: "USR-003", Name: "Renata Luz", Position: "Procuradora", Registration: "MAT-30177", UnitID: "UNI-003", Role: "servidor"},
		{ID: "USR-004", Name: "Jorge Tavares", Position: "Arquivista", Registration: "MAT-41209", UnitID: "UNI-004", Role: "servidor"},
		{ID: "USR-005", Name: "Beatriz Amaral", Position: "Analista Administrativa", Registration: "MAT-52660", UnitID: "UNI-002", Role: "servidor"},
	}
	for _, user := range users {
		if err := r.db.Create(&user).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", user.ID, err)
		}
	}

	r.logger.Info("database seeding completed")
	return nil
}

// wrapDBError converts a gorm/pg error into a RepositoryError, surfacing the
// SQLSTATE code when the driver provides one.
func wrapDBError(err error, message string) *RepositoryError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := ErrCodeDatabase
		if pgErr.Code == PgErrUniqueViolation {
			code = ErrCodeConflict
		}
		return &RepositoryError{
			Code:    code,
			Message: pgErr.Message,
			Detail:  pgErr.Detail,
		}
	}
	return &RepositoryError{
		Code:    ErrCodeDatabase,
		Message: message,
		Detail:  err.Error(),
	}
}

func notFound(entity, id string) *RepositoryError {
	return &RepositoryError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s does not exist", entity),
		Detail:  fmt.Sprintf("%s with id %s does not exist", entity, id),
	}
}
