package store

import "codeberg.org/mutker/netpulse/internal/errors"

const (
	// Configuration Errors
	ErrInvalidDBPath = errors.ErrorCode("store_invalid_db_path")

	// Storage Errors
	ErrStorageInit   = errors.ErrStoreUnavailable
	ErrStorageAccess = errors.ErrStoreUnavailable
	ErrStorageClose  = errors.ErrorCode("store_close_failed")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("store_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("store_schema_validation_failed")
)
