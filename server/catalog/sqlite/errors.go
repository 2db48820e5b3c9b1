package sqlite

import "github.com/gear6io/icecat/pkg/errors"

// Package-specific error codes for the sqlite catalog store
var (
	ErrDatabaseOpenFailed  = errors.MustNewCode("catalog_sqlite.database_open_failed")
	ErrDatabaseInitFailed  = errors.MustNewCode("catalog_sqlite.database_init_failed")
	ErrDatabaseCloseFailed = errors.MustNewCode("catalog_sqlite.database_close_failed")
	ErrQueryFailed         = errors.MustNewCode("catalog_sqlite.query_failed")
	ErrTxFailed            = errors.MustNewCode("catalog_sqlite.transaction_failed")
	ErrPropertiesEncode    = errors.MustNewCode("catalog_sqlite.properties_encode_failed")
	ErrPropertiesDecode    = errors.MustNewCode("catalog_sqlite.properties_decode_failed")
)
