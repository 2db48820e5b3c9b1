package config

import "github.com/gear6io/icecat/pkg/errors"

// Config-specific error codes
var (
	ErrConfigFileReadFailed   = errors.MustNewCode("config.file_read_failed")
	ErrConfigFileParseFailed  = errors.MustNewCode("config.file_parse_failed")
	ErrConfigValidationFailed = errors.MustNewCode("config.validation_failed")
	ErrDatabaseURLRequired    = errors.MustNewCode("config.database_url_required")
	ErrWarehousePathRequired  = errors.MustNewCode("config.warehouse_path_required")
	ErrWarehousePathRelative  = errors.MustNewCode("config.warehouse_path_relative")

	// Logging-specific error codes
	ErrLogDirectoryCreationFailed = errors.MustNewCode("config.log_directory_creation_failed")
	ErrLogFileOpenFailed          = errors.MustNewCode("config.log_file_open_failed")
	ErrLogFileWriterSetupFailed   = errors.MustNewCode("config.log_file_writer_setup_failed")
)
