package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// Schema-level validation (foreign key targets, self-reference rules) is
// performed by the schema builder, not here.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateDatabase(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateData(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateProcessing(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateVerification(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(c.Schema.Tables) == 0 {
		errors = append(errors, ValidationError{
			Field:   "schema.tables",
			Message: "at least one table must be defined",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors
	db := &c.Database

	validDrivers := map[string]bool{"mysql": true, "postgres": true, "sqlite": true}
	if !validDrivers[db.Driver] {
		errors = append(errors, ValidationError{
			Field:   "database.driver",
			Message: "driver must be 'mysql', 'postgres', or 'sqlite'",
		})
		return errors
	}

	if db.Driver == "sqlite" {
		if db.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "database.path",
				Message: "path is required for the sqlite driver",
			})
		}
		return errors
	}

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   "database.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateData() ValidationErrors {
	var errors ValidationErrors

	if c.Data.Directory == "" {
		errors = append(errors, ValidationError{
			Field:   "data.directory",
			Message: "directory is required",
		})
	}

	if utf8.RuneCountInString(c.Data.Delimiter) != 1 {
		errors = append(errors, ValidationError{
			Field:   "data.delimiter",
			Message: "delimiter must be a single character",
		})
	}

	validCompression := map[string]bool{"none": true, "snappy": true, "": true}
	if !validCompression[c.Data.Compression] {
		errors = append(errors, ValidationError{
			Field:   "data.compression",
			Message: "compression must be 'none' or 'snappy'",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.batch_size",
			Message: "batch_size must be positive",
		})
	}

	return errors
}

func (c *Config) validateVerification() ValidationErrors {
	var errors ValidationErrors

	validMethods := map[string]bool{"count": true, "checksum": true, "skip": true, "": true}
	if !validMethods[c.Verification.Method] {
		errors = append(errors, ValidationError{
			Field:   "verification.method",
			Message: "method must be 'count', 'checksum', or 'skip'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
