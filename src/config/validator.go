package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/elee1766/claudexport/src/exporter"
	"github.com/elee1766/claudexport/src/resolver"
)

// Validator validates configuration values using go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("export_mode", validateExportMode)
	v.RegisterValidation("artifact_policy", validateArtifactPolicy)
	v.RegisterValidation("folder_policy", validateFolderPolicy)
	v.RegisterValidation("log_level", validateLogLevel)
	v.RegisterValidation("log_format", validateLogFormat)

	return &Validator{
		validate: v,
	}
}

// Validate validates a complete configuration
func (v *Validator) Validate(config *Config) error {
	if config.Version == "" {
		config.Version = "1.0"
	}

	if err := v.validate.Struct(config); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			e := validationErrors[0]
			return ValidationError{
				Field:   e.Namespace(),
				Message: fmt.Sprintf("validation failed on tag '%s' with value '%v'", e.Tag(), e.Value()),
				Value:   e.Value(),
			}
		}
		return err
	}

	if config.Export.ForceArchive && config.Export.ArchiveName == "" {
		return ValidationError{Field: "Config.Export.ArchiveName", Message: "required when force_archive is set"}
	}

	return nil
}

// Custom validation functions for go-playground/validator

func validateExportMode(fl validator.FieldLevel) bool {
	_, err := resolver.ParseMode(fl.Field().String())
	return err == nil
}

func validateArtifactPolicy(fl validator.FieldLevel) bool {
	_, err := exporter.ParseArtifactPolicy(fl.Field().String())
	return err == nil
}

// validateFolderPolicy allows empty, which picks a policy per scope
func validateFolderPolicy(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := exporter.ParseFolderPolicy(value)
	return err == nil
}

func validateLogLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return slices.Contains([]string{"debug", "info", "warn", "error"}, value)
}

func validateLogFormat(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return slices.Contains([]string{"json", "text"}, value)
}
