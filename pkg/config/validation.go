package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus custom rules
// that cannot be expressed declaratively. Level normalization happens in
// ApplyDefaults, so tag validation only sees uppercase values.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	switch cfg.Store.Type {
	case "file":
		if path, _ := cfg.Store.File["path"].(string); path == "" {
			return fmt.Errorf("store.file: path is required")
		}
	case "badger":
		path, _ := cfg.Store.Badger["path"].(string)
		inMemory, _ := cfg.Store.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("store.badger: path is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
