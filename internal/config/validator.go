package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers guardrail-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("tenant_name", validateTenantName); err != nil {
		return fmt.Errorf("failed to register tenant_name validator: %w", err)
	}
	return nil
}

// validateTenantName rejects tenant identifiers containing whitespace, which
// would make audit filters and CLI flags ambiguous.
func validateTenantName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return name != "" && !strings.ContainsAny(name, " \t\n")
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return c.validateStoragePath()
}

// validateStoragePath ensures the sqlite backend has a database path.
func (c *Config) validateStoragePath() error {
	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		return errors.New("storage: sqlite backend requires a database path")
	}
	return nil
}

// formatValidationErrors converts validator errors into readable messages.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q constraint", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
