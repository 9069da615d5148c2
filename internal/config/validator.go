package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers sessionguard-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("api_base_url", validateAPIBaseURL); err != nil {
		return fmt.Errorf("failed to register api_base_url validator: %w", err)
	}
	return nil
}

// validateAPIBaseURL validates the server base URL: an absolute http(s) URL
// with a host and no query or fragment.
func validateAPIBaseURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.RawQuery == "" && u.Fragment == ""
}

// Validate validates the Config using struct tags and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// The fallback check is meant to catch expiry between server passes, so
	// it has to run more often than the server check.
	if c.Session.TickInterval > c.Session.StatusInterval {
		return fmt.Errorf("session: tick_interval (%s) must not exceed status_interval (%s)",
			c.Session.TickInterval, c.Session.StatusInterval)
	}

	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "api_base_url":
		return fmt.Sprintf("%s must be an absolute http(s) URL without query or fragment", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
