package screening

import "fmt"

// ValidationError reports a client-correctable problem with a submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("Missing required field: %s", field)}
}

// ConfigurationError reports a required configuration value that is absent.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not set in environment", e.Key)
}
