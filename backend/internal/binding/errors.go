package binding

import "fmt"

// ConfigurationError reports a binding configuration that cannot be resolved.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("binding %s: %s", e.Field, e.Reason)
}
