package privacy

import "fmt"

// ConfigError reports a rule that cannot be loaded
type ConfigError struct {
	Rule string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("invalid rule configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid rule %q: %v", e.Rule, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DuplicateNameError reports a rule name that is already registered
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("rule %q is already registered", e.Name)
}
