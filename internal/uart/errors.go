package uart

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("endpoint configuration")

// ErrUnknownDriver is returned for a driver name with no opener.
var ErrUnknownDriver = errors.New("unknown serial driver")

// ConfigurationError reports an endpoint that could not be brought up:
// invalid parameters, a rejected device, or driver resources that could not
// be allocated. It is fatal at startup.
type ConfigurationError struct {
	Endpoint string
	Field    string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("endpoint %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("endpoint %s: %s: %v", e.Endpoint, e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// configError wraps err for the endpoint unless it already is a ConfigurationError.
func configError(endpoint, field string, err error) error {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return err
	}
	return &ConfigurationError{Endpoint: endpoint, Field: field, Err: err}
}
