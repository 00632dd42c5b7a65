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

// validateSettings validates a merged Settings using struct tags and
// custom rules, translating failures into the typed ConfigError taxonomy.
func validateSettings(s *Settings) error {
	if err := validate.Struct(s); err != nil {
		return translateValidationError(err)
	}

	// Rules that cannot be expressed in tags.
	if r := s.PassivePorts; r != nil {
		if r.Start < 1 || r.End > 65535 || r.Start > r.End {
			return newError(ErrInvalidPassivePortRange, "passive_ports",
				fmt.Sprintf("must be an ascending pair within [1, 65535], got [%d, %d]", r.Start, r.End))
		}
	}

	return nil
}

// translateValidationError maps the first validator.v10 failure onto the
// configuration error taxonomy by field name.
func translateValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return err
	}

	e := validationErrs[0]
	switch e.Field() {
	case "Port":
		return newError(ErrPortOutOfRange, "port",
			fmt.Sprintf("port must be within [1, 65535], got %v", e.Value()))
	case "MaxConnections":
		return newError(ErrInvalidConnectionLimit, "max_cons",
			fmt.Sprintf("max_cons must be a positive integer, got %v", e.Value()))
	case "MaxConnectionsPerIP":
		return newError(ErrInvalidConnectionLimit, "max_cons_per_ip",
			fmt.Sprintf("max_cons_per_ip must be a positive integer, got %v", e.Value()))
	case "ConnRate":
		return newError(ErrInvalidConnectionLimit, "conn_rate",
			fmt.Sprintf("conn_rate must not be negative, got %v", e.Value()))
	case "ListenAddress":
		return newError(ErrMissingField, "listen", "listen address must not be empty")
	default:
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
}
