package validation

import (
	"fmt"
	"strings"
	"time"

	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
)

// ValidateNonNegative validates that an integer value is non-negative (>= 0).
// Returns a ValidationError if the value is negative.
func ValidateNonNegative(module, field string, value int) error {
	if value < 0 {
		return qserrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is positive (> 0).
func ValidatePositiveDuration(module, field string, value time.Duration) error {
	if value <= 0 {
		return qserrors.NewValidationError(module, field, value, "must be positive").
			WithHint("use a duration such as 500ms or 2s")
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil.
// Returns a ValidationError if the value is nil.
func ValidateNotNil(module, field string, value interface{}) error {
	if value == nil {
		return qserrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return qserrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateOneOf validates that value is one of allowed. Comparison is case-insensitive.
func ValidateOneOf(module, field, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return qserrors.NewValidationError(module, field, value, "unsupported value").
		WithHint("use one of " + strings.Join(allowed, ", "))
}

// ValidateKeys validates a list of store keys: at least one entry, none
// empty, no duplicates.
func ValidateKeys(module, field string, keys []string) error {
	if len(keys) == 0 {
		return qserrors.NewValidationError(module, field, keys, "cannot be empty").
			WithHint("configure at least one " + field)
	}
	seen := make(map[string]struct{}, len(keys))
	for i, k := range keys {
		if k == "" {
			return qserrors.NewValidationError(module, fmt.Sprintf("%s[%d]", field, i), k, "cannot be empty").
				WithHint("remove the blank entry")
		}
		if _, dup := seen[k]; dup {
			return qserrors.NewValidationError(module, fmt.Sprintf("%s[%d]", field, i), k, "duplicate key").
				WithHint("list each key once")
		}
		seen[k] = struct{}{}
	}
	return nil
}
