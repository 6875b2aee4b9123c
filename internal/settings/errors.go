package settings

import (
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
)

var (
	// ErrUnregisteredKey is returned when a key is read or written before it
	// was registered. It is a programming error and therefore fatal.
	ErrUnregisteredKey = errors.SettingsError("setting is not registered").Build()

	// ErrInvalidValue is returned by Set when a value does not match the
	// key's declared type.
	ErrInvalidValue = errors.ValidationError("value does not match the setting type").Build()

	// ErrDecode is returned by Get when a stored value cannot be decoded into
	// the key's declared type.
	ErrDecode = errors.SettingsError("stored setting value cannot be decoded").
		WithSeverity(errors.SeverityError).Build()

	// ErrInvalidDefinition is returned by Register for a malformed definition.
	ErrInvalidDefinition = errors.ValidationError("invalid setting definition").Build()
)
