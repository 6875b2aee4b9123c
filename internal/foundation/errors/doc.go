// Package errors provides the classified error primitives used across simple-weather.
//
// Errors carry a category (settings, store, dependency, ...), a severity and a retry
// hint, plus free-form context. Construction goes through the fluent builder:
//
//	err := errors.SettingsError("setting is not registered").
//		WithContext("key", key).
//		Build()
//
// The CLI adapter turns classified errors into exit codes and log records.
package errors
