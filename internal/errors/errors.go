// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrBotDisabled        = errors.New("bot disabled")
	ErrMissingCredentials = errors.New("missing exchange credentials")
	ErrPositionExists     = errors.New("open position already exists")
	ErrPositionNotFound   = errors.New("position not found")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrOrderRejected      = errors.New("order rejected")
)

// ConfigError represents a configuration failure. It is fatal for the tick:
// no partial action is taken.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error [%s]: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("config error [%s]: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// MarketDataError represents a market data fetch failure. The tick aborts
// with no position mutation.
type MarketDataError struct {
	Endpoint string
	Symbol   string
	Err      error
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("market data error [%s] %s: %v", e.Endpoint, e.Symbol, e.Err)
}

func (e *MarketDataError) Unwrap() error {
	return e.Err
}

// NewMarketDataError creates a new MarketDataError.
func NewMarketDataError(endpoint, symbol string, err error) *MarketDataError {
	return &MarketDataError{
		Endpoint: endpoint,
		Symbol:   symbol,
		Err:      err,
	}
}

// ExecutionError represents an order placement failure. The tick aborts
// before any persistence write so recorded state matches exchange reality.
type ExecutionError struct {
	Side     string
	Kind     string // entry or exit
	Quantity float64
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error [%s %s qty=%.6f]: %v", e.Kind, e.Side, e.Quantity, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(kind, side string, quantity float64, err error) *ExecutionError {
	return &ExecutionError{
		Side:     side,
		Kind:     kind,
		Quantity: quantity,
		Err:      err,
	}
}

// ValidationError represents a validation error at the settings boundary.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
