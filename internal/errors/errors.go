package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/healthchain/internal/logger"
)

// Error kinds surfaced by the stores. Callers match them with errors.Is.
var (
	// ErrValidation marks bad user input: empty fields, mismatched or short
	// passwords, negative quantities, unknown enum values.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an operation on an id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a storage read or write failure.
	ErrPersistence = errors.New("persistence error")
	// ErrAlreadyClaimed is returned when a reward is claimed a second time.
	ErrAlreadyClaimed = errors.New("reward already claimed")
	// ErrNoWallet is returned by wallet operations that need a wallet before one exists.
	ErrNoWallet = errors.New("no wallet: create one first")
)

// Validation returns an ErrValidation carrying msg.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Validationf is Validation with a format string.
func Validationf(format string, args ...interface{}) error {
	return Validation(fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the kind of record and its id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// Persistence wraps a storage failure for op. Both ErrPersistence and the
// underlying cause stay matchable.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
