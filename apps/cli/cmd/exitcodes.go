package cmd

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/abdul-hamid-achik/mocha/packages/api"
	"github.com/abdul-hamid-achik/mocha/packages/composer"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

// Exit codes for the mocha CLI
const (
	// ExitSuccess indicates the command completed
	ExitSuccess = 0

	// ExitFailure indicates a failed request, a failed run or an API error
	ExitFailure = 1

	// ExitValidationError indicates a request or file that cannot be sent or read
	ExitValidationError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitAuthError indicates a missing or rejected session
	ExitAuthError = 5

	// ExitCancelled indicates the user interrupted a dispatch
	ExitCancelled = 130

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

var errCancelled = errors.New("cancelled")

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func usageError(format string, args ...any) error {
	return withExitCode(ExitUsageError, fmt.Errorf(format, args...))
}

func configError(err error) error {
	return withExitCode(ExitConfigError, err)
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var ve *composer.ValidationError
	if errors.As(err, &ve) {
		return ExitValidationError
	}
	var se *workspace.SchemaError
	if errors.As(err, &se) {
		return ExitValidationError
	}
	if errors.Is(err, errCancelled) {
		return ExitCancelled
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return ExitAuthError
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ExitNetworkError
	}
	return ExitFailure
}
