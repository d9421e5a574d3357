package cmd

import (
	"fmt"
	"os"

	"payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and provides user-friendly messages
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if appErr, ok := errors.AsError(err); ok {
		return h.handleAppError(appErr)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// handleAppError prints the typed error with its context and category help.
func (h *CLIErrorHandler) handleAppError(err *errors.Error) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", key, value)
		}
	}

	if help := categoryHelp(err.Category); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return exitCode(err.Category)
}

func categoryHelp(category errors.Category) string {
	switch category {
	case errors.CategoryConfiguration:
		return `Configuration help:
- Check RECONCILER_* environment variables and --config file settings
- Run with --verbose to see which settings were loaded`
	case errors.CategoryNetwork:
		return `Network help:
- Check connectivity to the bank API
- Verify the token with: reconciler ping
- Transient failures are retried on the next check`
	case errors.CategoryStorage:
		return `Storage help:
- Verify the database is reachable at the configured DSN
- Check that the service role may create and alter tables`
	default:
		return ""
	}
}

func exitCode(category errors.Category) int {
	switch category {
	case errors.CategoryConfiguration, errors.CategoryValidation:
		return 2
	case errors.CategoryNetwork:
		return 3
	case errors.CategoryStorage:
		return 4
	default:
		return 1
	}
}
