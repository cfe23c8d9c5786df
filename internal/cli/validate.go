package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/paramtrace/internal/staticdata"
)

// ValidationIssue is one problem found in a property definition.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Properties []string          `json:"properties,omitempty"`
	Errors     []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <properties>",
		Short: "Validate properties and report every problem",
		Long: `Validate CUE property definitions.

Unlike compile, validate does not stop at the first problem of a
property: every unknown state, event or parameter is reported with its
source line.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, err := ValidatePath(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	for _, name := range result.Properties {
		formatter.VerboseLog("Validated property: %s", name)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidatePath validates every property in path. The error is non-nil only
// when nothing could be loaded at all.
func ValidatePath(path string) (*ValidationResult, error) {
	loadResult, loadErrors := LoadProperties(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	result := &ValidationResult{Valid: true}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, toIssue(err))
	}
	for _, prop := range loadResult.Properties {
		if _, err := staticdata.Compile(prop.FSM); err != nil {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    ErrCodeInvalidAutomaton,
				Message: fmt.Sprintf("property.%s: %v", prop.Name(), err),
			})
			continue
		}
		result.Properties = append(result.Properties, prop.Name())
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}

func toIssue(err error) ValidationIssue {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		issue.File = loadErr.Pos.Filename()
		issue.Line = loadErr.Pos.Line()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All properties valid (%d)\n", len(result.Properties))
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
