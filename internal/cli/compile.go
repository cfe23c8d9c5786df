package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/paramtrace/internal/compiler"
	"github.com/roach88/paramtrace/internal/ir"
	"github.com/roach88/paramtrace/internal/staticdata"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // output file path
	Property string // compile only this property
}

// CompiledProperty is one property with its static model.
type CompiledProperty struct {
	Name  string                 `json:"name"`
	Hash  string                 `json:"hash"`
	Spec  *ir.PropertySpec       `json:"spec"`
	Model staticdata.Description `json:"model"`
}

// CompilationResult holds the compiled properties.
type CompilationResult struct {
	Properties []CompiledProperty `json:"properties"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <properties>",
		Short: "Compile CUE properties and describe their static model",
		Long: `Compile CUE property definitions and print the static model the
engine derives from each: enable sets, creation and disabling events,
derive and join candidates, and the parameter tree shapes.

<properties> is a .cue file or a directory holding one CUE package.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON result to this file")
	cmd.Flags().StringVarP(&opts.Property, "property", "p", "", "compile only the named property")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadProperties(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	props := loadResult.Properties
	if opts.Property != "" {
		prop, err := compiler.Find(props, opts.Property)
		if err != nil {
			return outputCompileError(formatter, ErrCodeNotFound, err.Error(), nil)
		}
		props = []*compiler.Property{prop}
	}

	result := &CompilationResult{Properties: make([]CompiledProperty, 0, len(props))}
	for _, prop := range props {
		formatter.VerboseLog("Compiling property: %s", prop.Name())
		model, err := staticdata.Compile(prop.FSM)
		if err != nil {
			return outputCompileError(formatter, ErrCodeInvalidAutomaton,
				fmt.Sprintf("property %s: %v", prop.Name(), err), nil)
		}
		result.Properties = append(result.Properties, CompiledProperty{
			Name:  prop.Name(),
			Hash:  prop.Hash,
			Spec:  prop.Spec,
			Model: model.Describe(),
		})
	}

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d propert%s\n\n", len(result.Properties), plural(len(result.Properties), "y", "ies"))
	for _, p := range result.Properties {
		fmt.Fprintf(w, "%s (%s)\n", p.Name, p.Hash)
		fmt.Fprint(w, p.Model.String())
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compiled properties to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		if err := formatter.Failure(cliErrors[0].Code, cliErrors[0].Message, cliErrors); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeResultToFile writes the compilation result as indented JSON.
func writeResultToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
