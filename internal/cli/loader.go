package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/paramtrace/internal/compiler"
)

// LoadMode controls how errors are handled during property loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the properties loaded from a file or directory.
type LoadResult struct {
	Properties []*compiler.Property // sorted by name
	CUEValue   cue.Value            // The raw CUE value for additional processing
	FileCount  int                  // Number of CUE files found
}

// LoadError represents an error that occurred during property loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProperties loads and compiles the properties declared in path, which
// is either a single .cue file or a directory holding one CUE package.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects every problem of every property.
func LoadProperties(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("properties path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing properties path: %v", err)}}
	}

	var value cue.Value
	var fileCount int
	if info.IsDir() {
		value, fileCount, err = loadDir(path)
	} else {
		value, err = loadFile(path)
		fileCount = 1
	}
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: fileCount,
	}

	propsVal := value.LookupPath(cue.ParsePath("property"))
	if !propsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoProperties, Message: "no property definitions found"}}
	}
	iter, err := propsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating properties: %v", err)}}
	}

	var errs []error
	for iter.Next() {
		label := "property." + iter.Label()
		spec, problems := compiler.CheckProperty(iter.Value())
		if len(problems) > 0 {
			for _, p := range problems {
				errs = append(errs, convertCompileError(p, label))
				if mode == LoadModeFailFast {
					return result, errs
				}
			}
			continue
		}
		prop, err := compiler.Build(spec)
		if err != nil {
			errs = append(errs, convertCompileError(err, label))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Properties = append(result.Properties, prop)
	}
	sort.Slice(result.Properties, func(i, j int) bool {
		return result.Properties[i].Name() < result.Properties[j].Name()
	})

	return result, errs
}

func loadDir(dir string) (cue.Value, int, error) {
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, len(cueFiles), nil
}

func loadFile(path string) (cue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	value := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// validationCode matches the "[E2xx] " prefix the compiler puts on
// validation messages.
var validationCode = regexp.MustCompile(`^\[(E\d{3})\] `)

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code, message := SplitErrorCode(compileErr.Message)
		switch {
		case code != "":
		case strings.HasSuffix(message, " is required"):
			code = ErrCodeMissingField
		default:
			code = MapFieldToErrorCode(compileErr.Field)
		}
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", context, message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeInvalidAutomaton,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// SplitErrorCode separates a leading "[Exxx] " validation code from msg.
// The code is empty if msg carries none.
func SplitErrorCode(msg string) (string, string) {
	m := validationCode.FindStringSubmatch(msg)
	if m == nil {
		return "", msg
	}
	return m[1], msg[len(m[0]):]
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No CUE files found
	ErrCodeLoadFailed   = "E004" // CUE load failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeNoProperties = "E008" // No property definitions

	// Structural errors in a property definition
	ErrCodeMissingField     = "E101" // Required field absent
	ErrCodeInvalidType      = "E102" // Field has the wrong type
	ErrCodeInvalidCUE       = "E103" // CUE evaluation error
	ErrCodeInvalidAutomaton = "E104" // Automaton rejected after validation

	// E200-E212 come from compiler validation unchanged.
)

// MapFieldToErrorCode maps a structural compiler error field to an error
// code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeInvalidCUE
	case "property":
		return ErrCodeNoProperties
	case "":
		return ErrCodeGeneric
	default:
		return ErrCodeInvalidType
	}
}
