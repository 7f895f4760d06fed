package workflow

import (
	"fmt"
	"strings"

	"github.com/stagegate/stagegate/pkg/deliverable"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors for a definition.
type ValidationResult struct {
	Errors []ValidationError
}

// Valid returns true if no validation errors were found.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message from all validation errors.
func (r ValidationResult) Error() string {
	if r.Valid() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Validate checks a Definition for required fields and structural
// correctness. Producer names are checked against the registry so a
// typo fails at load time instead of mid-run.
func Validate(def Definition, registry *deliverable.Registry) ValidationResult {
	var result ValidationResult

	if def.APIVersion == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field: "apiVersion", Message: "required",
		})
	} else if def.APIVersion != "stagegate/v1" {
		result.Errors = append(result.Errors, ValidationError{
			Field: "apiVersion", Message: fmt.Sprintf("unsupported version %q (expected stagegate/v1)", def.APIVersion),
		})
	}

	if def.Kind == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field: "kind", Message: "required",
		})
	} else if def.Kind != "Workflow" {
		result.Errors = append(result.Errors, ValidationError{
			Field: "kind", Message: fmt.Sprintf("unsupported kind %q (expected Workflow)", def.Kind),
		})
	}

	if def.Name == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field: "name", Message: "required",
		})
	}

	if def.Budget < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field: "budget", Message: "must not be negative",
		})
	}

	if len(def.Stages) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field: "stages", Message: "at least one stage is required",
		})
	}

	for i, stage := range def.Stages {
		if stage.Producer == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("stages[%d].producer", i),
				Message: "required",
			})
			continue
		}
		if registry != nil {
			if _, err := registry.Lookup(stage.Producer); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Field:   fmt.Sprintf("stages[%d].producer", i),
					Message: fmt.Sprintf("unknown producer %q", stage.Producer),
				})
			}
		}
		if strings.TrimSpace(stage.Instruction) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("stages[%d].instruction", i),
				Message: "required",
			})
		}
	}

	// Duplicate param names shadow each other silently; reject them.
	paramNames := make(map[string]bool)
	for i, p := range def.Params {
		if p.Name == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("params[%d].name", i),
				Message: "required",
			})
		} else if paramNames[p.Name] {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fmt.Sprintf("params[%d].name", i),
				Message: fmt.Sprintf("duplicate param name %q", p.Name),
			})
		} else {
			paramNames[p.Name] = true
		}
	}

	return result
}
