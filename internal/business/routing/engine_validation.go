package routing

import (
	"fmt"
	"regexp"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// EngineValidationError reports one problem found while validating a
// catalogue snapshot before it is built into an Engine. Grounded on the
// teacher's TreeValidationError (tree_validation.go): same
// Type/Path/Message/Field shape, adapted from route-tree concerns
// (cycles, receiver references) to stream-rule concerns (unknown kinds,
// bad regex, duplicate rules).
type EngineValidationError struct {
	Type    ValidationErrorType
	Path    string
	Message string
	Field   string
}

func (e EngineValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s): %s", e.Type, e.Path, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Path, e.Message)
}

// ValidationErrorType categorises a validation error.
type ValidationErrorType string

const (
	// ErrUnknownRuleKind indicates a rule referencing an undefined kind.
	ErrUnknownRuleKind ValidationErrorType = "unknown_rule_kind"

	// ErrInvalidRegex indicates a Regex rule whose pattern does not
	// compile under Go's regexp package.
	ErrInvalidRegex ValidationErrorType = "invalid_regex"

	// ErrEmptyField indicates a rule with no field name.
	ErrEmptyField ValidationErrorType = "empty_field"

	// ErrDuplicateRule indicates two rules on the same stream testing the
	// same (kind, field, value, inversion) tuple — redundant, and a
	// strong signal of a catalogue data-entry mistake.
	ErrDuplicateRule ValidationErrorType = "duplicate_rule"

	// ErrUnmatchableStream indicates an enabled, unpaused stream with no
	// rules at all; such a stream can never match anything (spec.md §8).
	ErrUnmatchableStream ValidationErrorType = "unmatchable_stream"
)

// String implements fmt.Stringer.
func (t ValidationErrorType) String() string { return string(t) }

// ValidationErrors collects every EngineValidationError found in one
// Validate call.
type ValidationErrors []EngineValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors (first: %s)", len(e), e[0].Message)
}

// HasErrors reports whether any validation errors were collected.
func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

// ByType filters errors of one type.
func (e ValidationErrors) ByType(t ValidationErrorType) ValidationErrors {
	var out ValidationErrors
	for _, err := range e {
		if err.Type == t {
			out = append(out, err)
		}
	}
	return out
}

// Validate performs a non-mutating sanity pass over a catalogue snapshot
// ahead of EngineBuilder.Build, surfacing every problem EngineBuilder
// would otherwise silently drop-and-log. Used by the CLI's "validate"
// subcommand so a catalogue editor finds
// mistakes before they quietly exclude a stream (spec.md §9 fail-closed
// behaviour).
func Validate(streams []domain.Stream) ValidationErrors {
	var errs ValidationErrors

	for si, s := range streams {
		path := fmt.Sprintf("streams[%d]", si)
		if s.Enabled && !s.Paused && len(s.Rules) == 0 {
			errs = append(errs, EngineValidationError{
				Type:    ErrUnmatchableStream,
				Path:    path,
				Message: fmt.Sprintf("stream %q is enabled but has no rules and can never match", s.ID),
			})
		}

		seen := make(map[string]string)
		for ri, r := range s.Rules {
			rulePath := fmt.Sprintf("%s.rules[%d]", path, ri)

			if kindSlot(r.Kind) < 0 {
				errs = append(errs, EngineValidationError{
					Type:    ErrUnknownRuleKind,
					Path:    rulePath,
					Message: fmt.Sprintf("rule %q has unknown kind %v", r.ID, r.Kind),
					Field:   "kind",
				})
				continue
			}
			if r.Field == "" {
				errs = append(errs, EngineValidationError{
					Type:    ErrEmptyField,
					Path:    rulePath,
					Message: fmt.Sprintf("rule %q has no field name", r.ID),
					Field:   "field",
				})
			}
			if r.Kind == domain.RuleRegex {
				if _, err := regexp.Compile(r.Value); err != nil {
					errs = append(errs, EngineValidationError{
						Type:    ErrInvalidRegex,
						Path:    rulePath,
						Message: fmt.Sprintf("rule %q: pattern %q: %v", r.ID, r.Value, err),
						Field:   "value",
					})
				}
			}

			key := fmt.Sprintf("%s\x00%s\x00%s\x00%t", r.Kind, r.Field, r.Value, r.Inverted)
			if dupe, ok := seen[key]; ok {
				errs = append(errs, EngineValidationError{
					Type:    ErrDuplicateRule,
					Path:    rulePath,
					Message: fmt.Sprintf("rule %q duplicates rule %q", r.ID, dupe),
				})
			}
			seen[key] = r.ID
		}
	}

	return errs
}
