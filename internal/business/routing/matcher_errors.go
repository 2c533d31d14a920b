package routing

import "errors"

// Engine/matcher errors.
var (
	// ErrInvalidRuleKind indicates a stream rule referenced an unknown kind.
	// Surfaced at build time; the rule is dropped with a warning.
	ErrInvalidRuleKind = errors.New("invalid rule kind")

	// ErrRegexCompile indicates a Regex rule's pattern failed to compile.
	// The rule is dropped at build time and the owning stream's required
	// rule count is adjusted so it can never match (spec.md §9, fail-closed).
	ErrRegexCompile = errors.New("regex pattern failed to compile")

	// ErrEmptyEngine describes an Engine with no matchable streams. Build
	// does not return it: an empty engine is valid (routing still works,
	// it just never matches anything) and Engine.Empty reports the case.
	ErrEmptyEngine = errors.New("engine has no matchable streams")

	// ErrContextCancelled describes a matching call cancelled by its
	// context. TestMatch takes no context, and nothing in this package
	// returns this error.
	ErrContextCancelled = errors.New("matching cancelled by context")
)

// ErrCatalogueUnavailable indicates the Engine Updater failed to load
// streams/rules from the catalogue. The previous engine is retained.
type ErrCatalogueUnavailable struct {
	Err error
}

func (e *ErrCatalogueUnavailable) Error() string {
	return "catalogue unavailable: " + e.Err.Error()
}

func (e *ErrCatalogueUnavailable) Unwrap() error { return e.Err }
