package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

func TestValidate_UnmatchableStream(t *testing.T) {
	errs := Validate([]domain.Stream{{ID: "s1", Enabled: true}})
	assert.NotEmpty(t, errs.ByType(ErrUnmatchableStream))
}

func TestValidate_UnknownKindAndEmptyField(t *testing.T) {
	errs := Validate([]domain.Stream{
		{
			ID: "s1", Enabled: true,
			Rules: []domain.StreamRule{
				{ID: "r1", Kind: domain.RuleKind(99), Field: "level"},
				{ID: "r2", Kind: domain.RuleExact, Field: ""},
			},
		},
	})
	assert.Len(t, errs.ByType(ErrUnknownRuleKind), 1)
	assert.Len(t, errs.ByType(ErrEmptyField), 1)
}

func TestValidate_InvalidRegex(t *testing.T) {
	errs := Validate([]domain.Stream{
		{
			ID: "s1", Enabled: true,
			Rules: []domain.StreamRule{
				{ID: "r1", Kind: domain.RuleRegex, Field: "message_detail", Value: "(unterminated"},
			},
		},
	})
	assert.Len(t, errs.ByType(ErrInvalidRegex), 1)
}

func TestValidate_DuplicateRule(t *testing.T) {
	errs := Validate([]domain.Stream{
		{
			ID: "s1", Enabled: true,
			Rules: []domain.StreamRule{
				{ID: "r1", Kind: domain.RuleExact, Field: "level", Value: "error"},
				{ID: "r2", Kind: domain.RuleExact, Field: "level", Value: "error"},
			},
		},
	})
	assert.Len(t, errs.ByType(ErrDuplicateRule), 1)
}

func TestValidate_CleanCatalogueHasNoErrors(t *testing.T) {
	errs := Validate([]domain.Stream{
		{
			ID: "s1", Enabled: true,
			Rules: []domain.StreamRule{{ID: "r1", Kind: domain.RuleExact, Field: "level", Value: "error"}},
		},
	})
	assert.False(t, errs.HasErrors())
}
