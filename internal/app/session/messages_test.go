package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

func TestDescribeGivesDistinctTexts(t *testing.T) {
	kinds := []domain.ErrorKind{
		domain.ErrorKindMalformedRequest,
		domain.ErrorKindAccessDenied,
		domain.ErrorKindModelNotFound,
		domain.ErrorKindNetwork,
		domain.ErrorKindCancelled,
		domain.ErrorKindSessionUnavailable,
	}

	seen := map[string]domain.ErrorKind{}
	for _, k := range kinds {
		text := Describe(&domain.ModelError{Kind: k, Err: errors.New("x")})
		assert.NotEmpty(t, text)
		if prev, dup := seen[text]; dup {
			t.Fatalf("kinds %s and %s share text %q", prev, k, text)
		}
		seen[text] = k
	}
}

func TestDescribeUnknownEmbedsRawError(t *testing.T) {
	text := Describe(errors.New("quota exhausted for project 42"))
	assert.Contains(t, text, "quota exhausted for project 42")
	assert.Empty(t, Describe(nil))
}
