package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("title is required"), KindValidation},
		{"bad identifier is validation", BadIdentifier("source_id must be an integer"), KindValidation},
		{"not found", NotFound("clue 3 not found"), KindNotFound},
		{"reference missing is not found", ReferenceMissing("referenced clue not found"), KindNotFound},
		{"duplicate", Duplicate("connection already exists"), KindConflict},
		{"malformed json", MalformedJSON(errors.New("unexpected EOF")), KindMalformedDocument},
		{"invalid format", InvalidFormat("invalid format"), KindInvalidDocument},
		{"wrapped keeps kind", fmt.Errorf("delete clue: %w", NotFound("clue 9 not found")), KindNotFound},
		{"plain error is internal", errors.New("disk full"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestInternal_PreservesMessage(t *testing.T) {
	cause := errors.New("database is locked")
	err := Internal(cause)

	assert.Equal(t, "database is locked", err.Message)
	assert.Equal(t, CodeInternal, err.Code)
	assert.ErrorIs(t, err, cause)
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("create connection: %w", Duplicate("connection already exists"))

	assert.True(t, Is(err, CodeDuplicate))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(nil, CodeDuplicate))
}

func TestError_Format(t *testing.T) {
	e, ok := As(MalformedJSON(errors.New("invalid character 'x'")))
	require.True(t, ok)
	assert.Equal(t, "DOC001: malformed JSON: invalid character 'x'", e.Error())
	assert.Equal(t, "NF001: clue 1 not found", NotFound("clue 1 not found").Error())
}
