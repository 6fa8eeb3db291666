package ledger

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
		{"not found", notFoundf("Op", "chat not found"), KindNotFound},
		{"validation", invalidf("Op", "bad"), KindValidation},
		{"unexpected", unexpected("Op", errors.New("boom")), KindUnexpected},
		{"plain error", errors.New("plain"), KindUnexpected},
		{"wrapped not found", fmt.Errorf("outer: %w", notFoundf("Op", "x")), KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsNotFound(notFoundf("Op", "x")))
	assert.False(t, IsNotFound(invalidf("Op", "x")))
	assert.False(t, IsNotFound(nil))

	assert.True(t, IsValidation(invalidf("Op", "x")))
	assert.False(t, IsValidation(errors.New("x")))
	assert.False(t, IsValidation(nil))
}

func TestUnexpected(t *testing.T) {
	t.Run("keeps ledger errors", func(t *testing.T) {
		inner := notFoundf("Inner", "gone")
		require.Same(t, inner, unexpected("Outer", inner))
	})

	t.Run("wraps store errors", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := unexpected("AdjustBalance", cause)
		require.ErrorIs(t, err, cause)
		require.Equal(t, "ledger.AdjustBalance: connection reset", err.Error())
	})
}

func TestError_Message(t *testing.T) {
	err := notFoundf("GetStatus", "chat not found")
	require.Equal(t, "ledger.GetStatus: chat not found", err.Error())
	require.Equal(t, "not_found", KindNotFound.String())
	require.Equal(t, "validation", KindValidation.String())
	require.Equal(t, "unexpected", KindUnexpected.String())
}
