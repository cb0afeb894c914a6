package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_RoundTrip(t *testing.T) {
	s := NewString("unlock-token-123")

	got, err := s.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "unlock-token-123", got)

	// Repeated reveals return the same value.
	got, err = s.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "unlock-token-123", got)
}

func TestString_Empty(t *testing.T) {
	s := NewString("")
	assert.True(t, s.IsEmpty())

	got, err := s.Reveal()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestString_Wipe(t *testing.T) {
	s := NewString("gone-soon")
	s.Wipe()
	assert.True(t, s.IsEmpty())

	got, err := s.Reveal()
	require.NoError(t, err)
	assert.Empty(t, got)
}
