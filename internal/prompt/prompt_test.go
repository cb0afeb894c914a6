package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminal_Confirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"whatever\n", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			t.Parallel()

			var out strings.Builder
			term := &Terminal{in: strings.NewReader(tt.input), out: &out}

			got, err := term.Confirm("Proceed?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Proceed? [y/N]")
		})
	}
}

func TestTerminal_ReadLine(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	term := &Terminal{in: strings.NewReader("Git-Config\n"), out: &out}

	got, err := term.ReadLine("Type the item name:")
	require.NoError(t, err)
	assert.Equal(t, "Git-Config", got)
}

func TestNonInteractive_RefusesEverything(t *testing.T) {
	t.Parallel()

	ni := NonInteractive{}

	_, err := ni.Confirm("really?")
	assert.Error(t, err)
	_, err = ni.ReadLine("name?")
	assert.Error(t, err)
	_, err = ni.ReadPassword("password?")
	assert.Error(t, err)
}

func TestScripted_Replays(t *testing.T) {
	t.Parallel()

	s := &Scripted{
		Answers:   []string{"Git-Config"},
		Passwords: []string{"hunter2"},
		Confirms:  []bool{true, false},
	}

	ok, err := s.Confirm("first?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Confirm("second?")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Confirm("exhausted?")
	assert.Error(t, err)

	line, err := s.ReadLine("name?")
	require.NoError(t, err)
	assert.Equal(t, "Git-Config", line)

	pw, err := s.ReadPassword("pw?")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	assert.Len(t, s.Questions, 5)
}
