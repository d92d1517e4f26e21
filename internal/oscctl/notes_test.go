package oscctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoteTokenHz(t *testing.T) {
	hz, err := ParseNoteToken("440")
	require.NoError(t, err)
	assert.InDelta(t, 440, hz, 0.001)
}

func TestParseNoteTokenMIDI(t *testing.T) {
	hz, err := ParseNoteToken("69")
	require.NoError(t, err)
	assert.InDelta(t, 440, hz, 0.001)
}

func TestParseNoteTokenName(t *testing.T) {
	hz, err := ParseNoteToken("A4")
	require.NoError(t, err)
	assert.InDelta(t, 440, hz, 0.01)

	hz, err = ParseNoteToken("C4")
	require.NoError(t, err)
	assert.InDelta(t, 261.63, hz, 0.1)

	sharp, err := ParseNoteToken("C#4")
	require.NoError(t, err)
	flat, err2 := ParseNoteToken("Db4")
	require.NoError(t, err2)
	assert.InDelta(t, sharp, flat, 0.01)
}

func TestParseNoteTokenInvalid(t *testing.T) {
	_, err := ParseNoteToken("")
	assert.Error(t, err)
	_, err = ParseNoteToken("H4")
	assert.Error(t, err)
}

func TestParseNoteList(t *testing.T) {
	notes, err := ParseNoteList("A4,C4,60")
	require.NoError(t, err)
	require.Len(t, notes, 3)
}
