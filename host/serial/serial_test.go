package serial

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	assert.Equal(t, Line{Subsystem: "SETTINGS", Text: "saved seq=3 slot=0"},
		ParseLine("[SETTINGS] saved seq=3 slot=0\r\n"))
	assert.Equal(t, Line{Text: "boot"}, ParseLine("boot"))
	assert.Equal(t, Line{Text: "[] empty"}, ParseLine("[] empty"))
}

func TestReadLines(t *testing.T) {
	input := "[RT] spark_on -> preburn\r\n[MODE] burn\r\npartial"
	var got []Line
	require.NoError(t, ReadLines(strings.NewReader(input), func(l Line) {
		got = append(got, l)
	}))
	require.Len(t, got, 3)
	assert.Equal(t, "RT", got[0].Subsystem)
	assert.Equal(t, "burn", got[1].Text)
	assert.Equal(t, "partial", got[2].Text)
}
