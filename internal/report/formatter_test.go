package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protofuzz/internal/findings"
)

func TestFormatText(t *testing.T) {
	stats := findings.FuzzStats{
		TotalFiles:  4,
		Crashes:     3,
		Timeouts:    1,
		Coverage:    77,
		ResultCodes: map[int]uint64{5: 2, 1: 1},
	}
	out := FormatText("Redis Protocol", stats)
	lines := strings.Split(out, "\n")

	require.GreaterOrEqual(t, len(lines), 9)
	assert.Equal(t, []string{
		"===== Redis Protocol Fuzzing Summary =====",
		"Total files: 4",
		"Crashes: 3",
		"Timeouts: 1",
		"Code coverage paths: 77",
		"Result code distribution:",
	}, lines[:6])
	assert.ElementsMatch(t, []string{
		"  Code 1: 1 occurrences",
		"  Code 5: 2 occurrences",
	}, lines[6:8])
	assert.True(t, strings.HasSuffix(out, "\n\n"), "summary ends with a blank line")
}

func TestFormatTextEmpty(t *testing.T) {
	out := FormatText("HTTP Protocol", findings.FuzzStats{})
	assert.Equal(t, "===== HTTP Protocol Fuzzing Summary =====\n"+
		"Total files: 0\n"+
		"Crashes: 0\n"+
		"Timeouts: 0\n"+
		"Code coverage paths: 0\n"+
		"Result code distribution:\n"+
		"\n", out)
}

func TestFormatTextDeterministic(t *testing.T) {
	stats := findings.FuzzStats{ResultCodes: map[int]uint64{3: 1, -1: 4, 0: 2, 2: 9}}
	first := FormatText("x", stats)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FormatText("x", stats))
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON("HTTP Protocol", findings.FuzzStats{
		TotalFiles:  1,
		Crashes:     1,
		Coverage:    12,
		ResultCodes: map[int]uint64{1: 1},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "HTTP Protocol", decoded["campaign"])
	assert.Equal(t, float64(1), decoded["total_files"])
	assert.Equal(t, float64(12), decoded["coverage"])
	assert.Equal(t, map[string]any{"1": float64(1)}, decoded["result_codes"])
	assert.NotContains(t, decoded, "engine_stats")
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter("").Render(&buf, "a", findings.FuzzStats{}))
	assert.Contains(t, buf.String(), "===== a Fuzzing Summary =====")

	buf.Reset()
	require.NoError(t, NewFormatter(JSON).Render(&buf, "a", findings.FuzzStats{}))
	assert.Contains(t, buf.String(), `"result_codes":{}`)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, Text, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
