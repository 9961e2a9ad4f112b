package findings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// layout creates files relative to root; a trailing slash creates a directory.
func layout(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if name[len(name)-1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func assertInvariants(t *testing.T, stats FuzzStats) {
	t.Helper()
	assert.Equal(t, stats.Crashes+stats.Timeouts, stats.TotalFiles, "total_files == crashes + timeouts")
}

func TestScanScenario(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"crashes/id:000000": "Result code: 5\n",
		"plot_data":         "1,100,0,7\n2,200,0,12\n",
	})

	stats := NewScanner(zaptest.NewLogger(t)).Scan(root)

	assert.Equal(t, uint64(1), stats.TotalFiles)
	assert.Equal(t, uint64(1), stats.Crashes)
	assert.Equal(t, uint64(0), stats.Timeouts)
	assert.Equal(t, uint64(12), stats.Coverage)
	assert.Equal(t, map[int]uint64{5: 1}, stats.ResultCodes)
	assertInvariants(t, stats)
}

func TestScanMissingRoot(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	missing := filepath.Join(t.TempDir(), "nope")

	stats := NewScanner(zap.New(core)).Scan(missing)

	assert.Zero(t, stats.TotalFiles)
	assert.Zero(t, stats.Crashes)
	assert.Zero(t, stats.Timeouts)
	assert.Zero(t, stats.Coverage)
	assert.Empty(t, stats.ResultCodes)
	warnings := logs.FilterMessage("findings directory does not exist").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zap.WarnLevel, warnings[0].Level)
}

func TestScanEmptyRoot(t *testing.T) {
	stats := NewScanner(zaptest.NewLogger(t)).Scan(t.TempDir())
	assert.Zero(t, stats.TotalFiles)
	assert.Zero(t, stats.Coverage)
	assert.Empty(t, stats.EngineStats)
}

func TestScanCountsHangsWithoutReadingThem(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"crashes/a": "nothing interesting",
		"crashes/b": "\x00\x01\x02",
		"hangs/a":   "Result code: 9\n",
		"hangs/b":   "",
		"hangs/c":   "",
	})

	stats := NewScanner(zaptest.NewLogger(t)).Scan(root)

	assert.Equal(t, uint64(5), stats.TotalFiles)
	assert.Equal(t, uint64(2), stats.Crashes)
	assert.Equal(t, uint64(3), stats.Timeouts)
	assert.Empty(t, stats.ResultCodes, "hang contents are never inspected")
	assertInvariants(t, stats)
}

func TestScanSubdirectoriesAreOpaqueEntries(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"crashes/nested/":        "",
		"crashes/nested/inner":   "Result code: 3\n",
		"crashes/top":            "Result code: 4\n",
		"hangs/nested/":          "",
		"hangs/nested/deep-hang": "",
	})

	var visited []CrashEntry
	stats := NewScanner(zaptest.NewLogger(t)).ScanWith(root, func(e CrashEntry) {
		visited = append(visited, e)
	})

	assert.Equal(t, uint64(2), stats.Crashes)
	assert.Equal(t, uint64(1), stats.Timeouts)
	assert.Equal(t, map[int]uint64{4: 1}, stats.ResultCodes)
	require.Len(t, visited, 2)
	assert.True(t, visited[0].IsDir)
	assert.Nil(t, visited[0].Code)
	require.NotNil(t, visited[1].Code)
	assert.Equal(t, 4, *visited[1].Code)
	assertInvariants(t, stats)
}

func TestHistogramModes(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"crashes/multi":  "Result code: 1, Method: GET, Path: /, Version: HTTP/1.1\nResult code: 1, Method: GET\nResult code: 2, Input size: 4\n",
		"crashes/single": "junk\nResult code: 2, Input size: 9\n",
		"crashes/none":   "no marker here\n",
	})

	first := NewScanner(zaptest.NewLogger(t)).Scan(root)
	assert.Equal(t, map[int]uint64{1: 1, 2: 1}, first.ResultCodes)
	assert.LessOrEqual(t, first.HistogramTotal(), first.Crashes)

	every := NewScanner(zaptest.NewLogger(t), WithHistogramMode(EveryMatch)).Scan(root)
	assert.Equal(t, map[int]uint64{1: 2, 2: 2}, every.ResultCodes)
	assert.Equal(t, first.Crashes, every.Crashes)
}

func TestMalformedResultCodeIsSkipped(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"crashes/bad":       "Result code: oops\n",
		"crashes/bad-then":  "Result code: -\nResult code: 7\n",
		"crashes/overflow":  "Result code: 99999999999999999999999\n",
		"crashes/negative":  "Result code: -2\n",
		"crashes/untrimmed": "prefix Result code:\t 3trailing\r\n",
	})

	stats := NewScanner(zaptest.NewLogger(t)).Scan(root)

	assert.Equal(t, uint64(5), stats.Crashes)
	assert.Equal(t, map[int]uint64{7: 1, -2: 1, 3: 1}, stats.ResultCodes)
}

func TestCoverageLastParsedRowWins(t *testing.T) {
	tests := []struct {
		name     string
		plot     string
		expected uint64
	}{
		{"afl header then rows", "# relative_time, cycles_done, cur_item, corpus_count, pending_total\n10, 0, 0, 4, 4\n20, 1, 2, 9, 1\n", 9},
		{"trailing malformed row keeps previous", "1,1,1,5\n2,2,2,oops\n", 5},
		{"short trailing row keeps previous", "1,1,1,5,6\n2,2\n", 5},
		{"negative is rejected", "1,1,1,5\n1,1,1,-3\n", 5},
		{"no parseable row", "a,b,c,d\n", 0},
		{"empty fourth field", "1,2,3,\n", 0},
		{"no trailing newline", "1,2,3,4\n5,6,7,8", 8},
		{"crlf rows", "1,2,3,4\r\n5,6,7,11\r\n", 11},
		{"empty file", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			layout(t, root, map[string]string{"plot_data": tt.plot})
			stats := NewScanner(zaptest.NewLogger(t)).Scan(root)
			assert.Equal(t, tt.expected, stats.Coverage)
		})
	}
}

func TestScanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"crashes/a":    "Result code: 1\n",
		"crashes/b":    "Result code: 3\n",
		"hangs/x":      "",
		"plot_data":    "0,0,0,1\n1,1,1,2\n",
		"fuzzer_stats": "execs_done        : 1234\nsaved_crashes     : 2\n",
	})
	s := NewScanner(zaptest.NewLogger(t))
	assert.Equal(t, s.Scan(root), s.Scan(root))
}

func TestScanReadsFuzzerStats(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"fuzzer_stats": "start_time        : 1700000000\nexecs_per_sec     : 812.33\n\nafl_banner        : http_fuzzer\nbogus line\ncommand_line      : afl-fuzz -i in -o out -- ./http_fuzzer @@\n",
	})
	stats := NewScanner(zaptest.NewLogger(t)).Scan(root)
	assert.Equal(t, map[string]string{
		"start_time":    "1700000000",
		"execs_per_sec": "812.33",
		"afl_banner":    "http_fuzzer",
		"command_line":  "afl-fuzz -i in -o out -- ./http_fuzzer @@",
	}, stats.EngineStats)
}

func TestEntryFilter(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"crashes/README.txt": "Command line used to find this crash:\n",
		"crashes/id:000000":  "Result code: 1\n",
	})
	assert.Equal(t, uint64(2), NewScanner(zaptest.NewLogger(t)).Scan(root).Crashes)
	filtered := NewScanner(zaptest.NewLogger(t), WithEntryFilter(SkipAFLReadme)).Scan(root)
	assert.Equal(t, uint64(1), filtered.Crashes)
	assertInvariants(t, filtered)
}

func TestCrashesIsAFile(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{"crashes": "not a directory"})
	stats := NewScanner(zaptest.NewLogger(t)).Scan(root)
	assert.Zero(t, stats.Crashes)
	assertInvariants(t, stats)
}

func TestScanInstances(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"master/crashes/a":     "Result code: 1\n",
		"master/plot_data":     "0,0,0,10\n",
		"master/fuzzer_stats":  "execs_done : 10\n",
		"slave_0/crashes/a":    "Result code: 1\n",
		"slave_0/crashes/b":    "Result code: 4\n",
		"slave_0/hangs/a":      "",
		"slave_0/plot_data":    "0,0,0,25\n",
		"not-an-instance/file": "",
	})

	stats := NewScanner(zaptest.NewLogger(t)).ScanInstances(root, nil)

	assert.Equal(t, uint64(4), stats.TotalFiles)
	assert.Equal(t, uint64(3), stats.Crashes)
	assert.Equal(t, uint64(1), stats.Timeouts)
	assert.Equal(t, uint64(25), stats.Coverage)
	assert.Equal(t, map[int]uint64{1: 2, 4: 1}, stats.ResultCodes)
	assert.Equal(t, "10", stats.EngineStats["master.execs_done"])
	assertInvariants(t, stats)
}

func TestScanInstancesOnCampaignRoot(t *testing.T) {
	root := t.TempDir()
	layout(t, root, map[string]string{
		"crashes/a":         "Result code: 2\n",
		"default/crashes/a": "Result code: 3\n",
	})
	s := NewScanner(zaptest.NewLogger(t))
	assert.Equal(t, s.Scan(root), s.ScanInstances(root, nil))
}

func TestParseHistogramMode(t *testing.T) {
	mode, ok := ParseHistogramMode("every")
	assert.True(t, ok)
	assert.Equal(t, EveryMatch, mode)
	mode, ok = ParseHistogramMode("")
	assert.True(t, ok)
	assert.Equal(t, FirstMatch, mode)
	_, ok = ParseHistogramMode("last")
	assert.False(t, ok)
	assert.Equal(t, "every", EveryMatch.String())
}
