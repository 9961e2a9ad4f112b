package harness

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"protofuzz/config"
	"protofuzz/internal/oracle"
)

func writeInput(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadInput(t *testing.T) {
	data, err := LoadInput(writeInput(t, []byte("*1\r\n")))
	require.NoError(t, err)
	assert.Equal(t, []byte("*1\r\n"), data)

	data, err = LoadInput(writeInput(t, nil))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLoadInputErrors(t *testing.T) {
	_, err := LoadInput(filepath.Join(t.TempDir(), "missing"))
	var ioErr *IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = LoadInput(t.TempDir())
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}

type recordingOracle struct {
	inputs [][]byte
	limit  int
}

func (r *recordingOracle) Name() string  { return "recording" }
func (r *recordingOracle) MaxInput() int { return r.limit }
func (r *recordingOracle) Classify(data []byte) oracle.Result {
	r.inputs = append(r.inputs, append([]byte(nil), data...))
	return oracle.Result{Code: len(data)}
}

func TestRunnerAppliesSizeLimit(t *testing.T) {
	o := &recordingOracle{limit: 4}
	r := NewRunner(o, zaptest.NewLogger(t))

	assert.Equal(t, 4, r.Execute([]byte("0123456789")).Code)
	assert.Equal(t, 2, r.Execute([]byte("01")).Code)
	assert.Equal(t, [][]byte{[]byte("0123"), []byte("01")}, o.inputs)
}

func TestRunnerRun(t *testing.T) {
	o := &recordingOracle{}
	r := NewRunner(o, zaptest.NewLogger(t))
	var stderr bytes.Buffer

	assert.Equal(t, 0, r.Run(writeInput(t, []byte("hello")), &stderr))
	assert.Empty(t, stderr.String())

	assert.Equal(t, 1, r.Run(filepath.Join(t.TempDir(), "missing"), &stderr))
	assert.True(t, strings.HasPrefix(stderr.String(), "Error reading file: "))
	assert.Len(t, o.inputs, 1, "the oracle never sees unreadable inputs")
}

func TestMainUsage(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 1, Main([]string{"/bin/http_fuzzer"}, &stderr, HTTPTarget))
	assert.Equal(t, "Usage: http_fuzzer <input_file>\n", stderr.String())
}

func TestMainHTTPWritesSideLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "http.log")
	t.Setenv(config.HTTPFuzzerLogEnv, logPath)
	t.Setenv("LOG_LEVEL", "error")

	var stderr bytes.Buffer
	assert.Equal(t, 0, Main([]string{"http_fuzzer", writeInput(t, []byte("GET / HTTP/1.1\r\n"))}, &stderr, HTTPTarget))
	assert.Equal(t, 0, Main([]string{"http_fuzzer", writeInput(t, []byte("BROKEN"))}, &stderr, HTTPTarget))

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "Result code: 1, Method: GET, Path: /, Version: HTTP/1.1\n", string(content))
}

func TestMainRedisWithoutSideLog(t *testing.T) {
	t.Setenv(config.RedisFuzzerLogEnv, "")
	var stderr bytes.Buffer
	assert.Equal(t, 0, Main([]string{"redis_fuzzer", writeInput(t, []byte("+OK\r\n"))}, &stderr, RedisTarget))
}

func TestMainMissingInput(t *testing.T) {
	var stderr bytes.Buffer
	code := Main([]string{"flit_fuzzer", filepath.Join(t.TempDir(), "missing")}, &stderr, FlitTarget)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error reading file: ")
}

func TestMainFlitTruncatesLongInputs(t *testing.T) {
	var stderr bytes.Buffer
	input := bytes.Repeat([]byte{0xff}, 64)
	assert.Equal(t, 0, Main([]string{"flit_fuzzer", writeInput(t, input)}, &stderr, FlitTarget))
}
