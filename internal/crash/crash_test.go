package crash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"protofuzz/internal/types"
)

func TestCrashManagerArchivesByDigest(t *testing.T) {
	src := t.TempDir()
	a := filepath.Join(src, "id:000000")
	b := filepath.Join(src, "id:000001")
	dup := filepath.Join(src, "id:000002")
	require.NoError(t, os.WriteFile(a, []byte("GET / HTTP/1.1"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("+OK"), 0644))
	require.NoError(t, os.WriteFile(dup, []byte("GET / HTTP/1.1"), 0644))

	archive := filepath.Join(t.TempDir(), "archive")
	c, err := NewCrashManager(archive, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	c.Start()

	run := uuid.New()
	for _, f := range []string{a, b, dup} {
		c.Submit(types.CrashMessage{RunID: run, Campaign: "HTTP Protocol", CrashFile: f})
	}
	c.Submit(types.CrashMessage{RunID: run, Campaign: "HTTP Protocol", CrashFile: filepath.Join(src, "missing")})
	c.Stop()

	archived, dupes := c.Counts()
	assert.Equal(t, 2, archived)
	assert.Equal(t, 1, dupes)

	entries, err := os.ReadDir(filepath.Join(archive, "http_protocol"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Len(t, e.Name(), 32)
	}
}

func TestCrashManagerStopIsIdempotent(t *testing.T) {
	c, err := NewCrashManager(t.TempDir(), nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	c.Start()
	c.Stop()
	c.Stop()
}

func TestNewCrashManagerBadFolder(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err := NewCrashManager(filepath.Join(file, "archive"), nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestStoreName(t *testing.T) {
	assert.Equal(t, "redis_protocol", StoreName("Redis Protocol"))
	assert.Equal(t, "http_protocol", StoreName("HTTP Protocol"))
	assert.Equal(t, "a_b", StoreName("a/b"))
	assert.Equal(t, "campaign", StoreName(".."))
	assert.Equal(t, "campaign", StoreName(""))
}
