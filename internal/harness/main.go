package harness

import (
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"protofuzz/config"
	"protofuzz/internal/oracle"
	"protofuzz/internal/sidelog"
	"protofuzz/pkg/logger"
)

// Target describes a harness binary: which oracle it drives and where its
// side-channel log goes.
type Target struct {
	Oracle  string
	LogPath func(cfg *config.HarnessConfig) string // nil when the oracle never logs
}

var (
	RedisTarget = Target{"redis", func(c *config.HarnessConfig) string { return c.RedisFuzzerLog }}
	HTTPTarget  = Target{"http", func(c *config.HarnessConfig) string { return c.HTTPFuzzerLog }}
	FlitTarget  = Target{"flit", nil}
)

// Main is the body of a standalone harness binary: `<harness> <input_file>`.
// args follows os.Args conventions.
func Main(args []string, stderr io.Writer, target Target) int {
	if len(args) < 2 {
		prog := "harness"
		if len(args) > 0 {
			prog = filepath.Base(args[0])
		}
		fmt.Fprintf(stderr, "Usage: %s <input_file>\n", prog)
		return 1
	}
	cfg := config.LoadConfig()
	lg := logger.NewHarnessLogger(cfg.LogLevel, stderr)
	defer lg.Sync()

	var sink oracle.LogSink
	if target.LogPath != nil {
		if file := sidelog.Open(target.LogPath(&cfg.HarnessConfig)); file != nil {
			defer func() {
				if err := file.Close(); err != nil {
					lg.Warn("failed to close side log", zap.String("path", file.Path()), zap.Error(err))
				}
			}()
			sink = file
		}
	}

	o, err := oracle.ByName(target.Oracle, sink)
	if err != nil {
		lg.Error("failed to build oracle", zap.Error(err))
		return 1
	}
	return NewRunner(o, lg).Run(args[1], stderr)
}
