package findings

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	CrashesDir      = "crashes"
	HangsDir        = "hangs"
	PlotDataFile    = "plot_data"
	FuzzerStatsFile = "fuzzer_stats"
)

// HistogramMode decides how many result codes a single crash file may contribute.
type HistogramMode int

const (
	// FirstMatch counts the first parseable "Result code:" line of each crash file.
	FirstMatch HistogramMode = iota
	// EveryMatch counts every parseable "Result code:" line, like the legacy analyzer did.
	EveryMatch
)

func (m HistogramMode) String() string {
	if m == EveryMatch {
		return "every"
	}
	return "first"
}

// ParseHistogramMode accepts "first" and "every".
func ParseHistogramMode(s string) (HistogramMode, bool) {
	switch strings.ToLower(s) {
	case "", "first":
		return FirstMatch, true
	case "every":
		return EveryMatch, true
	}
	return FirstMatch, false
}

// EntryFilter reports whether a crashes/ or hangs/ entry should be counted.
type EntryFilter func(name string) bool

// SkipAFLReadme drops the README.txt AFL drops into crashes/.
func SkipAFLReadme(name string) bool {
	return name != "README.txt"
}

type Option func(*Scanner)

func WithHistogramMode(mode HistogramMode) Option {
	return func(s *Scanner) { s.mode = mode }
}

func WithEntryFilter(filter EntryFilter) Option {
	return func(s *Scanner) { s.filter = filter }
}

// Scanner walks findings directories laid out by AFL-style engines:
// <root>/crashes/*, <root>/hangs/*, <root>/plot_data and <root>/fuzzer_stats.
type Scanner struct {
	logger *zap.Logger
	mode   HistogramMode
	filter EntryFilter
}

func NewScanner(logger *zap.Logger, opts ...Option) *Scanner {
	s := &Scanner{logger: logger, mode: FirstMatch}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *Scanner) Mode() HistogramMode { return s.mode }

// Scan analyzes findingsDir. Missing children contribute nothing; a missing
// root is reported and yields zero stats.
func (s *Scanner) Scan(findingsDir string) FuzzStats {
	return s.ScanWith(findingsDir, nil)
}

// ScanWith is Scan with a visitor called once per crash entry.
func (s *Scanner) ScanWith(findingsDir string, visit func(CrashEntry)) FuzzStats {
	stats := newFuzzStats()
	logger := s.logger.With(zap.String("findings_dir", findingsDir))

	if _, err := os.Stat(findingsDir); err != nil {
		logger.Warn("findings directory does not exist", zap.Error(err))
		return stats
	}

	for _, entry := range s.listEntries(filepath.Join(findingsDir, CrashesDir), logger) {
		stats.addCrash()
		crash := CrashEntry{Path: entry.path, IsDir: entry.isDir}
		if !entry.isDir {
			crash.Code = s.recordCodes(entry.path, &stats, logger)
		}
		if visit != nil {
			visit(crash)
		}
	}

	for range s.listEntries(filepath.Join(findingsDir, HangsDir), logger) {
		stats.addTimeout()
	}

	if coverage, ok := s.readCoverage(filepath.Join(findingsDir, PlotDataFile), logger); ok {
		stats.Coverage = coverage
	}

	if engineStats, err := readFuzzerStats(filepath.Join(findingsDir, FuzzerStatsFile), logger); err == nil {
		stats.EngineStats = engineStats
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Debug("failed to read fuzzer stats", zap.Error(err))
	}

	logger.Debug("findings scanned",
		zap.Uint64("total_files", stats.TotalFiles),
		zap.Uint64("crashes", stats.Crashes),
		zap.Uint64("timeouts", stats.Timeouts),
		zap.Uint64("coverage", stats.Coverage),
	)
	return stats
}

type dirEntry struct {
	path  string
	isDir bool
}

// listEntries returns the immediate entries of dir; sub-directories are
// returned as opaque entries and never descended into.
func (s *Scanner) listEntries(dir string, logger *zap.Logger) []dirEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("findings sub-directory absent", zap.String("dir", dir))
		} else {
			logger.Warn("failed to list findings sub-directory", zap.String("dir", dir), zap.Error(err))
		}
		return nil
	}
	result := make([]dirEntry, 0, len(entries))
	for _, entry := range entries {
		if s.filter != nil && !s.filter(entry.Name()) {
			continue
		}
		result = append(result, dirEntry{filepath.Join(dir, entry.Name()), entry.IsDir()})
	}
	return result
}

// recordCodes adds the crash file's result codes to the histogram and returns
// the first one.
func (s *Scanner) recordCodes(path string, stats *FuzzStats, logger *zap.Logger) *int {
	file, err := os.Open(path)
	if err != nil {
		logger.Debug("failed to open crash file", zap.String("file", path), zap.Error(err))
		return nil
	}
	defer file.Close()

	var first *int
	err = eachLine(file, func(line string) bool {
		tok := ParseResultCode(line)
		switch tok.Status {
		case NotFound:
			return true
		case Malformed:
			logger.Debug("skipping malformed result code", zap.String("file", path), zap.String("line", line))
			return true
		}
		code := int(tok.Value)
		stats.ResultCodes[code]++
		if first == nil {
			first = &code
		}
		return s.mode == EveryMatch
	})
	if err != nil {
		logger.Debug("failed to read crash file", zap.String("file", path), zap.Error(err))
	}
	return first
}

// readCoverage returns the coverage of the last plot_data row that parses.
func (s *Scanner) readCoverage(path string, logger *zap.Logger) (uint64, bool) {
	file, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to open plot data", zap.String("file", path), zap.Error(err))
		}
		return 0, false
	}
	defer file.Close()

	var coverage uint64
	found := false
	err = eachLine(file, func(line string) bool {
		if tok := ParseCoverage(line); tok.Ok() {
			coverage = uint64(tok.Value)
			found = true
		}
		return true
	})
	if err != nil {
		logger.Debug("failed to read plot data", zap.String("file", path), zap.Error(err))
	}
	return coverage, found
}

// eachLine calls fn for every line of r without its line terminator until fn
// returns false. Lines have no length limit.
func eachLine(r io.Reader, fn func(line string) bool) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			if !fn(line) {
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
