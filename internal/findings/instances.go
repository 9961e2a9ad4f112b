package findings

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// IsCampaignRoot reports whether dir directly holds at least one of the
// recognized findings children.
func IsCampaignRoot(dir string) bool {
	for _, child := range []string{CrashesDir, HangsDir, PlotDataFile} {
		if _, err := os.Stat(filepath.Join(dir, child)); err == nil {
			return true
		}
	}
	return false
}

// ScanInstances analyzes an AFL++ output directory (`afl-fuzz -o <root>`) that
// holds one sub-directory per fuzzer instance (default, master, slave_N, ...).
// Instances are scanned one by one and merged; coverage is the best instance's.
// When root is itself a campaign root, this is the same as Scan.
func (s *Scanner) ScanInstances(root string, visit func(CrashEntry)) FuzzStats {
	if IsCampaignRoot(root) {
		return s.ScanWith(root, visit)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		// let ScanWith report the missing root
		return s.ScanWith(root, visit)
	}

	merged := newFuzzStats()
	instances := 0
	for _, entry := range entries {
		instanceDir := filepath.Join(root, entry.Name())
		if !entry.IsDir() || !IsCampaignRoot(instanceDir) {
			continue
		}
		instances++
		merged.Merge(entry.Name(), s.ScanWith(instanceDir, visit))
	}
	s.logger.Debug("fuzzer instances scanned",
		zap.String("findings_dir", root),
		zap.Int("instances", instances),
	)
	return merged
}
