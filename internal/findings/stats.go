package findings

// FuzzStats summarizes one campaign's findings directory.
type FuzzStats struct {
	TotalFiles  uint64         `json:"total_files"`
	Crashes     uint64         `json:"crashes"`
	Timeouts    uint64         `json:"timeouts"`
	Coverage    uint64         `json:"coverage"`
	ResultCodes map[int]uint64 `json:"result_codes"`

	// AFL++ fuzzer_stats key/value pairs, empty when the file is absent.
	EngineStats map[string]string `json:"engine_stats,omitempty"`
}

func newFuzzStats() FuzzStats {
	return FuzzStats{
		ResultCodes: make(map[int]uint64),
		EngineStats: make(map[string]string),
	}
}

func (s *FuzzStats) addCrash() {
	s.TotalFiles++
	s.Crashes++
}

func (s *FuzzStats) addTimeout() {
	s.TotalFiles++
	s.Timeouts++
}

// HistogramTotal is the number of crash records counted in ResultCodes.
func (s FuzzStats) HistogramTotal() uint64 {
	var total uint64
	for _, n := range s.ResultCodes {
		total += n
	}
	return total
}

// Merge adds other into s: counters and histograms are summed, coverage keeps
// the maximum. Engine stats of other are kept under "<prefix>.<key>".
func (s *FuzzStats) Merge(prefix string, other FuzzStats) {
	s.TotalFiles += other.TotalFiles
	s.Crashes += other.Crashes
	s.Timeouts += other.Timeouts
	if other.Coverage > s.Coverage {
		s.Coverage = other.Coverage
	}
	if s.ResultCodes == nil {
		s.ResultCodes = make(map[int]uint64)
	}
	for code, n := range other.ResultCodes {
		s.ResultCodes[code] += n
	}
	if len(other.EngineStats) > 0 && s.EngineStats == nil {
		s.EngineStats = make(map[string]string)
	}
	for k, v := range other.EngineStats {
		s.EngineStats[prefix+"."+k] = v
	}
}

// CrashEntry describes one entry of crashes/ as seen by the scanner.
type CrashEntry struct {
	Path  string
	IsDir bool
	Code  *int // first parsed result code, nil when none
}
