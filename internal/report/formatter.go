package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"protofuzz/internal/findings"
)

type Format string

const (
	Text Format = "text"
	JSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", Text:
		return Text, nil
	case JSON:
		return JSON, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Formatter renders campaign summaries. It is stateless.
type Formatter struct {
	format Format
}

func NewFormatter(format Format) *Formatter {
	if format == "" {
		format = Text
	}
	return &Formatter{format: format}
}

func (f *Formatter) Format() Format { return f.format }

// Render writes the summary of one campaign to w.
func (f *Formatter) Render(w io.Writer, name string, stats findings.FuzzStats) error {
	var out string
	var err error
	if f.format == JSON {
		out, err = FormatJSON(name, stats)
	} else {
		out = FormatText(name, stats)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// FormatText renders the human readable summary, histogram sorted by code.
func FormatText(name string, stats findings.FuzzStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "===== %s Fuzzing Summary =====\n", name)
	fmt.Fprintf(&b, "Total files: %d\n", stats.TotalFiles)
	fmt.Fprintf(&b, "Crashes: %d\n", stats.Crashes)
	fmt.Fprintf(&b, "Timeouts: %d\n", stats.Timeouts)
	fmt.Fprintf(&b, "Code coverage paths: %d\n", stats.Coverage)
	b.WriteString("Result code distribution:\n")
	for _, code := range sortedCodes(stats.ResultCodes) {
		fmt.Fprintf(&b, "  Code %d: %d occurrences\n", code, stats.ResultCodes[code])
	}
	b.WriteString("\n")
	return b.String()
}

type jsonSummary struct {
	Campaign string `json:"campaign"`
	findings.FuzzStats
}

// FormatJSON renders one JSON object per line.
func FormatJSON(name string, stats findings.FuzzStats) (string, error) {
	if stats.ResultCodes == nil {
		stats.ResultCodes = map[int]uint64{}
	}
	data, err := json.Marshal(jsonSummary{name, stats})
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	return string(data) + "\n", nil
}

func sortedCodes(codes map[int]uint64) []int {
	keys := make([]int, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	sort.Ints(keys)
	return keys
}
