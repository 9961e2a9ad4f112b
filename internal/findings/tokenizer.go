package findings

import (
	"strconv"
	"strings"
)

// ResultCodeMarker is the crash-record convention written by the harness side logs.
const ResultCodeMarker = "Result code:"

// CoverageField is the 0-based plot_data column holding the cumulative path count.
const CoverageField = 3

type TokenStatus int

const (
	NotFound  TokenStatus = iota // the line does not carry the token
	Parsed                       // Value holds the token
	Malformed                    // the token is there but its number is not
)

func (s TokenStatus) String() string {
	switch s {
	case NotFound:
		return "not-found"
	case Parsed:
		return "parsed"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type Token struct {
	Status TokenStatus
	Value  int64
}

func (t Token) Ok() bool { return t.Status == Parsed }

// ParseResultCode extracts the integer that follows "Result code:" in line.
func ParseResultCode(line string) Token {
	idx := strings.Index(line, ResultCodeMarker)
	if idx < 0 {
		return Token{Status: NotFound}
	}
	v, ok := leadingInt(line[idx+len(ResultCodeMarker):])
	if !ok {
		return Token{Status: Malformed}
	}
	return Token{Status: Parsed, Value: v}
}

// ParseCoverage extracts the non-negative integer in the CoverageField column of
// a comma-separated plot_data row. The column runs up to the next comma or the
// end of the line.
func ParseCoverage(line string) Token {
	rest := line
	for i := 0; i < CoverageField; i++ {
		comma := strings.IndexByte(rest, ',')
		if comma < 0 {
			return Token{Status: NotFound}
		}
		rest = rest[comma+1:]
	}
	if comma := strings.IndexByte(rest, ','); comma >= 0 {
		rest = rest[:comma]
	}
	v, ok := leadingInt(rest)
	if !ok || v < 0 {
		return Token{Status: Malformed}
	}
	return Token{Status: Parsed, Value: v}
}

// leadingInt parses a decimal integer after optional leading blanks and an
// optional sign, stopping at the first non-digit. At least one digit is required.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\r\n\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
