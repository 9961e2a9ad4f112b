package oracle

import (
	"fmt"
	"sort"
)

// LogSink receives side-channel lines. A nil LogSink disables logging.
type LogSink interface {
	WriteLine(line string) error
}

// Result is the outcome of classifying one input.
type Result struct {
	Code    int    // small result code, 0 means nothing recognized
	LogLine string // side-channel line, empty when nothing is logged
}

// Oracle classifies arbitrary byte buffers. Classify must be deterministic
// and must return for every input, including empty or malformed ones.
type Oracle interface {
	Name() string
	Classify(data []byte) Result
}

// Limiter is implemented by oracles that only look at a bounded input prefix.
type Limiter interface {
	MaxInput() int
}

// emit writes the line to sink. Sink failures are dropped: they must not turn
// into findings.
func emit(sink LogSink, res Result) Result {
	if sink != nil && res.LogLine != "" {
		_ = sink.WriteLine(res.LogLine)
	}
	return res
}

type factory func(sink LogSink) Oracle

var registry = map[string]factory{
	"http":  func(sink LogSink) Oracle { return NewHTTPOracle(sink) },
	"redis": func(sink LogSink) Oracle { return NewRedisOracle(sink) },
	"flit":  func(sink LogSink) Oracle { return NewFlitOracle(DefaultDecoders()) },
}

// ByName builds a registered oracle.
func ByName(name string, sink LogSink) (Oracle, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown oracle %q (known: %v)", name, Names())
	}
	return f(sink), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
