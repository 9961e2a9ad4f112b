package oracle

import (
	"bytes"
	"fmt"
)

const (
	httpMinInput    = 4
	httpMaxMethodAt = 10
)

// HTTPOracle recognizes an HTTP/1.x request line: "<method> <path> <version>\r\n".
// It does not look at headers or the body.
type HTTPOracle struct {
	sink LogSink
}

func NewHTTPOracle(sink LogSink) *HTTPOracle {
	return &HTTPOracle{sink: sink}
}

func (o *HTTPOracle) Name() string { return "http" }

// Classify returns code 1 when a request line was parsed and 0 otherwise.
// Only parsed request lines are logged.
func (o *HTTPOracle) Classify(data []byte) Result {
	line, ok := parseRequestLine(data)
	if !ok {
		return Result{}
	}
	return emit(o.sink, Result{
		Code: 1,
		LogLine: fmt.Sprintf("Result code: 1, Method: %s, Path: %s, Version: %s",
			line.method, line.path, line.version),
	})
}

type requestLine struct {
	method, path, version []byte
}

func parseRequestLine(data []byte) (requestLine, bool) {
	if len(data) < httpMinInput {
		return requestLine{}, false
	}
	methodEnd := bytes.IndexByte(data, ' ')
	if methodEnd < 0 || methodEnd >= httpMaxMethodAt {
		return requestLine{}, false
	}

	pathStart := methodEnd + 1
	pathLen := bytes.IndexByte(data[pathStart:], ' ')
	if pathLen < 0 {
		return requestLine{}, false
	}
	pathEnd := pathStart + pathLen

	versionStart := pathEnd + 1
	versionLen := bytes.Index(data[versionStart:], []byte("\r\n"))
	if versionLen < 0 {
		return requestLine{}, false
	}

	return requestLine{
		method:  data[:methodEnd],
		path:    data[pathStart:pathEnd],
		version: data[versionStart : versionStart+versionLen],
	}, true
}
