package harness

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"protofuzz/internal/oracle"
)

// IoError reports an input file that could not be loaded completely.
type IoError struct {
	Path string
	Op   string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// Runner feeds inputs to one oracle. It holds no state between inputs.
type Runner struct {
	oracle   oracle.Oracle
	maxInput int // 0 means unlimited
	logger   *zap.Logger
}

func NewRunner(o oracle.Oracle, logger *zap.Logger) *Runner {
	maxInput := 0
	if limiter, ok := o.(oracle.Limiter); ok {
		maxInput = limiter.MaxInput()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{o, maxInput, logger}
}

// Execute is the in-process entry point: it applies the size policy and classifies data.
func (r *Runner) Execute(data []byte) oracle.Result {
	if r.maxInput > 0 && len(data) > r.maxInput {
		data = data[:r.maxInput]
	}
	return r.oracle.Classify(data)
}

// Run loads the input file at path and classifies it. It returns the process
// exit code: 1 when the file cannot be loaded, 0 otherwise. Crashes inside the
// oracle are not caught; they are what the fuzzing engine looks for.
func (r *Runner) Run(path string, stderr io.Writer) int {
	data, err := LoadInput(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading file: %v\n", err)
		return 1
	}
	res := r.Execute(data)
	r.logger.Debug("input classified",
		zap.String("oracle", r.oracle.Name()),
		zap.String("input", path),
		zap.Int("size", len(data)),
		zap.Int("code", res.Code),
	)
	return 0
}

// LoadInput reads the whole file and checks that the byte count matches the
// size reported by stat.
func LoadInput(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &IoError{path, "open", err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, &IoError{path, "stat", err}
	}
	if info.IsDir() {
		return nil, &IoError{path, "read", fmt.Errorf("is a directory")}
	}

	size := info.Size()
	data := make([]byte, size)
	n, err := io.ReadFull(file, data)
	if err != nil || int64(n) != size {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, &IoError{path, "read", fmt.Errorf("incomplete read: expected %d bytes, got %d bytes: %w", size, n, err)}
	}
	return data, nil
}
