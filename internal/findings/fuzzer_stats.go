package findings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

func readFuzzerStats(path string, logger *zap.Logger) (map[string]string, error) {
	data, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer data.Close()
	return parseFuzzerStats(data, logger)
}

// parseFuzzerStats reads from r line by line, expecting "key : value" pairs
// as AFL++ writes them. Returns an error only if an unexpected I/O error occurs.
func parseFuzzerStats(r io.Reader, logger *zap.Logger) (map[string]string, error) {
	stats := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue // skip empty lines
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		rawKey := strings.TrimSpace(parts[0])
		rawValue := strings.TrimSpace(parts[1])
		if rawKey == "" {
			continue
		}

		logger.Debug("parsed fuzzer stat", zap.String("key", rawKey), zap.String("value", rawValue))
		stats[rawKey] = rawValue
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return stats, nil
}
