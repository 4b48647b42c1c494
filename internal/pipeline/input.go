package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultInputPath is read when no path is given on the command line.
const DefaultInputPath = "input/imdb_ids.txt"

// ReadIdentifiers returns the trimmed, non-blank lines of path in file order.
// The whole file is read at once, so line length is not limited.
func ReadIdentifiers(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("input file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}

	return ids, nil
}
