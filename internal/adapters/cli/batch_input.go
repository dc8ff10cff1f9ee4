package cli

import (
	"bufio"
	"os"
	"strings"

	"github.com/devbush/yt2text/internal/domain"
)

// ParseInputFile reads a file containing video URLs, one per line.
// Blank lines and lines starting with # are ignored.
func ParseInputFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// CollectInputs combines CLI arguments and file input, args first.
// URLs naming the same video are kept once, in order of first appearance.
// Unparseable inputs are kept so the batch reports them as failures.
func CollectInputs(parser domain.URLParser, args []string, filePath string) ([]string, error) {
	inputs := append([]string(nil), args...)

	if filePath != "" {
		lines, err := ParseInputFile(filePath)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, lines...)
	}

	seen := make(map[string]bool)
	var urls []string
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		key := input
		if id, err := parser.Parse(input); err == nil {
			key = string(id)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		urls = append(urls, input)
	}

	return urls, nil
}
