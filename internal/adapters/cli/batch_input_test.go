package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devbush/yt2text/internal/domain"
)

func TestParseInputFile(t *testing.T) {
	t.Run("skips comments and blank lines", func(t *testing.T) {
		content := `# This is a comment
https://www.youtube.com/watch?v=dQw4w9WgXcQ

# Another comment
  https://www.youtube.com/watch?v=9bZkp7q19f0&t=10

`
		filePath := filepath.Join(t.TempDir(), "input.txt")
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		lines, err := ParseInputFile(filePath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			"https://www.youtube.com/watch?v=9bZkp7q19f0&t=10",
		}
		if len(lines) != len(expected) {
			t.Fatalf("expected %d lines, got %d: %v", len(expected), len(lines), lines)
		}
		for i, line := range lines {
			if line != expected[i] {
				t.Errorf("expected line[%d] = %q, got %q", i, expected[i], line)
			}
		}
	})

	t.Run("returns error for nonexistent file", func(t *testing.T) {
		_, err := ParseInputFile("/nonexistent/path/file.txt")
		if err == nil {
			t.Error("expected error for nonexistent file, got nil")
		}
	})
}

func TestCollectInputs(t *testing.T) {
	t.Run("combines args and file, deduplicating by video", func(t *testing.T) {
		content := `https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42
https://www.youtube.com/watch?v=jNQXAC9IVRw
`
		filePath := filepath.Join(t.TempDir(), "input.txt")
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		args := []string{
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			"https://www.youtube.com/watch?v=9bZkp7q19f0",
		}

		urls, err := CollectInputs(domain.URLParser{}, args, filePath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			"https://www.youtube.com/watch?v=9bZkp7q19f0",
			"https://www.youtube.com/watch?v=jNQXAC9IVRw",
		}
		if len(urls) != len(expected) {
			t.Fatalf("expected %d URLs, got %d: %v", len(expected), len(urls), urls)
		}
		for i, u := range urls {
			if u != expected[i] {
				t.Errorf("expected URL[%d] = %q, got %q", i, expected[i], u)
			}
		}
	})

	t.Run("keeps invalid inputs once", func(t *testing.T) {
		args := []string{"not a url", "https://youtu.be/dQw4w9WgXcQ", "not a url"}

		urls, err := CollectInputs(domain.URLParser{}, args, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{"not a url", "https://youtu.be/dQw4w9WgXcQ"}
		if len(urls) != len(expected) {
			t.Fatalf("expected %d URLs, got %d: %v", len(expected), len(urls), urls)
		}
	})

	t.Run("alternate forms share the video key when allowed", func(t *testing.T) {
		args := []string{"https://youtu.be/dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}

		urls, err := CollectInputs(domain.URLParser{AllowAlternateForms: true}, args, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(urls) != 1 || urls[0] != "https://youtu.be/dQw4w9WgXcQ" {
			t.Errorf("got %v, want only the short link", urls)
		}
	})
}
