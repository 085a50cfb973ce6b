package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// loadEnvFiles populates the environment from .env.local and .env, checked
// in that order in the working directory and next to the executable.
// Variables already set in the real environment win. Called only when
// DATABASE_URL is absent, so a fully configured environment never touches
// the filesystem.
func loadEnvFiles() {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Dir(exe); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		for _, name := range []string{".env.local", ".env"} {
			applyEnvFile(filepath.Join(dir, name))
		}
	}
}

// applyEnvFile reads KEY=VALUE lines, skipping blanks and # comments.
// Values may be wrapped in single or double quotes.
func applyEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}
