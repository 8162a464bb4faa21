package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	configFilePermissions = 0o600
	configDirPermissions  = 0o700
)

// ErrConfigExists is returned by WriteDefault when the file is already there.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate is written by "config init". Every setting is present as a
// commented-out default so users can discover options without reading docs.
const configTemplate = `# bookcat configuration

[api]
# Backend address.
# base_url = "http://127.0.0.1:8000"
# Per-request ceiling.
# timeout = "10s"
# Outside production every request and response is logged at info level.
# The default log_level (warn) hides that trace; set log_level = "info" or
# pass --verbose to see it.
# environment = "development"

[session]
# Where the login session lives: sqlite, file, redis, memory
# backend = "sqlite"
# path = ""
# redis_addr = "localhost:6379"

[fallback]
# Serve built-in sample data when the backend is unreachable.
# enabled = true

[upload]
# max_file_size = "50MB"
# allowed_types = [".pdf", ".doc", ".docx", ".txt", ".md"]

[ui]
# page_size = 10

[logging]
# debug, info, warn, error. The request/response trace is info.
# log_level = "warn"
# log_format = "auto"
`

// bareKeys are written without quotes.
var bareKeys = map[string]bool{
	"fallback.enabled": true,
	"session.redis_db": true,
	"ui.page_size":     true,
}

// WriteDefault creates the commented template at path.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	return atomicWriteFile(path, []byte(configTemplate))
}

// SetKey sets "section.key" to value in the config file at path, creating
// the file from the template when absent. The result must still load; an
// invalid value leaves the file untouched.
func SetKey(path, dotted, value string) error {
	section, key, ok := strings.Cut(dotted, ".")
	if !ok {
		return fmt.Errorf("config key %q must be written as section.key", dotted)
	}

	fields, known := knownKeys[section]
	if !known {
		return suggest("unknown config section", section, knownSections)
	}

	if !slices.Contains(fields, key) {
		return suggest(fmt.Sprintf("unknown config key in [%s]", section), key, fields)
	}

	content := configTemplate

	data, err := os.ReadFile(path)

	switch {
	case err == nil:
		content = string(data)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading config file: %w", err)
	}

	lines := strings.Split(content, "\n")
	newLine := fmt.Sprintf("%s = %s", key, formatTOMLValue(dotted, value))

	headerLine := findSectionHeader(lines, section)
	if headerLine < 0 {
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}

		lines = append(lines, "", "["+section+"]", newLine, "")
	} else {
		lines = setKeyInSection(lines, headerLine, key, newLine)
	}

	out := strings.Join(lines, "\n")
	if err := checkContent(out); err != nil {
		return err
	}

	return atomicWriteFile(path, []byte(out))
}

func checkContent(content string) error {
	cfg := DefaultConfig()

	md, err := toml.Decode(content, cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return err
	}

	return Validate(cfg)
}

// formatTOMLValue quotes strings, leaves numbers and booleans bare, and turns
// a comma-separated list into an array.
func formatTOMLValue(dotted, value string) string {
	if dotted == "upload.allowed_types" {
		parts := strings.Split(value, ",")
		items := make([]string, 0, len(parts))

		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}

		return "[" + joinQuoted(items) + "]"
	}

	if bareKeys[dotted] {
		return value
	}

	return fmt.Sprintf("%q", value)
}

// findSectionHeader returns the line index of "[section]", or -1.
func findSectionHeader(lines []string, section string) int {
	header := "[" + section + "]"

	for i, line := range lines {
		if strings.TrimSpace(line) == header {
			return i
		}
	}

	return -1
}

// findSectionEnd returns the index of the next section header after start.
func findSectionEnd(lines []string, start int) int {
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "[") {
			return i
		}
	}

	return len(lines)
}

// setKeyInSection replaces an existing uncommented key line or inserts a
// new one after the header.
func setKeyInSection(lines []string, headerLine int, key, newLine string) []string {
	end := findSectionEnd(lines, headerLine)

	for i := headerLine + 1; i < end; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, key+" ") || strings.HasPrefix(trimmed, key+"=") {
			lines[i] = newLine

			return lines
		}
	}

	inserted := make([]string, 0, len(lines)+1)
	inserted = append(inserted, lines[:headerLine+1]...)
	inserted = append(inserted, newLine)
	inserted = append(inserted, lines[headerLine+1:]...)

	return inserted
}

// atomicWriteFile writes data to a temp file beside path and renames it
// over the target. Parent directories are created as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
