package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const offlineNotice = "Note: backend unavailable, showing offline sample data.\n"

// emit writes v in the selected format. table renders the default human
// format. Offline data is flagged on stderr so piped output stays clean.
func (cc *CLIContext) emit(v any, substituted bool, table func(w io.Writer)) error {
	if substituted {
		cc.Statusf(offlineNotice)
	}

	switch cc.format() {
	case outputJSON:
		enc := json.NewEncoder(cc.Out)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(cc.Out)
		enc.SetIndent(2)

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}

		return enc.Close()
	default:
		table(cc.Out)

		return nil
	}
}

// emitMessage prints an acknowledgement. Structured formats get the object.
func (cc *CLIContext) emitMessage(v any, substituted bool, text string) error {
	return cc.emit(v, substituted, func(w io.Writer) {
		fmt.Fprintln(w, text)
	})
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// printTable writes aligned columns to w. headers and each row must have
// the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row without trailing spaces.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// itoa renders an id or count, leaving zero blank.
func itoa(n int) string {
	if n == 0 {
		return ""
	}

	return strconv.Itoa(n)
}

// truncate shortens s to n runes for table cells.
func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}

	return string(r[:n-3]) + "..."
}

// yesNo renders a permission flag.
func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
