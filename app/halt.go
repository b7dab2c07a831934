package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"rtk/hal"
	"rtk/kernel"
)

const haltColumns = 80

// HaltHandler returns a kernel halt handler printing the halt record on l,
// wrapped at terminal width.
func HaltHandler(l hal.Logger) func(kernel.HaltInfo) {
	return func(info kernel.HaltInfo) {
		if l == nil {
			return
		}
		for _, line := range haltLines(info) {
			for len(line) > 0 {
				chunk, rest := takeRunes(line, haltColumns)
				l.WriteLineString(chunk)
				line = strings.TrimLeft(rest, " ")
			}
		}
	}
}

func haltLines(info kernel.HaltInfo) []string {
	lines := []string{
		"RTK Halt:",
		fmt.Sprintf("thread: %s", info.Thread),
		fmt.Sprintf("reason: %s", info.Reason),
	}
	if info.Value != nil {
		lines = append(lines, fmt.Sprintf("panic: %v", info.Value))
	}
	if len(info.Stack) > 0 {
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			lines = append(lines, line)
		}
	} else {
		lines = append(lines, "stack: unavailable")
	}
	return lines
}

func takeRunes(s string, n int) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if len(s) <= n {
		return s, ""
	}
	var i, count int
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
