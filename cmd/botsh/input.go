package main

import (
	"fmt"
	"io"
	"strings"
)

// composeInput joins piped text and positional words into one query. Either
// part may be empty. The translate instruction is only added to real text.
func composeInput(piped string, args []string, translate bool, instruction string) string {
	var parts []string
	if p := strings.TrimSpace(piped); p != "" {
		parts = append(parts, p)
	}
	if a := strings.TrimSpace(strings.Join(args, " ")); a != "" {
		parts = append(parts, a)
	}
	text := strings.Join(parts, "\n")
	if text != "" && translate {
		text += instruction
	}
	return text
}

func readPiped(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
