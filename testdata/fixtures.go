// Package testdata holds recorded hand landmark sessions used by tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"path"
	"strings"
)

//go:embed sessions/*.jsonl
var sessionsFS embed.FS

// Session returns a reader over the named session, e.g. "closed_palm".
func Session(name string) (io.Reader, error) {
	data, err := sessionsFS.ReadFile(path.Join("sessions", name+".jsonl"))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}
	return bytes.NewReader(data), nil
}

// Sessions lists the names of all embedded sessions.
func Sessions() []string {
	entries, err := sessionsFS.ReadDir("sessions")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".jsonl"))
	}
	return names
}
