package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "domains.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_ValidFileAndClassify(t *testing.T) {
	path := writeYAML(t, "domains:\n  - amp.example.com\n")

	var out bytes.Buffer
	code := run([]string{path, "--", "jane@amp.example.com", "bob@example.org", "ann@gmail.com"}, &out)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "is valid (1 domains)")
	assert.Contains(t, out.String(), "jane@amp.example.com -> interactive")
	assert.Contains(t, out.String(), "bob@example.org -> static")
	assert.Contains(t, out.String(), "ann@gmail.com -> interactive")
}

func TestRun_InvalidFile(t *testing.T) {
	path := writeYAML(t, "domains:\n  - not a domain\n")

	var out bytes.Buffer
	code := run([]string{path, filepath.Join(t.TempDir(), "missing.yaml")}, &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "invalid domain")
	assert.Contains(t, out.String(), "read domains file")
}

func TestRun_NoArgs(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, run(nil, &out))
	assert.Contains(t, out.String(), "No files to check.")
}
