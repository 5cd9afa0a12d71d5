package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCmd runs the root command with args and returns captured stdout
// and any error.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestRunValidate_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
status_port: 8080
backoff: 3s
feeds:
  - name: world
    url: https://example.com/world.rss
grids:
  - name: news
    url_template: "https://example.com/{{.lang}}.rss"
    dimensions:
      lang: [en, ru]
`)

	output, err := executeCmd(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	for _, phrase := range []string{
		"Config is valid!",
		"Status port: 8080",
		"Backoff:     3s (retries wait 5.5s to 6s)",
		"Timeout:     10s",
		"1 direct + 2 from grids = 3 total",
	} {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_BackoffAboveMaximum(t *testing.T) {
	path := writeConfig(t, `
backoff: 5000000000
feeds:
  - name: world
    url: https://example.com/world.rss
`)

	_, err := executeCmd(t, "validate", "-c", path)
	if err == nil {
		t.Fatal("validate command expected error for an oversized backoff")
	}
	if !strings.Contains(err.Error(), "at most 24h0m0s") {
		t.Errorf("error = %v, want maximum backoff mentioned", err)
	}
}

func TestRunValidate_StatusPortDisabled(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - name: world
    url: https://example.com/world.rss
`)

	output, err := executeCmd(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(output, "Status port: disabled") {
		t.Errorf("output = %s, want disabled status port", output)
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - name: ""
    url: https://example.com
`)

	_, err := executeCmd(t, "validate", "-c", path)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("error should mention 'name is required', got: %v", err)
	}
}

func TestRunValidate_DuplicateAfterGridExpansion(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - name: news-en
    url: https://example.com/a.rss
grids:
  - name: news
    url_template: "https://example.com/{{.lang}}.rss"
    dimensions:
      lang: [en]
`)

	_, err := executeCmd(t, "validate", "-c", path)
	if err == nil || !strings.Contains(err.Error(), "duplicate feed name") {
		t.Errorf("error = %v, want duplicate feed name", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "validate", "-c", "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	output, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.HasPrefix(output, "rsspoll dev") {
		t.Errorf("output = %q, want version line", output)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO"} {
		if _, err := newLogger(level); err != nil {
			t.Errorf("newLogger(%q) error = %v", level, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("newLogger(loud) expected error")
	}
}
