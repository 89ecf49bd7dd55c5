// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/macrostub/internal/cli/output"
)

// ProjectConfig is the macrostub.yaml written by SetupTestProject.
const ProjectConfig = `filename: _ide_macros.php
manifest: macros.yaml
classes:
  - Illuminate\Database\Eloquent\Builder
`

// ProjectManifest declares the framework classes a Laravel app would load
// from vendor.
const ProjectManifest = `classes:
  Illuminate\Support\Traits\Macroable:
    macros: []
  Illuminate\Support\Str:
    traits: [Illuminate\Support\Traits\Macroable]
  Illuminate\Support\Collection:
    traits: [Illuminate\Support\Traits\Macroable]
  Illuminate\Database\Eloquent\Builder:
    globalMacros: []
`

// ProjectProvider registers two macros on Str and one on Builder.
const ProjectProvider = `<?php

namespace App\Providers;

use Illuminate\Database\Eloquent\Builder;
use Illuminate\Support\ServiceProvider;
use Illuminate\Support\Str;

class MacroServiceProvider extends ServiceProvider
{
    public function boot()
    {
        Str::macro('shout', function ($value, $times = 1) {
            return strtoupper($value);
        });

        /**
         * Wrap a value in quotes.
         */
        Str::macro('quote', fn ($value, $quote = '"') => $quote.$value.$quote);

        Builder::macro('whereLike', function ($column, $value) {
            return $this->where($column, 'like', "%{$value}%");
        });
    }
}
`

// SetupTestProject creates a temporary Laravel-style project with a config
// file, a manifest and a service provider registering macros.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	files := map[string]string{
		"macrostub.yaml":                            ProjectConfig,
		"macros.yaml":                               ProjectManifest,
		"app/Providers/MacroServiceProvider.php":    ProjectProvider,
		"vendor/laravel/framework/src/Ignored.php":  "<?php\nFoo::macro('vendored', function () {});\n",
		"routes/web.php":                            "<?php\n",
		"storage/framework/views/compiled_view.php": "<?php\n",
	}

	for name, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code spans and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		if strings.Count(line, "`")%2 != 0 {
			t.Errorf("unbalanced code span at line %d: %q", i+1, line)
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
