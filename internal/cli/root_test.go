package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	clitest "github.com/leapstack-labs/macrostub/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "macrostub", cmd.Use)
	assert.Equal(t, Version, cmd.Version)

	for _, flag := range []string{"config", "project-dir", "manifest", "class", "log-level", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"macros", "list", "init", "version", "completion"})
}

func TestRoot_Macros(t *testing.T) {
	dir := clitest.SetupTestProject(t)

	out, _, err := run(t, "--project-dir", dir, "macros")
	require.NoError(t, err)
	assert.Equal(t, "_ide_macros.php has been successfully generated.\n", out)
	assert.FileExists(t, filepath.Join(dir, "_ide_macros.php"))
}

func TestRoot_IdeHelperAlias(t *testing.T) {
	dir := clitest.SetupTestProject(t)

	_, _, err := run(t, "--project-dir", dir, "ide-helper:macros", "--filename", filepath.Join(dir, "alias.php"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "alias.php"))
}

func TestRoot_ClassFlag(t *testing.T) {
	dir := clitest.SetupTestProject(t)
	provider := "<?php\nnamespace App;\nclass Money {\n    use \\Illuminate\\Support\\Traits\\Macroable;\n}\nMoney::macro('cents', function () {});\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "Money.php"), []byte(provider), 0o644))

	_, _, err := run(t, "--project-dir", dir, "--class", `App\Money`, "macros")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "_ide_macros.php"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "namespace App {\n    class Money {\n        public static function cents() {")
}

func TestRoot_VerboseLogsToStderr(t *testing.T) {
	dir := clitest.SetupTestProject(t)

	_, errOut, err := run(t, "--project-dir", dir, "-v", "macros")
	require.NoError(t, err)
	assert.Contains(t, errOut, "scanned sources")
	assert.Contains(t, errOut, "using config file")
}

func TestRoot_InvalidOutput(t *testing.T) {
	dir := clitest.SetupTestProject(t)

	_, _, err := run(t, "--project-dir", dir, "--output", "yaml", "macros")
	assert.Error(t, err)
}

func TestRoot_Completion(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "macrostub")

	_, _, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{name: "debug", level: "debug", wantDebug: true, wantInfo: true},
		{name: "info", level: "info", wantDebug: false, wantInfo: true},
		{name: "error", level: "error", wantDebug: false, wantInfo: false},
		{name: "unknown falls back to info", level: "loud", wantDebug: false, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.level)

			logger.Debug("debug line", "n", 1)
			logger.Info("info line", "file", "app/Foo.php")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info line")))
			if tt.wantInfo {
				assert.Contains(t, buf.String(), "file=app/Foo.php")
			}
		})
	}
}
