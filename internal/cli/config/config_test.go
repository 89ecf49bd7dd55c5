package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/macrostub/internal/macro"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlags mirrors the persistent flags registered on the root command.
func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("project-dir", "", "")
	flags.String("manifest", "", "")
	flags.StringSlice("class", nil, "")
	flags.String("log-level", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	return flags
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "macrostub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()

	flags := newFlags()
	require.NoError(t, flags.Set("project-dir", dir))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Empty(t, cfg.Filename)
	assert.Empty(t, cfg.Classes)
	assert.Equal(t, DefaultSources, cfg.Sources)
	assert.Equal(t, DefaultExclude, cfg.Exclude)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Empty(t, GetConfigFileUsed())
	assert.ErrorIs(t, cfg.ValidateFilename(), ErrFilenameRequired)
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, `filename: _ide_macros.php
manifest: macros.yaml
classes:
  - App\Support\Money
  - \Illuminate\Support\Str
sources:
  - src/**/*.php
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	root := filepath.Dir(cfgPath)
	assert.Equal(t, root, cfg.ProjectRoot, "explicit config file anchors the project root")
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, "_ide_macros.php", cfg.Filename)
	assert.Equal(t, filepath.Join(root, "_ide_macros.php"), cfg.OutputPath())
	assert.Equal(t, filepath.Join(root, "macros.yaml"), cfg.Manifest)
	assert.Equal(t, []string{"src/**/*.php"}, cfg.Sources)
	require.NoError(t, cfg.ValidateFilename())

	classes := cfg.ClassList()
	assert.Len(t, classes, len(macro.DefaultClasses)+1, "Str is already a default class")
	assert.Equal(t, `App\Support\Money`, classes[len(classes)-1])
}

func TestLoadConfig_ProjectRootFromConfigInParent(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "filename: out.php\n")
	root := filepath.Dir(cfgPath)
	nested := filepath.Join(root, "app", "Providers")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, root, findProjectRootUpward(nested))
	assert.Empty(t, findProjectRootUpward(t.TempDir()))
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "filename: from_file.php\nlog_level: warn\n")

	t.Setenv("MACROSTUB_FILENAME", "from_env.php")
	t.Setenv("MACROSTUB_CLASSES", `App\A, App\B`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "from_env.php", cfg.Filename, "env var should override config file")
	assert.Equal(t, []string{`App\A`, `App\B`}, cfg.Classes)
	assert.Equal(t, "warn", cfg.LogLevel, "file value kept when env does not set it")
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "log_level: warn\nclasses: [App\\FromFile]\n")

	t.Setenv("MACROSTUB_LOG_LEVEL", "error")

	flags := newFlags()
	require.NoError(t, flags.Set("log-level", "debug"))
	require.NoError(t, flags.Set("class", `App\FromFlag`))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "flag value should override config file and env var")
	assert.Equal(t, []string{`App\FromFlag`}, cfg.Classes)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "log_level: warn\n")

	t.Setenv("MACROSTUB_LOG_LEVEL", "error")

	cfg, err := LoadConfig(cfgPath, newFlags())
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel, "env var should be used when flag is not set")
}

func TestLoadConfig_VerboseForcesDebug(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "log_level: error\n")

	flags := newFlags()
	require.NoError(t, flags.Set("verbose", "true"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_ManifestFlagRelativeToCWD(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "manifest: from_file.yaml\n")

	flags := newFlags()
	require.NoError(t, flags.Set("manifest", "macros.yaml"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "macros.yaml"), cfg.Manifest)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{name: "log level", content: "log_level: loud\n", errSubstr: "invalid log_level"},
		{name: "output", content: "output: xml\n", errSubstr: "invalid output"},
		{name: "class name", content: "classes: [\"App/Money\"]\n", errSubstr: "invalid class name"},
		{name: "yaml", content: "classes: [unterminated\n", errSubstr: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_Rel(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "project")
	cfg := &Config{ProjectRoot: root}

	assert.Equal(t, filepath.Join("app", "A.php"), cfg.Rel(filepath.Join(root, "app", "A.php")))
	outside := filepath.Join(string(filepath.Separator), "elsewhere", "B.php")
	assert.Equal(t, outside, cfg.Rel(outside))
}

func TestResolvePathRelativeTo(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "base")
	abs := filepath.Join(string(filepath.Separator), "abs", "x.php")

	assert.Equal(t, "", resolvePathRelativeTo("", base))
	assert.Equal(t, abs, resolvePathRelativeTo(abs, base))
	assert.Equal(t, filepath.Join(base, "x.php"), resolvePathRelativeTo("x.php", base))
}

func TestGetLogger_Fallback(t *testing.T) {
	logger := GetLogger(context.Background())
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(context.Background(), 0))
}
