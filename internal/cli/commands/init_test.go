package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/macrostub/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runInitCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewInitCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"macrostub.yaml", "macros.yaml"},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "macrostub.yaml"), []byte("existing"), 0o600))
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "macrostub.yaml"), []byte("existing"), 0o600))
			},
			args:      []string{"--force"},
			wantFiles: []string{"macrostub.yaml", "macros.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			_, err := runInitCommand(t, append([]string{dir}, tt.args...)...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(dir, f))
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
}

func TestInit_KeepsExistingManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "macros.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("classes: {}\n"), 0o600))

	out, err := runInitCommand(t, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	assert.Equal(t, "classes: {}\n", string(data))
	assert.Contains(t, out, "  ✓ macrostub.yaml\n")
	assert.Contains(t, out, "  - macros.yaml (exists)\n")
}

func TestInit_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")

	_, err := runInitCommand(t, dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "macrostub.yaml"))
}

func TestInitCreatesValidProject(t *testing.T) {
	dir := t.TempDir()
	_, err := runInitCommand(t, dir)
	require.NoError(t, err)

	cfg := loadProject(t, dir, "")
	assert.Equal(t, "_ide_macros.php", cfg.Filename)
	assert.Equal(t, filepath.Join(dir, "macros.yaml"), cfg.Manifest)
	assert.Equal(t, []string{"app/**/*.php", "routes/**/*.php"}, cfg.Sources)
	assert.Empty(t, cfg.Classes)

	reg := registry.New()
	require.NoError(t, reg.LoadManifest(cfg.Manifest))
	_, ok := reg.Storage(`Illuminate\Database\Eloquent\Builder`, "globalMacros")
	assert.True(t, ok)
}
