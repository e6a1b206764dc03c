package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/graft/model"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := ParseFlags(nil)
	require.NoError(t, err)
	if diff := cmp.Diff(model.DefaultConfig(), cfg.Config); diff != "" {
		t.Errorf("default config mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, cfg.Input)
	assert.False(t, cfg.DryRun)
}

func TestParseFlags(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"-n", "--diff",
		"--strict=false",
		"--backup=false",
		"--use-workspace-root", "--workspace-root", "src",
		"--formatter", "ruff,format,-",
		"--formatter-timeout", "5s",
		"-C", "/tmp/project",
		"reply.md",
	})
	require.NoError(t, err)

	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.Diff)
	assert.False(t, cfg.StrictParsing)
	assert.False(t, cfg.EnableBackup)
	assert.True(t, cfg.UseWorkspaceRoot)
	assert.Equal(t, "src", cfg.WorkspaceRoot)
	assert.Equal(t, []string{"ruff", "format", "-"}, cfg.FormatterCommand)
	assert.Equal(t, 5*time.Second, cfg.FormatterTimeout)
	assert.Equal(t, "/tmp/project", cfg.BaseDir)
	assert.Equal(t, "reply.md", cfg.Input)

	cfg, err = ParseFlags([]string{"-w", "reply.md"})
	require.NoError(t, err)
	assert.True(t, cfg.Watch)
}

func TestParseFlagsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--undo", "--redo"},
		{"a.md", "b.md"},
		{"--no-such-flag"},
		{"--watch"},
		{"--watch", "-"},
		{"--watch", "--undo", "reply.md"},
	} {
		_, err := ParseFlags(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workspace_root: app
use_workspace_root: true
enable_backup: false
preserve_formatting: false
formatter_command: [black, -q, -]
formatter_timeout: 10s
backup_suffix: .orig
`), 0644))

	cfg, err := ParseFlags([]string{"--config", path, "--backup", "-v"})
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.WorkspaceRoot)
	assert.True(t, cfg.UseWorkspaceRoot)
	assert.True(t, cfg.EnableBackup, "flags override the file")
	assert.False(t, cfg.PreserveFormatting)
	assert.Equal(t, 10*time.Second, cfg.FormatterTimeout)
	assert.Equal(t, ".orig", cfg.BackupSuffix)
	assert.True(t, cfg.StrictParsing, "unset keys keep their defaults")
	assert.True(t, cfg.Verbose)
	assert.Equal(t, path, cfg.ConfigFile)

	_, err = ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
