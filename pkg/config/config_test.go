package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/holefind/pkg/kernel"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Float64("linear-tol", kernel.DefaultTolerance.Linear, "")
	f.String("convention", "hypermill", "")
	f.String("direction", "", "")
	f.Int("workers", 0, "")
	return f
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, kernel.DefaultTolerance, cfg.Tolerance())
	assert.Equal(t, "hypermill", cfg.Convention)
	assert.Equal(t, "holes.json", cfg.Output)
	assert.InDelta(t, 0.2, cfg.ThreadOptions().RadiusSlack, 1e-12)
	_, ok, err := cfg.ApproachDirection()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(
		"linear-tol = 0.01\nconvention = \"nx\"\nworkers = 2\nchamfer-ratio = 0.3\n"), 0o644))
	t.Setenv("HOLEFIND_WORKERS", "4")
	t.Setenv("HOLEFIND_FILLET_RATIO", "0.25")

	f := flags()
	require.NoError(t, f.Parse([]string{"--workers=8"}))

	cfg, err := Load(f, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.01, cfg.LinearTol, 1e-12, "file beats defaults")
	assert.Equal(t, "nx", cfg.Convention, "unset flags do not override the file")
	assert.InDelta(t, 0.3, cfg.ClassifyOptions().ChamferRatio, 1e-12)
	assert.InDelta(t, 0.25, cfg.FilletRatio, 1e-12, "env beats defaults")
	assert.Equal(t, 8, cfg.ClassifyOptions().Workers, "flags beat env")
}

func TestLoadNamedFileMustExist(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := []struct {
		name string
		args []string
	}{
		{"bad convention", []string{"--convention=fanuc"}},
		{"bad direction", []string{"--direction=1,2"}},
		{"zero direction", []string{"--direction=0,0,0"}},
		{"bad tolerance", []string{"--linear-tol=0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flags()
			require.NoError(t, f.Parse(tt.args))
			_, err := Load(f, "")
			assert.Error(t, err)
		})
	}
}

func TestApproachDirection(t *testing.T) {
	c := Config{Direction: " 0, 0 ,-2 "}
	d, ok, err := c.ApproachDirection()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, -1, d.Z, 1e-12)
}
