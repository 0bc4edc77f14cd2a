package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(nil, envMap(nil), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Layering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dollargraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: render
data_file: board.json
format: dot
width: 640
height: 480
log_level: warn
arrange: true
allowed_origins: [http://a.example]
`), 0o644))

	env := envMap(map[string]string{
		"DOLLARGRAPH_CONFIG":         path,
		"DOLLARGRAPH_FORMAT":         "ascii",
		"DOLLARGRAPH_MAX_ITERATIONS": "50",
		"DOLLARGRAPH_ENABLE_METRICS": "yes",
		"DOLLARGRAPH_WIDTH":          "not-a-number",
	})

	cfg, err := load([]string{"-format", "json", "-height", "300"}, env, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "render", cfg.Mode, "from the file")
	assert.Equal(t, 640.0, cfg.Width, "an unparsable env value keeps the file value")
	assert.Equal(t, 300.0, cfg.Height, "flags win over the file")
	assert.Equal(t, "json", cfg.Format, "flags win over the environment")
	assert.Equal(t, 50, cfg.MaxIterations, "from the environment")
	assert.True(t, cfg.EnableMetrics)
	assert.True(t, cfg.Arrange, "from the file")
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"http://a.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "board.json", cfg.OutputFile, "defaults to board.[format]")
}

func TestLoad_FlagsOnly(t *testing.T) {
	cfg, err := load([]string{
		"-mode", "tui",
		"-origins", "http://a.example, http://b.example",
		"-store", "boards.db",
		"-arrange",
		"-debug",
	}, envMap(nil), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "tui", cfg.Mode)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "boards.db", cfg.StorePath)
	assert.True(t, cfg.Arrange)
	assert.Equal(t, "debug", cfg.LogLevel, "debug raises the log level")
	assert.Empty(t, cfg.OutputFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		msg  string
	}{
		{"unknown mode", []string{"-mode", "gui"}, nil, "mode must be one of"},
		{"render without data", []string{"-mode", "render"}, nil, "datafile is required"},
		{"zero width", []string{"-width", "0"}, nil, "width must be greater than 0"},
		{"bad layout", nil, map[string]string{"DOLLARGRAPH_LAYOUT": "spiral"}, "layout must be one of"},
		{"no iterations", []string{"-iterations", "0"}, nil, "maxiterations must be at least 1"},
		{"production without origins", []string{"-env", "production"}, nil, "allowed_origins is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.args, envMap(tt.env), io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := load([]string{"-h"}, envMap(nil), io.Discard)
	assert.ErrorIs(t, err, ErrHelp)

	_, err = load([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, envMap(nil), io.Discard)
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: [\n"), 0o644))
	_, err = load([]string{"-config", path}, envMap(nil), io.Discard)
	assert.Error(t, err)
}
