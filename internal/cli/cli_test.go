package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"pipeline.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, exit)

		assert.Equal(t, "pipeline.hcl", cfg.PipelinePath)
		assert.Equal(t, "hcl", cfg.Format)
		assert.Empty(t, cfg.ServeAddr)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("pipeline flag wins over positional", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg, _, err := Parse([]string{"--pipeline", "a.hcl", "b.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "a.hcl", cfg.PipelinePath)
	})

	t.Run("shorthand flag", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg, _, err := Parse([]string{"-p", "a.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "a.hcl", cfg.PipelinePath)
	})

	t.Run("full option set", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg, _, err := Parse([]string{
			"--format", "yaml",
			"--serve", ":8080",
			"--log-format", "text",
			"--log-level", "debug",
			"--workers", "4",
			"--cache-dir", "/var/cache/pw",
			"--artifact-bucket", "releases",
			"--artifact-prefix", "nightly",
			"--registry-plain-http",
			"pipeline.yml",
		}, &out)
		require.NoError(t, err)

		assert.Equal(t, "yaml", cfg.Format)
		assert.Equal(t, ":8080", cfg.ServeAddr)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 4, cfg.WorkerCount)
		assert.Equal(t, "/var/cache/pw", cfg.CacheDir)
		assert.Equal(t, "releases", cfg.ArtifactBucket)
		assert.Equal(t, "nightly", cfg.ArtifactPrefix)
		assert.True(t, cfg.RegistryPlainHTTP)
	})

	t.Run("no path prints usage and exits cleanly", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		_, _, err := Parse([]string{"--format", "toml", "pipeline.toml"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		_, _, err := Parse([]string{"--log-level", "verbose", "pipeline.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("conflicting artifact sinks", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		_, _, err := Parse([]string{
			"--artifact-bucket", "releases",
			"--artifact-dir", "/tmp/artifacts",
			"pipeline.hcl",
		}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Contains(t, exitErr.Message, "mutually exclusive")
	})
}
