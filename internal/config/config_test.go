package config

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
    t.Helper()
    path := filepath.Join(t.TempDir(), "bifrost.yaml")
    require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
    return path
}

func TestDefaultIsValid(t *testing.T) {
    cfg := Default()
    require.NoError(t, Validate(&cfg))
    assert.Equal(t, 10.0, cfg.Filter.LumaThresh)
    assert.Equal(t, 5, cfg.Filter.Variation)
    assert.True(t, cfg.Filter.Interlaced)
    assert.True(t, cfg.Filter.TopFieldFirst)
    assert.Equal(t, 4, cfg.Filter.BlockX)
    assert.Equal(t, 4, cfg.Filter.BlockY)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
    cfg, err := Load(write(t, `
input: in.y4m
altclip: alt.y4m
output: out.y4m
workers: 3
filter:
  variation: 12
  interlaced: false
  blockx: 8
serve:
  port: 9000
`))
    require.NoError(t, err)
    assert.Equal(t, "in.y4m", cfg.Input)
    assert.Equal(t, "alt.y4m", cfg.AltInput)
    assert.Equal(t, 3, cfg.Workers)
    assert.Equal(t, 12, cfg.Filter.Variation)
    assert.False(t, cfg.Filter.Interlaced)
    assert.Equal(t, 8, cfg.Filter.BlockX)
    assert.Equal(t, 4, cfg.Filter.BlockY)
    assert.Equal(t, 10.0, cfg.Filter.LumaThresh)
    assert.Equal(t, 9000, cfg.Serve.Port)
    assert.Equal(t, 25, cfg.Serve.FPS)
}

func TestLoadErrors(t *testing.T) {
    _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
    assert.ErrorIs(t, err, os.ErrNotExist)

    _, err = Load(write(t, "filter: [1, 2"))
    assert.Error(t, err)

    _, err = Load(write(t, "filter:\n  variation: 300\n"))
    assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
    for name, mutate := range map[string]func(*Config){
        "negative thresh": func(c *Config) { c.Filter.LumaThresh = -1 },
        "variation":       func(c *Config) { c.Filter.Variation = -1 },
        "block":           func(c *Config) { c.Filter.BlockY = 0 },
        "workers":         func(c *Config) { c.Workers = -2 },
        "port":            func(c *Config) { c.Serve.Port = 70000 },
        "fps":             func(c *Config) { c.Serve.FPS = 0 },
        "odd width":       func(c *Config) { c.Serve.Width = 641 },
    } {
        t.Run(name, func(t *testing.T) {
            cfg := Default()
            mutate(&cfg)
            assert.ErrorIs(t, Validate(&cfg), ErrInvalid)
        })
    }
}
