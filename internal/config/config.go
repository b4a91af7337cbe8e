package config

import (
    "errors"
    "fmt"
    "os"

    "gopkg.in/yaml.v3"

    "bifrost/internal/filter"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the bifrost configuration file. Every field can also be set
// from the command line.
type Config struct {
    Input    string         `yaml:"input"`
    AltInput string         `yaml:"altclip"`
    Output   string         `yaml:"output"`
    Diffs    string         `yaml:"diffs"`   // luma-diff sidecar, read by filter and written by diffs
    Workers  int            `yaml:"workers"` // 0 = GOMAXPROCS
    Filter   filter.Options `yaml:"filter"`
    Serve    ServeConfig    `yaml:"serve"`
}

// ServeConfig configures the WHEP preview server.
type ServeConfig struct {
    Host   string `yaml:"host"`
    Port   int    `yaml:"port"`
    FPS    int    `yaml:"fps"`
    Width  int    `yaml:"width"`  // 0 = clip width
    Height int    `yaml:"height"` // 0 = clip height
}

// Default returns the stock configuration.
func Default() Config {
    return Config{
        Filter: filter.DefaultOptions(),
        Serve:  ServeConfig{Host: "0.0.0.0", Port: 8000, FPS: 25},
    }
}

// Load reads a YAML file over the defaults, so keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
    data, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("failed to read config file: %w", err)
    }
    cfg := Default()
    if err := yaml.Unmarshal(data, &cfg); err != nil {
        return nil, fmt.Errorf("failed to parse config: %w", err)
    }
    if err := Validate(&cfg); err != nil {
        return nil, err
    }
    return &cfg, nil
}

// Validate checks ranges that can be checked without opening the clips.
// Block size against the clip's subsampling is checked by the filter.
func Validate(cfg *Config) error {
    f := cfg.Filter
    switch {
    case f.LumaThresh < 0:
        return fmt.Errorf("%w: luma_thresh must not be negative, got %v", ErrInvalid, f.LumaThresh)
    case f.Variation < 0 || f.Variation > 255:
        return fmt.Errorf("%w: variation must be in [0, 255], got %d", ErrInvalid, f.Variation)
    case f.BlockX <= 0 || f.BlockY <= 0:
        return fmt.Errorf("%w: block size must be positive, got %dx%d", ErrInvalid, f.BlockX, f.BlockY)
    case cfg.Workers < 0:
        return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, cfg.Workers)
    case cfg.Serve.Port <= 0 || cfg.Serve.Port > 65535:
        return fmt.Errorf("%w: serve.port out of range: %d", ErrInvalid, cfg.Serve.Port)
    case cfg.Serve.FPS <= 0:
        return fmt.Errorf("%w: serve.fps must be positive, got %d", ErrInvalid, cfg.Serve.FPS)
    case cfg.Serve.Width < 0 || cfg.Serve.Height < 0 || cfg.Serve.Width%2 != 0 || cfg.Serve.Height%2 != 0:
        return fmt.Errorf("%w: serve size must be even, got %dx%d", ErrInvalid, cfg.Serve.Width, cfg.Serve.Height)
    }
    return nil
}
