// Package config loads the TOML configuration of the ext2fs tool and builds
// its logger.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"
)

// EnvPath names the environment variable consulted when no -config flag is
// given.
const EnvPath = "EXT2FS_CONFIG"

// Config is the whole configuration file.
type Config struct {
	Log   LogConfig   `toml:"log"`
	Image ImageConfig `toml:"image"`
}

// LogConfig controls the logger. Logs always go to stderr.
type LogConfig struct {
	Level       string `toml:"level"`
	Encoding    string `toml:"encoding"`
	Development bool   `toml:"development"`
}

// ImageConfig controls how image files are opened.
type ImageConfig struct {
	Lock bool `toml:"lock"`
	Sync bool `toml:"sync"`
}

// Default is the configuration used without a file.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:    "warn",
			Encoding: "console",
		},
		Image: ImageConfig{
			Lock: true,
			Sync: true,
		},
	}
}

// Load reads path over the defaults. An empty path falls back to $EXT2FS_CONFIG
// and then to the defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, xerrors.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, xerrors.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that cannot be checked by decoding.
func (c Config) Validate() error {
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		return xerrors.Errorf("log encoding %q is not console or json", c.Log.Encoding)
	}
	return nil
}

func (c LogConfig) level() (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return level, xerrors.Errorf("log level %q: %w", c.Level, err)
	}
	return level, nil
}

// Build returns the logger described by c.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = c.Encoding
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if c.Encoding == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, xerrors.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
