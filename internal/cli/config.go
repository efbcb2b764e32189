package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"go.sqlitecore.dev/core/internal/migrate"
)

// DefaultConfig is the optional on-disk defaults file the root command
// loads via --config. It exists so a host can pin base_dir and an
// embedded migration set without repeating --migration flags on every
// invocation (spec.md §4.D "embedded, ordered list of migrations").
type DefaultConfig struct {
	BaseDir            string            `yaml:"base_dir"`
	MaxReadConnections int               `yaml:"max_read_connections"`
	IdleTimeoutSecs    int               `yaml:"idle_timeout_secs"`
	Tables             []string          `yaml:"tables"`
	CaptureValues      *bool             `yaml:"capture_values"`
	Migrations         []migrationConfig `yaml:"migrations"`
}

type migrationConfig struct {
	Version     int      `yaml:"version"`
	Description string   `yaml:"description"`
	Statements  []string `yaml:"statements"`
}

func (c migrationConfig) toMigration() migrate.Migration {
	return migrate.Migration{
		Version:     c.Version,
		Description: c.Description,
		Statements:  c.Statements,
	}
}

// loadDefaultConfig reads and decodes path, or returns a zero-value
// DefaultConfig when path is empty.
func loadDefaultConfig(path string) (DefaultConfig, error) {
	if path == "" {
		return DefaultConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	var cfg DefaultConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c DefaultConfig) migrations() []migrate.Migration {
	out := make([]migrate.Migration, 0, len(c.Migrations))
	for _, m := range c.Migrations {
		out = append(out, m.toMigration())
	}
	return out
}
