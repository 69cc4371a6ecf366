// Package config loads sqlls's configuration, following the teacher's
// serv.Config pattern: a nested struct bound from YAML/JSON plus
// environment overrides via viper, validated explicitly.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/dosco/sqlls/internal/dialect"
)

// CatalogMode selects which Catalog backend to build.
type CatalogMode string

const (
	CatalogModeLive   CatalogMode = "live"
	CatalogModeStatic CatalogMode = "static"
)

// Catalog holds spec.md §6's catalog.* configuration options.
type Catalog struct {
	Mode              CatalogMode `mapstructure:"mode" jsonschema:"title=Catalog Mode,enum=live,enum=static"`
	ConnectionString  string      `mapstructure:"connection_string" jsonschema:"title=Database Connection String"`
	SnapshotPath      string      `mapstructure:"snapshot_path" jsonschema:"title=Static Snapshot Path"`
	RefreshTTLSeconds int         `mapstructure:"refresh_ttl_seconds" jsonschema:"title=Refresh TTL (seconds),default=60"`
	Schema            string      `mapstructure:"schema" jsonschema:"title=Schema/Database Name"`
}

// Completion holds spec.md §6's completion.* configuration options.
type Completion struct {
	TriggerCharacters []string `mapstructure:"trigger_characters" jsonschema:"title=Completion Trigger Characters"`
	MaxItems          int      `mapstructure:"max_items" jsonschema:"title=Max Completion Items,default=200"`
}

// Diagnostics holds the ambiguity-severity knob SPEC_FULL.md's Open
// Question resolution introduces.
type Diagnostics struct {
	AmbiguityInProjectionSeverity string `mapstructure:"ambiguity_in_projection_severity" jsonschema:"title=Ambiguous Column Severity,enum=error,enum=warning,default=warning"`
}

// Server holds transport/process-level options, mirroring the teacher's
// Serv struct's log/host/port fields.
type Server struct {
	LogLevel string `mapstructure:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Port     int    `mapstructure:"port" jsonschema:"title=TCP Port (0 = stdio)"`
	Workers  int    `mapstructure:"workers" jsonschema:"title=Worker Pool Size,default=0"`
}

// Config is sqlls's full configuration tree.
type Config struct {
	Dialect     string      `mapstructure:"dialect" jsonschema:"title=SQL Dialect"`
	Catalog     Catalog     `mapstructure:"catalog" jsonschema:"title=Catalog Configuration"`
	Completion  Completion  `mapstructure:"completion" jsonschema:"title=Completion Configuration"`
	Diagnostics Diagnostics `mapstructure:"diagnostics" jsonschema:"title=Diagnostics Configuration"`
	Server      Server      `mapstructure:"server" jsonschema:"title=Server Configuration"`

	v *viper.Viper
}

// defaults sets every default value before a config file/env override is
// applied, matching the teacher's pattern of setting viper defaults ahead
// of Unmarshal.
func defaults(v *viper.Viper) {
	v.SetDefault("dialect", "mysql8.0")
	v.SetDefault("catalog.mode", string(CatalogModeLive))
	v.SetDefault("catalog.refresh_ttl_seconds", 60)
	v.SetDefault("catalog.schema", "public")
	v.SetDefault("completion.trigger_characters", []string{".", " "})
	v.SetDefault("completion.max_items", 200)
	v.SetDefault("diagnostics.ambiguity_in_projection_severity", "warning")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.port", 0)
	v.SetDefault("server.workers", 0)
}

// Load reads configPath (YAML or JSON, viper auto-detects by extension)
// through fs, applies environment overrides under the SQLLS_ prefix, and
// validates the result. configPath may be empty, in which case only
// defaults and environment variables apply.
func Load(fs afero.Fs, configPath string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix("SQLLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	c.v = v

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks cross-field invariants Unmarshal cannot enforce via
// struct tags alone.
func (c *Config) Validate() error {
	if _, err := dialect.ParseID(c.Dialect); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.Catalog.Mode {
	case CatalogModeLive:
		if c.Catalog.ConnectionString == "" {
			return fmt.Errorf("config: catalog.mode=live requires catalog.connection_string")
		}
	case CatalogModeStatic:
		if c.Catalog.SnapshotPath == "" {
			return fmt.Errorf("config: catalog.mode=static requires catalog.snapshot_path")
		}
	default:
		return fmt.Errorf("config: catalog.mode must be %q or %q, got %q", CatalogModeLive, CatalogModeStatic, c.Catalog.Mode)
	}

	switch c.Diagnostics.AmbiguityInProjectionSeverity {
	case "error", "warning", "":
	default:
		return fmt.Errorf("config: diagnostics.ambiguity_in_projection_severity must be error or warning, got %q", c.Diagnostics.AmbiguityInProjectionSeverity)
	}

	if c.Completion.MaxItems <= 0 {
		return fmt.Errorf("config: completion.max_items must be positive")
	}

	return nil
}

// DialectID parses c.Dialect, which Validate has already confirmed is
// well-formed.
func (c *Config) DialectID() dialect.ID {
	id, _ := dialect.ParseID(c.Dialect)
	return id
}
