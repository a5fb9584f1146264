// Package config provides configuration structures and loading for tableferry.
package config

// Config represents the complete application configuration.
type Config struct {
	Database     DatabaseConfig     `yaml:"database" mapstructure:"database"`
	Data         DataConfig         `yaml:"data" mapstructure:"data"`
	Processing   ProcessingConfig   `yaml:"processing" mapstructure:"processing"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Schema       SchemaConfig       `yaml:"schema" mapstructure:"schema"`
}

// DatabaseConfig represents the target database connection configuration.
type DatabaseConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // mysql, postgres, sqlite
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	Path               string `yaml:"path" mapstructure:"path"` // sqlite file path
	TLS                string `yaml:"tls" mapstructure:"tls"`   // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// DataConfig represents where table files live and how they are encoded.
type DataConfig struct {
	Directory   string   `yaml:"directory" mapstructure:"directory"` // local path or s3://bucket/prefix
	Delimiter   string   `yaml:"delimiter" mapstructure:"delimiter"`
	Compression string   `yaml:"compression" mapstructure:"compression"` // none or snappy
	S3          S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config represents S3-specific settings for data stored in object storage.
type S3Config struct {
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	PathStyle bool   `yaml:"path_style" mapstructure:"path_style"`
}

// ProcessingConfig represents batch processing settings.
type ProcessingConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// VerificationConfig represents post-load verification settings.
type VerificationConfig struct {
	Method           string `yaml:"method" mapstructure:"method"` // count or checksum
	SkipVerification bool   `yaml:"skip_verification" mapstructure:"skip_verification"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// SchemaConfig declares the tables tableferry moves data for.
type SchemaConfig struct {
	Tables []TableConfig `yaml:"tables" mapstructure:"tables"`
}

// TableConfig declares a single table: its columns and primary key.
type TableConfig struct {
	Name       string         `yaml:"name" mapstructure:"name"`
	Columns    []ColumnConfig `yaml:"columns" mapstructure:"columns"`
	PrimaryKey []string       `yaml:"primary_key" mapstructure:"primary_key"`
}

// ColumnConfig declares a single column of a table.
type ColumnConfig struct {
	Name       string     `yaml:"name" mapstructure:"name"`
	Type       string     `yaml:"type" mapstructure:"type"` // text, boolean, integer
	Nullable   bool       `yaml:"nullable" mapstructure:"nullable"`
	References *RefConfig `yaml:"references,omitempty" mapstructure:"references"`
}

// RefConfig declares the foreign-key target of a column.
type RefConfig struct {
	Table  string `yaml:"table" mapstructure:"table"`
	Column string `yaml:"column" mapstructure:"column"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:             "mysql",
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Data: DataConfig{
			Directory:   "data",
			Delimiter:   ",",
			Compression: "none",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Processing: ProcessingConfig{
			BatchSize: 1000,
		},
		Verification: VerificationConfig{
			Method:           "count",
			SkipVerification: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, batchSize int, skipVerify bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if batchSize > 0 {
		c.Processing.BatchSize = batchSize
	}
	if skipVerify {
		c.Verification.SkipVerification = true
	}
}
