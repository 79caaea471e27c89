package config

import "strings"

// Mode selects the storage backend.
type Mode string

const (
	// ModeMySQL uses the relational database when one is configured. The
	// name is historical; the database may be any supported driver.
	ModeMySQL Mode = "mysql"
	ModeJSON  Mode = "json"
)

// ParseMode maps a persisted mode value to a Mode. Anything other than
// "json" means the relational backend.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeJSON)) {
		return ModeJSON
	}
	return ModeMySQL
}

// Config is the persisted configuration record.
type Config struct {
	Mode     Mode     `yaml:"mode" mapstructure:"mode"`
	Database Database `yaml:"database" mapstructure:"database"`

	// DataDir holds the flat-file store and client catalog.
	DataDir string `yaml:"data_dir,omitempty" mapstructure:"data_dir"`

	// UserID and ClientID preselect what the CLI and terminal UI show.
	UserID   int64 `yaml:"user_id" mapstructure:"user_id"`
	ClientID int64 `yaml:"client_id,omitempty" mapstructure:"client_id"`

	// LogFile receives log output while the terminal UI owns the screen.
	LogFile string `yaml:"log_file,omitempty" mapstructure:"log_file"`
}

// Database holds the relational connection parameters.
type Database struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	Host     string `yaml:"host,omitempty" mapstructure:"host"`
	Port     int    `yaml:"port,omitempty" mapstructure:"port"`
	User     string `yaml:"user,omitempty" mapstructure:"user"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
	Name     string `yaml:"name,omitempty" mapstructure:"name"`
	SSLMode  string `yaml:"sslmode,omitempty" mapstructure:"sslmode"`

	// Path is the database file for the sqlite driver.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// Relational reports whether the relational backend should be used.
func (c Config) Relational() bool {
	return c.Mode != ModeJSON && c.Database.Valid()
}
