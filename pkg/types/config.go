package types

import "errors"

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend      string `json:"backend" yaml:"backend"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	DatabaseName string `json:"database_name,omitempty" yaml:"database_name,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultDatabaseName is the SQLite file created inside DataDir.
const DefaultDatabaseName = "metabolic.db"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// Database returns the database file name, defaulting when unset.
func (c Config) Database() string {
	if c.DatabaseName == "" {
		return DefaultDatabaseName
	}
	return c.DatabaseName
}
