package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage drivers.
const (
	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Storage   StorageConfig     `yaml:"storage"`
	Relations RelationsConfig   `yaml:"relations"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Relations.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where the ledger and relation documents live.
//
// With the file driver both documents are JSON files under Dir. With the
// sqlite driver they are rows of the database at SQLitePath. Watch reloads
// hand-edited files and only applies to the file driver.
type StorageConfig struct {
	Driver        string `yaml:"driver"`
	Dir           string `yaml:"dir"`
	SQLitePath    string `yaml:"sqlite_path"`
	LedgerFile    string `yaml:"ledger_file"`
	RelationsFile string `yaml:"relations_file"`
	Watch         bool   `yaml:"watch"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = StorageDriverFile
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(StorageDriverFile, StorageDriverSQLite)),
		validation.Field(&c.Dir, validation.When(c.Driver == StorageDriverFile, validation.Required)),
		validation.Field(&c.SQLitePath, validation.When(c.Driver == StorageDriverSQLite, validation.Required)),
		validation.Field(&c.LedgerFile, validation.Required),
		validation.Field(&c.RelationsFile, validation.Required),
	); err != nil {
		return err
	}
	if c.LedgerFile == c.RelationsFile {
		return fmt.Errorf("storage: ledger_file and relations_file must differ, both are %q", c.LedgerFile)
	}
	if c.Watch && c.Driver != StorageDriverFile {
		return fmt.Errorf("storage: watch requires the %q driver", StorageDriverFile)
	}
	return nil
}

// RelationsConfig holds relation listing configuration.
type RelationsConfig struct {
	PageSize int `yaml:"page_size"`
}

// Validate validates the relations configuration.
func (c *RelationsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver:        StorageDriverFile,
			Dir:           "./data",
			SQLitePath:    "./data/palacebot.db",
			LedgerFile:    "borrow_data.json",
			RelationsFile: "diplomatic_relations.json",
		},
		Relations: RelationsConfig{
			PageSize: 10,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
