package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recentfiles/internal/metadata"
	"github.com/starford/recentfiles/internal/recentservice"
	"github.com/starford/recentfiles/internal/sse"
	"github.com/starford/recentfiles/internal/state"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	State  StateConfig       `yaml:"state"`
	Recent RecentConfig      `yaml:"recent"`
	Auth   AuthConfig        `yaml:"auth"`
	SSE    SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.State.Validate(); err != nil {
		return err
	}
	if err := c.Recent.Validate(); err != nil {
		return err
	}
	if err := c.SSE.Validate(); err != nil {
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

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StateConfig selects where the recent files document is persisted.
//
// Driver is "file" (a JSON document at Path) or "sqlite" (a key/value row in
// the database at Path).
type StateConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = state.DriverFile
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(state.DriverFile, state.DriverSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// RecentConfig tunes the recent files tracker.
type RecentConfig struct {
	// OpenDelay is the pause before an open notification is handled.
	OpenDelay time.Duration `yaml:"open_delay"`
	// CacheSize is the number of files whose frontmatter is cached.
	CacheSize int `yaml:"cache_size"`
	// FrontmatterTitles shows the frontmatter title instead of the file name.
	FrontmatterTitles bool `yaml:"frontmatter_titles"`
}

// Validate validates the recent files configuration.
func (c *RecentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OpenDelay, validation.Min(time.Duration(0)), validation.Max(10*time.Second)),
		validation.Field(&c.CacheSize, validation.Min(0)),
	)
}

// SSEConfig holds Server-Sent Events configuration.
type SSEConfig struct {
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.KeepAlive, validation.Min(time.Duration(0))),
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
	// Normalise empty mode to "disabled" for backward compatibility.
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
		Vault: VaultConfig{
			Path: "./vault",
		},
		State: StateConfig{
			Driver: state.DriverFile,
			Path:   "./recent-files.json",
		},
		Recent: RecentConfig{
			OpenDelay: recentservice.DefaultOpenDelay,
			CacheSize: metadata.DefaultSize,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		SSE: SSEConfig{
			KeepAlive: sse.DefaultKeepAlive,
		},
	}
}
