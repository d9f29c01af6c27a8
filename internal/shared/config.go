package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const appDirName = "copyurl"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Callback CallbackConfig `toml:"callback"`
	Auth     AuthConfig     `toml:"auth"`
	Storage  StorageConfig  `toml:"storage"`
	Search   SearchConfig   `toml:"search"`
	Log      LogConfig      `toml:"log"`
}

// SpotifyConfig contains the OAuth client and endpoint settings.
type SpotifyConfig struct {
	ClientID string   `toml:"client_id"`
	AuthURL  string   `toml:"auth_url"`
	TokenURL string   `toml:"token_url"`
	APIURL   string   `toml:"api_url"`
	Scopes   []string `toml:"scopes"`
}

// CallbackConfig is the loopback address the interactive flow listens on.
type CallbackConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	Path string `toml:"path"`
}

// Addr returns host:port for [net.Listen].
func (c CallbackConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// AuthConfig bounds the interactive flow and the reachability probe.
type AuthConfig struct {
	Timeout      Duration `toml:"timeout"`
	ProbeAddress string   `toml:"probe_address"`
	ProbeTimeout Duration `toml:"probe_timeout"`
}

// StorageConfig locates the two credential files.
type StorageConfig struct {
	Dir               string `toml:"dir"`
	TokenFile         string `toml:"token_file"`
	DevCredentialFile string `toml:"dev_credential_file"`
}

// TokenPath joins the storage dir and the user token file name.
func (s StorageConfig) TokenPath() string {
	return filepath.Join(s.Dir, s.TokenFile)
}

// DevCredentialPath joins the storage dir and the developer credential file name.
func (s StorageConfig) DevCredentialPath() string {
	return filepath.Join(s.Dir, s.DevCredentialFile)
}

// SearchConfig contains catalog search settings.
type SearchConfig struct {
	Limit             int      `toml:"limit"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           Duration `toml:"timeout"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that decodes from strings such as "5m" or "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidArgument, text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveStorageDir fills in [StorageConfig.Dir] with <user config dir>/copyurl when it is empty.
func (c *Config) ResolveStorageDir() error {
	if c.Storage.Dir != "" {
		return nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("failed to locate user config dir: %w", err)
	}
	c.Storage.Dir = filepath.Join(base, appDirName)
	return nil
}
