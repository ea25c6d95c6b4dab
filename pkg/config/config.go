package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/fbxctl/fbx-go/pkg/version"
)

// Default values.
const (
	DefaultBaseURL        = "http://mafreebox.freebox.fr"
	DefaultAppID          = "dev.fbxctl.cli"
	DefaultAppName        = "fbx"
	DefaultAppVersion     = "1.0.0"
	DefaultPollInterval   = 2 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultLogLevel       = "info"

	// StateFileName is the credential state file inside StateDir.
	StateFileName = "credentials.json"

	// ConfigFileName is the config file looked up in the user config dir.
	ConfigFileName = "config.yaml"
)

// Secret backends.
const (
	SecretBackendFile    = "file"
	SecretBackendKeyring = "keyring"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the client settings.
type Config struct {
	// BaseURL is the device root URL.
	BaseURL string `yaml:"base_url" env:"FBX_BASE_URL"`

	// APIVersion selects the API major, e.g. "v8".
	APIVersion string `yaml:"api_version" env:"FBX_API_VERSION"`

	// Identity presented when registering.
	AppID      string `yaml:"app_id" env:"FBX_APP_ID"`
	AppName    string `yaml:"app_name" env:"FBX_APP_NAME"`
	AppVersion string `yaml:"app_version" env:"FBX_APP_VERSION"`

	// DeviceName labels this client on the device. Empty uses
	// "<user> - <os>".
	DeviceName string `yaml:"device_name" env:"FBX_DEVICE_NAME"`

	PollInterval   time.Duration `yaml:"poll_interval" env:"FBX_POLL_INTERVAL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"FBX_REQUEST_TIMEOUT"`

	// StateDir holds the credential state file.
	StateDir string `yaml:"state_dir" env:"FBX_STATE_DIR"`

	// SecretBackend is "file" or "keyring".
	SecretBackend string `yaml:"secret_backend" env:"FBX_SECRET_BACKEND"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" env:"FBX_LOG_LEVEL"`

	// ProtocolLog, when set, records every exchange to this file.
	ProtocolLog string `yaml:"protocol_log" env:"FBX_PROTOCOL_LOG"`

	// ProtocolLogMaxSize rotates the protocol log past this many bytes.
	// Zero uses the logger default; negative never rotates.
	ProtocolLogMaxSize int64 `yaml:"protocol_log_max_size" env:"FBX_PROTOCOL_LOG_MAX_SIZE"`
}

// Default returns a Config with defaults filled in.
func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		APIVersion:     fmt.Sprintf("v%d", version.DefaultMajor),
		AppID:          DefaultAppID,
		AppName:        DefaultAppName,
		AppVersion:     DefaultAppVersion,
		PollInterval:   DefaultPollInterval,
		RequestTimeout: DefaultRequestTimeout,
		StateDir:       defaultStateDir(),
		SecretBackend:  SecretBackendFile,
		LogLevel:       DefaultLogLevel,
	}
}

// Load returns the defaults overlaid with the file at path (if it exists)
// and the environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
			}
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}

	return cfg, cfg.Validate()
}

// DefaultPath returns the config file in the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fbx", ConfigFileName)
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".fbx"
	}
	return filepath.Join(dir, "fbx")
}

// Validate checks if the config is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base_url %q", ErrInvalidConfig, c.BaseURL)
	}
	if _, err := version.ParseMajor(c.APIVersion); err != nil {
		return fmt.Errorf("%w: api_version %q", ErrInvalidConfig, c.APIVersion)
	}
	if c.AppID == "" || c.AppName == "" || c.AppVersion == "" {
		return fmt.Errorf("%w: app_id, app_name and app_version are required", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	if c.StateDir == "" {
		return fmt.Errorf("%w: state_dir is required", ErrInvalidConfig)
	}
	switch c.SecretBackend {
	case SecretBackendFile, SecretBackendKeyring:
	default:
		return fmt.Errorf("%w: secret_backend %q", ErrInvalidConfig, c.SecretBackend)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// APIMajor returns the configured API major.
func (c *Config) APIMajor() uint16 {
	major, err := version.ParseMajor(c.APIVersion)
	if err != nil {
		return version.DefaultMajor
	}
	return major
}

// StatePath returns the credential state file path.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir, StateFileName)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}
