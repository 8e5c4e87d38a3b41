package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "config.yaml"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	LogLevel                  string        `koanf:"log_level"`
	PageSize                  int           `koanf:"page_size"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
	SyncDebounce              time.Duration `koanf:"sync_debounce"`
	SyncSecretKey             string        `koanf:"sync_secret_key"`
	SyncTimeout               time.Duration `koanf:"sync_timeout"`
	SyncTokenHash             string        `koanf:"sync_token_hash"`
	TTSBinary                 string        `koanf:"tts_binary"`
	TTSDefaultVoice           string        `koanf:"tts_default_voice"`
}

var (
	requiredFields       = []string{"DatabaseFilePath"}
	requiredServerFields = []string{"SyncSecretKey", "SyncTokenHash"}
)

// New loads the configuration. Defaults are applied first, then the YAML file
// named by CONFIG_FILE (./config.yaml when unset, skipped when missing), then
// environment variables named after the upper-cased keys.
func New() (*Config, error) {
	cfg := defaultConfig()

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.WithStack(err)
	}

	err := k.Load(env.Provider("", ".", strings.ToLower), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := checkRequired(cfg, requiredFields); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a configuration backed by an in-memory database.
func NewForTest() *Config {
	cfg := defaultConfig()
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.SyncDebounce = 10 * time.Millisecond
	cfg.SyncTimeout = time.Second
	return cfg
}

// ValidateServer checks the settings only the sync server needs.
func (cfg *Config) ValidateServer() error {
	return checkRequired(cfg, requiredServerFields)
}

func defaultConfig() *Config {
	return &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseFilePath:          defaultDatabasePath(),
		LogLevel:                  "info",
		PageSize:                  20,
		ServerHost:                "0.0.0.0",
		ServerPort:                3000,
		SyncDebounce:              time.Second,
		SyncTimeout:               10 * time.Second,
		TTSBinary:                 "espeak-ng",
	}
}

// defaultDatabasePath returns XDG_STATE_HOME/xreader/xreader.sqlite or
// ~/.local/state/xreader/xreader.sqlite.
func defaultDatabasePath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "xreader", "xreader.sqlite")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "xreader", "xreader.sqlite")
}

func checkRequired(cfg *Config, fields []string) error {
	v := reflect.ValueOf(cfg).Elem()
	for _, name := range fields {
		if !v.FieldByName(name).IsZero() {
			continue
		}
		key := toSnakeCase(name)
		return errors.Errorf("missing required config: %s (%s)", strings.ToUpper(key), key)
	}
	return nil
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
