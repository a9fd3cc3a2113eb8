package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"raisefunds/chain"
)

var (
	BackoffMaxElapsedTime time.Duration                = 5 * time.Minute
	Timeout               time.Duration                = 1000 * time.Millisecond
	GlobalConfigCallback  ConfigCallback[GlobalConfig] = ConfigCallback[GlobalConfig]{}
	CfgFlag                                            = flag.String("config", "config.toml", "Configuration file (toml format)")
	EnvFlag                                            = flag.String("env", ".env", "Optional dotenv file with environment overrides")
	SeedFlag                                           = flag.Bool("seed", false, "Insert the demo data at start (same as db.seed_at_start)")
)

type GlobalConfig interface {
	LoggerConfig() LoggerConfig
	ChainConfig() ChainConfig
}

type Config struct {
	DB         DBConfig         `toml:"db"`
	Logger     LoggerConfig     `toml:"logger"`
	Chain      ChainConfig      `toml:"chain"`
	Server     ServerConfig     `toml:"server"`
	Reconciler ReconcilerConfig `toml:"reconciler"`
}

type LoggerConfig struct {
	Level       string `toml:"level" envconfig:"LOG_LEVEL"` // valid values are: DEBUG, INFO, WARN, ERROR, DPANIC, PANIC, FATAL (zap)
	File        string `toml:"file"`
	MaxFileSize int    `toml:"max_file_size"` // In megabytes
	Console     bool   `toml:"console"`
}

type DBConfig struct {
	Driver           string `toml:"driver" envconfig:"DB_DRIVER"` // mysql (default) or sqlite
	Host             string `toml:"host" envconfig:"DB_HOST"`
	Port             int    `toml:"port" envconfig:"DB_PORT"`
	Database         string `toml:"database" envconfig:"DB_DATABASE"` // file path for sqlite
	Username         string `toml:"username" envconfig:"DB_USERNAME"`
	Password         string `toml:"password" envconfig:"DB_PASSWORD"`
	LogQueries       bool   `toml:"log_queries"`
	DropTableAtStart bool   `toml:"drop_table_at_start"`
	SeedAtStart      bool   `toml:"seed_at_start" envconfig:"DB_SEED"` // demo data, skipped when already present
}

type ChainConfig struct {
	NodeURL   string          `toml:"node_url" envconfig:"CHAIN_NODE_URL"`
	APIKey    string          `toml:"api_key" envconfig:"CHAIN_API_KEY"`
	ChainType chain.ChainType `toml:"chain_type" envconfig:"CHAIN_TYPE"`
	// Total time one verification request may spend on the node, retries
	// included. Keep it below the server write timeout.
	VerifyTimeoutMillis int `toml:"verify_timeout_millis" envconfig:"CHAIN_VERIFY_TIMEOUT_MILLIS"`
}

type ServerConfig struct {
	Address            string `toml:"address" envconfig:"SERVER_ADDRESS"`
	AdminKey           string `toml:"admin_key" envconfig:"ADMIN_KEY"`
	CreatorPassword    string `toml:"creator_password" envconfig:"CREATOR_PASSWORD"`
	ReadTimeoutMillis  int    `toml:"read_timeout_millis"`
	WriteTimeoutMillis int    `toml:"write_timeout_millis"`
	IdleTimeoutMillis  int    `toml:"idle_timeout_millis"`
}

type ReconcilerConfig struct {
	IntervalSeconds int `toml:"interval_seconds" envconfig:"RECONCILE_INTERVAL_SECONDS"` // 0 disables the reconciler
}

func newConfig() *Config {
	return &Config{
		DB: DBConfig{
			Driver: "mysql",
			Host:   "localhost",
			Port:   3306,
		},
		Logger: LoggerConfig{
			Level:   "INFO",
			Console: true,
		},
		Chain: ChainConfig{
			ChainType:           chain.ChainTypeAvax,
			VerifyTimeoutMillis: 10000,
		},
		Server: ServerConfig{
			Address:            ":8080",
			ReadTimeoutMillis:  15000,
			WriteTimeoutMillis: 30000,
			IdleTimeoutMillis:  60000,
		},
	}
}

func BuildConfig() (*Config, error) {
	cfgFileName := *CfgFlag

	cfg := newConfig()
	err := ParseConfigFile(cfg, cfgFileName)
	if err != nil {
		return nil, err
	}
	err = LoadDotEnv(*EnvFlag)
	if err != nil {
		return nil, err
	}
	err = ReadEnv(cfg)
	if err != nil {
		return nil, err
	}
	if *SeedFlag {
		cfg.DB.SeedAtStart = true
	}
	return cfg, nil
}

func ParseConfigFile(cfg *Config, fileName string) error {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("error opening config file: %w", err)
	}

	_, err = toml.Decode(string(content), cfg)
	if err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

// LoadDotEnv exports the variables of an optional dotenv file. A missing
// file is not an error.
func LoadDotEnv(fileName string) error {
	if fileName == "" {
		return nil
	}
	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(fileName); err != nil {
		return fmt.Errorf("error loading env file: %w", err)
	}
	return nil
}

func ReadEnv(cfg interface{}) error {
	err := envconfig.Process("", cfg)
	if err != nil {
		return fmt.Errorf("error reading env config: %w", err)
	}
	return nil
}

func (c Config) LoggerConfig() LoggerConfig {
	return c.Logger
}

func (c Config) ChainConfig() ChainConfig {
	return c.Chain
}

// Enabled reports whether a chain node is configured. Without one the
// on-chain verification path is unavailable.
func (c ChainConfig) Enabled() bool {
	return c.NodeURL != ""
}

func (c ChainConfig) FullNodeURL() (*url.URL, error) {
	u, err := url.Parse(c.NodeURL)
	if err != nil {
		return nil, errors.Wrap(err, "url.Parse")
	}

	if c.APIKey != "" {
		q := u.Query()
		q.Set("x-apikey", c.APIKey)
		u.RawQuery = q.Encode()
	}

	return u, nil
}

func (c ChainConfig) VerifyTimeout() time.Duration {
	return time.Duration(c.VerifyTimeoutMillis) * time.Millisecond
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMillis) * time.Millisecond
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMillis) * time.Millisecond
}

func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMillis) * time.Millisecond
}

func (c ReconcilerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
