package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Env                string            `mapstructure:"env"`
	LogLevel           string            `mapstructure:"log_level"`
	LogType            string            `mapstructure:"log_type"`
	ServiceName        string            `mapstructure:"service_name"`
	Version            string            `mapstructure:"version"`
	CrawlerSettings    *CrawlerConfig    `mapstructure:"crawler"`
	OutputSettings     *OutputConfig     `mapstructure:"output"`
	HttpClientSettings *HttpClientConfig `mapstructure:"http_client"`
	TelemetrySettings  *TelemetryConfig  `mapstructure:"telemetry"`
	S3Settings         *S3Config         `mapstructure:"s3"`
	DbSettings         *DatabaseConfig   `mapstructure:"database"`
	KafkaSettings      *KafkaConfig      `mapstructure:"kafka"`
}

type CrawlerConfig struct {
	Endpoints      []string          `mapstructure:"endpoints"`
	Seeds          []string          `mapstructure:"seeds"`
	UserAgent      string            `mapstructure:"user_agent"`
	Headers        map[string]string `mapstructure:"headers"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
	MinInterval    time.Duration     `mapstructure:"min_interval"` // per endpoint, 0 disables pacing
	Probe          bool              `mapstructure:"probe"`
}

type OutputConfig struct {
	Directory  string `mapstructure:"directory"`
	FilePrefix string `mapstructure:"file_prefix"`
}

type HttpClientConfig struct {
	MaxIdleConnections        int           `mapstructure:"max_idle_connections"`
	MaxIdleConnectionsPerHost int           `mapstructure:"max_idle_connections_per_host"`
	MaxConnectionsPerHost     int           `mapstructure:"max_connections_per_host"`
	IdleConnectionTimeout     time.Duration `mapstructure:"idle_connection_timeout"`
	TlsHandshakeTimeout       time.Duration `mapstructure:"tls_handshake_timeout"`
	DialTimeout               time.Duration `mapstructure:"dial_timeout"`
	DialKeepAlive             time.Duration `mapstructure:"dial_keep_alive"`
	TlsInsecureSkipVerify     bool          `mapstructure:"tls_insecure_skip_verify"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	CollectorUrl string `mapstructure:"collector_url"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	AwsBaseEndpoint string `mapstructure:"aws_base_endpoint"`
	Region          string `mapstructure:"region"`
	BucketName      string `mapstructure:"bucket_name"`
	KeyPrefix       string `mapstructure:"key_prefix"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
}

type KafkaConfig struct {
	Producer *ProducerConfig `mapstructure:"producer"`
}

type ProducerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           []string      `mapstructure:"addr"`
	WriteTopicName string        `mapstructure:"write_topic_name"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BatchSize      int           `mapstructure:"batch_size"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequiredAsks   int           `mapstructure:"required_acks"`
}

// MustLoad reads the config file at cfgPath (or ./config.yaml when empty), applies env overrides
// and bound flags, and exits the process on any error.
func MustLoad(cfgPath string, flags *pflag.FlagSet) *Config {
	cfg, err := Load(cfgPath, flags)
	if err != nil {
		slog.Error("can't initialize config.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	return cfg
}

func Load(cfgPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(path.Join("."))
		v.SetConfigName("config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Warn("config file not found, using defaults.")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.CrawlerSettings == nil || len(c.CrawlerSettings.Endpoints) == 0 {
		return errors.New("crawler.endpoints must contain at least one endpoint")
	}
	if c.CrawlerSettings.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0 (got %s)", c.CrawlerSettings.RequestTimeout)
	}
	if c.CrawlerSettings.MinInterval < 0 {
		return fmt.Errorf("crawler.min_interval must be >= 0 (got %s)", c.CrawlerSettings.MinInterval)
	}
	if strings.TrimSpace(c.CrawlerSettings.UserAgent) == "" {
		return errors.New("crawler.user_agent must be set")
	}
	if c.S3Settings != nil && c.S3Settings.Enabled && c.S3Settings.BucketName == "" {
		return errors.New("s3.bucket_name must be set when s3.enabled is true")
	}
	if c.KafkaSettings != nil && c.KafkaSettings.Producer != nil && c.KafkaSettings.Producer.Enabled {
		if len(c.KafkaSettings.Producer.Addr) == 0 || c.KafkaSettings.Producer.WriteTopicName == "" {
			return errors.New("kafka.producer.addr and kafka.producer.write_topic_name must be set when enabled")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_type", "text")
	v.SetDefault("service_name", "autocomplete-crawler")
	v.SetDefault("version", "dev")

	v.SetDefault("crawler.user_agent", "Mozilla/5.0")
	v.SetDefault("crawler.request_timeout", 10*time.Second)
	v.SetDefault("crawler.min_interval", time.Duration(0))
	v.SetDefault("crawler.probe", true)

	v.SetDefault("output.directory", ".")
	v.SetDefault("output.file_prefix", "names_collected")

	v.SetDefault("http_client.max_idle_connections", 10)
	v.SetDefault("http_client.max_idle_connections_per_host", 4)
	v.SetDefault("http_client.max_connections_per_host", 4)
	v.SetDefault("http_client.idle_connection_timeout", 90*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.dial_timeout", 10*time.Second)
	v.SetDefault("http_client.dial_keep_alive", 30*time.Second)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("s3.enabled", false)
	v.SetDefault("database.enabled", false)
	v.SetDefault("kafka.producer.enabled", false)
	v.SetDefault("kafka.producer.max_attempts", 3)
	v.SetDefault("kafka.producer.batch_size", 500)
	v.SetDefault("kafka.producer.write_timeout", 10*time.Second)
	v.SetDefault("kafka.producer.read_timeout", 10*time.Second)
	v.SetDefault("kafka.producer.required_acks", 1)
}

// flag name -> config key
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"output-dir": "output.directory",
	"endpoint":   "crawler.endpoints",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if f := flags.Lookup("no-probe"); f != nil && f.Changed && f.Value.String() == "true" {
		v.Set("crawler.probe", false)
	}
	return nil
}
