package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Detection DetectionConfig `mapstructure:"detection"`
	Broker    BrokerConfig    `mapstructure:"broker"`

	v *viper.Viper
}

type ServiceConfig struct {
	Name       string `mapstructure:"name"`
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`
}

type PipelineConfig struct {
	HistorySize        int           `mapstructure:"history_size"`
	MinBatchSize       int           `mapstructure:"min_batch_size"`
	MaxBatchSize       int           `mapstructure:"max_batch_size"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryDrainInterval time.Duration `mapstructure:"retry_drain_interval"`
	SessionLogSize     int           `mapstructure:"session_log_size"`
	MailboxSize        int           `mapstructure:"mailbox_size"`
	SendTimeout        time.Duration `mapstructure:"send_timeout"`
}

// DetectionConfig overrides the built-in keyword tables. Hot-reloadable.
type DetectionConfig struct {
	UrgentKeywords []string `mapstructure:"urgent_keywords"`
	HighKeywords   []string `mapstructure:"high_keywords"`
}

// BrokerConfig selects the outbound bus. An empty AMQP URL keeps delivery
// on the in-process channel publisher.
type BrokerConfig struct {
	AMQPURL string `mapstructure:"amqp_url"`
	Topic   string `mapstructure:"topic"`
}

// LoadConfig reads defaults, an optional config file and RELAY_* environment
// overrides, in increasing precedence.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("service.name", "relay-service")
	v.SetDefault("service.listen_addr", ":8080")
	v.SetDefault("service.log_level", "info")

	v.SetDefault("pipeline.history_size", 1000)
	v.SetDefault("pipeline.min_batch_size", 5)
	v.SetDefault("pipeline.max_batch_size", 50)
	v.SetDefault("pipeline.max_retries", 5)
	v.SetDefault("pipeline.retry_drain_interval", time.Second)
	v.SetDefault("pipeline.session_log_size", 1000)
	v.SetDefault("pipeline.mailbox_size", 256)
	v.SetDefault("pipeline.send_timeout", 200*time.Millisecond)

	v.SetDefault("broker.topic", "relay.messages.delivered")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	p := c.Pipeline
	if p.MinBatchSize < 1 || p.MaxBatchSize < p.MinBatchSize {
		return fmt.Errorf("config: batch thresholds min=%d max=%d", p.MinBatchSize, p.MaxBatchSize)
	}
	if p.HistorySize < 1 {
		return fmt.Errorf("config: history_size must be positive, got %d", p.HistorySize)
	}
	return nil
}

// Watch re-reads the config file on change and hands the fresh copy to
// onChange. Only meaningful when a config file was loaded; keyword tables
// are the main hot-reload consumer.
func (c *Config) Watch(onChange func(*Config)) {
	if c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(fsnotify.Event) {
		fresh := &Config{v: c.v}
		if err := c.v.Unmarshal(fresh); err != nil {
			return
		}
		if err := fresh.validate(); err != nil {
			return
		}
		onChange(fresh)
	})
	c.v.WatchConfig()
}
