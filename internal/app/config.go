package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"meshchat/internal/figlet"
	"meshchat/internal/logging"
	"meshchat/internal/services/command"
	"meshchat/internal/services/reconcile"
)

// ConfigFilename is the config file looked up in the home directory.
const ConfigFilename = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. MESHCHAT_BOT_NAME.
const EnvPrefix = "MESHCHAT"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string `mapstructure:"home" yaml:"home"`         // data directory, e.g. $HOME/.meshchat
	Nickname string `mapstructure:"nickname" yaml:"nickname"` // empty picks a random one
	Location string `mapstructure:"location" yaml:"location"` // starting geohash; empty is the mesh

	Reconcile ReconcileConfig `mapstructure:"reconcile" yaml:"reconcile"`
	Figlet    FigletConfig    `mapstructure:"figlet" yaml:"figlet"`
	Bot       BotConfig       `mapstructure:"bot" yaml:"bot"`
	Log       logging.Config  `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Sim       SimConfig       `mapstructure:"sim" yaml:"sim"`
}

// ReconcileConfig tunes the peer state poll.
type ReconcileConfig struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// FigletConfig points /figlet at a rendering service.
type FigletConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// BotConfig names the local bot.
type BotConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
}

// MetricsConfig exposes Prometheus metrics. An empty Addr disables the
// endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SimConfig seeds the loopback transport used by the CLI.
type SimConfig struct {
	Peers          []string      `mapstructure:"peers" yaml:"peers"`
	HandshakeDelay time.Duration `mapstructure:"handshake_delay" yaml:"handshake_delay"`
	AutoAck        bool          `mapstructure:"auto_ack" yaml:"auto_ack"`
}

// DefaultHome returns $HOME/.meshchat.
func DefaultHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".meshchat")
	}
	return ".meshchat"
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Home: DefaultHome(),
		Reconcile: ReconcileConfig{
			Interval:    reconcile.DefaultInterval,
			Concurrency: reconcile.DefaultConcurrency,
		},
		Figlet: FigletConfig{URL: figlet.DefaultURL, Timeout: 10 * time.Second},
		Bot:    BotConfig{Name: command.DefaultBotName},
		Log:    logging.Default(),
		Sim: SimConfig{
			Peers:          []string{"alice", "bob"},
			HandshakeDelay: 500 * time.Millisecond,
			AutoAck:        true,
		},
	}
}

// LoadConfig reads <home>/config.yaml, or file when set, over the defaults.
// Environment variables with the MESHCHAT_ prefix override both.
func LoadConfig(home, file string) (*Config, error) {
	def := DefaultConfig()
	if home != "" {
		def.Home = home
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("home", def.Home)
	v.SetDefault("nickname", def.Nickname)
	v.SetDefault("location", def.Location)
	v.SetDefault("reconcile.interval", def.Reconcile.Interval)
	v.SetDefault("reconcile.concurrency", def.Reconcile.Concurrency)
	v.SetDefault("figlet.url", def.Figlet.URL)
	v.SetDefault("figlet.timeout", def.Figlet.Timeout)
	v.SetDefault("bot.name", def.Bot.Name)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.outputs", def.Log.Outputs)
	v.SetDefault("log.development", def.Log.Development)
	v.SetDefault("log.rotation.enable", def.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", def.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", def.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", def.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", def.Log.Rotation.Compress)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("sim.peers", def.Sim.Peers)
	v.SetDefault("sim.handshake_delay", def.Sim.HandshakeDelay)
	v.SetDefault("sim.auto_ack", def.Sim.AutoAck)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFilename, filepath.Ext(ConfigFilename)))
		v.SetConfigType("yaml")
		v.AddConfigPath(def.Home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(file != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if home != "" {
		cfg.Home = home
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Home == "" {
		return errors.New("config: home is empty")
	}
	if c.Reconcile.Interval <= 0 {
		return fmt.Errorf("config: reconcile.interval must be positive, got %s", c.Reconcile.Interval)
	}
	if c.Reconcile.Concurrency < 1 {
		return fmt.Errorf("config: reconcile.concurrency must be at least 1, got %d", c.Reconcile.Concurrency)
	}
	if c.Location != "" {
		if err := geohash.Validate(strings.ToLower(c.Location)); err != nil {
			return fmt.Errorf("config: location %q: %w", c.Location, err)
		}
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	return nil
}

// WriteConfig writes c as YAML to path, creating the directory.
func WriteConfig(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}
