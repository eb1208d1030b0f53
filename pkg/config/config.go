package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	defaults "github.com/mcuadros/go-defaults"
	"github.com/pkg/errors"
	"github.com/takehaya/ixnrest/pkg/ixnrest"
	"github.com/takehaya/ixnrest/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. IXN_HOST.
const EnvPrefix = "IXN"

type Config struct {
	LoggerConfig logger.Config `yaml:"log"`

	Server      ServerConfig  `yaml:"server"`
	Poll        PollConfig    `yaml:"poll"`
	HTTPTimeout time.Duration `yaml:"http_timeout" default:"60s"`
}

type ServerConfig struct {
	Host   string `yaml:"host" default:"127.0.0.1"`
	Port   int    `yaml:"port" default:"11009"`
	Scheme string `yaml:"scheme" default:"http"`
}

type PollConfig struct {
	Timeout  int           `yaml:"timeout" default:"90"` // seconds, spread over Interval
	Interval time.Duration `yaml:"interval" default:"1s"`
}

// envOverrides is read from the environment after the file. Zero values
// leave the file's settings alone.
type envOverrides struct {
	Host        string        `envconfig:"HOST"`
	Port        int           `envconfig:"PORT"`
	Scheme      string        `envconfig:"SCHEME"`
	PollTimeout int           `envconfig:"POLL_TIMEOUT"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT"`
	Verbose     int           `envconfig:"VERBOSE"`
	LogJSON     bool          `envconfig:"LOG_JSON"`
}

// Default returns the configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and IXN_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}
	cfg.applyEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	if env.Host != "" {
		c.Server.Host = env.Host
	}
	if env.Port != 0 {
		c.Server.Port = env.Port
	}
	if env.Scheme != "" {
		c.Server.Scheme = env.Scheme
	}
	if env.PollTimeout != 0 {
		c.Poll.Timeout = env.PollTimeout
	}
	if env.HTTPTimeout != 0 {
		c.HTTPTimeout = env.HTTPTimeout
	}
	if env.Verbose != 0 {
		c.LoggerConfig.Verbose = env.Verbose
	}
	if env.LogJSON {
		c.LoggerConfig.JSON = true
	}
}

func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Server.Scheme != "http" && c.Server.Scheme != "https" {
		return fmt.Errorf("server scheme must be http or https")
	}
	if c.Poll.Timeout <= 0 {
		return fmt.Errorf("poll timeout must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}

// PollPolicy turns the poll settings into the client's policy. The timeout
// is spread over as many intervals as fit in it, at least one.
func (c *Config) PollPolicy() ixnrest.PollPolicy {
	p := ixnrest.DefaultPollPolicy()
	if c.Poll.Interval > 0 {
		p.Interval = c.Poll.Interval
	}
	timeout := time.Duration(c.Poll.Timeout) * time.Second
	attempts := (timeout + p.Interval - 1) / p.Interval
	if attempts < 1 {
		attempts = 1
	}
	p.MaxAttempts = uint(attempts)
	return p
}

// ClientOptions returns the options Connect needs for this configuration.
func (c *Config) ClientOptions(lg *zap.Logger) []ixnrest.Option {
	return []ixnrest.Option{
		ixnrest.WithScheme(c.Server.Scheme),
		ixnrest.WithHTTPClient(&http.Client{Timeout: c.HTTPTimeout}),
		ixnrest.WithPollPolicy(c.PollPolicy()),
		ixnrest.WithLogger(lg),
	}
}
