// Package config loads router and backend configuration from YAML, with
// dotenv support for API keys so credentials stay out of config files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/johnhenry/aimatey/router"
)

// BackendConfig declares one backend instance.
type BackendConfig struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"` // openai, anthropic, mock
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"` // env var holding the credential
}

// RouterConfig declares the dispatch policy.
type RouterConfig struct {
	Strategy         string             `yaml:"strategy"`
	FallbackOnError  bool               `yaml:"fallback_on_error"`
	EWMAAlpha        float64            `yaml:"ewma_alpha"`
	FailureThreshold int                `yaml:"failure_threshold"`
	ProbeInterval    time.Duration      `yaml:"probe_interval"`
	Weights          map[string]float64 `yaml:"weights"`
	Costs            map[string]float64 `yaml:"costs"`
}

// Config is the top-level configuration document.
type Config struct {
	Router   RouterConfig    `yaml:"router"`
	Backends []BackendConfig `yaml:"backends"`
}

var knownStrategies = map[string]struct{}{
	string(router.StrategyRoundRobin):   {},
	string(router.StrategyRandom):       {},
	string(router.StrategyPriority):     {},
	string(router.StrategyWeighted):     {},
	string(router.StrategyLeastLatency): {},
	string(router.StrategyLeastCost):    {},
	string(router.StrategyCustom):       {},
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Router.Strategy == "" {
		c.Router.Strategy = string(router.StrategyRoundRobin)
	}
	if _, ok := knownStrategies[c.Router.Strategy]; !ok {
		return fmt.Errorf("unknown strategy %q", c.Router.Strategy)
	}
	names := map[string]struct{}{}
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("backend %d: name is required", i)
		}
		if _, dup := names[b.Name]; dup {
			return fmt.Errorf("backend %q declared twice", b.Name)
		}
		names[b.Name] = struct{}{}
	}
	for name := range c.Router.Weights {
		if _, ok := names[name]; !ok {
			return fmt.Errorf("weight for undeclared backend %q", name)
		}
	}
	for name := range c.Router.Costs {
		if _, ok := names[name]; !ok {
			return fmt.Errorf("cost for undeclared backend %q", name)
		}
	}
	return nil
}

// RouterOptions maps the document onto router options.
func (c *Config) RouterOptions() func(o *router.Options) {
	return func(o *router.Options) {
		o.Strategy = router.Strategy(c.Router.Strategy)
		o.FallbackOnError = c.Router.FallbackOnError
		if c.Router.EWMAAlpha > 0 {
			o.Health.Alpha = c.Router.EWMAAlpha
		}
		if c.Router.FailureThreshold > 0 {
			o.Health.FailureThreshold = c.Router.FailureThreshold
		}
		if len(c.Router.Weights) > 0 {
			o.Weights = c.Router.Weights
		}
		if len(c.Router.Costs) > 0 {
			o.Costs = c.Router.Costs
		}
	}
}

// APIKey resolves a backend's credential from its configured env var.
func (b BackendConfig) APIKey() string {
	if b.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(b.APIKeyEnv)
}

// LoadEnv loads dotenv files into the process environment. Missing files are
// tolerated so production deployments can rely on real environment variables.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}
