package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnhenry/aimatey/config"
	"github.com/johnhenry/aimatey/router"
)

const sampleYAML = `
router:
  strategy: weighted
  fallback_on_error: true
  ewma_alpha: 0.5
  failure_threshold: 5
  probe_interval: 15s
  weights:
    fast: 70
    slow: 30
  costs:
    fast: 2.5
    slow: 0.5
backends:
  - name: fast
    kind: openai
    model: gpt-4o-mini
    api_key_env: TEST_OPENAI_KEY
  - name: slow
    kind: anthropic
    model: claude-sonnet
    api_key_env: TEST_ANTHROPIC_KEY
`

func TestParse_FullDocument(t *testing.T) {
	cfg, err := config.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "weighted", cfg.Router.Strategy)
	assert.True(t, cfg.Router.FallbackOnError)
	assert.Equal(t, 0.5, cfg.Router.EWMAAlpha)
	assert.Equal(t, 5, cfg.Router.FailureThreshold)
	assert.Equal(t, 15*time.Second, cfg.Router.ProbeInterval)
	assert.Equal(t, 70.0, cfg.Router.Weights["fast"])
	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, "openai", cfg.Backends[0].Kind)
	assert.Equal(t, "claude-sonnet", cfg.Backends[1].Model)
}

func TestParse_DefaultsStrategy(t *testing.T) {
	cfg, err := config.Parse([]byte("backends:\n  - name: only\n    kind: mock\n"))
	require.NoError(t, err)
	assert.Equal(t, string(router.StrategyRoundRobin), cfg.Router.Strategy)
}

func TestParse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown strategy", "router:\n  strategy: psychic\n", "unknown strategy"},
		{"unnamed backend", "backends:\n  - kind: mock\n", "name is required"},
		{"duplicate backend", "backends:\n  - name: a\n  - name: a\n", "declared twice"},
		{"weight for unknown backend", "router:\n  weights:\n    ghost: 1\nbackends:\n  - name: a\n", "undeclared backend"},
		{"cost for unknown backend", "router:\n  costs:\n    ghost: 1\nbackends:\n  - name: a\n", "undeclared backend"},
		{"malformed yaml", "router: [not a map", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_RouterOptions(t *testing.T) {
	cfg, err := config.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	var opts router.Options
	cfg.RouterOptions()(&opts)

	assert.Equal(t, router.StrategyWeighted, opts.Strategy)
	assert.True(t, opts.FallbackOnError)
	assert.Equal(t, 0.5, opts.Health.Alpha)
	assert.Equal(t, 5, opts.Health.FailureThreshold)
	assert.Equal(t, 70.0, opts.Weights["fast"])
	assert.Equal(t, 0.5, opts.Costs["slow"])
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aimatey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Backends, 2)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBackendConfig_APIKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	b := config.BackendConfig{Name: "fast", APIKeyEnv: "TEST_OPENAI_KEY"}
	assert.Equal(t, "sk-test", b.APIKey())

	assert.Empty(t, config.BackendConfig{Name: "anon"}.APIKey())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AIMATEY_TEST_VAR=hello\n"), 0o600))
	t.Setenv("AIMATEY_TEST_VAR", "") // register cleanup, then overwrite via dotenv
	os.Unsetenv("AIMATEY_TEST_VAR")

	require.NoError(t, config.LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "hello", os.Getenv("AIMATEY_TEST_VAR"))
}
