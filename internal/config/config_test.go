package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/campuscrawl/internal/crawler"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "output.jsonl", cfg.Output)
	assert.Equal(t, "body main", cfg.MainSelector)
	assert.Equal(t, crawler.EdgeModeCumulative, cfg.EdgeMode)
	assert.Equal(t, crawler.ScopeHost, cfg.Scope)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 200*time.Millisecond, cfg.Delay)
	assert.True(t, cfg.RespectRobots)
	assert.Equal(t, "static", cfg.FetchMode)
	assert.Equal(t, 10485760, cfg.MaxBodyBytes())
	assert.Contains(t, cfg.UserAgent, "campuscrawl/")
}

func TestSetup_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
seeds:
  - https://www.example.ac.uk/
output: out/pages.jsonl
edge_mode: delta
max_depth: 2
scope: site
exclude:
  - "?tab="
delay: 1s
max_body_size: 2MB
headers:
  Accept-Language: en
`)
	v := viper.New()
	used, err := Setup(v, path)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://www.example.ac.uk/"}, cfg.Seeds)
	assert.Equal(t, "out/pages.jsonl", cfg.Output)
	assert.Equal(t, crawler.EdgeModeDelta, cfg.EdgeMode)
	assert.Equal(t, 2, cfg.MaxDepth)
	assert.Equal(t, crawler.ScopeSite, cfg.Scope)
	assert.Equal(t, []string{"?tab="}, cfg.Exclude)
	assert.Equal(t, time.Second, cfg.Delay)
	assert.Equal(t, 2000000, cfg.MaxBodyBytes())
	// viper lowercases map keys
	assert.Equal(t, "en", cfg.Headers["accept-language"])
}

func TestSetup_MissingExplicitFile(t *testing.T) {
	_, err := Setup(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSetup_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "concurrency: 2\nscope: host\n")
	t.Setenv("CAMPUSCRAWL_CONCURRENCY", "8")
	t.Setenv("CAMPUSCRAWL_SCOPE", "any")

	v := viper.New()
	_, err := Setup(v, path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, crawler.ScopeAny, cfg.Scope)
}

func TestSetup_FlagsOverrideEnv(t *testing.T) {
	path := writeConfig(t, "max_depth: 1\n")
	t.Setenv("CAMPUSCRAWL_MAX_DEPTH", "2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-depth", 0, "")
	require.NoError(t, flags.Parse([]string{"--max-depth=5"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag(KeyMaxDepth, flags.Lookup("max-depth")))
	_, err := Setup(v, path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxDepth)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"scope", KeyScope, "galaxy"},
		{"edge mode", KeyEdgeMode, "sideways"},
		{"fetch mode", KeyFetchMode, "telepathic"},
		{"concurrency", KeyConcurrency, 0},
		{"max depth", KeyMaxDepth, -2},
		{"negative delay", KeyDelay, -time.Second},
		{"zero timeout", KeyTimeout, time.Duration(0)},
		{"empty selector", KeyMainSelector, ""},
		{"empty output", KeyOutput, ""},
		{"seed url", KeySeeds, []string{"not a url"}},
		{"follow pattern", KeyFollowPattern, "[bad"},
		{"body size", KeyMaxBodySize, "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)

			_, err := Load(v)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyMaxDepth, -1)
	v.Set(KeyFollowPattern, "/about/")
	v.Set(KeyMaxBodySize, "0")
	v.Set(KeyUserAgent, "campuscrawl/test")
	v.Set(KeyWaitSelector, "main")

	cfg, err := Load(v)
	require.NoError(t, err)

	cc := cfg.Crawler()
	assert.Equal(t, -1, cc.MaxDepth)
	assert.Equal(t, "/about/", cc.FollowPattern)
	assert.Equal(t, "campuscrawl/test", cc.UserAgent)
	assert.True(t, cc.RespectRobots)

	fc := cfg.Fetcher()
	assert.Zero(t, fc.MaxBodySize)
	assert.Equal(t, "campuscrawl/test", fc.UserAgent)
	assert.Equal(t, "main", fc.WaitSelector)
	assert.Equal(t, 30*time.Second, fc.Timeout)
}
