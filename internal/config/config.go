// Package config loads and validates campuscrawl settings.
//
// Settings are layered by viper: built-in defaults, then a YAML config file,
// then CAMPUSCRAWL_* environment variables, then bound command-line flags.
// Keys are snake_case; flags use the same names with dashes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/campuscrawl/internal/crawler"
	"github.com/jmylchreest/campuscrawl/internal/version"
	"github.com/jmylchreest/campuscrawl/pkg/extract"
	"github.com/jmylchreest/campuscrawl/pkg/fetcher"
)

// AppName names the config directory and file.
const AppName = "campuscrawl"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "CAMPUSCRAWL"

// Keys.
const (
	KeySeeds         = "seeds"
	KeySeedsFile     = "seeds_file"
	KeyOutput        = "output"
	KeyGraphOutput   = "graph_output"
	KeyReport        = "report"
	KeyDatabase      = "database"
	KeySync          = "sync"
	KeyMainSelector  = "main_selector"
	KeyEdgeMode      = "edge_mode"
	KeyMaxDepth      = "max_depth"
	KeyScope         = "scope"
	KeyFollowPattern = "follow_pattern"
	KeyExclude       = "exclude"
	KeyMaxURLs       = "max_urls"
	KeyDelay         = "delay"
	KeyConcurrency   = "concurrency"
	KeyRespectRobots = "respect_robots"
	KeyUserAgent     = "user_agent"
	KeyFetchMode     = "fetch_mode"
	KeyTimeout       = "timeout"
	KeyMaxBodySize   = "max_body_size"
	KeyHeaders       = "headers"
	KeyWaitSelector  = "wait_selector"
	KeyWaitDuration  = "wait_duration"
	KeyChromePath    = "chrome_path"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting of a crawl run.
type Config struct {
	// Input and output
	Seeds       []string `mapstructure:"seeds" validate:"dive,required,http_url"`
	SeedsFile   string   `mapstructure:"seeds_file"`
	Output      string   `mapstructure:"output" validate:"required"`
	GraphOutput string   `mapstructure:"graph_output"`
	Report      string   `mapstructure:"report"`
	Database    string   `mapstructure:"database"`
	Sync        bool     `mapstructure:"sync"`

	// Extraction
	MainSelector string `mapstructure:"main_selector" validate:"required"`
	EdgeMode     string `mapstructure:"edge_mode" validate:"oneof=cumulative delta"`

	// Link following
	MaxDepth      int      `mapstructure:"max_depth" validate:"gte=-1"`
	Scope         string   `mapstructure:"scope" validate:"oneof=host site any"`
	FollowPattern string   `mapstructure:"follow_pattern"`
	Exclude       []string `mapstructure:"exclude"`
	MaxURLs       int      `mapstructure:"max_urls" validate:"gte=0"`

	// Politeness
	Delay         time.Duration `mapstructure:"delay" validate:"gte=0"`
	Concurrency   int           `mapstructure:"concurrency" validate:"min=1,max=64"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	UserAgent     string        `mapstructure:"user_agent" validate:"required"`

	// Fetching
	FetchMode    string            `mapstructure:"fetch_mode" validate:"oneof=static dynamic auto"`
	Timeout      time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	MaxBodySize  string            `mapstructure:"max_body_size"`
	Headers      map[string]string `mapstructure:"headers"`
	WaitSelector string            `mapstructure:"wait_selector"`
	WaitDuration time.Duration     `mapstructure:"wait_duration" validate:"gte=0"`
	ChromePath   string            `mapstructure:"chrome_path"`

	maxBodyBytes int
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	crawlDef := crawler.DefaultConfig()
	fetchDef := fetcher.DefaultConfig()

	v.SetDefault(KeySeeds, []string{})
	v.SetDefault(KeySeedsFile, "")
	v.SetDefault(KeyOutput, "output.jsonl")
	v.SetDefault(KeyGraphOutput, "")
	v.SetDefault(KeyReport, "")
	v.SetDefault(KeyDatabase, "")
	v.SetDefault(KeySync, false)
	v.SetDefault(KeyMainSelector, extract.DefaultMainSelector)
	v.SetDefault(KeyEdgeMode, crawlDef.EdgeMode)
	v.SetDefault(KeyMaxDepth, crawlDef.MaxDepth)
	v.SetDefault(KeyScope, crawlDef.Scope)
	v.SetDefault(KeyFollowPattern, "")
	v.SetDefault(KeyExclude, []string{})
	v.SetDefault(KeyMaxURLs, crawlDef.MaxURLs)
	v.SetDefault(KeyDelay, crawlDef.Delay)
	v.SetDefault(KeyConcurrency, crawlDef.Concurrency)
	v.SetDefault(KeyRespectRobots, true)
	v.SetDefault(KeyUserAgent, version.UserAgent())
	v.SetDefault(KeyFetchMode, "static")
	v.SetDefault(KeyTimeout, fetchDef.Timeout)
	v.SetDefault(KeyMaxBodySize, humanize.IBytes(uint64(fetchDef.MaxBodySize)))
	v.SetDefault(KeyHeaders, map[string]string{})
	v.SetDefault(KeyWaitSelector, fetchDef.WaitSelector)
	v.SetDefault(KeyWaitDuration, time.Duration(0))
	v.SetDefault(KeyChromePath, "")
}

// Setup points v at a config file and the environment. An explicit
// cfgFile must exist; otherwise the first of ./.campuscrawl.yaml,
// $HOME/.campuscrawl.yaml and $XDG_CONFIG_HOME/campuscrawl/config.yaml is
// used when present. It returns the file read, if any.
func Setup(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = FindConfigFile()
		if cfgFile == "" {
			return "", nil
		}
	}

	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return v.ConfigFileUsed(), nil
}

// FindConfigFile returns the first existing default config file, or "".
func FindConfigFile() string {
	candidates := []string{"." + AppName + ".yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "."+AppName+".yaml"))
	}
	candidates = append(candidates, filepath.Join(xdg.ConfigHome, AppName, "config.yaml"))

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	if p, err := xdg.SearchConfigFile(filepath.Join(AppName, "config.yaml")); err == nil {
		return p
	}
	return ""
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and parses derived values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q (value %v)", ErrInvalid, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.FollowPattern != "" {
		if _, err := regexp.Compile(c.FollowPattern); err != nil {
			return fmt.Errorf("%w: follow_pattern: %v", ErrInvalid, err)
		}
	}

	c.maxBodyBytes = 0
	if s := strings.TrimSpace(c.MaxBodySize); s != "" && s != "0" {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return fmt.Errorf("%w: max_body_size %q: %v", ErrInvalid, s, err)
		}
		c.maxBodyBytes = int(n)
	}
	return nil
}

// MaxBodyBytes returns the parsed max_body_size, 0 meaning unlimited.
func (c *Config) MaxBodyBytes() int {
	return c.maxBodyBytes
}

// Crawler returns the crawler settings.
func (c *Config) Crawler() crawler.Config {
	return crawler.Config{
		MaxDepth:      c.MaxDepth,
		Scope:         c.Scope,
		FollowPattern: c.FollowPattern,
		Exclude:       c.Exclude,
		MaxURLs:       c.MaxURLs,
		Delay:         c.Delay,
		Concurrency:   c.Concurrency,
		RespectRobots: c.RespectRobots,
		UserAgent:     c.UserAgent,
		EdgeMode:      c.EdgeMode,
	}
}

// Fetcher returns the fetcher settings.
func (c *Config) Fetcher() fetcher.Config {
	return fetcher.Config{
		UserAgent:    c.UserAgent,
		Timeout:      c.Timeout,
		MaxBodySize:  c.maxBodyBytes,
		Headers:      c.Headers,
		WaitSelector: c.WaitSelector,
		WaitDuration: c.WaitDuration,
		ChromePath:   c.ChromePath,
	}
}
