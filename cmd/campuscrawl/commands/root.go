// Package commands implements the CLI commands for campuscrawl.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/campuscrawl/internal/config"
	"github.com/jmylchreest/campuscrawl/internal/logger"
	"github.com/jmylchreest/campuscrawl/internal/seeds"
	"github.com/jmylchreest/campuscrawl/internal/version"
)

// app carries state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the command tree with a fresh configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "campuscrawl",
		Short: "University site crawler that records pages and their path graph",
		Long: `campuscrawl walks a university website from a list of seed URLs.

For every page it fetches, it extracts the title, the links and the text of
the main content region, adds the page's links to a shared graph of path
prefixes and appends one JSON record per page to a JSONL file.

Examples:
  # Discover the pages of a site and save them as seeds
  campuscrawl discover -u "https://www.example.ac.uk/" -o urls.csv

  # Crawl the discovered pages
  campuscrawl crawl -s urls.csv -o output.jsonl

  # Follow links two levels deep and keep a SQLite copy and a report
  campuscrawl crawl -u "https://www.example.ac.uk/about/" --max-depth 2 \
      --database crawl.db --report crawl.md`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./.campuscrawl.yaml, $HOME/.campuscrawl.yaml or $XDG_CONFIG_HOME/campuscrawl/config.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.BoolP("quiet", "q", false, "only log errors")
	pf.Bool("log-json", false, "log as JSON")

	_ = a.v.BindPFlag("debug", pf.Lookup("debug"))
	_ = a.v.BindPFlag("quiet", pf.Lookup("quiet"))
	_ = a.v.BindPFlag("log_json", pf.Lookup("log-json"))

	cmd.AddCommand(newCrawlCmd(a), newDiscoverCmd(a), newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

// load binds the running command's flags, reads the configuration and
// initializes logging. Flags are bound here rather than at construction
// because several commands share key names. defaults replace the global
// defaults of the given keys for this command.
func (a *app) load(cmd *cobra.Command, bindings map[string]string, defaults map[string]any) (*config.Config, error) {
	if err := bindFlags(a.v, cmd.Flags(), bindings); err != nil {
		return nil, err
	}

	used, err := config.Setup(a.v, a.cfgFile)
	if err != nil {
		return nil, err
	}
	for key, val := range defaults {
		a.v.SetDefault(key, val)
	}

	if err := logger.Init(logger.Options{
		Debug:  a.v.GetBool("debug"),
		Quiet:  a.v.GetBool("quiet"),
		JSON:   a.v.GetBool("log_json"),
		Output: cmd.ErrOrStderr(),
	}); err != nil {
		return nil, err
	}
	if used != "" {
		logger.Debug("config file loaded", "path", used)
	}

	return config.Load(a.v)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag --%s not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// collectSeeds merges positional, configured and file seeds in that order.
func collectSeeds(cfg *config.Config, args []string) ([]string, error) {
	urls := append(append([]string(nil), args...), cfg.Seeds...)
	if cfg.SeedsFile != "" {
		fromFile, err := seeds.Load(cfg.SeedsFile)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return nil, errNoSeeds
	}
	return urls, nil
}

var errNoSeeds = errors.New("no seed urls: pass --url, --seeds or positional URLs")
