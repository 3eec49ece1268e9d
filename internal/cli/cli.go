// Package cli implements the arbor command-line interface and the setup
// shared by every Arbor binary: configuration, logging, the document cache
// and the loader.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Mr-Dark-debug/arbor/internal/config"
	"github.com/Mr-Dark-debug/arbor/internal/database"
	"github.com/Mr-Dark-debug/arbor/internal/loader"
	"github.com/Mr-Dark-debug/arbor/internal/logx"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// =============================================================================
// Shared flags
// =============================================================================

// Flags are the settings every binary accepts on top of the config file.
type Flags struct {
	ConfigPath string
	DBPath     string
	NoCache    bool
	Offline    bool
	Verbose    bool
}

// Register adds the shared flags to cmd as persistent flags.
func (f *Flags) Register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.ConfigPath, "config", "", "config file (default ~/.arbor/config.toml)")
	pf.StringVar(&f.DBPath, "db", "", "document cache database")
	pf.BoolVar(&f.NoCache, "no-cache", false, "disable the document cache")
	pf.BoolVar(&f.Offline, "offline", false, "serve documents from the cache only")
	pf.BoolVarP(&f.Verbose, "verbose", "v", false, "enable verbose logging")
}

// Config loads the config file and applies the flags over it.
func (f *Flags) Config() (config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if f.DBPath != "" {
		cfg.Cache.DBPath = f.DBPath
	}
	if f.NoCache {
		cfg.Cache.Enabled = false
	}
	if f.Offline {
		cfg.Cache.Offline = true
	}
	if f.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

// =============================================================================
// Env
// =============================================================================

// Env holds what a command builds from its configuration.
type Env struct {
	Config config.Config
	Logger *log.Logger
	// Store is nil when the cache is disabled.
	Store  *database.DBService
	Loader *loader.Loader
}

// OpenEnv opens the document cache (when enabled) and builds a loader.
func OpenEnv(cfg config.Config, logger *log.Logger) (*Env, error) {
	env := &Env{Config: cfg, Logger: logger}

	if cfg.Cache.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Cache.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		store, err := database.NewDBService(cfg.Cache.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening document cache: %w", err)
		}
		env.Store = store
	} else if cfg.Cache.Offline {
		return nil, fmt.Errorf("offline mode needs the document cache")
	}

	var store loader.DocumentStore
	if env.Store != nil {
		store = env.Store
	}
	env.Loader = loader.New(loader.OptionsFromConfig(cfg, store, logger))
	return env, nil
}

// Close releases the document cache.
func (e *Env) Close() error {
	if e.Store == nil {
		return nil
	}
	return e.Store.Close()
}

// =============================================================================
// CLI
// =============================================================================

// CLI holds shared state for the arbor commands.
type CLI struct {
	flags  Flags
	stderr io.Writer

	Logger *log.Logger
	cfg    config.Config
}

// New creates a CLI logging to stderr.
func New(stderr io.Writer) *CLI {
	return &CLI{stderr: stderr, Logger: logx.New(stderr, log.InfoLevel)}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "arbor",
		Short:         "Arbor prints, inspects and caches node documents",
		Long:          `Arbor works with trees described by JSON node documents whose subtrees can live in other documents, fetched over http or from disk when first needed.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.flags.Config()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.Logger.SetLevel(logx.ParseLevel(cfg.Log.Level))
			cmd.SetContext(logx.WithLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(VersionString() + "\n")
	c.flags.Register(root)

	root.AddCommand(c.printCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	return root
}

// env opens the environment for the current command, logging through the
// logger carried by its context.
func (c *CLI) env(cmd *cobra.Command) (*Env, error) {
	return OpenEnv(c.cfg, logx.FromContext(cmd.Context()))
}

// sourceArg returns the source argument, falling back to the configured
// default source.
func (c *CLI) sourceArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if c.cfg.Source != "" {
		return c.cfg.Source, nil
	}
	return "", fmt.Errorf("no source given and none configured")
}
