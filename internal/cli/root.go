package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/boardsync/internal/config"
	"github.com/matzehuels/boardsync/pkg/buildinfo"
	"github.com/matzehuels/boardsync/pkg/observability"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Before any subcommand runs the configuration is loaded from --env-file,
// --config and the environment, and --verbose switches the logger to debug
// and logs layout, sync, cache and HTTP events.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "boardsync keeps Miro boards in sync with spreadsheets and graphs",
		Long: `boardsync turns workbook rows and JSON graphs into shapes and connectors on a
Miro board. It lays graphs out with Graphviz, diffs every run against the last
applied snapshot and only sends what changed.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.configPath, "config", "", "config file (default: ./"+config.DefaultFile+" if present)")
	flags.StringVar(&c.envFile, "env-file", "", "dotenv file (default: ./.env if present)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.sheetsCommand())
	root.AddCommand(c.diffCommand())
	root.AddCommand(c.syncCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.authCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and applies the logging flags.
func (c *CLI) setup() error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
		hooks := observability.NewLogHooks(c.Logger)
		observability.SetLayoutHooks(hooks)
		observability.SetSyncHooks(hooks)
		observability.SetCacheHooks(hooks)
		observability.SetHTTPHooks(hooks)
	}

	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("configuration loaded", "layout", cfg.Layout.Provider, "board", cfg.Miro.BoardID)
	return nil
}
