package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaimenu/internal/app"
	"kaimenu/internal/catalog"
	"kaimenu/internal/config"
	"kaimenu/internal/llm"
	"kaimenu/internal/logging"
	"kaimenu/internal/menu"
)

// cli holds the persistent flags and what PersistentPreRunE builds from them.
type cli struct {
	catalogPath     string
	constraintsPath string
	dietary         string
	batchSize       int
	verbose         bool

	cfg    config.Config
	logger *zap.Logger

	newClient func(ctx context.Context, cfg config.Config) (llm.Client, error)
}

func newRootCmd() *cobra.Command {
	return (&cli{newClient: app.NewLLMClient}).rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "menugen",
		Short:         "School-lunch menu generation and validation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.cfg = config.Load()

			env := "production"
			if c.verbose {
				env = "development"
			}
			logger, err := logging.New(env)
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.catalogPath, "catalog", "", "YAML catalog fixture (default: the configured database)")
	flags.StringVar(&c.constraintsPath, "constraints", "", "YAML constraint overrides (default: MENU_CONSTRAINTS_FILE)")
	flags.StringVar(&c.dietary, "dietary", "", "dietary tag for this run")
	flags.IntVar(&c.batchSize, "batch-size", 0, "menus to request")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.renderCmd(),
		c.validateCmd(),
		c.generateCmd(),
		c.importCmd(),
	)
	return root
}

// openCatalog returns the fixture named by --catalog, or the configured store.
func (c *cli) openCatalog(ctx context.Context) (*catalog.Service, func(), error) {
	if c.catalogPath != "" {
		repo, err := catalog.LoadFixture(c.catalogPath)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewService(repo, c.logger), func() {}, nil
	}

	stores, err := app.OpenStores(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, nil, err
	}
	return catalog.NewService(stores.Catalog, c.logger), stores.Close, nil
}

// constraints layers --constraints (or the configured file) and then
// --dietary / --batch-size over the defaults.
func (c *cli) constraints(cmd *cobra.Command) (menu.Constraints, error) {
	cfg := c.cfg
	if c.constraintsPath != "" {
		cfg.ConstraintsFile = c.constraintsPath
	}
	base, err := cfg.Constraints()
	if err != nil {
		return menu.Constraints{}, err
	}

	var o menu.Overrides
	if cmd.Flags().Changed("dietary") {
		o.Dietary = &c.dietary
	}
	if cmd.Flags().Changed("batch-size") {
		o.BatchSize = &c.batchSize
	}
	return o.Apply(base)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
