package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaimenu/internal/app"
	"kaimenu/internal/catalog"
	"kaimenu/internal/generation"
	"kaimenu/internal/llm"
	"kaimenu/internal/menu"
)

var errRejected = errors.New("some menus were rejected")

// --------------------------------------------------
// render
// --------------------------------------------------
func (c *cli) renderCmd() *cobra.Command {
	var promptOnly bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the generation request for the current constraints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cons, err := c.constraints(cmd)
			if err != nil {
				return err
			}

			cat, closeCatalog, err := c.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCatalog()

			ingredients := cat.IngredientsFor(cmd.Context(), cons.Dietary)
			if len(ingredients) == 0 {
				return fmt.Errorf("%w: %s", generation.ErrEmptyCatalog, cons.Dietary)
			}

			req := llm.Render(cons, catalog.PromptBlock(ingredients))
			if promptOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), req.Prompt)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), req)
		},
	}
	cmd.Flags().BoolVar(&promptOnly, "prompt-only", false, "print only the prompt text")
	return cmd
}

// --------------------------------------------------
// validate <file|->
// --------------------------------------------------
type validation struct {
	Name       string       `json:"meal_name"`
	Verdict    menu.Verdict `json:"verdict"`
	Violations []string     `json:"violations,omitempty"`
}

func (c *cli) validateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Validate candidate menus in collaborator response format",
		Long: `Reads {"menus":[...]} from a file (or stdin with "-"), validates every
menu against the catalog and constraints, and prints one verdict per menu.
Exits non-zero when any menu is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			candidates, err := llm.ParseResponse(string(raw))
			if err != nil {
				return err
			}

			cons, err := c.constraints(cmd)
			if err != nil {
				return err
			}

			cat, closeCatalog, err := c.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCatalog()

			validator := menu.NewValidator(cat.Snapshot(cmd.Context()))
			verdicts, err := validator.ValidateBatch(cmd.Context(), candidates, cons)
			if err != nil {
				return err
			}

			out := make([]validation, len(candidates))
			rejected := 0
			for i, cand := range candidates {
				out[i] = validation{Name: cand.Name, Verdict: verdicts[i]}
				if !verdicts[i].Valid {
					rejected++
				}
				if all {
					for _, v := range validator.AllViolations(cand, cons) {
						out[i].Violations = append(out[i].Violations, v.Error())
					}
				}
			}

			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if rejected > 0 {
				return fmt.Errorf("%w: %d of %d", errRejected, rejected, len(candidates))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every violated rule, not just the first")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// --------------------------------------------------
// generate
// --------------------------------------------------
func (c *cli) generateCmd() *cobra.Command {
	var feedback bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation cycle and print accepted and rejected menus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cons, err := c.constraints(cmd)
			if err != nil {
				return err
			}

			cat, closeCatalog, err := c.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer closeCatalog()

			client, err := c.newClient(ctx, c.cfg)
			if err != nil {
				return err
			}

			svc := generation.NewService(cat, client, c.logger, app.GenerationOptions(ctx, c.cfg, c.logger)...)

			cycle, err := svc.Run(ctx, cons)
			if err != nil {
				return err
			}
			cycles := []generation.Summary{cycle.Summary()}

			if feedback && len(cycle.Rejected) > 0 {
				refined, err := svc.Refine(ctx, cycle)
				if err != nil {
					return err
				}
				cycles = append(cycles, refined.Summary())
			}

			c.logger.Info("[CLI] generation finished",
				zap.String("cycle_id", cycle.ID.String()),
				zap.Int("cycles", len(cycles)),
			)
			return writeJSON(cmd.OutOrStdout(), cycles)
		},
	}
	cmd.Flags().BoolVar(&feedback, "feedback", false, "run one feedback pass over the rejected menus")
	return cmd
}

// --------------------------------------------------
// import
// --------------------------------------------------
func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Copy the --catalog fixture into the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.catalogPath == "" {
				return errors.New("--catalog is required")
			}
			src, err := catalog.LoadFixture(c.catalogPath)
			if err != nil {
				return err
			}

			stores, err := app.OpenStores(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer stores.Close()

			n, err := catalog.Import(cmd.Context(), stores.CatalogWriter, src)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d ingredients into %s\n", n, stores.Backend)
			return err
		},
	}
}
