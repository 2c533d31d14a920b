package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/streamrouter/internal/business/catalogue"
	"github.com/vitaliisemenov/streamrouter/internal/business/routing"
	"github.com/vitaliisemenov/streamrouter/internal/config"
)

// newValidateCommand loads the current catalogue and runs
// routing.Validate over it, surfacing every problem EngineBuilder would
// otherwise only drop-and-log during a live rebuild (spec.md §7's
// build-time error kinds). Grounded on the teacher's
// migrations.CLI.validateCommand for the "load, check, print problems"
// shape.
func newValidateCommand() *cobra.Command {
	var devMode bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalogue's streams and rules without starting the router",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if devMode {
				cfg.Catalogue.Backend = "memory"
			}

			ctx := context.Background()
			var store routing.Catalogue
			switch cfg.Catalogue.Backend {
			case "postgres":
				pool, err := catalogue.Connect(ctx, cfg.Catalogue.Postgres, nil)
				if err != nil {
					return fmt.Errorf("connect catalogue: %w", err)
				}
				defer pool.Close()
				store = catalogue.NewPostgresCatalogue(pool, nil)
			default:
				fmt.Println("no catalogue backend configured (use --config to point at postgres); nothing to validate")
				return nil
			}

			streams, err := store.LoadEnabledStreams(ctx)
			if err != nil {
				return fmt.Errorf("load streams: %w", err)
			}

			errs := routing.Validate(streams)
			if len(errs) == 0 {
				fmt.Printf("%d enabled streams, no problems found\n", len(streams))
				return nil
			}

			for _, e := range errs {
				fmt.Println(e.Error())
			}
			return fmt.Errorf("%d validation problems found across %d streams", len(errs), len(streams))
		},
	}
	cmd.Flags().BoolVar(&devMode, "dev", false, "no-op placeholder; memory catalogues have nothing to validate without --config")
	return cmd
}
