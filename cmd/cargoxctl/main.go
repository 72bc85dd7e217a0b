// Command cargoxctl drives the core directly against the configured
// store, without going through the HTTP layer: import/export CSV files
// and run placement, rearrangement, undocking, and simulation passes
// as one-shot subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/orionop/cargox/csvio"
	"github.com/orionop/cargox/logging"
	"github.com/orionop/cargox/placement"
	"github.com/orionop/cargox/rearrange"
	"github.com/orionop/cargox/simulate"
	"github.com/orionop/cargox/store"
	"github.com/orionop/cargox/undock"
	"github.com/orionop/cargox/waste"
)

func main() {
	app := &cli.App{
		Name:  "cargoxctl",
		Usage: "Operate the cargo stowage core directly against its store",
		Commands: []*cli.Command{
			importContainersCmd(),
			importItemsCmd(),
			placeAllCmd(),
			exportArrangementCmd(),
			exportManifestCmd(),
			wasteCmd(),
			simulateCmd(),
			rearrangeCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openStore() (*store.PGStore, *zap.Logger, error) {
	zlog, err := logging.New("info")
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(zlog)
	if err != nil {
		return nil, nil, err
	}
	return st, zlog, nil
}

func importContainersCmd() *cli.Command {
	return &cli.Command{
		Name:  "import-containers",
		Usage: "Import containers from a CSV file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			f, err := os.Open(c.String("file"))
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := csvio.ParseContainers(f)
			if err != nil {
				return err
			}
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.CreateContainers(context.Background(), result.Containers); err != nil {
				return err
			}
			fmt.Printf("imported %d containers (%d skipped)\n", len(result.Containers), len(result.Skipped))
			for _, s := range result.Skipped {
				fmt.Printf("  row %d: %s\n", s.Row, s.Reason)
			}
			return nil
		},
	}
}

func importItemsCmd() *cli.Command {
	return &cli.Command{
		Name:  "import-items",
		Usage: "Import items from a CSV file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			f, err := os.Open(c.String("file"))
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := csvio.ParseItems(f)
			if err != nil {
				return err
			}
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.CreateItems(context.Background(), result.Items); err != nil {
				return err
			}
			fmt.Printf("imported %d items (%d skipped)\n", len(result.Items), len(result.Skipped))
			for _, s := range result.Skipped {
				fmt.Printf("  row %d: %s\n", s.Row, s.Reason)
			}
			return nil
		},
	}
}

func placeAllCmd() *cli.Command {
	return &cli.Command{
		Name:  "place-all",
		Usage: "Place every currently-unplaced item",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "capacity-factor-override", Usage: "override the capacity governor factor, as a percent (0 = use the default per-regime heuristic)"},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			st, zlog, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			items, err := st.ListItems(ctx, store.ItemFilter{Unplaced: true})
			if err != nil {
				return err
			}
			containers, err := st.ListContainers(ctx)
			if err != nil {
				return err
			}
			res, err := placement.PlaceAll(ctx, st, zlog, items, containers, c.Int("capacity-factor-override"))
			if err != nil {
				return err
			}
			fmt.Printf("placed %d items, %d unplaced\n", len(res.Placed), len(res.Unplaced))
			for _, u := range res.Unplaced {
				fmt.Printf("  %s: %s\n", u.ItemID, u.Reason)
			}
			return nil
		},
	}
}

func exportArrangementCmd() *cli.Command {
	return &cli.Command{
		Name:  "export-arrangement",
		Usage: "Write the arrangement export CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			items, err := st.ListItems(context.Background(), store.ItemFilter{})
			if err != nil {
				return err
			}
			out, err := os.Create(c.String("out"))
			if err != nil {
				return err
			}
			defer out.Close()
			return csvio.WriteArrangement(out, items)
		},
	}
}

func exportManifestCmd() *cli.Command {
	return &cli.Command{
		Name:  "export-manifest",
		Usage: "Write the undocking manifest CSV for a given max weight",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
			&cli.Float64Flag{Name: "max-weight", Aliases: []string{"m"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			plan, err := undock.PlanUndock(ctx, st, c.Float64("max-weight"))
			if err != nil {
				return err
			}
			names := make(map[string]string, len(plan.Selected))
			for _, sel := range plan.Selected {
				it, err := st.GetItem(ctx, sel.ItemID)
				if err == nil {
					names[sel.ItemID] = it.Name
				}
			}
			out, err := os.Create(c.String("out"))
			if err != nil {
				return err
			}
			defer out.Close()
			return csvio.WriteUndockingManifest(out, plan, names)
		},
	}
}

func wasteCmd() *cli.Command {
	return &cli.Command{
		Name:  "waste",
		Usage: "Summarize waste mass by zone",
		Action: func(c *cli.Context) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			summary, err := waste.Summarize(context.Background(), st)
			if err != nil {
				return err
			}
			for _, s := range summary {
				zone := s.Zone
				if zone == "" {
					zone = "(unassigned)"
				}
				fmt.Printf("%-12s items=%-4d mass=%.2fkg\n", zone, s.ItemCount, s.TotalMass)
			}
			return nil
		},
	}
}

func simulateCmd() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Advance the simulated clock by N days",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Value: 1},
		},
		Action: func(c *cli.Context) error {
			st, zlog, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			res, err := simulate.Simulate(context.Background(), st, zlog, c.Int("days"), nil)
			if err != nil {
				return err
			}
			fmt.Printf("simulated date: %s\n", res.NewSimulatedDate)
			fmt.Printf("newly waste: %v\n", res.ItemsNewlyWaste)
			return nil
		},
	}
}

func rearrangeCmd() *cli.Command {
	return &cli.Command{
		Name:  "rearrange",
		Usage: "Plan (and optionally apply) a rearrangement pass",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "space-target", Value: 0.75},
			&cli.IntFlag{Name: "max-moves", Value: 20},
			&cli.BoolFlag{Name: "apply"},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			st, zlog, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			opts := rearrange.Options{SpaceTarget: c.Float64("space-target"), MaxMovements: c.Int("max-moves")}
			plan, err := rearrange.PlanRearrangement(ctx, st, zlog, opts)
			if err != nil {
				return err
			}
			fmt.Printf("planned %d moves at threshold %d\n", len(plan.Moves), plan.FinalThreshold)
			if !c.Bool("apply") {
				return nil
			}
			applied, failed, err := rearrange.Apply(ctx, st, zlog, plan)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d moves, %d failed\n", len(applied), len(failed))
			return nil
		},
	}
}
