package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"autoedit/internal/config"
	"autoedit/internal/storage"
)

// resultsCmd lists persisted results from the output directory.
func resultsCmd(cfg *config.Config) *cobra.Command {
	var showSteps bool
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List saved edit results",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.New(cfg.OutputDir, zerolog.Nop())
			if err != nil {
				return err
			}
			all := store.All()
			if len(all) == 0 {
				fmt.Printf("no results in %s\n", store.Dir())
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tBRIEF\tAPPLIED\tDURATION")
			for _, rec := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1fs\n",
					rec.ID,
					rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					truncate(rec.UserBrief, 40),
					truncate(rec.AppliedPrompt, 60),
					rec.DurationSeconds,
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if showSteps {
				for _, rec := range all {
					if len(rec.Steps) == 0 {
						continue
					}
					fmt.Printf("\n%s:\n", rec.ID)
					for _, s := range rec.Steps {
						fmt.Printf("  [%s] %s: %s\n", s.Status, s.Name, s.Detail)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory holding persisted results")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "Show per-step details for each result")
	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
