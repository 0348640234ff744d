package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show case and search counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.svc.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return outputJSON(out, stats)
			}

			header := color.New(color.FgYellow, color.Bold)
			count := color.New(color.FgCyan)
			header.Fprintln(out, "Statistics:")
			fmt.Fprintf(out, "  Cases stored:   %s\n", count.Sprint(stats.TotalCases))
			fmt.Fprintf(out, "  Searches run:   %s\n", count.Sprint(stats.TotalSearches))

			types := make([]string, 0, len(stats.SearchesByType))
			for t := range stats.SearchesByType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(out, "    %-12s  %s\n", t, count.Sprint(stats.SearchesByType[t]))
			}
			return nil
		},
	}
}
