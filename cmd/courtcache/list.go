package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/courtcache/internal/lookup"
)

func newListCmd(opts *options) *cobra.Command {
	var listOpts lookup.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored cases",
		Long: `List stored cases, most recent first. Filter either by status or by a
filing date range; dates are YYYY-MM-DD or DD-MM-YYYY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			views, err := a.svc.List(cmd.Context(), listOpts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return outputJSON(out, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(out, "No cases stored")
				return nil
			}
			for _, v := range views {
				printCaseView(out, v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listOpts.Status, "status", "", "only cases with this status")
	cmd.Flags().StringVar(&listOpts.From, "from", "", "earliest filing date")
	cmd.Flags().StringVar(&listOpts.To, "to", "", "latest filing date")
	cmd.Flags().IntVar(&listOpts.Limit, "limit", 0, "maximum number of cases (default 10, max 100)")
	return cmd
}
