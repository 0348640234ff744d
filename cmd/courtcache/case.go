package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kimhsiao/courtcache/internal/models"
)

func newCaseCmd(opts *options) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "case <case-number>",
		Short: "Show a stored case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if history {
				updates, err := a.svc.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return outputJSON(out, updates)
				}
				printHistory(out, updates)
				return nil
			}

			detail, err := a.svc.GetCase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return outputJSON(out, detail)
			}
			printCaseView(out, detail.CaseView)
			fmt.Fprintf(out, "  %-13s %s\n", "Updated:", detail.UpdatedAt)
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "show recorded field changes instead")
	return cmd
}

func printHistory(w io.Writer, updates []*models.CaseUpdate) {
	if len(updates) == 0 {
		fmt.Fprintln(w, "No changes recorded")
		return
	}
	field := color.New(color.FgCyan)
	for _, u := range updates {
		fmt.Fprintf(w, "%s  %s: %s -> %s\n",
			u.Time().UTC().Format("2006-01-02 15:04:05"),
			field.Sprint(u.FieldName),
			valueOrDash(u.OldValue),
			valueOrDash(u.NewValue))
	}
}

func valueOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
