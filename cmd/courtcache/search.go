package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kimhsiao/courtcache/internal/lookup"
	"github.com/kimhsiao/courtcache/internal/models"
)

func newSearchCmd(opts *options) *cobra.Command {
	var req lookup.Request
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search cases by case number or party name",
		Example: `  courtcache search --case-number "W.P.(C) 1234/2023"
  courtcache search --party-name "Union of India"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			req.UserAgent = "courtcache-cli"
			result, err := a.svc.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return outputJSON(cmd.OutOrStdout(), result)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.CaseNumber, "case-number", "c", "", "case number to look up")
	cmd.Flags().StringVarP(&req.PartyName, "party-name", "p", "", "petitioner or respondent name")
	return cmd
}

func printResult(w io.Writer, result *lookup.Result) {
	header := color.New(color.FgYellow, color.Bold)
	if len(result.Cases) == 0 {
		fmt.Fprintln(w, result.Message)
		return
	}
	header.Fprintf(w, "%d case(s) from %s\n", len(result.Cases), result.Source)
	for _, c := range result.Cases {
		printCaseView(w, c)
	}
}

func printCaseView(w io.Writer, c models.CaseView) {
	numberStyle := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgGreen)

	fmt.Fprintln(w)
	numberStyle.Fprintln(w, c.CaseNumber)
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %s %s\n", label.Sprintf("%-13s", name+":"), value)
		}
	}
	field("Petitioner", c.Petitioner)
	field("Respondent", c.Respondent)
	field("Filing date", c.FilingDate)
	field("Next hearing", c.NextHearing)
	field("Status", c.Status)
	field("Court", c.Court)
	field("Case type", c.CaseType)
	field("Judge", c.Judge)
}
