package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newProbeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [url...]",
		Short: "Check which court site URL serves a usable case search",
		Long: `Probe fetches candidate court site URLs in order and stops at the first
one answering 200, reporting its title, forms and whether it shows a
CAPTCHA. Without arguments the configured probe URLs are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Fetcher.ProbeURLs = args
			}

			report := probeFunc(cfg.Fetcher)(cmd.Context())
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return outputJSON(out, report)
			}

			ok := color.New(color.FgGreen, color.Bold)
			bad := color.New(color.FgRed)
			urlStyle := color.New(color.FgCyan, color.Underline)
			for _, r := range report.Results {
				fmt.Fprintln(out, urlStyle.Sprint(r.URL))
				if r.Error != "" {
					fmt.Fprintf(out, "  %s\n", bad.Sprint(r.Error))
					continue
				}
				fmt.Fprintf(out, "  status %d", r.StatusCode)
				if r.Title != "" {
					fmt.Fprintf(out, ", %q", r.Title)
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "  forms %d, inputs %d, case search %t\n", r.Forms, r.Inputs, r.HasCaseSearch)
				if r.HasCaptcha {
					fmt.Fprintf(out, "  %s\n", bad.Sprint("CAPTCHA present"))
				}
				if len(r.Keywords) > 0 {
					fmt.Fprintf(out, "  keywords: %s\n", strings.Join(r.Keywords, ", "))
				}
			}

			if report.WorkingURL == "" {
				fmt.Fprintln(out, bad.Sprint("No working URL found"))
				return nil
			}
			fmt.Fprintf(out, "Working URL: %s\n", ok.Sprint(report.WorkingURL))
			return nil
		},
	}
}
