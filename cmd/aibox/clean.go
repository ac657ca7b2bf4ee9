package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/aibox/internal/client"
	"github.com/JonMunkholm/aibox/internal/core"
)

// cleanFlags holds raw option values; they are applied through the option
// store setters, so invalid values keep the defaults.
type cleanFlags struct {
	mode         string
	format       string
	fuzzy        string
	dropDupes    string
	dropNegative string
	flagDueIssue string
	daysExpiring string
}

func newCleanCommand(a *app) *cobra.Command {
	f := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean FILE",
		Short: "Clean one CSV or XLSX file and print the result links",
		Example: `  aibox clean invoices.csv --fuzzy 85 --drop-dupes=false
  aibox clean stock.xlsx --mode stock --days-expiring 14 --fmt xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfgErr != nil {
				return a.misconfigured()
			}
			return a.clean(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.mode, "mode", string(core.ModeInvoices), "processing mode: invoices or stock")
	flags.StringVar(&f.format, "fmt", "", "export format: csv or xlsx (default csv)")
	flags.StringVar(&f.fuzzy, "fuzzy", "", "invoices: fuzzy match threshold 0-100 (default 90)")
	flags.StringVar(&f.dropDupes, "drop-dupes", "", "invoices: drop duplicate rows (default true)")
	flags.StringVar(&f.dropNegative, "drop-negative-qty", "", "drop rows with negative quantity (default false)")
	flags.StringVar(&f.flagDueIssue, "flag-due-issue", "", "invoices: flag due date before issue date (default true)")
	flags.StringVar(&f.daysExpiring, "days-expiring", "", "stock: days until an item counts as expiring (default 30)")

	return cmd
}

func (a *app) clean(cmd *cobra.Command, path string, f *cleanFlags) error {
	cfg := a.cfg

	mode, err := core.ParseMode(f.mode)
	if err != nil {
		return &exitError{code: exitFailure, msg: core.FormatUserError(err)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &exitError{code: exitFailure, msg: fmt.Sprintf("read %s: %v", path, err)}
	}

	c, err := client.New(cfg.Service.BaseURL,
		client.WithTimeout(cfg.Service.Timeout),
		client.WithLogger(slog.Default()),
	)
	if err != nil {
		return &exitError{code: exitMisconfigured, msg: core.FormatUserError(err)}
	}

	sess := core.NewSession("cli-"+uuid.NewString(), c,
		core.WithLegacyEndpoint(cfg.Service.LegacyEndpoint),
		core.WithMaxFileSize(cfg.Upload.MaxFileSize),
	)

	if _, err := sess.SelectFile(filepath.Base(path), data); err != nil {
		return &exitError{code: exitFailure, msg: core.FormatUserError(err)}
	}

	sess.SetMode(mode)
	var invalid []string
	sess.Update(func(o *core.OptionStore) {
		invalid = f.apply(cmd, o)
	})
	for _, name := range invalid {
		slog.Warn("ignoring invalid flag value, keeping default", "flag", name)
	}

	if err := sess.Submit(cmd.Context()); err != nil {
		return &exitError{code: exitFailure, msg: core.FormatUserError(err)}
	}

	printView(cmd.OutOrStdout(), core.Present(sess.Snapshot(), cfg.Service.BaseURL))
	return nil
}

// apply feeds the flags the user set through the option setters and returns
// the names of flags whose value was not accepted.
func (f *cleanFlags) apply(cmd *cobra.Command, o *core.OptionStore) []string {
	changed := cmd.Flags().Changed
	var invalid []string

	if changed("fmt") && string(o.SetExportFormat(f.format)) != f.format {
		invalid = append(invalid, "fmt")
	}
	if changed("fuzzy") {
		before := o.Options().FuzzyMatchThreshold
		if got := o.SetFuzzyMatchThreshold(f.fuzzy); got == before && f.fuzzy != fmt.Sprint(before) {
			invalid = append(invalid, "fuzzy")
		}
	}
	if changed("days-expiring") {
		before := o.Options().DaysExpiring
		if got := o.SetDaysExpiring(f.daysExpiring); got == before && f.daysExpiring != fmt.Sprint(before) {
			invalid = append(invalid, "days-expiring")
		}
	}

	bools := []struct {
		name string
		raw  string
		set  func(*core.OptionStore, bool)
	}{
		{"drop-dupes", f.dropDupes, (*core.OptionStore).SetDropDuplicates},
		{"drop-negative-qty", f.dropNegative, (*core.OptionStore).SetDropNegativeQuantity},
		{"flag-due-issue", f.flagDueIssue, (*core.OptionStore).SetFlagDueBeforeIssue},
	}
	for _, b := range bools {
		if !changed(b.name) {
			continue
		}
		if v, ok := core.ParseFlag(b.raw); ok {
			b.set(o, v)
		} else {
			invalid = append(invalid, b.name)
		}
	}
	return invalid
}

func printView(w io.Writer, v core.View) {
	fmt.Fprintf(w, "Mode:     %s\n", v.Mode.Label())
	if v.File != nil {
		fmt.Fprintf(w, "File:     %s (%d rows)\n", v.FileName, v.File.Rows)
	}
	if v.DownloadURL != "" {
		fmt.Fprintf(w, "Download: %s\n", v.DownloadURL)
	}
	if v.ShareURL != "" {
		fmt.Fprintf(w, "Share:    %s\n", v.ShareURL)
	}
	fmt.Fprintf(w, "Sample:   %s\n", v.SampleURL)
	if v.SummaryText != "" {
		fmt.Fprintf(w, "Summary:\n%s\n", v.SummaryText)
	}
}
