package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ancientfall/logistics-enrich/internal/fetcher"
	"github.com/ancientfall/logistics-enrich/internal/reference"
)

var referencePath string

var referenceCmd = &cobra.Command{
	Use:   "reference",
	Short: "Work with reference tables",
	Long:  "Commands for checking the facility, vessel, rate, tier and fluid taxonomy tables.",
}

var referenceValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate reference tables and print a summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if referencePath != "" {
			cfg.Reference.Path = referencePath
		}
		if err := cfg.Validate("reference"); err != nil {
			return err
		}

		tables, idx, err := loadReference(cmd.Context(), cfg.Reference.Path)
		if err != nil {
			return err
		}

		zap.L().Info("reference tables valid",
			zap.String("path", cfg.Reference.Path),
			zap.Int("facilities", len(idx.Facilities())),
		)
		formatReferenceSummary(os.Stdout, tables)
		return nil
	},
}

func init() {
	referenceValidateCmd.Flags().StringVar(&referencePath, "reference", "", "reference tables YAML path or http(s) URL (default from config)")
	referenceCmd.AddCommand(referenceValidateCmd)
	rootCmd.AddCommand(referenceCmd)
}

// loadReference reads the tables from a local path or an http(s) URL and
// compiles them. Every configuration error surfaces here.
func loadReference(ctx context.Context, location string) (reference.Tables, *reference.Index, error) {
	var (
		tables reference.Tables
		err    error
	)
	if isURL(location) {
		var data []byte
		data, err = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}).Fetch(ctx, location)
		if err != nil {
			return reference.Tables{}, nil, eris.Wrap(err, "load reference")
		}
		tables, err = reference.Parse(data)
	} else {
		tables, err = reference.LoadFile(location)
	}
	if err != nil {
		return reference.Tables{}, nil, eris.Wrap(err, "load reference")
	}

	idx, err := reference.Compile(tables)
	if err != nil {
		return reference.Tables{}, nil, eris.Wrap(err, "load reference")
	}
	return tables, idx, nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func formatReferenceSummary(out io.Writer, t reference.Tables) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Facilities:\t%d\n", len(t.Facilities))
	_, _ = fmt.Fprintf(w, "Vessels:\t%d\n", len(t.Vessels))
	_, _ = fmt.Fprintf(w, "Rate entries:\t%d\n", len(t.Rates))
	_, _ = fmt.Fprintf(w, "Default tiers:\t%d\n", len(t.DefaultTiers))
	for _, tier := range t.DefaultTiers {
		_, _ = fmt.Fprintf(w, "  %s\t%.0f ft+\t$%.2f/day\n", tier.Label, tier.MinLengthFt, tier.DailyRate)
	}
	_, _ = fmt.Fprintf(w, "Fluid categories:\t%d\n", len(t.FluidTaxonomy))
	_ = w.Flush()
}
