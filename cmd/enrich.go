package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ancientfall/logistics-enrich/internal/enrich"
	"github.com/ancientfall/logistics-enrich/internal/ingest"
	"github.com/ancientfall/logistics-enrich/internal/metrics"
	"github.com/ancientfall/logistics-enrich/internal/model"
	"github.com/ancientfall/logistics-enrich/internal/store"
)

var (
	enrichEvents    string
	enrichManifests string
	enrichCosts     string
	enrichBulk      string
	enrichSheet     string
	enrichReference string
	enrichOutput    string
	enrichNoStore   bool
	enrichWorkers   int
)

// maxLoggedIssues bounds how many ingest issues are logged one by one.
const maxLoggedIssues = 20

// enrichOutputDoc is the JSON document written by the enrich command.
type enrichOutputDoc struct {
	RunID  string         `json:"run_id,omitempty"`
	Issues []ingest.Issue `json:"issues,omitempty"`
	*enrich.Result
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich logistics exports and report on data quality",
	Long: `Reads one or more exports (CSV, TSV or XLSX), enriches every record and
writes the enriched records, consolidated bulk operations and quality report
as JSON.

Examples:
  # Events and bulk actions, output to a file, no run history
  logistics-enrich enrich --events events.xlsx --bulk bulk.csv --output enriched.json --no-store

  # All four exports against remote reference tables
  logistics-enrich enrich --events ev.xlsx --manifests mf.xlsx --costs ledger.xlsx --bulk bulk.xlsx \
    --reference https://config.example.com/reference.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if enrichReference != "" {
			cfg.Reference.Path = enrichReference
		}
		if cmd.Flags().Changed("workers") {
			cfg.Enrich.Workers = enrichWorkers
		}
		if enrichNoStore {
			cfg.Store.Driver = "none"
		}
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		files := ingest.Files{
			Events:    enrichEvents,
			Manifests: enrichManifests,
			Costs:     enrichCosts,
			Bulk:      enrichBulk,
			Sheet:     enrichSheet,
		}
		if files.Events == "" && files.Manifests == "" && files.Costs == "" && files.Bulk == "" {
			return eris.New("enrich: at least one of --events, --manifests, --costs or --bulk is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		if enrichOutput == "" || enrichOutput == "-" {
			return runEnrich(ctx, st, files, os.Stdout)
		}
		return writeOutputFile(enrichOutput, func(w io.Writer) error {
			return runEnrich(ctx, st, files, w)
		})
	},
}

func init() {
	f := enrichCmd.Flags()
	f.StringVar(&enrichEvents, "events", "", "voyage events export")
	f.StringVar(&enrichManifests, "manifests", "", "cargo manifests export")
	f.StringVar(&enrichCosts, "costs", "", "cost allocation ledger export")
	f.StringVar(&enrichBulk, "bulk", "", "bulk fluid actions export")
	f.StringVar(&enrichSheet, "sheet", "", "worksheet to read from xlsx exports (default first sheet)")
	f.StringVar(&enrichReference, "reference", "", "reference tables YAML path or http(s) URL (default from config)")
	f.StringVar(&enrichOutput, "output", "", "write JSON result to file instead of stdout")
	f.BoolVar(&enrichNoStore, "no-store", false, "do not record the run in the run store")
	f.IntVar(&enrichWorkers, "workers", 0, "concurrent enrichment workers (0 = one per CPU)")
	rootCmd.AddCommand(enrichCmd)
}

// runEnrich executes one enrichment run. st may be nil.
func runEnrich(ctx context.Context, st store.Store, files ingest.Files, out io.Writer) error {
	log := zap.L().With(zap.String("component", "cmd.enrich"))
	start := time.Now()

	_, idx, err := loadReference(ctx, cfg.Reference.Path)
	if err != nil {
		return err
	}

	batch, issues, err := ingest.Load(ctx, files)
	if err != nil {
		return eris.Wrap(err, "enrich: load exports")
	}
	logIssues(log, issues)

	var run *model.Run
	if st != nil {
		run, err = st.CreateRun(ctx, model.RunSource{
			Events:    files.Events,
			Manifests: files.Manifests,
			Costs:     files.Costs,
			Bulk:      files.Bulk,
			Reference: cfg.Reference.Path,
		})
		if err != nil {
			return eris.Wrap(err, "enrich: create run")
		}
	}

	rec := metrics.NewRecorder()
	res, err := enrich.NewEngine(idx, cfg.Enrich.Options()).Run(ctx, batch)
	if err == nil && run != nil {
		err = persist(ctx, st, run.ID, res)
	}
	if err != nil {
		rec.ObserveFailure(time.Since(start))
		writeMetrics(log, rec)
		if run != nil {
			if ferr := st.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
				log.Error("enrich: mark run failed", zap.String("run_id", run.ID), zap.Error(ferr))
			}
		}
		return eris.Wrap(err, "enrich")
	}

	rec.Observe(res.Report, time.Since(start))
	writeMetrics(log, rec)

	doc := enrichOutputDoc{Issues: issues, Result: res}
	if run != nil {
		doc.RunID = run.ID
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "enrich: write output")
	}

	log.Info("enrichment complete",
		zap.String("run_id", doc.RunID),
		zap.Int("records", len(res.Records)),
		zap.Int("operations", len(res.Operations)),
		zap.Int("ingest_issues", len(issues)),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("summary", res.Report.Summary()),
	)
	return nil
}

// writeOutputFile runs write against a temporary file next to path and
// renames it over path only when write succeeds. A failed run leaves any
// previous output untouched.
func writeOutputFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "enrich: create output")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "enrich: close output")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "enrich: replace output")
	}
	return nil
}

func persist(ctx context.Context, st store.Store, runID string, res *enrich.Result) error {
	if _, err := st.SaveRecords(ctx, runID, res.Records); err != nil {
		return err
	}
	if _, err := st.SaveOperations(ctx, runID, res.Operations); err != nil {
		return err
	}
	return st.CompleteRun(ctx, runID, res.Report)
}

func logIssues(log *zap.Logger, issues []ingest.Issue) {
	for i, is := range issues {
		if i == maxLoggedIssues {
			log.Warn("ingest: further issues omitted", zap.Int("omitted", len(issues)-maxLoggedIssues))
			return
		}
		log.Warn("ingest: unparsed cell",
			zap.String("source", string(is.Source)),
			zap.Int("row", is.Row),
			zap.String("column", is.Column),
			zap.String("value", is.Value),
			zap.String("problem", is.Message),
		)
	}
}

func writeMetrics(log *zap.Logger, rec *metrics.Recorder) {
	if cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := rec.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		log.Warn("enrich: metrics not written", zap.Error(err))
	}
}
