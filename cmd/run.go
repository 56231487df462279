package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cleanup/internal/fetcher"
	"github.com/sells-group/crm-cleanup/internal/model"
)

var (
	runInputs      []string
	runPhoneInputs []string
	runSold        string
	runOutput      string
	runChangedOnly bool
	runSliceSize   int
	runAI          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clean up one or more contact exports",
	Long:  "Loads CRM and phone exports, merges duplicates, classifies contacts, and writes the audited result as CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runSliceSize > 0 {
			cfg.Engine.SliceSize = runSliceSize
		}
		if runAI {
			cfg.AI.Enabled = true
		}

		env, err := initCleanup(ctx, cfg, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		b, err := loadRunInputs(ctx, runInputs, runPhoneInputs, soldPath())
		if err != nil {
			return err
		}

		opts := cleanupOptions{
			ChangedOnly: runChangedOnly || cfg.Export.ChangedOnly,
			AI:          cfg.AI.Enabled,
			Output:      runOutput,
		}
		out, runErr := env.process(ctx, b, opts)
		if out == nil {
			return runErr
		}

		if err := writeOutput(runOutput, out); err != nil {
			return err
		}

		s := out.Result.Stats
		zap.L().Info("cleanup complete",
			zap.String("run_id", out.RunID),
			zap.String("output", runOutput),
			zap.Int("records", s.TotalRecords),
			zap.Int("exported", len(out.Exported)),
			zap.Int("merged_records", s.MergedRecords),
			zap.Int("duplicates_tagged", s.DuplicatesTagged),
			zap.Int("agents", s.Agents),
			zap.Int("vendors", s.Vendors),
			zap.Int("past_clients", s.PastClients),
			zap.Int("changed_records", s.ChangedRecords),
			zap.Bool("cancelled", out.Result.Cancelled),
		)
		return runErr
	},
}

func soldPath() string {
	if runSold != "" {
		return runSold
	}
	return cfg.Classifier.SoldPath
}

// loadRunInputs reads the primary and phone exports plus the optional sold
// list.
func loadRunInputs(ctx context.Context, primary, phone []string, sold string) (cleanupBatch, error) {
	inputs := make([]fetcher.Input, 0, len(primary)+len(phone))
	for _, p := range primary {
		inputs = append(inputs, fetcher.Input{Path: p, Source: model.SourcePrimary})
	}
	for _, p := range phone {
		inputs = append(inputs, fetcher.Input{Path: p, Source: model.SourcePhoneExport})
	}

	records, meta, err := fetcher.LoadAll(ctx, inputs)
	if err != nil {
		return cleanupBatch{}, err
	}

	b := cleanupBatch{Records: records, Inputs: meta}
	if sold != "" {
		b.Sold, err = fetcher.ReadAddressList(ctx, sold)
		if err != nil {
			return cleanupBatch{}, eris.Wrap(err, "read sold properties")
		}
	}
	return b, nil
}

// writeOutput writes the exported records to path, or stdout when path is
// "-" or empty.
func writeOutput(path string, out *cleanupOutput) error {
	if path == "" || path == "-" {
		return writeCSV(os.Stdout, out)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create output %s", path)
	}
	return writeAndClose(f, out)
}

// writeAndClose writes the CSV to wc and closes it. A failed close fails the
// write.
func writeAndClose(wc io.WriteCloser, out *cleanupOutput) error {
	if err := writeCSV(wc, out); err != nil {
		wc.Close() //nolint:errcheck
		return err
	}
	if err := wc.Close(); err != nil {
		return eris.Wrap(err, "close output")
	}
	return nil
}

func writeCSV(w io.Writer, out *cleanupOutput) error {
	if err := fetcher.WriteCSV(w, out.Columns, out.Exported); err != nil {
		return eris.Wrap(err, "write output")
	}
	return nil
}

func init() {
	runCmd.Flags().StringSliceVar(&runInputs, "input", nil, "primary CRM export (.csv or .xlsx), repeatable (required)")
	runCmd.Flags().StringSliceVar(&runPhoneInputs, "phone-input", nil, "phone address book export, repeatable")
	runCmd.Flags().StringVar(&runSold, "sold", "", "sold properties list (default from config)")
	runCmd.Flags().StringVar(&runOutput, "output", "-", "output CSV path, - for stdout")
	runCmd.Flags().BoolVar(&runChangedOnly, "changed-only", false, "export only changed records and merged masters")
	runCmd.Flags().IntVar(&runSliceSize, "slice-size", 0, "records per slice for large inputs (default from config)")
	runCmd.Flags().BoolVar(&runAI, "ai", false, "ask the model about unresolved contacts")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
