package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"fhrs-archive/internal/archive"
	"fhrs-archive/internal/canonical"
	"fhrs-archive/internal/components/chrono"
	"fhrs-archive/internal/components/telemetry"
	"fhrs-archive/internal/fhrs"
	"fhrs-archive/internal/schema"
	"fhrs-archive/lib/restyutil"
	"fhrs-archive/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	fetchOut         string
	fetchAuthorities []string
	fetchSchedule    string
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "Archive root directory, overrides the config.")
	fetchCmd.Flags().StringSliceVarP(&fetchAuthorities, "authority", "a", nil, "Only archive these LocalAuthorityIdCodes.")
	fetchCmd.Flags().StringVar(&fetchSchedule, "schedule", "", "Cron spec (UTC) to keep running on, for example \"0 4 * * *\".")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--out <dir>] [--authority <code>...] [--schedule <cron>]",
	Short: "Fetches every reference dataset and establishment document into the archive.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchOut != "" {
			cfg.Output = fetchOut
		}
		if len(fetchAuthorities) > 0 {
			cfg.Authorities = fetchAuthorities
		}
		if fetchSchedule != "" {
			cfg.Schedule = fetchSchedule
		}

		opts := newArchiveOptions(cfg)
		ctx := cmd.Context()

		if cfg.Schedule == "" {
			return runArchive(ctx, opts)
		}

		telemetry.InstrumentPerfStats(ctx, tel, 30*time.Second)
		cron := chrono.NewStandardCron(tel)
		err := cron.Cron(cfg.Schedule, func() {
			err := runArchive(ctx, opts)
			if err != nil {
				tel.ReportBroken("fetch.schedule", err)
			}
		})
		if err != nil {
			cron.Stop()
			return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
		}
		tel.ReportDebug("waiting for scheduled runs", "schedule", cfg.Schedule)
		<-ctx.Done()
		cron.Stop()
		return nil
	},
}

// newArchiveOptions wires the run dependencies. Problems here are configuration errors and
// exit the process before any request is made.
func newArchiveOptions(cfg Config) archive.Options {
	validator, err := schema.NewValidator()
	if err != nil {
		serviceutil.Fatal("failed to build validation rules", err)
	}

	clientOpts := fhrs.Options{
		ApiUrl:         cfg.ApiUrl,
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.attemptTimeout(),
		ReferencePause: cfg.referencePause(),
	}
	if cfg.Verbose && cfg.HttpDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.HttpDumpDir)
		if err != nil {
			serviceutil.Fatal("failed to prepare http dump directory", err)
		}
		clientOpts.Output = output
	}

	return archive.Options{
		Fetcher:       fhrs.NewClient(clientOpts, tel),
		Validator:     validator,
		Canonicalizer: canonical.New(validator, tel, cfg.PairedEmptyTags),
		Store:         archive.DirStore{Root: cfg.Output},
		Authorities:   cfg.Authorities,
		Tel:           tel,
	}
}

func runArchive(ctx context.Context, opts archive.Options) error {
	start := time.Now()
	report, err := archive.Run(ctx, opts)
	report.Render(os.Stdout)
	tel.ReportDebug("archive run finished", "took", time.Since(start).String())
	if err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	return nil
}
