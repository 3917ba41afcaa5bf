package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/annotation-tables/internal/config"
	"github.com/JakeFAU/annotation-tables/internal/jobs"
	"github.com/JakeFAU/annotation-tables/internal/logging"
	"github.com/JakeFAU/annotation-tables/internal/metrics"
	"github.com/JakeFAU/annotation-tables/internal/orchestrator"
)

// ccrJob has a flag but no builder; selecting it fails the run before any build.
const ccrJob = "ccr"

type makeTablesOptions struct {
	selected map[string]*bool
	dryRun   bool
}

// newMakeTablesCmd creates the 'mktables' subcommand. One boolean flag is
// generated per catalog job.
func newMakeTablesCmd() *cobra.Command {
	opts := &makeTablesOptions{selected: make(map[string]*bool, len(jobs.Catalog)+1)}

	cmd := &cobra.Command{
		Use:   "mktables",
		Short: "Create or update annotation tables",
		Long: `Builds every table whose flag is set and writes it as a .ht artifact
under --output_dir, replacing any previous artifact. Tables are built one at a
time in a fixed order and the run stops at the first failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMakeTables(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	opts.selected[ccrJob] = flags.Bool(ccrJob, false, "Create/update CCR table from source.")
	for _, d := range jobs.Catalog {
		opts.selected[d.ID] = flags.Bool(d.ID, false, d.Help)
	}
	flags.String(config.KeyOutputDir, "", "Output directory for .ht artifacts (default <data_path>/data/ht)")
	flags.String(config.KeyDefaultRefGenome, config.DefaultRefGenome, "Reference genome substituted into genome-scoped table paths")
	flags.BoolVar(&opts.dryRun, "dry_run", false, "Print the planned output paths without building anything")

	return cmd
}

// selectedJobs returns the flagged job ids, ccr first then catalog order.
func (o *makeTablesOptions) selectedJobs() []string {
	var ids []string
	if *o.selected[ccrJob] {
		ids = append(ids, ccrJob)
	}
	for _, d := range jobs.Catalog {
		if *o.selected[d.ID] {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func runMakeTables(cmd *cobra.Command, opts *makeTablesOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := logging.ForCommand(appInstance.Logger(), "mktables")
	req := orchestrator.Request{Selected: opts.selectedJobs()}

	if opts.dryRun {
		plan, err := appInstance.Orchestrator().Plan(req)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, p := range plan {
			fmt.Fprintf(w, "%s\t%s\n", p.ID, p.OutputPath)
		}
		return w.Flush()
	}

	report, runErr := appInstance.Orchestrator().Run(cmd.Context(), req)

	if path := appInstance.Config().Metrics.Textfile; path != "" && len(report.Jobs) > 0 {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Warn("failed to write metrics textfile", zap.String("path", path), zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("mktables finished",
		zap.String("run_id", report.RunID),
		zap.Int("tables", len(report.Succeeded())),
	)
	return nil
}
