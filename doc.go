// Command vatk builds the annotation tables used for variant interpretation.
//
// Architecture overview:
//   - CLI: cmd wires a cobra root (vatk) with the mktables subcommand. One boolean flag exists per
//     table in jobs.Catalog plus --ccr, which is accepted but has no builder and fails the run.
//   - Configuration: internal/config loads YAML, VATK_* environment variables and the mktables flags
//     through Viper. An optional .env file is loaded first with godotenv.
//   - Registry: internal/jobs binds each catalog entry to its builder and resolves output paths from
//     templates containing {output_dir} and, for genome-scoped tables, {ref_genome}.
//   - Orchestration: internal/orchestrator runs the selected jobs one at a time in registry order,
//     checkpoints each table with overwrite enabled, and stops at the first failure.
//   - Persistence: internal/table writes each artifact as a directory of rows.tsv.gz, metadata.json and
//     a trailing _SUCCESS marker to the local filesystem or a gs:// bucket.
//   - Reporting: every run produces a Report that optional sinks record. Postgres keeps one history row
//     per job, Pub/Sub receives a run summary, and Prometheus counters can be written to a textfile for
//     the node exporter.
//
// Quick checklist:
//   - Configure raw inputs under sources.<table>.path (or VATK_SOURCES_<TABLE>_PATH).
//   - Build: vatk mktables --clinvar --gene_ensembl --output_dir gs://bucket/ht --default_ref_genome GRCh38
//   - Preview paths without building: add --dry_run.
package main
