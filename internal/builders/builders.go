// Package builders turns configured raw source files into the annotation
// tables the orchestrator checkpoints, one builder per job.
package builders

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/annotation-tables/internal/jobs"
	"github.com/JakeFAU/annotation-tables/internal/table"
)

// Global annotation names stamped on built tables.
const (
	GlobalJob       = "job"
	GlobalSource    = "source"
	GlobalRefGenome = "ref_genome"
)

// schema lists the columns a raw source must provide and the key of the built table.
type schema struct {
	required []string
	key      []string
}

var schemas = map[string]schema{
	jobs.Interactome:    {required: []string{"gene_a", "gene_b"}, key: []string{"gene_a", "gene_b"}},
	jobs.TemporalRNASeq: {required: []string{"gene_id"}, key: []string{"gene_id"}},
	jobs.ClinVar:        {required: []string{"chrom", "pos", "ref", "alt", "clnsig"}, key: []string{"chrom", "pos", "ref", "alt"}},
	jobs.GeVIR:          {required: []string{"gene_id", "gevir_percentile"}, key: []string{"gene_id"}},
	jobs.SCellHeartDEG:  {required: []string{"gene", "cluster", "avg_log2fc", "p_val_adj"}, key: []string{"gene", "cluster"}},
	jobs.HCARNASeq:      {required: []string{"gene"}, key: []string{"gene"}},
	jobs.GeneEnsembl:    {required: []string{"gene_id", "gene_name", "chrom", "start", "end", "strand"}, key: []string{"gene_id"}},
	jobs.GnomADMetrics:  {required: []string{"gene", "transcript", "oe_lof_upper", "pli"}, key: []string{"gene", "transcript"}},
}

// Set holds what every builder needs: the engine session and the raw source locations.
type Set struct {
	engine  *table.Engine
	sources map[string]table.Source
	logger  *zap.Logger
}

// New creates a builder Set.
func New(engine *table.Engine, sources map[string]table.Source, logger *zap.Logger) (*Set, error) {
	if engine == nil {
		return nil, fmt.Errorf("table engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{engine: engine, sources: sources, logger: logger}, nil
}

// Builders returns one builder per catalog job, ready for jobs.Bind.
func (s *Set) Builders() map[string]jobs.Builder {
	return map[string]jobs.Builder{
		jobs.Interactome:    s.Interactome,
		jobs.TemporalRNASeq: s.keyed(jobs.TemporalRNASeq),
		jobs.ClinVar:        s.ClinVar,
		jobs.GeVIR:          s.keyed(jobs.GeVIR),
		jobs.SCellHeartDEG:  s.keyed(jobs.SCellHeartDEG),
		jobs.HCARNASeq:      s.keyed(jobs.HCARNASeq),
		jobs.GeneEnsembl:    s.GeneEnsembl,
		jobs.GnomADMetrics:  s.keyed(jobs.GnomADMetrics),
	}
}

// Interactome builds the undirected protein-interaction table. Pairs are
// stored once with gene_a <= gene_b, and self-interactions are dropped.
func (s *Set) Interactome(ctx context.Context) (table.Handle, error) {
	t, err := s.read(ctx, jobs.Interactome)
	if err != nil {
		return nil, err
	}
	t = t.Filter(func(r table.Row) bool {
		return !strings.EqualFold(r.Get("gene_a"), r.Get("gene_b"))
	}).MapRows(func(r table.Row) {
		a, b := strings.ToUpper(r.Get("gene_a")), strings.ToUpper(r.Get("gene_b"))
		if b < a {
			a, b = b, a
		}
		r.Set("gene_a", a)
		r.Set("gene_b", b)
	})
	t, err = s.finish(jobs.Interactome, t)
	if err != nil {
		return nil, err
	}
	return t.WithGlobal(GlobalRefGenome, s.engine.RefGenome()), nil
}

// ClinVar builds the variant table with contig names following the session's reference genome.
func (s *Set) ClinVar(ctx context.Context) (table.Handle, error) {
	t, err := s.read(ctx, jobs.ClinVar)
	if err != nil {
		return nil, err
	}
	ref := s.engine.RefGenome()
	t = t.MapRows(func(r table.Row) {
		r.Set("chrom", NormalizeContig(r.Get("chrom"), ref))
	})
	t, err = s.finish(jobs.ClinVar, t)
	if err != nil {
		return nil, err
	}
	return t.WithGlobal(GlobalRefGenome, ref), nil
}

// GeneEnsembl builds the gene model table. Rows whose start lies after their
// end are dropped; non-numeric coordinates fail the build.
func (s *Set) GeneEnsembl(ctx context.Context) (table.Handle, error) {
	t, err := s.read(ctx, jobs.GeneEnsembl)
	if err != nil {
		return nil, err
	}
	var bad string
	t = t.Filter(func(r table.Row) bool {
		start, end, ok := parseSpan(r.Get("start"), r.Get("end"))
		if !ok && bad == "" {
			bad = r.Get("gene_id")
		}
		return ok && start <= end
	})
	if bad != "" {
		return nil, fmt.Errorf("%s: gene %s has non-numeric coordinates", jobs.GeneEnsembl, bad)
	}
	out, err := s.finish(jobs.GeneEnsembl, t)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Set) keyed(id string) jobs.Builder {
	return func(ctx context.Context) (table.Handle, error) {
		t, err := s.read(ctx, id)
		if err != nil {
			return nil, err
		}
		out, err := s.finish(id, t)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (s *Set) read(ctx context.Context, id string) (*table.Table, error) {
	src, ok := s.sources[id]
	if !ok {
		return nil, fmt.Errorf("%s: no source configured (set sources.%s.path)", id, id)
	}
	t, err := s.engine.ReadSource(ctx, id, src)
	if err != nil {
		return nil, err
	}
	if err := t.Require(schemas[id].required...); err != nil {
		return nil, err
	}
	s.logger.Debug("source loaded", zap.String("job", id), zap.String("path", src.Path), zap.Int("rows", t.Len()))
	return t.WithGlobal(GlobalJob, id).WithGlobal(GlobalSource, src.Path), nil
}

func (s *Set) finish(id string, t *table.Table) (*table.Table, error) {
	keyed, err := t.KeyBy(schemas[id].key...)
	if err != nil {
		return nil, err
	}
	out := keyed.Distinct()
	if dropped := t.Len() - out.Len(); dropped > 0 {
		s.logger.Warn("duplicate keys dropped", zap.String("job", id), zap.Int("dropped", dropped))
	}
	return out, nil
}
