package jobs

import "fmt"

// Definition is the static half of a Spec: everything except the builder.
type Definition struct {
	ID           string
	PathTemplate string
	GenomeScoped bool
	Help         string
}

// Job ids, in registration order.
const (
	Interactome    = "interactome"
	TemporalRNASeq = "temporal_rnaseq"
	ClinVar        = "clinvar"
	GeVIR          = "gevir"
	SCellHeartDEG  = "scell_heart_deg"
	HCARNASeq      = "hca_rnaseq"
	GeneEnsembl    = "gene_ensembl"
	GnomADMetrics  = "gnomad_metrics"
)

// Catalog lists every buildable table. Adding a table is a new entry here
// plus its builder; the orchestrator needs no change.
var Catalog = []Definition{
	{
		ID:           Interactome,
		PathTemplate: "{output_dir}/interactome.{ref_genome}.ht",
		GenomeScoped: true,
		Help:         "Create/update protein-protein interaction table from source.",
	},
	{
		ID:           TemporalRNASeq,
		PathTemplate: "{output_dir}/rnaseq.human.ht",
		Help:         "Create/update RNAseq table from source.",
	},
	{
		ID:           ClinVar,
		PathTemplate: "{output_dir}/clinvar.{ref_genome}.ht",
		GenomeScoped: true,
		Help:         "Create/update Clinvar table from source.",
	},
	{
		ID:           GeVIR,
		PathTemplate: "{output_dir}/gevir.metrics.ht",
		Help:         "Create/update GeVIR score table from raw source.",
	},
	{
		ID:           SCellHeartDEG,
		PathTemplate: "{output_dir}/scell.heart.degs.ht",
		Help:         "Create/update table with DEGs from cardiac-specific cell clusters.",
	},
	{
		ID:           HCARNASeq,
		PathTemplate: "{output_dir}/hca.heart.ht",
		Help:         "Create/update table with gene/cell expression levels from HCA dataset (UCSC).",
	},
	{
		ID:           GeneEnsembl,
		PathTemplate: "{output_dir}/gene.ann.ensembl.ht",
		Help:         "Create/update gene annotation table from Ensembl.",
	},
	{
		ID:           GnomADMetrics,
		PathTemplate: "{output_dir}/gnomad.metrics.ht",
		Help:         "Create/update transcript-specific constraint metrics from gnomad database.",
	},
}

// Bind pairs every catalog entry with its builder and returns the registry.
func Bind(builders map[string]Builder) (*Registry, error) {
	known := make(map[string]struct{}, len(Catalog))
	specs := make([]Spec, 0, len(Catalog))
	for _, d := range Catalog {
		known[d.ID] = struct{}{}
		b, ok := builders[d.ID]
		if !ok {
			return nil, fmt.Errorf("job %q: no builder bound", d.ID)
		}
		specs = append(specs, Spec{
			ID:           d.ID,
			Builder:      b,
			PathTemplate: d.PathTemplate,
			GenomeScoped: d.GenomeScoped,
			Help:         d.Help,
		})
	}
	for id := range builders {
		if _, ok := known[id]; !ok {
			return nil, &UnknownJobError{ID: id}
		}
	}
	return NewRegistry(specs...)
}
