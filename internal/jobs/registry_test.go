package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/annotation-tables/internal/table"
)

func nopBuilder(context.Context) (table.Handle, error) { return nil, nil }

func allBuilders() map[string]Builder {
	out := make(map[string]Builder, len(Catalog))
	for _, d := range Catalog {
		out[d.ID] = nopBuilder
	}
	return out
}

func TestBindKeepsCatalogOrder(t *testing.T) {
	t.Parallel()

	reg, err := Bind(allBuilders())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"interactome",
		"temporal_rnaseq",
		"clinvar",
		"gevir",
		"scell_heart_deg",
		"hca_rnaseq",
		"gene_ensembl",
		"gnomad_metrics",
	}, reg.IDs())
}

func TestBindRejectsMissingAndExtraBuilders(t *testing.T) {
	t.Parallel()

	builders := allBuilders()
	delete(builders, GeVIR)
	_, err := Bind(builders)
	assert.ErrorContains(t, err, `job "gevir": no builder bound`)

	builders = allBuilders()
	builders["ccr"] = nopBuilder
	_, err = Bind(builders)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestNewRegistryValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		specs []Spec
		want  string
	}{
		{"empty id", []Spec{{Builder: nopBuilder, PathTemplate: "{output_dir}/x.ht"}}, "job id is required"},
		{"duplicate id", []Spec{
			{ID: "a", Builder: nopBuilder, PathTemplate: "{output_dir}/a.ht"},
			{ID: "a", Builder: nopBuilder, PathTemplate: "{output_dir}/b.ht"},
		}, "duplicate job id"},
		{"no builder", []Spec{{ID: "a", PathTemplate: "{output_dir}/a.ht"}}, "builder is required"},
		{"no output dir", []Spec{{ID: "a", Builder: nopBuilder, PathTemplate: "a.ht"}}, "must contain {output_dir}"},
		{"scoped without genome", []Spec{{ID: "a", Builder: nopBuilder, PathTemplate: "{output_dir}/a.ht", GenomeScoped: true}}, "genome-scoped"},
		{"genome without scope", []Spec{{ID: "a", Builder: nopBuilder, PathTemplate: "{output_dir}/a.{ref_genome}.ht"}}, "genome-scoped"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.specs...)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	reg, err := Bind(allBuilders())
	require.NoError(t, err)

	spec, err := reg.Resolve(ClinVar)
	require.NoError(t, err)
	assert.True(t, spec.GenomeScoped)

	_, err = reg.Resolve("ccr")
	require.Error(t, err)
	var unknown *UnknownJobError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "ccr", unknown.ID)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestOutputPathForEveryJob(t *testing.T) {
	t.Parallel()

	reg, err := Bind(allBuilders())
	require.NoError(t, err)

	want := map[string]string{
		Interactome:    "/tmp/out/interactome.GRCh38.ht",
		TemporalRNASeq: "/tmp/out/rnaseq.human.ht",
		ClinVar:        "/tmp/out/clinvar.GRCh38.ht",
		GeVIR:          "/tmp/out/gevir.metrics.ht",
		SCellHeartDEG:  "/tmp/out/scell.heart.degs.ht",
		HCARNASeq:      "/tmp/out/hca.heart.ht",
		GeneEnsembl:    "/tmp/out/gene.ann.ensembl.ht",
		GnomADMetrics:  "/tmp/out/gnomad.metrics.ht",
	}
	for _, id := range reg.IDs() {
		spec, err := reg.Resolve(id)
		require.NoError(t, err)
		assert.Equal(t, want[id], OutputPath(spec, "/tmp/out", "GRCh38"), id)
	}
}

func TestOutputPathGenomeVariance(t *testing.T) {
	t.Parallel()

	reg, err := Bind(allBuilders())
	require.NoError(t, err)

	for _, id := range reg.IDs() {
		spec, err := reg.Resolve(id)
		require.NoError(t, err)
		p38 := OutputPath(spec, "/data/ht", "GRCh38")
		p37 := OutputPath(spec, "/data/ht", "GRCh37")
		if spec.GenomeScoped {
			assert.NotEqual(t, p38, p37, id)
			assert.Contains(t, p37, ".GRCh37.", id)
		} else {
			assert.Equal(t, p38, p37, id)
		}
	}
}

func TestOutputPathNormalisesOutputDir(t *testing.T) {
	t.Parallel()

	spec := Spec{ID: GeVIR, PathTemplate: "{output_dir}/gevir.metrics.ht"}
	assert.Equal(t, "/tmp/out/gevir.metrics.ht", OutputPath(spec, "/tmp/out/", "GRCh38"))
	assert.Equal(t, "gs://annotations/ht/gevir.metrics.ht", OutputPath(spec, "gs://annotations/ht", "GRCh38"))
	assert.Equal(t, "data/ht/gevir.metrics.ht", OutputPath(spec, "data/ht", ""))
}
