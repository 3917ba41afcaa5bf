// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/annotation-tables/internal/app"
	"github.com/JakeFAU/annotation-tables/internal/config"
	"github.com/JakeFAU/annotation-tables/internal/jobs"
	"github.com/JakeFAU/annotation-tables/internal/notify"
	"github.com/JakeFAU/annotation-tables/internal/orchestrator"
	"github.com/JakeFAU/annotation-tables/internal/publisher/memory"
	memstore "github.com/JakeFAU/annotation-tables/internal/storage/memory"
	"github.com/JakeFAU/annotation-tables/internal/table"
)

// MockHistory mocks the orchestrator.ReportSink interface.
type MockHistory struct {
	mock.Mock
}

// Consume satisfies orchestrator.ReportSink for the mock.
func (m *MockHistory) Consume(ctx context.Context, report orchestrator.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "interactome.tsv")
	require.NoError(t, os.WriteFile(src, []byte("gene_a\tgene_b\nTTN\tMYH7\n"), 0o600))
	return config.Config{
		DataPath:         dir,
		OutputDir:        "/data/ht",
		DefaultRefGenome: config.DefaultRefGenome,
		Sources:          map[string]table.Source{jobs.Interactome: {Path: src}},
	}
}

func TestNewWiresSinks(t *testing.T) {
	t.Parallel()

	store := memstore.NewBlobStore()
	pub := memory.New()
	history := new(MockHistory)
	history.On("Consume", mock.Anything, mock.MatchedBy(func(r orchestrator.Report) bool {
		return len(r.Jobs) == 1 && r.Jobs[0].ID == jobs.Interactome
	})).Return(nil).Once()

	a, err := app.New(context.Background(), testConfig(t),
		app.WithLogger(zap.NewNop()),
		app.WithStore(store),
		app.WithHistory(history),
		app.WithPublisher(pub),
	)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "/data/ht", a.OutputDir())
	assert.Len(t, a.Registry().IDs(), len(jobs.Catalog))

	report, err := a.Orchestrator().Run(context.Background(), orchestrator.Request{
		Selected: []string{jobs.Interactome},
	})
	require.NoError(t, err)
	assert.Equal(t, "/data/ht/interactome.GRCh38.ht", report.Jobs[0].OutputPath)

	ok, err := store.Exists(context.Background(), "/data/ht/interactome.GRCh38.ht")
	require.NoError(t, err)
	assert.True(t, ok)

	history.AssertExpectations(t)
	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	msg, isMsg := msgs[0].Payload.(notify.Message)
	require.True(t, isMsg)
	assert.Equal(t, report.RunID, msg.RunID)
	assert.NotEmpty(t, msg.RunID)
}

func TestNewWithoutSinks(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.OutputDir = filepath.Join(t.TempDir(), "ht")

	a, err := app.New(context.Background(), cfg, app.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Orchestrator().Run(context.Background(), orchestrator.Request{
		Selected: []string{jobs.Interactome},
	})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "interactome.GRCh38.ht", table.SuccessObject))
	require.NoError(t, statErr)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "interactome.GRCh38.ht"), report.Jobs[0].OutputPath)
}

func TestNewRejectsBadHistoryDSN(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.History.DSN = "postgres://%zz"
	cfg.History.Table = "table_builds"

	_, err := app.New(context.Background(), cfg,
		app.WithLogger(zap.NewNop()),
		app.WithStore(memstore.NewBlobStore()),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init build history")
}

func TestNewRejectsEmptyRefGenome(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.DefaultRefGenome = ""

	_, err := app.New(context.Background(), cfg,
		app.WithLogger(zap.NewNop()),
		app.WithStore(memstore.NewBlobStore()),
	)
	require.Error(t, err)
}

func TestHistoryErrorDoesNotFailRun(t *testing.T) {
	t.Parallel()

	history := new(MockHistory)
	history.On("Consume", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	a, err := app.New(context.Background(), testConfig(t),
		app.WithLogger(zap.NewNop()),
		app.WithStore(memstore.NewBlobStore()),
		app.WithHistory(history),
	)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Orchestrator().Run(context.Background(), orchestrator.Request{
		Selected: []string{jobs.Interactome},
	})
	require.NoError(t, err)
	history.AssertExpectations(t)
}

func TestResolveOutputDir(t *testing.T) {
	t.Parallel()

	got, err := app.ResolveOutputDir("gs://bucket/ht")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/ht", got)

	got, err = app.ResolveOutputDir("data/ht")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "ht", filepath.Base(got))
}
