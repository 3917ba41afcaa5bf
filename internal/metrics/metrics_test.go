package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if tableBuildsTotal == nil || tableBuildDurationSeconds == nil ||
		tableLastSuccessTimestamps == nil || buildRunsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveJob(t *testing.T) {
	finished := time.Unix(1700000000, 0)
	Init()
	before := testutil.ToFloat64(tableBuildsTotal.WithLabelValues("gevir", OutcomeSucceeded))

	ObserveJob("gevir", OutcomeSucceeded, 2*time.Second, finished)
	ObserveJob("clinvar", OutcomeFailed, time.Second, finished)

	if got := testutil.ToFloat64(tableBuildsTotal.WithLabelValues("gevir", OutcomeSucceeded)); got != before+1 {
		t.Errorf("expected gevir success counter %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(tableLastSuccessTimestamps.WithLabelValues("gevir")); got != 1700000000 {
		t.Errorf("expected last success timestamp 1700000000, got %v", got)
	}
	if got := testutil.ToFloat64(tableLastSuccessTimestamps.WithLabelValues("clinvar")); got != 0 {
		t.Errorf("failed job must not set last success, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	ObserveRun(OutcomeSucceeded)

	path := filepath.Join(t.TempDir(), "vatk.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "vatk_build_runs_total") {
		t.Fatalf("expected vatk_build_runs_total in textfile, got:\n%s", data)
	}

	if err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "vatk.prom")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
