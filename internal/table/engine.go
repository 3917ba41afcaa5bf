package table

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/annotation-tables/internal/storage"
)

// Artifact object names inside a checkpointed table.
const (
	RowsObject     = "rows.tsv.gz"
	MetadataObject = "metadata.json"
	SuccessObject  = "_SUCCESS"

	// FormatVersion tags the on-disk layout written by Checkpoint.
	FormatVersion = "vatk-table/1"
)

// ErrArtifactExists is returned by Checkpoint when the target is occupied and overwrite is false.
var ErrArtifactExists = errors.New("table artifact already exists")

// Hasher digests the encoded rows for the artifact manifest.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock supplies timestamps for artifact metadata.
type Clock interface {
	Now() time.Time
}

// EngineConfig wires the persistence engine.
type EngineConfig struct {
	// RefGenome is the session-wide default reference genome.
	RefGenome string
	Store     storage.Provider
	Hasher    Hasher
	Clock     Clock
	Logger    *zap.Logger
}

// Engine creates tables and checkpoints them into an artifact store.
type Engine struct {
	refGenome string
	store     storage.Provider
	hasher    Hasher
	clock     Clock
	logger    *zap.Logger
}

// Metadata is the manifest stored next to the rows of every artifact.
type Metadata struct {
	Format     string            `json:"format"`
	Name       string            `json:"name"`
	Columns    []string          `json:"columns"`
	Key        []string          `json:"key"`
	Rows       int               `json:"rows"`
	Globals    map[string]string `json:"globals,omitempty"`
	RowsSHA256 string            `json:"rows_sha256"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewEngine validates the configuration and returns an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if strings.TrimSpace(cfg.RefGenome) == "" {
		return nil, fmt.Errorf("reference genome is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		refGenome: cfg.RefGenome,
		store:     cfg.Store,
		hasher:    cfg.Hasher,
		clock:     cfg.Clock,
		logger:    logger,
	}, nil
}

// RefGenome returns the default reference genome of the session.
func (e *Engine) RefGenome() string { return e.refGenome }

// NewTable builds an unkeyed table. Every row must match the column count.
func (e *Engine) NewTable(name string, columns []string, rows [][]string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s: at least one column is required", name)
	}
	index := indexColumns(columns)
	if len(index) != len(columns) {
		return nil, fmt.Errorf("table %s: duplicate column names", name)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("table %s: row %d has %d fields, want %d", name, i, len(row), len(columns))
		}
	}
	return &Table{
		engine:  e,
		name:    name,
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    rows,
		globals: map[string]string{},
	}, nil
}

func (e *Engine) checkpoint(ctx context.Context, t *Table, path string, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("checkpoint path is required")
	}
	exists, err := e.store.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}
	if exists {
		if !overwrite {
			return fmt.Errorf("%s: %w", path, ErrArtifactExists)
		}
		if err := e.store.RemoveAll(ctx, path); err != nil {
			return fmt.Errorf("remove previous %s: %w", path, err)
		}
		e.logger.Debug("removed previous artifact", zap.String("path", path))
	}

	rows, err := encodeRows(t)
	if err != nil {
		return err
	}
	digest, err := e.hasher.Hash(rows)
	if err != nil {
		return fmt.Errorf("hash rows: %w", err)
	}
	meta := Metadata{
		Format:     FormatVersion,
		Name:       t.name,
		Columns:    t.Columns(),
		Key:        t.Key(),
		Rows:       t.Len(),
		Globals:    t.globals,
		RowsSHA256: digest,
		CreatedAt:  e.clock.Now(),
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if _, err := e.store.PutObject(ctx, storage.JoinPath(path, RowsObject), "application/gzip", bytes.NewReader(rows)); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if _, err := e.store.PutObject(ctx, storage.JoinPath(path, MetadataObject), "application/json", bytes.NewReader(metaJSON)); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	// _SUCCESS goes last so readers can tell complete artifacts from partial ones.
	if _, err := e.store.PutObject(ctx, storage.JoinPath(path, SuccessObject), "text/plain", bytes.NewReader(nil)); err != nil {
		return fmt.Errorf("write success marker: %w", err)
	}

	e.logger.Info("table checkpointed",
		zap.String("table", t.name),
		zap.String("path", path),
		zap.Int("rows", t.Len()),
	)
	return nil
}

func encodeRows(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	w := csv.NewWriter(gz)
	w.Comma = '\t'
	if err := w.Write(t.columns); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if err := w.WriteAll(t.rows); err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress rows: %w", err)
	}
	return buf.Bytes(), nil
}
