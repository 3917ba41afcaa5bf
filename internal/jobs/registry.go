// Package jobs declares the closed set of annotation tables the orchestrator can
// build and maps each one to a builder and an output location.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/annotation-tables/internal/table"
)

// Placeholders recognised in output path templates.
const (
	OutputDirPlaceholder = "{output_dir}"
	RefGenomePlaceholder = "{ref_genome}"
)

// ErrUnknownJob matches every UnknownJobError via errors.Is.
var ErrUnknownJob = errors.New("unknown job")

// UnknownJobError reports a job id with no registry entry.
type UnknownJobError struct {
	ID string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("unknown job %q: no builder is registered for it", e.ID)
}

// Is lets errors.Is(err, ErrUnknownJob) match.
func (e *UnknownJobError) Is(target error) bool {
	return target == ErrUnknownJob
}

// Builder produces a fresh table handle from its raw source.
type Builder func(ctx context.Context) (table.Handle, error)

// Spec binds a job id to its builder and output location.
type Spec struct {
	ID           string
	Builder      Builder
	PathTemplate string
	GenomeScoped bool
	Help         string
}

// Registry is an immutable, ordered set of job specs.
type Registry struct {
	order []string
	specs map[string]Spec
}

// NewRegistry validates specs and keeps them in the given order.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("job id is required")
		}
		if _, dup := r.specs[s.ID]; dup {
			return nil, fmt.Errorf("duplicate job id %q", s.ID)
		}
		if s.Builder == nil {
			return nil, fmt.Errorf("job %q: builder is required", s.ID)
		}
		if !strings.Contains(s.PathTemplate, OutputDirPlaceholder) {
			return nil, fmt.Errorf("job %q: path template must contain %s", s.ID, OutputDirPlaceholder)
		}
		if s.GenomeScoped != strings.Contains(s.PathTemplate, RefGenomePlaceholder) {
			return nil, fmt.Errorf("job %q: %s must appear in the path template exactly when the job is genome-scoped", s.ID, RefGenomePlaceholder)
		}
		r.order = append(r.order, s.ID)
		r.specs[s.ID] = s
	}
	return r, nil
}

// Resolve returns the spec registered for id.
func (r *Registry) Resolve(id string) (Spec, error) {
	s, ok := r.specs[id]
	if !ok {
		return Spec{}, &UnknownJobError{ID: id}
	}
	return s, nil
}

// IDs returns the registered job ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// OutputPath renders the artifact location of spec. refGenome is only
// substituted for genome-scoped specs.
func OutputPath(spec Spec, outputDir, refGenome string) string {
	pairs := []string{OutputDirPlaceholder, strings.TrimRight(outputDir, "/")}
	if spec.GenomeScoped {
		pairs = append(pairs, RefGenomePlaceholder, refGenome)
	}
	return strings.NewReplacer(pairs...).Replace(spec.PathTemplate)
}
