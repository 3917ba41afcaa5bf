package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrBuild matches every BuilderError via errors.Is.
	ErrBuild = errors.New("table build failed")
	// ErrPersist matches every PersistenceError via errors.Is.
	ErrPersist = errors.New("table checkpoint failed")
)

// BuilderError wraps a failure raised by a job's builder.
type BuilderError struct {
	Job string
	Err error
}

func (e *BuilderError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Job, e.Err)
}

func (e *BuilderError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrBuild) match.
func (e *BuilderError) Is(target error) bool { return target == ErrBuild }

// PersistenceError wraps a failure raised while checkpointing a job's table.
type PersistenceError struct {
	Job  string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s to %s: %v", e.Job, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersist) match.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersist }
