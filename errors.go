package cpshadow

import (
	"errors"
	"fmt"
)

// Errors reported by Initialize and by backends. None of them ever reaches
// the host's render tree: a renderer that hit one of them stays fully
// transparent.
var (
	// ErrContextUnavailable is returned when the platform cannot provide a
	// real-time graphics context for the surface.
	ErrContextUnavailable = errors.New("cpshadow: graphics context unavailable")

	// ErrMeasurementUnavailable is reported when the anchor, the container or
	// the surface has no measurable box (detached, hidden or zero-area).
	ErrMeasurementUnavailable = errors.New("cpshadow: anchor geometry unavailable")

	// ErrNilSurface is returned when Initialize is called without a surface.
	ErrNilSurface = errors.New("cpshadow: nil surface")
)

// ShaderCompileError reports a shader stage that failed to build.
// Log holds the compiler diagnostic.
type ShaderCompileError struct {
	Stage Stage
	Log   string
	Err   error
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("cpshadow: %s shader compile failed: %s", e.Stage, e.Log)
}

func (e *ShaderCompileError) Unwrap() error { return e.Err }

// ShaderLinkError reports a vertex/fragment pair that failed to link into a
// program. Log holds the linker diagnostic.
type ShaderLinkError struct {
	Log string
	Err error
}

func (e *ShaderLinkError) Error() string {
	return "cpshadow: shader link failed: " + e.Log
}

func (e *ShaderLinkError) Unwrap() error { return e.Err }

// compileError normalizes a backend error into a *ShaderCompileError.
func compileError(stage Stage, err error) error {
	var ce *ShaderCompileError
	if errors.As(err, &ce) {
		return err
	}
	return &ShaderCompileError{Stage: stage, Log: err.Error(), Err: err}
}

// linkError normalizes a backend error into a *ShaderLinkError.
func linkError(err error) error {
	var le *ShaderLinkError
	if errors.As(err, &le) {
		return err
	}
	return &ShaderLinkError{Log: err.Error(), Err: err}
}

// contextError makes sure err matches ErrContextUnavailable.
func contextError(err error) error {
	if errors.Is(err, ErrContextUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrContextUnavailable, err)
}
