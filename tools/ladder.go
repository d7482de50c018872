package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
)

// Step is one rung of a fallback ladder. Fn writes its output to the
// returned path; the ladder checks the file before accepting it.
type Step[S any] struct {
	Name string
	Fn   func(ctx context.Context, spec S) (string, error)
}

// Attempt records why a rung was rejected
type Attempt struct {
	Step string
	Err  error
}

// ExhaustedError is returned when every rung of a ladder failed
type ExhaustedError struct {
	Label    string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Step, a.Err))
	}
	return fmt.Sprintf("%s: all %d strategies failed (%s)", e.Label, len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes the individual rung errors to errors.Is / errors.As
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// ErrEmptyOutput means a step reported success but left a missing or zero-byte file
var ErrEmptyOutput = errors.New("empty output")

// Ladder tries its steps in order and returns the first non-empty result
type Ladder[S any] struct {
	Label string
	Steps []Step[S]
}

// NewLadder builds a ladder from ordered steps
func NewLadder[S any](label string, steps ...Step[S]) *Ladder[S] {
	return &Ladder[S]{Label: label, Steps: steps}
}

// Run returns the output path and the name of the step that produced it
func (l *Ladder[S]) Run(ctx context.Context, spec S) (string, string, error) {
	var attempts []Attempt
	for i, step := range l.Steps {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Step: step.Name, Err: err})
			break
		}
		path, err := step.Fn(ctx, spec)
		if err == nil {
			err = NonEmpty(path)
		}
		if err == nil {
			if i > 0 {
				log.Printf("[%s] ⚠️  recovered with fallback %q", l.Label, step.Name)
			}
			return path, step.Name, nil
		}
		if path != "" && errors.Is(err, ErrEmptyOutput) {
			_ = os.Remove(path)
		}
		log.Printf("[%s] ⚠️  %s failed: %v", l.Label, step.Name, err)
		attempts = append(attempts, Attempt{Step: step.Name, Err: err})
	}
	return "", "", &ExhaustedError{Label: l.Label, Attempts: attempts}
}

// NonEmpty checks that path names an existing file of non-zero size
func NonEmpty(path string) error {
	if path == "" {
		return fmt.Errorf("no output path: %w", ErrEmptyOutput)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, ErrEmptyOutput)
	}
	if fi.IsDir() || fi.Size() == 0 {
		return fmt.Errorf("%s is zero bytes: %w", path, ErrEmptyOutput)
	}
	return nil
}
