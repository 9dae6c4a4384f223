// Package pipeline wires the transformations to the data directory: each
// registered step loads its input tables, transforms them and saves the
// result, writing nothing unless every stage succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shipkr/shipdata/internal/config"
	"github.com/shipkr/shipdata/internal/jsondoc"
	"github.com/shipkr/shipdata/internal/transform"
)

// Env is what a step needs from the caller.
type Env struct {
	Config *config.Config
	Log    *slog.Logger
	Out    io.Writer // human-readable summary lines
}

func (e *Env) printf(format string, args ...any) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format, args...)
	}
}

// Step is one independent read-transform-write job.
type Step struct {
	Name  string
	Short string
	Run   func(ctx context.Context, env *Env) error
}

var (
	steps = map[string]Step{}
	order []string
)

// Register adds a step. Steps run by RunAll in registration order.
func Register(s Step) {
	if _, dup := steps[s.Name]; dup {
		panic("pipeline: duplicate step " + s.Name)
	}
	steps[s.Name] = s
	order = append(order, s.Name)
}

func Lookup(name string) (Step, error) {
	s, ok := steps[name]
	if !ok {
		return Step{}, fmt.Errorf("unknown pipeline: %s", name)
	}
	return s, nil
}

// Registered returns the step names in registration order.
func Registered() []string {
	return append([]string(nil), order...)
}

// Run executes a single step with timing and logging.
func Run(ctx context.Context, s Step, env *Env) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := env.Log.With("pipeline", s.Name)
	start := time.Now()
	log.Debug("start")
	if err := s.Run(ctx, &Env{Config: env.Config, Log: log, Out: env.Out}); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	log.Debug("done", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// RunAll executes every registered step in order and stops at the first
// failure.
func RunAll(ctx context.Context, env *Env) error {
	for _, name := range order {
		if err := Run(ctx, steps[name], env); err != nil {
			return err
		}
	}
	return nil
}

// Kind classifies err for reporting: file-not-found, parse-error,
// contract or generic.
func Kind(err error) string {
	var se *jsondoc.SyntaxError
	switch {
	case errors.Is(err, jsondoc.ErrNotFound):
		return "file-not-found"
	case errors.As(err, &se):
		return "parse-error"
	case errors.Is(err, transform.ErrContract):
		return "contract"
	default:
		return "generic"
	}
}
