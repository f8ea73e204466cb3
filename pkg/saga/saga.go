package saga

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ActionFunc performs or undoes one unit of work.
type ActionFunc func(ctx context.Context) error

// Step is one {action, compensation} pair.
// Compensate may be nil for steps with nothing to undo.
type Step struct {
	Action     ActionFunc
	Compensate ActionFunc
	Name       string
}

// Option configures a Saga.
type Option func(*Saga)

// WithLogger sets the logger used for step progress and compensation failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Saga) {
		if l != nil {
			s.logger = l
		}
	}
}

// Saga executes steps in order and compensates completed steps on failure.
// A Saga runs at most once.
type Saga struct {
	logger *slog.Logger
	name   string
	steps  []Step
	cursor int
	mu     sync.Mutex
	ran    bool
}

// New creates an empty saga.
func New(name string, opts ...Option) *Saga {
	s := &Saga{
		name:   name,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddStep appends a step. It returns the saga for chaining.
func (s *Saga) AddStep(name string, action, compensate ActionFunc) *Saga {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, Step{Name: name, Action: action, Compensate: compensate})
	return s
}

// Cursor returns the number of steps whose action completed.
// After a failed run it reports how far the saga got before compensating.
func (s *Saga) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Run executes every step. On the first failing action it compensates the
// completed steps in reverse order and returns a *StepError.
func (s *Saga) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return ErrAlreadyRun
	}
	s.ran = true
	steps := s.steps
	s.mu.Unlock()

	if len(steps) == 0 {
		return ErrNoSteps
	}

	for i, step := range steps {
		if step.Action == nil {
			return s.fail(ctx, steps, i, fmt.Errorf("%w: %s", ErrNilStepAction, step.Name))
		}

		s.logger.DebugContext(ctx, "saga step started",
			slog.String("saga", s.name),
			slog.String("step", step.Name),
		)

		if err := safeCall(ctx, step.Action); err != nil {
			return s.fail(ctx, steps, i, err)
		}

		s.mu.Lock()
		s.cursor = i + 1
		s.mu.Unlock()
	}

	return nil
}

// fail compensates every completed step, newest first, and wraps the cause.
func (s *Saga) fail(ctx context.Context, steps []Step, failed int, cause error) error {
	stepErr := &StepError{Step: steps[failed].Name, Err: cause}

	s.logger.WarnContext(ctx, "saga step failed, compensating",
		slog.String("saga", s.name),
		slog.String("step", stepErr.Step),
		slog.Int("completed", failed),
		slog.Any("error", cause),
	)

	compCtx := context.WithoutCancel(ctx)
	for i := failed - 1; i >= 0; i-- {
		step := steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := safeCall(compCtx, step.Compensate); err != nil {
			stepErr.CompensationErrors = append(stepErr.CompensationErrors, fmt.Errorf("%s: %w", step.Name, err))
			s.logger.ErrorContext(ctx, "saga compensation failed",
				slog.String("saga", s.name),
				slog.String("step", step.Name),
				slog.Any("error", err),
			)
		}
	}

	return stepErr
}

// safeCall turns a panic inside fn into an error so compensation still runs.
func safeCall(ctx context.Context, fn ActionFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanicked, p)
		}
	}()
	return fn(ctx)
}
