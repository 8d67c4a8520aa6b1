package server

import (
	"context"
	"log/slog"
)

// sagaStep is one forward action paired with its compensation. The undo
// runs only when a later step fails.
type sagaStep struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// runSaga executes steps in order. On failure it unwinds the completed
// steps in reverse and returns the original error; compensation failures
// are logged, not returned, so the first cause is preserved.
func runSaga(ctx context.Context, logger *slog.Logger, steps []sagaStep) error {
	done := make([]sagaStep, 0, len(steps))
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			for i := len(done) - 1; i >= 0; i-- {
				prev := done[i]
				if prev.undo == nil {
					continue
				}
				if undoErr := prev.undo(ctx); undoErr != nil {
					logger.Error("saga compensation failed",
						"step", prev.name, "after", step.name, "error", undoErr)
				}
			}
			return err
		}
		done = append(done, step)
	}
	return nil
}
