package submission

import (
	"context"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/profiles"
	"github.com/JaimeStill/rancoqc/internal/session"
)

// Task is a submission running in the background.
type Task struct {
	done    chan struct{}
	receipt Receipt
	err     error
}

// Wait blocks until the submission finishes.
func (t *Task) Wait() (Receipt, error) {
	<-t.done
	return t.receipt, t.err
}

// Done is closed when the submission finishes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// SubmitAsync runs Submit in the background. The submission keeps the
// values of ctx but ignores its cancellation, so it always reaches a
// terminal outcome.
func (p *Pipeline) SubmitAsync(ctx context.Context, t Target, prof profiles.Profile, form analysis.Form, s *session.Session) *Task {
	task := &Task{done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer close(task.done)
		task.receipt, task.err = p.Submit(ctx, t, prof, form, s)
	}()

	return task
}
